package domain

import "time"

// ContentItem is a normalized piece of content fetched from a monitored site.
// Items are transient: they live only for the duration of a report run.
type ContentItem struct {
	SiteURL     string
	ID          string
	Title       string
	Body        string
	PublishedAt time.Time
}

// MatchResult pairs an item with its relevance to one user's interests.
// Score > 0 always implies at least one entry in Keywords.
type MatchResult struct {
	Item     ContentItem
	Score    float64
	Keywords []string
}
