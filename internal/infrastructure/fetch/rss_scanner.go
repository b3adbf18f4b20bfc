package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"correspondent/internal/domain"
	"correspondent/internal/scanner"
)

// RSSScanner reads RSS 2.0 and Atom feeds.
type RSSScanner struct {
	client *http.Client
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client; nil falls back to a default-timeout client.
func NewRSSScanner(client *http.Client) *RSSScanner {
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &RSSScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan downloads and parses the feed at siteURL.
func (s *RSSScanner) Scan(ctx context.Context, siteURL string) ([]domain.ContentItem, error) {
	body, err := get(ctx, s.client, siteURL)
	if err != nil {
		return nil, err
	}

	items, err := parseFeed(body, siteURL)
	if err != nil {
		return nil, permanent(fmt.Errorf("parse feed %s: %w", siteURL, err))
	}
	return items, nil
}

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssEntry `xml:"item"`
	} `xml:"channel"`
}

type rssEntry struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

type atomDocument struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	ID        string     `xml:"id"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

func parseFeed(body []byte, siteURL string) ([]domain.ContentItem, error) {
	var rss rssDocument
	if err := xml.Unmarshal(body, &rss); err == nil && rss.XMLName.Local == "rss" {
		return fromRSS(rss, siteURL), nil
	}

	var atom atomDocument
	if err := xml.Unmarshal(body, &atom); err != nil {
		return nil, err
	}
	if len(atom.Entries) == 0 {
		return nil, fmt.Errorf("no recognizable feed entries")
	}
	return fromAtom(atom, siteURL), nil
}

func fromRSS(doc rssDocument, siteURL string) []domain.ContentItem {
	items := make([]domain.ContentItem, 0, len(doc.Channel.Items))
	for _, e := range doc.Channel.Items {
		id := strings.TrimSpace(e.GUID)
		if id == "" {
			id = itemID(e.Link, e.Title, e.PubDate)
		}
		items = append(items, domain.ContentItem{
			SiteURL:     siteURL,
			ID:          id,
			Title:       strings.TrimSpace(e.Title),
			Body:        strings.TrimSpace(e.Description),
			PublishedAt: parseFeedTime(e.PubDate),
		})
	}
	return items
}

func fromAtom(doc atomDocument, siteURL string) []domain.ContentItem {
	items := make([]domain.ContentItem, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		body := strings.TrimSpace(e.Summary)
		if body == "" {
			body = strings.TrimSpace(e.Content)
		}
		id := strings.TrimSpace(e.ID)
		if id == "" {
			id = itemID(atomHref(e.Links), e.Title, e.Published)
		}
		items = append(items, domain.ContentItem{
			SiteURL:     siteURL,
			ID:          id,
			Title:       strings.TrimSpace(e.Title),
			Body:        body,
			PublishedAt: parseFeedTime(firstNonEmpty(e.Published, e.Updated)),
		})
	}
	return items
}

func atomHref(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
	}
	if len(links) > 0 {
		return links[0].Href
	}
	return ""
}

// itemID prefers the normalized link; feeds without links fall back to a
// content hash.
func itemID(link, title, published string) string {
	if norm, err := normalizeURL(link); err == nil {
		return norm
	}
	return contentHash(title, published)
}

var feedTimeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

func parseFeedTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
