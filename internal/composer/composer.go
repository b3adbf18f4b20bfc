// Package composer assembles matched items into a deliverable report.
package composer

import (
	"sort"
	"time"

	"correspondent/internal/domain"
)

// DefaultMaxItems caps the digest payload when no override is configured.
const DefaultMaxItems = 20

// Compose drops already-delivered items, orders the rest (descending score,
// then most recent first, then ascending item ID) and truncates to maxItems.
// Truncation removes the lowest-ranked items only.
func Compose(userID string, results []domain.MatchResult, seen map[string]bool, now time.Time, maxItems int) domain.Report {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	kept := make([]domain.MatchResult, 0, len(results))
	for _, r := range results {
		if seen[r.Item.ID] {
			continue
		}
		kept = append(kept, r)
	}

	sort.Slice(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Item.PublishedAt.Equal(b.Item.PublishedAt) {
			return a.Item.PublishedAt.After(b.Item.PublishedAt)
		}
		return a.Item.ID < b.Item.ID
	})

	if len(kept) > maxItems {
		kept = kept[:maxItems]
	}

	return domain.Report{
		UserID:      userID,
		Items:       kept,
		GeneratedAt: now,
	}
}
