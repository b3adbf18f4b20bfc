// Package matcher scores fetched items against a user's interest keywords.
package matcher

import (
	"strings"

	"correspondent/internal/domain"
)

// Match filters items down to those mentioning at least one interest keyword.
// Matching is a case-insensitive substring check over title and body; the
// score is the count of distinct matched keywords. Items with no match are
// excluded. Output order follows input order, so identical input yields
// identical output.
func Match(items []domain.ContentItem, interests []string) []domain.MatchResult {
	keywords := normalizeKeywords(interests)
	if len(keywords) == 0 {
		return nil
	}

	var results []domain.MatchResult
	for _, item := range items {
		haystack := strings.ToLower(item.Title + " " + item.Body)

		var matched []string
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}

		results = append(results, domain.MatchResult{
			Item:     item,
			Score:    float64(len(matched)),
			Keywords: matched,
		})
	}
	return results
}

func normalizeKeywords(interests []string) []string {
	seen := make(map[string]struct{}, len(interests))
	out := make([]string, 0, len(interests))
	for _, kw := range interests {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
