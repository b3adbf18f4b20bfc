package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"correspondent/internal/domain"
	"correspondent/internal/scanner"
)

// HTMLScanner extracts content entries from ordinary web pages: article
// elements first, headline links as a fallback.
type HTMLScanner struct {
	client *http.Client
}

var _ scanner.Scanner = (*HTMLScanner)(nil)

// NewHTMLScanner wires an HTTP client; nil falls back to a default-timeout client.
func NewHTMLScanner(client *http.Client) *HTMLScanner {
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &HTMLScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (s *HTMLScanner) Name() string {
	return "html"
}

// Scan downloads the page at siteURL and extracts its entries.
func (s *HTMLScanner) Scan(ctx context.Context, siteURL string) ([]domain.ContentItem, error) {
	body, err := get(ctx, s.client, siteURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("parse page %s: %w", siteURL, err))
	}

	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, permanent(fmt.Errorf("invalid site url %s: %w", siteURL, err))
	}

	items := extractArticles(doc, base, siteURL)
	if len(items) == 0 {
		items = extractHeadlines(doc, base, siteURL)
	}
	return items, nil
}

func extractArticles(doc *goquery.Document, base *url.URL, siteURL string) []domain.ContentItem {
	var items []domain.ContentItem
	seen := map[string]struct{}{}

	doc.Find("article").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find("h1, h2, h3").First().Text())
		link := sel.Find("a[href]").First()
		href, _ := link.Attr("href")
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}
		if title == "" {
			return
		}

		body := strings.TrimSpace(sel.Find("p").Text())
		published := parsePageTime(sel)

		item := buildItem(base, siteURL, href, title, body, published)
		if _, dup := seen[item.ID]; dup {
			return
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	})

	return items
}

func extractHeadlines(doc *goquery.Document, base *url.URL, siteURL string) []domain.ContentItem {
	var items []domain.ContentItem
	seen := map[string]struct{}{}

	doc.Find("h1 a[href], h2 a[href], h3 a[href]").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Text())
		href, _ := sel.Attr("href")
		if title == "" {
			return
		}

		item := buildItem(base, siteURL, href, title, "", time.Time{})
		if _, dup := seen[item.ID]; dup {
			return
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	})

	return items
}

func buildItem(base *url.URL, siteURL, href, title, body string, published time.Time) domain.ContentItem {
	id := ""
	if href != "" {
		if ref, err := url.Parse(href); err == nil {
			if norm, err := normalizeURL(base.ResolveReference(ref).String()); err == nil {
				id = norm
			}
		}
	}
	if id == "" {
		id = contentHash(siteURL, title)
	}

	return domain.ContentItem{
		SiteURL:     siteURL,
		ID:          id,
		Title:       title,
		Body:        body,
		PublishedAt: published,
	}
}

func parsePageTime(sel *goquery.Selection) time.Time {
	value, ok := sel.Find("time[datetime]").First().Attr("datetime")
	if !ok {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
