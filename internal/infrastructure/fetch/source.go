package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"correspondent/internal/config"
	"correspondent/internal/domain"
	"correspondent/internal/ports"
	"correspondent/internal/scanner"
)

// Source implements the content-source port on top of registered scanner
// strategies, retrying transient failures with exponential backoff.
type Source struct {
	registry    *scanner.Registry
	byHost      map[string]string
	maxAttempts int
	retryBase   time.Duration
	retryCap    time.Duration
	logger      *slog.Logger
}

var _ ports.ContentSource = (*Source)(nil)

// NewSource wires the scanner registry with fetch policy from config.
func NewSource(reg *scanner.Registry, cfg config.FetchConfig, logger *slog.Logger) *Source {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &Source{
		registry:    reg,
		byHost:      cfg.Scanners,
		maxAttempts: maxAttempts,
		retryBase:   cfg.RetryBase.Std(),
		retryCap:    cfg.RetryCap.Std(),
		logger:      logger,
	}
}

// Fetch pulls items from one site. Transient failures are retried up to the
// attempt bound; permanent failures return immediately. Either way a failure
// concerns this site only.
func (s *Source) Fetch(ctx context.Context, siteURL string) ([]domain.ContentItem, error) {
	strategy, err := s.resolve(siteURL)
	if err != nil {
		return nil, permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryBase
	policy.MaxInterval = s.retryCap
	policy.Multiplier = 2
	policy.MaxElapsedTime = 0

	attempt := 0
	var items []domain.ContentItem
	op := func() error {
		attempt++
		out, scanErr := strategy.Scan(ctx, siteURL)
		if scanErr != nil {
			if !IsTransient(scanErr) {
				return backoff.Permanent(scanErr)
			}
			s.debug("fetch attempt failed", "site", siteURL, "attempt", attempt, "error", scanErr)
			return scanErr
		}
		items = out
		return nil
	}

	retries := uint64(s.maxAttempts - 1)
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx)); err != nil {
		return nil, err
	}

	s.debug("fetch done", "site", siteURL, "scanner", strategy.Name(), "items", len(items))
	return items, nil
}

func (s *Source) resolve(siteURL string) (scanner.Scanner, error) {
	if u, err := url.Parse(siteURL); err == nil {
		if name, ok := s.byHost[strings.ToLower(u.Hostname())]; ok {
			return s.registry.Resolve(name)
		}
	}
	return s.registry.Resolve(guessScanner(siteURL))
}

// guessScanner picks a strategy from the URL shape when config has no
// explicit mapping for the host.
func guessScanner(siteURL string) string {
	lower := strings.ToLower(siteURL)
	for _, marker := range []string{"/feed", "/rss", "/atom", ".xml"} {
		if strings.Contains(lower, marker) {
			return "rss"
		}
	}
	return "html"
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
