package ports

import (
	"context"
	"time"

	"correspondent/internal/domain"
)

// ContentSource pulls fresh items from a single monitored site.
type ContentSource interface {
	Fetch(ctx context.Context, siteURL string) ([]domain.ContentItem, error)
}

// SeenStore records item identifiers already delivered to a user.
type SeenStore interface {
	Seen(ctx context.Context, userID string, itemIDs []string) (map[string]bool, error)
	MarkDelivered(ctx context.Context, userID string, itemIDs []string, at time.Time) error
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// Roster manages the user list on behalf of the orchestrator.
type Roster interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	AddUser(ctx context.Context, user domain.User) (domain.User, error)
}

// Deliverer hands a composed report to the user.
type Deliverer interface {
	Deliver(ctx context.Context, user domain.User, report domain.Report) error
}

// Scheduler controls when report runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
