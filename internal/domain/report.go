package domain

import "time"

// Report is the composed digest for one user, ordered by descending score,
// then most recent first, then ascending item ID.
type Report struct {
	UserID      string
	Items       []MatchResult
	GeneratedAt time.Time
}

// Empty reports are composed but never delivered.
func (r Report) Empty() bool {
	return len(r.Items) == 0
}

// UserState enumerates per-user pipeline milestones within a run.
type UserState string

const (
	StatePending    UserState = "pending"
	StateFetching   UserState = "fetching"
	StateMatching   UserState = "matching"
	StateComposing  UserState = "composing"
	StateDelivering UserState = "delivering"
	StateDone       UserState = "done"
	StateFailed     UserState = "failed"
)

// RunSummary aggregates the outcome of one full report run.
type RunSummary struct {
	UsersProcessed int
	UsersFailed    int
	ItemsDelivered int
	SiteFailures   int
}
