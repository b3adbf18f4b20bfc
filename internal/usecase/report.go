package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"correspondent/internal/composer"
	"correspondent/internal/domain"
	"correspondent/internal/matcher"
	"correspondent/internal/ports"
)

// ErrRunInProgress is returned when RunReport is invoked while a run is
// already executing. Overlapping runs risk duplicate delivery.
var ErrRunInProgress = errors.New("report run already in progress")

const (
	defaultWorkers      = 8
	defaultPerHostLimit = 2
)

// OrchestratorDeps wires all driven adapters into the report orchestrator.
type OrchestratorDeps struct {
	Roster    ports.Roster
	Source    ports.ContentSource
	Seen      ports.SeenStore
	Deliverer ports.Deliverer
	Logger    *slog.Logger

	// Workers bounds concurrent site fetches across the whole run.
	Workers int
	// PerHostLimit additionally bounds concurrent fetches per remote host.
	PerHostLimit int
	// MaxItems caps each composed report.
	MaxItems int
	// Retention bounds how long seen-item records are kept.
	Retention time.Duration
}

// Orchestrator drives the report pipeline across all users: fetch each user's
// sites, match against their interests, drop already-delivered items, compose
// and deliver, then record what went out.
type Orchestrator struct {
	roster    ports.Roster
	source    ports.ContentSource
	seen      ports.SeenStore
	deliverer ports.Deliverer
	logger    *slog.Logger

	maxItems  int
	retention time.Duration
	perHost   int64
	fetchSem  *semaphore.Weighted

	running atomic.Bool

	mu       sync.Mutex
	hostSems map[string]*semaphore.Weighted
}

// NewOrchestrator constructs the orchestration component.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	workers := deps.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	perHost := deps.PerHostLimit
	if perHost < 1 {
		perHost = defaultPerHostLimit
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		roster:    deps.Roster,
		source:    deps.Source,
		seen:      deps.Seen,
		deliverer: deps.Deliverer,
		logger:    logger,
		maxItems:  deps.MaxItems,
		retention: deps.Retention,
		perHost:   int64(perHost),
		fetchSem:  semaphore.NewWeighted(int64(workers)),
		hostSems:  map[string]*semaphore.Weighted{},
	}
}

// RunReport executes one full run over the roster. Per-site and per-user
// failures are recorded in the summary; only roster unavailability is an
// error. A second call while a run is in flight returns ErrRunInProgress.
func (o *Orchestrator) RunReport(ctx context.Context) (domain.RunSummary, error) {
	if !o.running.CompareAndSwap(false, true) {
		return domain.RunSummary{}, ErrRunInProgress
	}
	defer o.running.Store(false)

	// per-host limits are scoped to a single run; dropping the map keeps it
	// from growing with every host ever fetched
	o.mu.Lock()
	o.hostSems = make(map[string]*semaphore.Weighted)
	o.mu.Unlock()

	users, err := o.roster.ListUsers(ctx)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("list users: %w", err)
	}

	start := time.Now()
	var (
		mu      sync.Mutex
		summary domain.RunSummary
		wg      sync.WaitGroup
	)
	for _, user := range users {
		wg.Add(1)
		go func(user domain.User) {
			defer wg.Done()
			delivered, siteFailures, userErr := o.processUser(ctx, user)

			mu.Lock()
			defer mu.Unlock()
			summary.SiteFailures += siteFailures
			if userErr != nil {
				summary.UsersFailed++
				o.logger.Warn("user run failed", "user", user.ID, "error", userErr)
				return
			}
			summary.UsersProcessed++
			summary.ItemsDelivered += delivered
		}(user)
	}
	wg.Wait()

	if o.retention > 0 {
		o.prune(context.WithoutCancel(ctx))
	}

	o.logger.Info("report run complete",
		"took", time.Since(start).Round(time.Millisecond),
		"users_processed", summary.UsersProcessed,
		"users_failed", summary.UsersFailed,
		"items_delivered", summary.ItemsDelivered,
		"site_failures", summary.SiteFailures)
	return summary, nil
}

func (o *Orchestrator) processUser(ctx context.Context, user domain.User) (delivered, siteFailures int, err error) {
	o.setState(user, domain.StatePending)

	o.setState(user, domain.StateFetching)
	items, siteFailures := o.fetchSites(ctx, user)
	if len(items) == 0 && siteFailures > 0 && siteFailures == len(user.Sites) {
		o.setState(user, domain.StateFailed)
		return 0, siteFailures, fmt.Errorf("all %d sites failed", siteFailures)
	}

	// Past the fetch phase the user completes even if the run-level context
	// is cancelled: aborting between delivery and bookkeeping would leave
	// the seen-item store inconsistent.
	ctx = context.WithoutCancel(ctx)

	o.setState(user, domain.StateMatching)
	results := matcher.Match(items, user.Interests)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Item.ID
	}
	seen, err := o.seen.Seen(ctx, user.ID, ids)
	if err != nil {
		o.setState(user, domain.StateFailed)
		return 0, siteFailures, fmt.Errorf("load seen items: %w", err)
	}

	o.setState(user, domain.StateComposing)
	report := composer.Compose(user.ID, results, seen, time.Now().UTC(), o.maxItems)
	if report.Empty() {
		o.setState(user, domain.StateDone)
		o.logger.Debug("no new items, delivery suppressed", "user", user.ID)
		return 0, siteFailures, nil
	}

	o.setState(user, domain.StateDelivering)
	if err := o.deliverer.Deliver(ctx, user, report); err != nil {
		o.setState(user, domain.StateFailed)
		return 0, siteFailures, fmt.Errorf("deliver report: %w", err)
	}

	deliveredIDs := make([]string, len(report.Items))
	for i, item := range report.Items {
		deliveredIDs[i] = item.Item.ID
	}
	if err := o.seen.MarkDelivered(ctx, user.ID, deliveredIDs, report.GeneratedAt); err != nil {
		o.setState(user, domain.StateFailed)
		return 0, siteFailures, fmt.Errorf("mark delivered: %w", err)
	}

	o.setState(user, domain.StateDone)
	return len(report.Items), siteFailures, nil
}

// fetchSites fans the user's sites out over the shared fetch pool. A site
// failure is recorded and the rest keep going. Cancellation stops issuing
// new fetches; in-flight ones finish or time out on their own.
func (o *Orchestrator) fetchSites(ctx context.Context, user domain.User) ([]domain.ContentItem, int) {
	var (
		mu       sync.Mutex
		items    []domain.ContentItem
		failures int
		byID     = map[string]struct{}{}
		wg       sync.WaitGroup
	)
	for _, site := range user.Sites {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(site string) {
			defer wg.Done()
			fetched, err := o.fetchSite(ctx, site)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				o.logger.Warn("site fetch failed", "user", user.ID, "site", site, "error", err)
				return
			}
			for _, item := range fetched {
				if _, dup := byID[item.ID]; dup {
					continue
				}
				byID[item.ID] = struct{}{}
				items = append(items, item)
			}
		}(site)
	}
	wg.Wait()
	return items, failures
}

func (o *Orchestrator) fetchSite(ctx context.Context, site string) ([]domain.ContentItem, error) {
	if err := o.fetchSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer o.fetchSem.Release(1)

	if host := o.hostSem(site); host != nil {
		if err := host.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer host.Release(1)
	}

	return o.source.Fetch(ctx, site)
}

func (o *Orchestrator) hostSem(site string) *semaphore.Weighted {
	u, err := url.Parse(site)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	host := strings.ToLower(u.Hostname())

	o.mu.Lock()
	defer o.mu.Unlock()
	sem, ok := o.hostSems[host]
	if !ok {
		sem = semaphore.NewWeighted(o.perHost)
		o.hostSems[host] = sem
	}
	return sem
}

func (o *Orchestrator) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-o.retention)
	deleted, err := o.seen.Prune(ctx, cutoff)
	if err != nil {
		o.logger.Warn("prune seen items", "error", err)
		return
	}
	if deleted > 0 {
		o.logger.Info("pruned seen items", "deleted", deleted, "cutoff", cutoff)
	}
}

func (o *Orchestrator) setState(user domain.User, state domain.UserState) {
	o.logger.Debug("user state", "user", user.ID, "state", state)
}
