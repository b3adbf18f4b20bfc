package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"correspondent/internal/config"
	"correspondent/internal/infrastructure/delivery"
	"correspondent/internal/infrastructure/fetch"
	schedulerdriver "correspondent/internal/infrastructure/scheduler"
	"correspondent/internal/infrastructure/storage"
	"correspondent/internal/logging"
	"correspondent/internal/ports"
	"correspondent/internal/scanner"
	"correspondent/internal/transport/rest"
	"correspondent/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.Store
	scheduler *usecase.Scheduler
	server    *http.Server
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	httpClient := fetch.NewHTTPClient(cfg.Fetch.Timeout.Std())
	registry := scanner.NewRegistry()
	registry.Register(fetch.NewRSSScanner(httpClient))
	registry.Register(fetch.NewHTMLScanner(httpClient))

	source := fetch.NewSource(registry, cfg.Fetch, baseLogger.With("component", "source"))

	var deliverer ports.Deliverer
	if cfg.SMTP.Host != "" {
		deliverer = delivery.NewSMTPDeliverer(cfg.SMTP)
	} else {
		deliverer = delivery.NewLogDeliverer(baseLogger.With("component", "delivery"))
	}

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Roster:       store,
		Source:       source,
		Seen:         store,
		Deliverer:    deliverer,
		Logger:       baseLogger.With("component", "orchestrator"),
		Workers:      cfg.Fetch.Workers,
		PerHostLimit: cfg.Fetch.PerHostLimit,
		MaxItems:     cfg.Report.MaxItems,
		Retention:    time.Duration(cfg.Report.RetentionDays) * 24 * time.Hour,
	})

	var sched *usecase.Scheduler
	if !cfg.Scheduler.Disabled {
		driver := schedulerdriver.NewIntervalScheduler(cfg.Scheduler.Interval.Std())
		sched = usecase.NewScheduler(driver, orchestrator)
	}

	handler := rest.NewHandler(store, orchestrator, baseLogger.With("component", "rest"))
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           rest.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		scheduler: sched,
		server:    server,
	}, nil
}

// Run starts the scheduler and HTTP server and blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.scheduler != nil {
		_ = a.scheduler.Stop(shutdownCtx)
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
	return nil
}
