// Package app wires together configuration, storage, handlers, the worker
// fleet, the webhook dispatcher, the schedule, and the HTTP ingress server,
// matching app.App's role of holding every component and dependency.
package app

import (
	"context"
	"fmt"

	"github.com/contentforge/orchestrator/internal/config"
	"github.com/contentforge/orchestrator/internal/handlers"
	"github.com/contentforge/orchestrator/internal/ingress"
	"github.com/contentforge/orchestrator/internal/schedule"
	badgerstore "github.com/contentforge/orchestrator/internal/store/badger"
	"github.com/contentforge/orchestrator/internal/webhook"
	"github.com/contentforge/orchestrator/internal/worker"
	"github.com/ternarybob/arbor"
)

// App holds every application component and dependency.
type App struct {
	Config *config.Config
	Logger arbor.ILogger

	ctx       context.Context
	cancelCtx context.CancelFunc

	Store      *badgerstore.Store
	Registry   *handlers.Registry
	Dispatcher *webhook.Dispatcher
	Worker     *worker.Manager
	Schedule   *schedule.Scheduler
	Server     *ingress.Server
}

// New initializes the application and all its dependencies, but does not
// start any background goroutines or the HTTP listener; call Run for that.
func New(cfg *config.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	store, err := badgerstore.New(badgerstore.Config{Path: cfg.Storage.BadgerDir}, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	a.Store = store

	a.Registry = handlers.NewRegistry(logger)
	if err := a.registerHandlers(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to register handlers: %w", err)
	}

	a.Dispatcher = webhook.NewDispatcher(logger)

	a.Worker = worker.NewManager(ctx, worker.Config{
		MaxConcurrentWorkers: cfg.Worker.MaxConcurrentWorkers,
		PollInterval:         cfg.PollInterval(),
		StallCheckInterval:   cfg.StallCheckInterval(),
		MaxProcessingTime:    cfg.MaxProcessingTime(),
		Active:               cfg.Worker.Active,
	}, a.Store, a.Registry, a.Dispatcher, logger)

	a.Schedule = schedule.New(a.Store, logger)
	if err := a.Schedule.Register(cfg.Schedule); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to register schedule entries: %w", err)
	}

	a.Server = ingress.New(ingress.Config{Host: cfg.Server.Host, Port: cfg.Server.Port}, a.Store, a.Registry, logger)

	return a, nil
}

// registerHandlers installs every reference job-type handler into the
// registry, matching the fixed set of job types SPEC_FULL.md §4.3 names.
func (a *App) registerHandlers() error {
	pdfHandler := handlers.NewPDFHandler(a.Logger)
	officeHandler := handlers.NewOfficeHandler(a.Logger)
	sessionHandler := handlers.NewSessionHandler(a.Logger)
	audioHandler := handlers.NewAudioHandler(a.Logger)
	templateHandler := handlers.NewTransformerTemplateHandler(a.Logger)

	registrations := []struct {
		jobType string
		handler handlers.Handler
	}{
		{"pdf", pdfHandler.Handle},
		{"office", officeHandler.Handle},
		{"office_via_pdf", pdfHandler.Handle},
		{"session", sessionHandler.Handle},
		{"audio", audioHandler.Handle},
		{"transformer_template", templateHandler.Handle},
	}

	for _, r := range registrations {
		if err := a.Registry.Register(r.jobType, r.handler); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the worker fleet, the schedule, and blocks serving HTTP until
// the listener stops (normally from Shutdown being called concurrently).
func (a *App) Run() error {
	a.Worker.Start()
	a.Schedule.Start()
	return a.Server.Start()
}

// Shutdown stops the HTTP listener, the schedule, the worker fleet, and
// closes the store, in that order, matching the teacher's shutdown sequence
// of stopping intake before draining in-flight work.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("error shutting down http server")
	}
	a.Schedule.Stop()
	a.Worker.Stop()
	a.cancelCtx()

	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
