// Package worker drives PENDING jobs to a terminal state, matching the
// poll-loop and staggered-start pattern of queue.WorkerPool and the
// stall-sweep cadence of SessionWorkerManager.
package worker

import (
	"context"
	"time"

	"github.com/contentforge/orchestrator/internal/handlers"
	"github.com/contentforge/orchestrator/internal/models"
	"github.com/contentforge/orchestrator/internal/store"
	"github.com/contentforge/orchestrator/internal/webhook"
	"github.com/ternarybob/arbor"
)

// Config tunes the worker fleet, matching SPEC_FULL.md §6.4 [worker].
type Config struct {
	MaxConcurrentWorkers int
	PollInterval         time.Duration
	StallCheckInterval   time.Duration
	MaxProcessingTime    time.Duration
	Active               bool
}

// Manager owns a fleet of polling workers that claim PENDING jobs, dispatch
// them to the registered handler, and persist the outcome.
type Manager struct {
	cfg        Config
	store      store.Store
	registry   *handlers.Registry
	dispatcher *webhook.Dispatcher
	logger     arbor.ILogger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager returns a Manager wired to store s, handler registry r, and
// webhook dispatcher d, deriving its lifecycle from parentCtx.
func NewManager(parentCtx context.Context, cfg Config, s store.Store, r *handlers.Registry, d *webhook.Dispatcher, logger arbor.ILogger) *Manager {
	ctx, cancel := context.WithCancel(parentCtx)
	return &Manager{
		cfg:        cfg,
		store:      s,
		registry:   r,
		dispatcher: d,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the worker goroutines and the stall-sweep goroutine. It
// returns immediately; call Stop to shut down.
func (m *Manager) Start() {
	if !m.cfg.Active {
		m.logger.Info().Msg("worker manager disabled (worker.active=false)")
		return
	}

	m.logger.Info().Int("workers", m.cfg.MaxConcurrentWorkers).Msg("job processing started")

	for i := 0; i < m.cfg.MaxConcurrentWorkers; i++ {
		go m.runWorker(i)
	}
	go m.runStallSweep()
}

// Stop cancels all worker goroutines and blocks briefly to let in-flight
// jobs notice cancellation, matching queue.WorkerPool.Stop's drain window.
func (m *Manager) Stop() {
	m.logger.Info().Msg("stopping worker manager")
	m.cancel()
	time.Sleep(500 * time.Millisecond)
	m.logger.Info().Msg("worker manager stopped")
}

func (m *Manager) runWorker(workerID int) {
	if m.cfg.MaxConcurrentWorkers > 0 {
		stagger := (m.cfg.PollInterval / time.Duration(m.cfg.MaxConcurrentWorkers)) * time.Duration(workerID)
		if stagger > 0 {
			time.Sleep(stagger)
		}
	}

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(workerID)
		}
	}
}

func (m *Manager) pollOnce(workerID int) {
	job, err := m.store.ClaimNextPending(m.ctx, m.registry.JobTypes())
	if err != nil {
		m.logger.Warn().Err(err).Int("worker_id", workerID).Msg("failed to claim next pending job")
		return
	}
	if job == nil {
		return
	}

	m.logger.Info().Str("job_id", job.ID).Str("job_type", job.JobType).Int("worker_id", workerID).Msg("job processing started")
	_ = m.store.AppendLog(m.ctx, job.ID, models.LogEntry{Level: models.LogLevelInfo, Message: "Job-Verarbeitung gestartet"})

	m.execute(job)
}

func (m *Manager) execute(job *models.Job) {
	cfg := webhook.ParseWebhookConfig(job.Parameters)

	handler, err := m.registry.Get(job.JobType)
	if err != nil {
		m.fail(job, &models.JobError{Code: models.ErrCodeUnknownJobType, Message: err.Error()}, cfg)
		return
	}

	report := func(p models.Progress) {
		if err := m.store.UpdateProgress(m.ctx, job.ID, p); err != nil {
			m.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to persist progress")
		}
		m.dispatcher.NotifyProgress(m.ctx, cfg, job, p)
	}

	results, err := handler(m.ctx, job, report)
	if err != nil {
		m.fail(job, &models.JobError{Code: models.ErrCodeHandlerException, Message: err.Error()}, cfg)
		return
	}

	if err := m.store.UpdateStatus(m.ctx, job.ID, models.JobStatusCompleted, results, nil); err != nil {
		m.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist completed status")
		return
	}
	_ = m.store.AppendLog(m.ctx, job.ID, models.LogEntry{Level: models.LogLevelInfo, Message: "job completed successfully"})

	job.Results = results
	job.Status = models.JobStatusCompleted
	m.dispatcher.NotifyCompleted(m.ctx, cfg, job)

	if job.BatchID != "" {
		if _, err := m.store.AggregateBatch(m.ctx, job.BatchID); err != nil {
			m.logger.Warn().Err(err).Str("batch_id", job.BatchID).Msg("failed to aggregate batch after job completion")
		}
	}
}

func (m *Manager) fail(job *models.Job, jobErr *models.JobError, cfg models.WebhookConfig) {
	m.logger.Error().Str("job_id", job.ID).Str("code", jobErr.Code).Str("message", jobErr.Message).Msg("job failed")

	if err := m.store.UpdateStatus(m.ctx, job.ID, models.JobStatusFailed, nil, jobErr); err != nil {
		m.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist failed status")
	}
	_ = m.store.AppendLog(m.ctx, job.ID, models.LogEntry{Level: models.LogLevelError, Message: jobErr.Message})

	job.Status = models.JobStatusFailed
	job.Error = jobErr
	m.dispatcher.NotifyError(m.ctx, cfg, job)

	if job.BatchID != "" {
		if _, err := m.store.AggregateBatch(m.ctx, job.BatchID); err != nil {
			m.logger.Warn().Err(err).Str("batch_id", job.BatchID).Msg("failed to aggregate batch after job failure")
		}
	}
}

func (m *Manager) runStallSweep() {
	ticker := time.NewTicker(m.cfg.StallCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			n, err := m.store.ResetStalled(m.ctx, m.cfg.MaxProcessingTime)
			if err != nil {
				m.logger.Warn().Err(err).Msg("stall sweep failed")
				continue
			}
			if n > 0 {
				m.logger.Info().Int("count", n).Msg("reset stalled jobs")
			}
		}
	}
}
