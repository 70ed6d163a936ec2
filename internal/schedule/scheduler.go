// Package schedule drives recurring batch submissions from
// config.ScheduleEntry rows, using robfig/cron the way
// services/scheduler.Service registers its jobs, but trimmed to this
// system's only scheduled action: submit a batch of jobs on a cron tick.
package schedule

import (
	"context"
	"fmt"

	"github.com/contentforge/orchestrator/internal/config"
	"github.com/contentforge/orchestrator/internal/models"
	"github.com/contentforge/orchestrator/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Scheduler wraps a robfig/cron instance, registering one cron entry per
// config.ScheduleEntry. Each tick creates a single-member batch of the
// configured job type and parameters.
type Scheduler struct {
	cron    *cron.Cron
	store   store.Store
	logger  arbor.ILogger
	running bool
}

// New builds a Scheduler bound to s, ready to have entries registered.
func New(s store.Store, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		store:  s,
		logger: logger,
	}
}

// Register adds one cron entry per configured schedule. A malformed cron
// expression or a duplicate job name is returned immediately without
// registering any further entries, matching RegisterJob's fail-fast style.
func (sc *Scheduler) Register(entries []config.ScheduleEntry) error {
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if seen[entry.Name] {
			return fmt.Errorf("schedule entry %q registered twice", entry.Name)
		}
		seen[entry.Name] = true

		e := entry
		_, err := sc.cron.AddFunc(e.CronExpression, func() { sc.runEntry(e) })
		if err != nil {
			return fmt.Errorf("invalid cron expression for schedule %q: %w", e.Name, err)
		}
		sc.logger.Info().Str("name", e.Name).Str("cron", e.CronExpression).Str("job_type", e.JobType).Msg("registered scheduled batch submission")
	}
	return nil
}

// Start launches the cron scheduler in the background. It is a no-op if
// already running.
func (sc *Scheduler) Start() {
	if sc.running {
		return
	}
	sc.cron.Start()
	sc.running = true
	sc.logger.Info().Msg("schedule started")
}

// Stop halts the cron scheduler and waits for any in-flight entry to finish.
func (sc *Scheduler) Stop() {
	if !sc.running {
		return
	}
	ctx := sc.cron.Stop()
	<-ctx.Done()
	sc.running = false
	sc.logger.Info().Msg("schedule stopped")
}

func (sc *Scheduler) runEntry(entry config.ScheduleEntry) {
	job := models.NewJob(models.JobSpec{
		JobType:    entry.JobType,
		JobName:    entry.Name,
		Parameters: entry.Parameters,
	})

	batch := models.NewBatch(entry.JobType, []string{job.ID}, "")
	job.BatchID = batch.ID

	ctx := context.Background()
	if err := sc.store.CreateBatch(ctx, batch); err != nil {
		sc.logger.Error().Err(err).Str("schedule", entry.Name).Msg("failed to create scheduled batch")
		return
	}
	if err := sc.store.CreateJob(ctx, job); err != nil {
		sc.logger.Error().Err(err).Str("schedule", entry.Name).Msg("failed to create scheduled job")
		return
	}

	sc.logger.Info().Str("schedule", entry.Name).Str("job_id", job.ID).Str("batch_id", batch.ID).Msg("scheduled batch submitted")
}
