// Package store defines the persistence contract for jobs and batches, and
// the concrete Badger-backed implementation lives in the badger subpackage.
package store

import (
	"context"
	"time"

	"github.com/contentforge/orchestrator/internal/models"
)

// ListOptions filters and paginates JobStore.ListJobs.
type ListOptions struct {
	Status   models.JobStatus
	JobType  string
	BatchID  string
	Limit    int
	Offset   int
}

// JobStore is the durable persistence contract for Job. Implementations
// must make UpdateStatus and AppendLog safe for concurrent callers acting on
// the same job ID (spec.md §4.1, §5).
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context, opts ListOptions) ([]*models.Job, error)
	CountJobs(ctx context.Context, opts ListOptions) (int, error)

	// ClaimNextPending atomically transitions one PENDING job of any type in
	// jobTypes to PROCESSING and returns it, or (nil, nil) if none are
	// available. Pass nil to claim a job of any type, registered or not.
	ClaimNextPending(ctx context.Context, jobTypes []string) (*models.Job, error)

	UpdateStatus(ctx context.Context, jobID string, status models.JobStatus, result *models.Results, jobErr *models.JobError) error
	UpdateProgress(ctx context.Context, jobID string, progress models.Progress) error
	AppendLog(ctx context.Context, jobID string, entry models.LogEntry) error

	// ResetStalled finds jobs PROCESSING for longer than maxAge and marks
	// them FAILED with ErrCodeProcessingTimeout, returning how many it reset.
	ResetStalled(ctx context.Context, maxAge time.Duration) (int, error)
}

// BatchStore is the durable persistence contract for Batch.
type BatchStore interface {
	CreateBatch(ctx context.Context, batch *models.Batch) error
	GetBatch(ctx context.Context, batchID string) (*models.Batch, error)
	ListBatches(ctx context.Context, opts ListOptions) ([]*models.Batch, error)

	// AggregateBatch recomputes a batch's job counters and derived status
	// from the current state of its member jobs (spec.md §4.6).
	AggregateBatch(ctx context.Context, batchID string) (*models.Batch, error)

	ArchiveBatch(ctx context.Context, batchID string) error
}

// Store composes JobStore and BatchStore, the interface the rest of the
// application depends on.
type Store interface {
	JobStore
	BatchStore
	Close() error
}
