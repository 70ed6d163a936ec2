package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/contentforge/orchestrator/internal/models"
	"github.com/contentforge/orchestrator/internal/store"
	"github.com/timshannon/badgerhold/v4"
)

// BatchStore implements store.BatchStore over a Badger-backed DB.
type BatchStore struct {
	db       *DB
	jobStore *JobStore
}

// NewBatchStore returns a store.BatchStore backed by db, using jobStore to
// read member-job state when aggregating.
func NewBatchStore(db *DB, jobStore *JobStore) *BatchStore {
	return &BatchStore{db: db, jobStore: jobStore}
}

func (s *BatchStore) CreateBatch(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		return fmt.Errorf("batch ID is required")
	}
	now := time.Now()
	batch.CreatedAt = now
	batch.UpdatedAt = now
	if err := s.db.Store().Insert(batch.ID, batch); err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

func (s *BatchStore) GetBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	var batch models.Batch
	if err := s.db.Store().Get(batchID, &batch); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%s: batch %s not found", models.ErrCodeNotFound, batchID)
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return &batch, nil
}

func (s *BatchStore) ListBatches(ctx context.Context, opts store.ListOptions) ([]*models.Batch, error) {
	query := badgerhold.Where("ID").Ne("")
	if opts.Status != "" {
		query = query.And("Status").Eq(opts.Status)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Skip(opts.Offset)
	}
	var batches []models.Batch
	if err := s.db.Store().Find(&batches, query); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	result := make([]*models.Batch, len(batches))
	for i := range batches {
		result[i] = &batches[i]
	}
	return result, nil
}

// AggregateBatch recomputes counters by reading each member job's current
// status, matching the counter set on original_source's Batch dataclass.
func (s *BatchStore) AggregateBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	lock := s.db.lockFor("batch:" + batchID)
	lock.Lock()
	defer lock.Unlock()

	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	var pending, processing, completed, failed int
	for _, jobID := range batch.JobIDs {
		job, err := s.jobStore.GetJob(ctx, jobID)
		if err != nil {
			continue
		}
		switch job.Status {
		case models.JobStatusPending:
			pending++
		case models.JobStatusProcessing:
			processing++
		case models.JobStatusCompleted:
			completed++
		case models.JobStatusFailed:
			failed++
		}
	}

	batch.PendingJobs = pending
	batch.ProcessingJobs = processing
	batch.CompletedJobs = completed
	batch.FailedJobs = failed
	batch.Status = batch.DeriveStatus()
	batch.UpdatedAt = time.Now()
	if batch.Status == models.JobStatusCompleted && batch.CompletedAt == nil {
		now := time.Now()
		batch.CompletedAt = &now
	}

	if err := s.db.Store().Update(batch.ID, batch); err != nil {
		return nil, fmt.Errorf("failed to save aggregated batch: %w", err)
	}
	return batch, nil
}

func (s *BatchStore) ArchiveBatch(ctx context.Context, batchID string) error {
	lock := s.db.lockFor("batch:" + batchID)
	lock.Lock()
	defer lock.Unlock()

	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	batch.Archived = true
	batch.UpdatedAt = time.Now()
	if err := s.db.Store().Update(batch.ID, batch); err != nil {
		return fmt.Errorf("failed to archive batch: %w", err)
	}
	return nil
}
