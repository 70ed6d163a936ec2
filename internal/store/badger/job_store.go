package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/contentforge/orchestrator/internal/models"
	"github.com/contentforge/orchestrator/internal/store"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// JobStore implements store.JobStore over a Badger-backed DB.
type JobStore struct {
	db     *DB
	logger arbor.ILogger
}

// NewJobStore returns a store.JobStore backed by db.
func NewJobStore(db *DB, logger arbor.ILogger) *JobStore {
	return &JobStore{db: db, logger: logger}
}

func (s *JobStore) CreateJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.LogEntries == nil {
		job.LogEntries = []models.LogEntry{}
	}
	if err := s.db.Store().Insert(job.ID, job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *JobStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%s: %w", models.ErrCodeNotFound, errNotFound(jobID))
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func errNotFound(id string) error {
	return fmt.Errorf("job %s not found", id)
}

func (s *JobStore) ListJobs(ctx context.Context, opts store.ListOptions) ([]*models.Job, error) {
	query := buildJobQuery(opts)
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStore) CountJobs(ctx context.Context, opts store.ListOptions) (int, error) {
	query := buildJobQuery(opts)
	count, err := s.db.Store().Count(&models.Job{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return int(count), nil
}

func buildJobQuery(opts store.ListOptions) *badgerhold.Query {
	query := badgerhold.Where("ID").Ne("")
	if opts.Status != "" {
		query = query.And("Status").Eq(opts.Status)
	}
	if opts.JobType != "" {
		query = query.And("JobType").Eq(opts.JobType)
	}
	if opts.BatchID != "" {
		query = query.And("BatchID").Eq(opts.BatchID)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Skip(opts.Offset)
	}
	return query
}

// ClaimNextPending finds one PENDING job (optionally restricted to
// jobTypes) and atomically transitions it to PROCESSING under a global
// claim lock, matching the teacher's own read-modify-write caveat for
// badgerhold (no native CAS) — see DESIGN.md.
func (s *JobStore) ClaimNextPending(ctx context.Context, jobTypes []string) (*models.Job, error) {
	lock := s.db.lockFor("__claim__")
	lock.Lock()
	defer lock.Unlock()

	query := badgerhold.Where("Status").Eq(models.JobStatusPending).SortBy("CreatedAt")
	var candidates []models.Job
	if err := s.db.Store().Find(&candidates, query); err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}

	var claimed *models.Job
	for i := range candidates {
		if len(jobTypes) > 0 && !containsType(jobTypes, candidates[i].JobType) {
			continue
		}
		claimed = &candidates[i]
		break
	}
	if claimed == nil {
		return nil, nil
	}

	now := time.Now()
	claimed.Status = models.JobStatusProcessing
	claimed.ProcessingStartedAt = &now
	claimed.UpdatedAt = now
	if err := s.db.Store().Update(claimed.ID, claimed); err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return claimed, nil
}

func containsType(types []string, t string) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// UpdateStatus transitions a job to status, setting CompletedAt exactly once
// on terminal transitions and attaching result/error payloads.
func (s *JobStore) UpdateStatus(ctx context.Context, jobID string, status models.JobStatus, result *models.Results, jobErr *models.JobError) error {
	lock := s.db.lockFor(jobID)
	lock.Lock()
	defer lock.Unlock()

	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		return fmt.Errorf("failed to get job for status update: %w", err)
	}

	job.Status = status
	job.UpdatedAt = time.Now()
	if result != nil {
		job.Results = result
	}
	if jobErr != nil {
		job.Error = jobErr
	}
	if (status == models.JobStatusCompleted || status == models.JobStatusFailed) && job.CompletedAt == nil {
		now := time.Now()
		job.CompletedAt = &now
	}

	if err := s.db.Store().Update(jobID, &job); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

func (s *JobStore) UpdateProgress(ctx context.Context, jobID string, progress models.Progress) error {
	lock := s.db.lockFor(jobID)
	lock.Lock()
	defer lock.Unlock()

	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		return fmt.Errorf("failed to get job for progress update: %w", err)
	}

	if job.Progress != nil && progress.Percent < job.Progress.Percent {
		progress.Percent = job.Progress.Percent
	}
	job.Progress = &progress
	job.UpdatedAt = time.Now()

	if err := s.db.Store().Update(jobID, &job); err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

func (s *JobStore) AppendLog(ctx context.Context, jobID string, entry models.LogEntry) error {
	lock := s.db.lockFor(jobID)
	lock.Lock()
	defer lock.Unlock()

	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		return fmt.Errorf("failed to get job for log append: %w", err)
	}

	entry.Level = models.NormalizeLogLevel(entry.Level)
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	job.LogEntries = append(job.LogEntries, entry)
	job.UpdatedAt = time.Now()

	if err := s.db.Store().Update(jobID, &job); err != nil {
		return fmt.Errorf("failed to append job log: %w", err)
	}
	return nil
}

// ResetStalled fails jobs that have been PROCESSING longer than maxAge,
// matching SessionWorkerManager._cleanup_stalled_jobs.
func (s *JobStore) ResetStalled(ctx context.Context, maxAge time.Duration) (int, error) {
	threshold := time.Now().Add(-maxAge)
	var jobs []models.Job
	query := badgerhold.Where("Status").Eq(models.JobStatusProcessing).And("ProcessingStartedAt").Lt(&threshold)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return 0, fmt.Errorf("failed to query stalled jobs: %w", err)
	}

	count := 0
	for i := range jobs {
		job := jobs[i]
		lock := s.db.lockFor(job.ID)
		lock.Lock()
		job.Status = models.JobStatusFailed
		now := time.Now()
		job.CompletedAt = &now
		job.UpdatedAt = now
		job.Error = &models.JobError{
			Code:    models.ErrCodeProcessingTimeout,
			Message: fmt.Sprintf("job exceeded max processing time of %s", maxAge),
		}
		err := s.db.Store().Update(job.ID, &job)
		lock.Unlock()
		if err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to reset stalled job")
			continue
		}
		count++
	}
	return count, nil
}

func (s *JobStore) Close() error {
	return s.db.Close()
}
