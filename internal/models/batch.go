package models

import (
	"time"

	"github.com/google/uuid"
)

// Batch groups a set of Jobs submitted together and tracks their aggregate
// progress. Counters are maintained by store.BatchStore.AggregateBatch, never
// mutated directly by callers.
type Batch struct {
	ID      string `json:"id" badgerhold:"key"`
	JobType string `json:"job_type"`
	JobIDs  []string `json:"job_ids"`

	TotalJobs      int `json:"total_jobs"`
	PendingJobs    int `json:"pending_jobs"`
	ProcessingJobs int `json:"processing_jobs"`
	CompletedJobs  int `json:"completed_jobs"`
	FailedJobs     int `json:"failed_jobs"`

	Status      JobStatus  `json:"status" badgerhold:"index"`
	CreatedAt   time.Time  `json:"created_at" badgerhold:"index"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	UserID   string `json:"user_id,omitempty"`
	Archived bool   `json:"archived"`
}

// NewBatch builds a PENDING batch for the given job IDs. The caller is
// responsible for setting each member job's BatchID to the returned
// Batch.ID before persisting that job.
func NewBatch(jobType string, jobIDs []string, userID string) *Batch {
	return &Batch{
		ID:          uuid.New().String(),
		JobType:     jobType,
		JobIDs:      jobIDs,
		TotalJobs:   len(jobIDs),
		PendingJobs: len(jobIDs),
		Status:      JobStatusPending,
		UserID:      userID,
	}
}

// DeriveStatus computes the batch-level status from its member counters,
// matching the aggregation rule in original_source's Batch dataclass: any
// job still pending or processing keeps the batch PROCESSING; once none
// remain, the batch is COMPLETED regardless of how many member jobs failed
// (completed + failed == total_jobs). There is no FAILED batch status —
// per-job failures surface through the member jobs, not the batch.
func (b *Batch) DeriveStatus() JobStatus {
	if b.PendingJobs > 0 || b.ProcessingJobs > 0 {
		return JobStatusProcessing
	}
	return JobStatusCompleted
}
