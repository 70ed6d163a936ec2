package badger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/contentforge/orchestrator/internal/models"
	"github.com/contentforge/orchestrator/internal/store"
	"github.com/ternarybob/arbor"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "orchestrator-badger-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	logger := arbor.NewLogger()
	s, err := New(Config{Path: tmpDir}, logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := models.NewJob(models.JobSpec{JobType: "pdf", Parameters: map[string]interface{}{"file": "a.pdf"}})
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != models.JobStatusPending {
		t.Fatalf("expected PENDING, got %s", got.Status)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set by CreateJob")
	}
}

func TestClaimNextPendingTransitionsToProcessing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := models.NewJob(models.JobSpec{JobType: "pdf"})
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	claimed, err := s.ClaimNextPending(ctx, nil)
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected a claimed job, got nil")
	}
	if claimed.Status != models.JobStatusProcessing {
		t.Fatalf("expected PROCESSING, got %s", claimed.Status)
	}
	if claimed.ProcessingStartedAt == nil {
		t.Fatal("expected ProcessingStartedAt to be set")
	}

	again, err := s.ClaimNextPending(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if again != nil {
		t.Fatal("expected no further pending jobs to claim")
	}
}

func TestUpdateStatusSetsCompletedAtOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := models.NewJob(models.JobSpec{JobType: "pdf"})
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateStatus(ctx, job.ID, models.JobStatusCompleted, &models.Results{MarkdownContent: "hi"}, nil); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}
	firstCompletedAt := *got.CompletedAt

	if err := s.UpdateStatus(ctx, job.ID, models.JobStatusCompleted, nil, nil); err != nil {
		t.Fatal(err)
	}
	got2, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got2.CompletedAt.Equal(firstCompletedAt) {
		t.Fatal("expected CompletedAt to be set exactly once")
	}
}

func TestUpdateProgressRejectsDecreasingPercent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := models.NewJob(models.JobSpec{JobType: "pdf"})
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateProgress(ctx, job.ID, models.Progress{Step: "extract", Percent: 50}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateProgress(ctx, job.ID, models.Progress{Step: "extract", Percent: 10}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress.Percent != 50 {
		t.Fatalf("expected progress to stay monotonic at 50, got %d", got.Progress.Percent)
	}
}

func TestAppendLogNormalizesInvalidLevel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := models.NewJob(models.JobSpec{JobType: "pdf"})
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	if err := s.AppendLog(ctx, job.ID, models.LogEntry{Level: models.LogLevel("bogus"), Message: "hello"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.LogEntries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(got.LogEntries))
	}
	if got.LogEntries[0].Level != models.LogLevelInfo {
		t.Fatalf("expected invalid level coerced to info, got %s", got.LogEntries[0].Level)
	}
}

func TestResetStalledFailsLongRunningJobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := models.NewJob(models.JobSpec{JobType: "pdf"})
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatal(err)
	}
	claimed, err := s.ClaimNextPending(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}

	old := time.Now().Add(-time.Hour)
	claimed.ProcessingStartedAt = &old
	if err := s.db.Store().Update(claimed.ID, claimed); err != nil {
		t.Fatal(err)
	}

	n, err := s.ResetStalled(ctx, 10*time.Minute)
	if err != nil {
		t.Fatalf("ResetStalled: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 stalled job reset, got %d", n)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.JobStatusFailed {
		t.Fatalf("expected FAILED, got %s", got.Status)
	}
	if got.Error == nil || got.Error.Code != models.ErrCodeProcessingTimeout {
		t.Fatal("expected PROCESSING_TIMEOUT error code")
	}
}

var _ store.Store = (*Store)(nil)
