package schedule

import (
	"context"
	"os"
	"testing"

	"github.com/contentforge/orchestrator/internal/config"
	"github.com/contentforge/orchestrator/internal/models"
	"github.com/contentforge/orchestrator/internal/store"
	badgerstore "github.com/contentforge/orchestrator/internal/store/badger"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestStore(t *testing.T) *badgerstore.Store {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "orchestrator-schedule-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := badgerstore.New(badgerstore.Config{Path: tmpDir}, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	sc := New(newTestStore(t), arbor.NewLogger())
	entries := []config.ScheduleEntry{
		{Name: "nightly", CronExpression: "0 2 * * *", JobType: "pdf"},
		{Name: "nightly", CronExpression: "0 3 * * *", JobType: "pdf"},
	}
	err := sc.Register(entries)
	require.Error(t, err)
}

func TestRegisterRejectsInvalidCronExpression(t *testing.T) {
	sc := New(newTestStore(t), arbor.NewLogger())
	err := sc.Register([]config.ScheduleEntry{{Name: "bad", CronExpression: "not-a-cron", JobType: "pdf"}})
	require.Error(t, err)
}

func TestRunEntrySubmitsSingleMemberBatch(t *testing.T) {
	s := newTestStore(t)
	sc := New(s, arbor.NewLogger())

	entry := config.ScheduleEntry{
		Name:           "nightly",
		CronExpression: "0 2 * * *",
		JobType:        "pdf",
		Parameters:     map[string]interface{}{"file": "report.pdf"},
	}
	sc.runEntry(entry)

	ctx := context.Background()
	batches, err := s.ListBatches(ctx, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, "pdf", batches[0].JobType)
	require.Equal(t, 1, batches[0].TotalJobs)

	jobs, err := s.ListJobs(ctx, store.ListOptions{BatchID: batches[0].ID})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, models.JobStatusPending, jobs[0].Status)
}
