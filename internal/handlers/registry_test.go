package handlers

import (
	"context"
	"testing"

	"github.com/contentforge/orchestrator/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func noop(ctx context.Context, job *models.Job, report ProgressReporter) (*models.Results, error) {
	return &models.Results{}, nil
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry(arbor.NewLogger())
	require.NoError(t, r.Register("pdf", noop))

	h, err := r.Get("pdf")
	require.NoError(t, err)
	require.NotNil(t, h)
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := NewRegistry(arbor.NewLogger())
	require.NoError(t, r.Register("pdf", noop))
	err := r.Register("pdf", noop)
	require.Error(t, err)
}

func TestGetUnknownJobType(t *testing.T) {
	r := NewRegistry(arbor.NewLogger())
	_, err := r.Get("nonexistent")
	require.Error(t, err)
	require.Contains(t, err.Error(), models.ErrCodeUnknownJobType)
}

func TestJobTypesSorted(t *testing.T) {
	r := NewRegistry(arbor.NewLogger())
	require.NoError(t, r.Register("session", noop))
	require.NoError(t, r.Register("audio", noop))
	require.Equal(t, []string{"audio", "session"}, r.JobTypes())
}
