package ingress

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/contentforge/orchestrator/internal/handlers"
	"github.com/contentforge/orchestrator/internal/models"
	badgerstore "github.com/contentforge/orchestrator/internal/store/badger"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "orchestrator-ingress-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	logger := arbor.NewLogger()
	s, err := badgerstore.New(badgerstore.Config{Path: tmpDir}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	reg := handlers.NewRegistry(logger)
	require.NoError(t, reg.Register("echo", func(ctx context.Context, job *models.Job, report handlers.ProgressReporter) (*models.Results, error) {
		return &models.Results{}, nil
	}))

	return New(Config{Host: "127.0.0.1", Port: 0}, s, reg, logger)
}

func TestCreateAndGetJobRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(createJobRequest{JobType: "echo", Parameters: map[string]interface{}{"x": 1}})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	getReq := httptest.NewRequest(http.MethodGet, "/jobs/"+created.ID, nil)
	getRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	var fetched models.Job
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &fetched))
	require.Equal(t, created.ID, fetched.ID)
}

func TestCreateJobRejectsUnknownType(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(createJobRequest{JobType: "nonexistent"})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobNotFound(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBatchCreatesMemberJobs(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(createBatchRequest{
		JobType: "echo",
		Jobs: []map[string]interface{}{
			{"a": 1},
			{"a": 2},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/jobs/batch", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var batch models.Batch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	require.Equal(t, 2, batch.TotalJobs)

	getReq := httptest.NewRequest(http.MethodGet, "/jobs/batch/"+batch.ID, nil)
	getRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)
}

func TestDownloadArchiveNotFoundWhenJobIncomplete(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(createJobRequest{JobType: "echo"})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var created models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	dlReq := httptest.NewRequest(http.MethodGet, "/jobs/"+created.ID+"/download-archive", nil)
	dlRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(dlRec, dlReq)
	require.Equal(t, http.StatusNotFound, dlRec.Code)
}
