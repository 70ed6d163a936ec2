package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contentforge/orchestrator/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestNotifyCompletedSendsExpectedEnvelopeAndHeaders(t *testing.T) {
	received := make(chan models.WebhookEnvelope, 1)
	var gotAuth, gotCallbackToken, gotContentType, gotAccept string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCallbackToken = r.Header.Get("X-Callback-Token")
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		var env models.WebhookEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		received <- env
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(arbor.NewLogger())
	job := &models.Job{ID: "job-1", JobType: "pdf", Results: &models.Results{MarkdownContent: "hi"}}
	cfg := models.WebhookConfig{URL: srv.URL, Token: "secret-token"}

	d.NotifyCompleted(context.Background(), cfg, job)

	env := <-received
	require.Equal(t, models.WebhookPhaseCompleted, env.Phase)
	require.Equal(t, "job-1", env.Job.ID)
	require.Equal(t, "Bearer secret-token", gotAuth)
	require.Equal(t, "secret-token", gotCallbackToken)
	require.Equal(t, "application/json", gotContentType)
	require.Equal(t, "application/json", gotAccept)
}

func TestNotifyCompletedEchoesClientJobID(t *testing.T) {
	received := make(chan models.WebhookEnvelope, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env models.WebhookEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		received <- env
	}))
	defer srv.Close()

	d := NewDispatcher(arbor.NewLogger())
	job := &models.Job{ID: "internal-id", JobType: "pdf", Results: &models.Results{}}
	cfg := models.WebhookConfig{URL: srv.URL, JobID: "ext-1"}

	d.NotifyCompleted(context.Background(), cfg, job)

	env := <-received
	require.Equal(t, "ext-1", env.Job.ID)
}

func TestNotifyCompletedSendsCompactReferenceData(t *testing.T) {
	received := make(chan models.WebhookEnvelope, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env models.WebhookEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		received <- env
	}))
	defer srv.Close()

	d := NewDispatcher(arbor.NewLogger())
	job := &models.Job{
		ID:      "job-5",
		JobType: "audio",
		Results: &models.Results{
			MarkdownContent: "full markdown the client didn't ask for",
			StructuredData: map[string]interface{}{
				"data": map[string]interface{}{
					"transcription": map[string]interface{}{
						"text": "hello world",
					},
				},
			},
		},
	}
	cfg := models.WebhookConfig{URL: srv.URL}

	d.NotifyCompleted(context.Background(), cfg, job)

	env := <-received
	transcription, ok := env.Data["transcription"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "hello world", transcription["text"])
}

func TestNotifyCompletedDefaultsToEmptyDataWhenHandlerOmitsIt(t *testing.T) {
	received := make(chan models.WebhookEnvelope, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env models.WebhookEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		received <- env
	}))
	defer srv.Close()

	d := NewDispatcher(arbor.NewLogger())
	job := &models.Job{ID: "job-6", JobType: "pdf", Results: &models.Results{MarkdownContent: "hi"}}
	cfg := models.WebhookConfig{URL: srv.URL}

	d.NotifyCompleted(context.Background(), cfg, job)

	env := <-received
	require.Empty(t, env.Data)
}

func TestNotifyErrorSendsErrorPhase(t *testing.T) {
	received := make(chan models.WebhookEnvelope, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env models.WebhookEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		received <- env
	}))
	defer srv.Close()

	d := NewDispatcher(arbor.NewLogger())
	job := &models.Job{ID: "job-2", JobType: "pdf", Error: &models.JobError{Code: "HandlerException", Message: "boom"}}
	cfg := models.WebhookConfig{URL: srv.URL}

	d.NotifyError(context.Background(), cfg, job)

	env := <-received
	require.Equal(t, models.WebhookPhaseError, env.Phase)
	require.NotNil(t, env.Error)
	require.Equal(t, "boom", env.Error.Message)
}

func TestNotifyProgressSwallowsFailureSilently(t *testing.T) {
	d := NewDispatcher(arbor.NewLogger())
	job := &models.Job{ID: "job-3", JobType: "pdf"}
	cfg := models.WebhookConfig{URL: "http://127.0.0.1:1"}

	require.NotPanics(t, func() {
		d.NotifyProgress(context.Background(), cfg, job, models.Progress{Step: "x", Percent: 10})
	})
}

func TestNotifySkipsWhenNoURLConfigured(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	d := NewDispatcher(arbor.NewLogger())
	job := &models.Job{ID: "job-4", JobType: "pdf"}

	d.NotifyCompleted(context.Background(), models.WebhookConfig{}, job)
	require.Equal(t, 0, calls)
}

func TestParseWebhookConfig(t *testing.T) {
	params := map[string]interface{}{
		"webhook": map[string]interface{}{
			"url":   "https://example.com/cb",
			"token": "abc",
			"jobId": "ext-1",
		},
	}
	cfg := ParseWebhookConfig(params)
	require.Equal(t, "https://example.com/cb", cfg.URL)
	require.Equal(t, "abc", cfg.Token)
	require.Equal(t, "ext-1", cfg.JobID)
}

func TestParseWebhookConfigMissingReturnsEmpty(t *testing.T) {
	cfg := ParseWebhookConfig(map[string]interface{}{})
	require.Empty(t, cfg.URL)
}
