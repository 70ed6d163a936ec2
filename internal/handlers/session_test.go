package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contentforge/orchestrator/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestSessionHandlerFetchesAndConverts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Test Page</title></head><body><h1>Hello</h1><p>World</p></body></html>`))
	}))
	defer srv.Close()

	h := NewSessionHandler(arbor.NewLogger())
	job := models.NewJob(models.JobSpec{JobType: "session", Parameters: map[string]interface{}{"url": srv.URL}})

	var progressed []models.Progress
	results, err := h.Handle(context.Background(), job, func(p models.Progress) { progressed = append(progressed, p) })
	require.NoError(t, err)
	require.Contains(t, results.MarkdownContent, "Hello")
	require.Equal(t, "Test Page", results.StructuredData["title"])
	require.NotEmpty(t, progressed)
}

func TestSessionHandlerRequiresURLParam(t *testing.T) {
	h := NewSessionHandler(arbor.NewLogger())
	job := models.NewJob(models.JobSpec{JobType: "session"})

	_, err := h.Handle(context.Background(), job, func(models.Progress) {})
	require.Error(t, err)
}

func TestSessionHandlerPropagatesHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	h := NewSessionHandler(arbor.NewLogger())
	job := models.NewJob(models.JobSpec{JobType: "session", Parameters: map[string]interface{}{"url": srv.URL}})

	_, err := h.Handle(context.Background(), job, func(models.Progress) {})
	require.Error(t, err)
}

func TestStripHTMLTagsFallback(t *testing.T) {
	out := stripHTMLTags("<p>Hi &amp; bye</p>")
	require.Equal(t, "Hi & bye", out)
}
