// Package webhook posts job lifecycle events to caller-supplied callback
// URLs, matching the envelope and header conventions of
// audio_handler.py's _post_progress and final-callback functions.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/contentforge/orchestrator/internal/models"
	"github.com/ternarybob/arbor"
)

const (
	progressTimeout = 15 * time.Second
	terminalTimeout = 30 * time.Second
)

// Dispatcher posts WebhookEnvelope payloads to a job's configured callback
// URL. Progress notifications are best-effort and never fail the job;
// terminal notifications are logged on failure but likewise never affect
// job status (spec.md §4.4, Open Question 2 resolved in DESIGN.md).
type Dispatcher struct {
	logger     arbor.ILogger
	httpClient *http.Client
}

// NewDispatcher returns a Dispatcher using a shared client with no default
// timeout; each call sets its own context deadline per envelope phase.
func NewDispatcher(logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{
		logger:     logger,
		httpClient: &http.Client{},
	}
}

// jobRef builds the envelope's job identity, echoing the client-supplied
// jobId when the caller configured one instead of the internal job ID
// (spec.md §4.4).
func jobRef(cfg models.WebhookConfig, job *models.Job) models.WebhookJobRef {
	id := job.ID
	if cfg.JobID != "" {
		id = cfg.JobID
	}
	return models.WebhookJobRef{ID: id}
}

// NotifyProgress posts a "progress" envelope. Failures are logged at debug
// level and swallowed: progress callbacks never retry and never affect the
// job (spec.md §4.4 Open Question 2).
func (d *Dispatcher) NotifyProgress(ctx context.Context, cfg models.WebhookConfig, job *models.Job, progress models.Progress) {
	if cfg.URL == "" {
		return
	}
	envelope := models.WebhookEnvelope{
		Phase:   models.WebhookPhaseProgress,
		Message: progress.Message,
		Job:     jobRef(cfg, job),
		Data: map[string]interface{}{
			"step":    progress.Step,
			"percent": progress.Percent,
		},
	}
	if err := d.post(ctx, cfg, envelope, progressTimeout); err != nil {
		d.logger.Debug().Err(err).Str("job_id", job.ID).Msg("progress webhook delivery failed, not retrying")
	}
}

// NotifyCompleted posts a "completed" envelope. Its data is the compact,
// reference-based payload a handler placed under results.structured_data.data
// (e.g. transcription.text) — never the full Results envelope, which also
// carries markdown_content/assets the client didn't ask the webhook for.
func (d *Dispatcher) NotifyCompleted(ctx context.Context, cfg models.WebhookConfig, job *models.Job) {
	if cfg.URL == "" {
		return
	}
	data := map[string]interface{}{}
	if job.Results != nil {
		if compact, ok := job.Results.StructuredData["data"].(map[string]interface{}); ok {
			data = compact
		}
	}
	envelope := models.WebhookEnvelope{
		Phase:   models.WebhookPhaseCompleted,
		Message: "job completed",
		Job:     jobRef(cfg, job),
		Data:    data,
	}
	if err := d.post(ctx, cfg, envelope, terminalTimeout); err != nil {
		d.logger.Warn().Err(err).Str("job_id", job.ID).Msg("completed webhook delivery failed")
	}
}

// NotifyError posts an "error" envelope with the job's JobError.
func (d *Dispatcher) NotifyError(ctx context.Context, cfg models.WebhookConfig, job *models.Job) {
	if cfg.URL == "" {
		return
	}
	envelope := models.WebhookEnvelope{
		Phase:   models.WebhookPhaseError,
		Message: "job failed",
		Job:     jobRef(cfg, job),
		Error:   job.Error,
	}
	if err := d.post(ctx, cfg, envelope, terminalTimeout); err != nil {
		d.logger.Warn().Err(err).Str("job_id", job.ID).Msg("error webhook delivery failed")
	}
}

func (d *Dispatcher) post(ctx context.Context, cfg models.WebhookConfig, envelope models.WebhookEnvelope, timeout time.Duration) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook envelope: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
		req.Header.Set("X-Callback-Token", cfg.Token)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// ParseWebhookConfig extracts a WebhookConfig from a job's parameters map,
// per spec.md §4.4: caller supplies it under parameters.webhook.
func ParseWebhookConfig(parameters map[string]interface{}) models.WebhookConfig {
	raw, ok := parameters["webhook"].(map[string]interface{})
	if !ok {
		return models.WebhookConfig{}
	}
	cfg := models.WebhookConfig{}
	if url, ok := raw["url"].(string); ok {
		cfg.URL = url
	}
	if token, ok := raw["token"].(string); ok {
		cfg.Token = token
	}
	if jobID, ok := raw["jobId"].(string); ok {
		cfg.JobID = jobID
	}
	return cfg
}
