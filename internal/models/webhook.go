package models

// WebhookConfig is the caller-supplied callback target carried in
// Job.Parameters["webhook"], per spec.md §3. JobID, when supplied, is the
// client's own identifier for this job and is echoed back verbatim in
// WebhookJobRef.ID instead of the internal job ID.
type WebhookConfig struct {
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
	JobID string `json:"jobId,omitempty"`
}

// WebhookPhase is the closed set of lifecycle phases reported to a webhook.
type WebhookPhase string

const (
	WebhookPhaseProgress  WebhookPhase = "progress"
	WebhookPhaseCompleted WebhookPhase = "completed"
	WebhookPhaseError     WebhookPhase = "error"
)

// WebhookJobRef is the minimal job identity embedded in every envelope. The
// schema is closed to this single field — never add siblings here, even for
// debugging, since clients may validate the envelope with a closed schema.
type WebhookJobRef struct {
	ID string `json:"id"`
}

// WebhookEnvelope is the exact wire shape posted to a job's webhook URL.
// Field set is closed: phase, message, job, data, and error (terminal-error
// phase only). Grounded byte for byte on audio_handler.py's _post_progress
// and final-callback payloads.
type WebhookEnvelope struct {
	Phase   WebhookPhase           `json:"phase"`
	Message string                 `json:"message"`
	Job     WebhookJobRef          `json:"job"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *JobError              `json:"error,omitempty"`
}
