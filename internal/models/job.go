// Package models defines the durable job/batch data model shared by the
// store, the worker manager, handlers, and the HTTP ingress surface.
package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the closed set of lifecycle states a Job can occupy.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// LogLevel is the closed set of levels a LogEntry may carry. Any other value
// supplied by a caller is coerced to LogLevelInfo.
type LogLevel string

const (
	LogLevelDebug    LogLevel = "debug"
	LogLevelInfo     LogLevel = "info"
	LogLevelWarning  LogLevel = "warning"
	LogLevelError    LogLevel = "error"
	LogLevelCritical LogLevel = "critical"
)

func validLogLevel(l LogLevel) bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelCritical:
		return true
	}
	return false
}

// NormalizeLogLevel coerces an unrecognized level to LogLevelInfo.
func NormalizeLogLevel(l LogLevel) LogLevel {
	if validLogLevel(l) {
		return l
	}
	return LogLevelInfo
}

// LogEntry is an immutable, append-only record attached to a Job.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

// Progress describes a handler's self-reported position within a job.
type Progress struct {
	Step    string `json:"step"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// Results is the handler-agnostic output envelope. Handler-specific payloads
// live under StructuredData, which every consumer treats opaquely.
type Results struct {
	MarkdownFile     string                 `json:"markdown_file,omitempty"`
	MarkdownContent  string                 `json:"markdown_content,omitempty"`
	Assets           []string               `json:"assets"`
	StructuredData   map[string]interface{} `json:"structured_data,omitempty"`
	TargetDir        string                 `json:"target_dir,omitempty"`
	AssetDir         string                 `json:"asset_dir,omitempty"`
	ArchiveFilename  string                 `json:"archive_filename,omitempty"`
}

// JobError is the structured failure record set on terminal FAILED jobs.
type JobError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Closed error code taxonomy at the orchestrator level (spec.md §7).
// Handlers may introduce their own codes under JobError.Code; those pass
// through unchanged.
const (
	ErrCodeUnknownJobType    = "UnknownJobType"
	ErrCodeHandlerException  = "HandlerException"
	ErrCodeProcessingTimeout = "PROCESSING_TIMEOUT"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NotFound"
	ErrCodeNoResults         = "NoResults"
	ErrCodeNoMarkdown        = "NoMarkdown"
	ErrCodeNoAssetDir        = "NoAssetDir"
	ErrCodeNoRaw             = "NoRaw"
)

// AccessControl mirrors the optional per-job visibility block carried over
// from the system this spec was distilled from. Only UserID-derived defaults
// are populated; no ACL enforcement happens in this spec's scope.
type AccessControl struct {
	Visibility  string   `json:"visibility"`
	ReadAccess  []string `json:"read_access,omitempty"`
	WriteAccess []string `json:"write_access,omitempty"`
	AdminAccess []string `json:"admin_access,omitempty"`
}

// Job is a single unit of work accepted by IngressShim and driven to a
// terminal state by WorkerManager. Its persisted mutators live in package
// store.
type Job struct {
	ID        string    `json:"id" badgerhold:"key"`
	JobType   string    `json:"job_type" badgerhold:"index"`
	JobName   string    `json:"job_name,omitempty"`
	Status    JobStatus `json:"status" badgerhold:"index"`
	Parameters map[string]interface{} `json:"parameters"`

	Progress *Progress `json:"progress,omitempty"`
	Results  *Results  `json:"results,omitempty"`
	Error    *JobError `json:"error,omitempty"`

	LogEntries []LogEntry `json:"log_entries"`

	CreatedAt            time.Time  `json:"created_at" badgerhold:"index"`
	UpdatedAt            time.Time  `json:"updated_at"`
	ProcessingStartedAt  *time.Time `json:"processing_started_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`

	UserID        string         `json:"user_id,omitempty"`
	AccessControl *AccessControl `json:"access_control,omitempty"`
	BatchID       string         `json:"batch_id,omitempty" badgerhold:"index"`
	Archived      bool           `json:"archived"`
}

// JobSpec is the caller-supplied subset of fields needed to create a Job.
type JobSpec struct {
	JobType    string
	JobName    string
	Parameters map[string]interface{}
	BatchID    string
	UserID     string
}

// NewJob builds a PENDING job from a spec. The store assigns CreatedAt and
// UpdatedAt at persistence time, not here, so callers cannot race the clock.
func NewJob(spec JobSpec) *Job {
	name := spec.JobName
	if name == "" {
		name = deriveJobName(spec.Parameters)
	}

	var ac *AccessControl
	if spec.UserID != "" {
		ac = &AccessControl{
			Visibility:  "private",
			ReadAccess:  []string{spec.UserID},
			WriteAccess: []string{spec.UserID},
			AdminAccess: []string{spec.UserID},
		}
	}

	return &Job{
		ID:            uuid.New().String(),
		JobType:       spec.JobType,
		JobName:       name,
		Status:        JobStatusPending,
		Parameters:    spec.Parameters,
		LogEntries:    []LogEntry{},
		UserID:        spec.UserID,
		AccessControl: ac,
		BatchID:       spec.BatchID,
	}
}

// deriveJobName builds a human label from common parameter keys when the
// caller did not supply one explicitly: it returns the first non-empty
// string among event, track, session, filename and url, in that order. The
// values are not combined.
func deriveJobName(params map[string]interface{}) string {
	keys := []string{"event", "track", "session", "filename", "url"}
	for _, k := range keys {
		if v, ok := params[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
