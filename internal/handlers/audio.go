package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/contentforge/orchestrator/internal/models"
	"github.com/ternarybob/arbor"
)

// AudioHandler is a contract-only reference implementation: real speech
// transcription is an ASR/LLM collaborator concern out of this spec's scope.
// It validates the input file and drives the same progress/result lifecycle
// a real transcription handler would, grounded on audio_handler.py's
// validate → transcribe → structure sequencing.
type AudioHandler struct {
	logger arbor.ILogger
}

// NewAudioHandler returns a Handler for the "audio" job type.
func NewAudioHandler(logger arbor.ILogger) *AudioHandler {
	return &AudioHandler{logger: logger}
}

func (h *AudioHandler) Handle(ctx context.Context, job *models.Job, report ProgressReporter) (*models.Results, error) {
	path, ok := job.Parameters["file"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("%s: parameters.file is required", models.ErrCodeValidation)
	}

	report(models.Progress{Step: "validating", Percent: 5})

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("audio file not accessible: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%s: audio file is empty", models.ErrCodeValidation)
	}

	report(models.Progress{Step: "transcribing", Percent: 50})

	placeholder := fmt.Sprintf("[transcription unavailable: real ASR is an external collaborator, file=%s size=%d bytes]", path, info.Size())

	report(models.Progress{Step: "done", Percent: 100})

	return &models.Results{
		MarkdownContent: placeholder,
		Assets:          []string{},
		StructuredData: map[string]interface{}{
			"data": map[string]interface{}{
				"transcription": map[string]interface{}{
					"text":       placeholder,
					"confidence": 0.0,
				},
			},
		},
	}, nil
}
