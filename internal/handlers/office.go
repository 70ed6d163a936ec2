package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/contentforge/orchestrator/internal/models"
	"github.com/ternarybob/arbor"
)

// OfficeHandler assembles markdown from a pre-converted text file. Office
// document parsing itself (docx/xlsx/pptx → text) is an external
// collaborator concern, consistent with spec.md's non-goal on file-format
// parsers; this handler picks up after that conversion has already happened.
type OfficeHandler struct {
	logger arbor.ILogger
}

// NewOfficeHandler returns a Handler for the "office" job type.
func NewOfficeHandler(logger arbor.ILogger) *OfficeHandler {
	return &OfficeHandler{logger: logger}
}

func (h *OfficeHandler) Handle(ctx context.Context, job *models.Job, report ProgressReporter) (*models.Results, error) {
	path, ok := job.Parameters["filename"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("%s: parameters.filename is required", models.ErrCodeValidation)
	}

	report(models.Progress{Step: "reading", Percent: 20})

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read converted text file: %w", err)
	}

	report(models.Progress{Step: "done", Percent: 100})

	return &models.Results{
		MarkdownContent: string(content),
		Assets:          []string{},
	}, nil
}
