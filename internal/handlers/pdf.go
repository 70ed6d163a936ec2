package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/contentforge/orchestrator/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
)

// PDFHandler extracts text from a PDF file using pdfcpu. It registers under
// both "pdf" and "office_via_pdf" (the latter operating on a file already
// converted to PDF by an external collaborator, per spec.md's file-format
// non-goal).
type PDFHandler struct {
	logger  arbor.ILogger
	tempDir string
}

// NewPDFHandler returns a PDFHandler that extracts into a scratch directory
// under os.TempDir.
func NewPDFHandler(logger arbor.ILogger) *PDFHandler {
	tempDir := filepath.Join(os.TempDir(), "orchestrator-pdf")
	os.MkdirAll(tempDir, 0755)
	return &PDFHandler{logger: logger, tempDir: tempDir}
}

// Handle implements the Handler function signature.
func (h *PDFHandler) Handle(ctx context.Context, job *models.Job, report ProgressReporter) (*models.Results, error) {
	path, ok := job.Parameters["filename"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("%s: parameters.filename is required", models.ErrCodeValidation)
	}

	report(models.Progress{Step: "reading", Percent: 10})

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	report(models.Progress{Step: "extracting", Percent: 40})

	outDir := filepath.Join(h.tempDir, fmt.Sprintf("extract_%s", job.ID))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	pageCount := pdfCtx.PageCount
	var fullText strings.Builder

	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		h.logger.Warn().Err(err).Str("job_id", job.ID).Msg("pdf content extraction failed, returning empty text")
	} else {
		files, _ := os.ReadDir(outDir)
		pageTexts := make(map[int]string)
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			var pageNum int
			idx := strings.Index(f.Name(), "Content_page_")
			if idx < 0 {
				continue
			}
			if _, err := fmt.Sscanf(f.Name()[idx:], "Content_page_%d", &pageNum); err != nil {
				continue
			}
			content, err := os.ReadFile(filepath.Join(outDir, f.Name()))
			if err == nil {
				pageTexts[pageNum] = string(content)
			}
		}
		for pageNum := 1; pageNum <= pageCount; pageNum++ {
			if text, ok := pageTexts[pageNum]; ok {
				if fullText.Len() > 0 {
					fullText.WriteString("\n\n")
				}
				fullText.WriteString(text)
			}
		}
	}

	report(models.Progress{Step: "done", Percent: 100})

	return &models.Results{
		MarkdownContent: fullText.String(),
		Assets:          []string{},
		StructuredData: map[string]interface{}{
			"page_count": pageCount,
		},
	}, nil
}
