package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"text/template"
	"time"

	"github.com/contentforge/orchestrator/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
)

// TransformerTemplateHandler renders a Go text/template against either
// inline text or a fetched URL's body, then validates the rendered output
// as Markdown with goldmark. Grounded on original_source's
// transformer_handler.py mutually-exclusive-input validation (spec.md §8 S6):
// exactly one of "text"/"url" and exactly one of "template"/"template_content"
// must be supplied.
type TransformerTemplateHandler struct {
	logger     arbor.ILogger
	httpClient *http.Client
}

// NewTransformerTemplateHandler returns a Handler for the
// "transformer_template" job type.
func NewTransformerTemplateHandler(logger arbor.ILogger) *TransformerTemplateHandler {
	return &TransformerTemplateHandler{
		logger:     logger,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *TransformerTemplateHandler) Handle(ctx context.Context, job *models.Job, report ProgressReporter) (*models.Results, error) {
	report(models.Progress{Step: "validating", Percent: 5})

	input, err := h.resolveInput(ctx, job.Parameters)
	if err != nil {
		return nil, err
	}

	tmplSource, err := h.resolveTemplate(job.Parameters)
	if err != nil {
		return nil, err
	}

	report(models.Progress{Step: "rendering", Percent: 40})

	tmpl, err := template.New(job.ID).Parse(tmplSource)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid template: %w", models.ErrCodeValidation, err)
	}

	var rendered bytes.Buffer
	if err := tmpl.Execute(&rendered, map[string]interface{}{"Content": input}); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	report(models.Progress{Step: "validating_output", Percent: 75})

	var discarded bytes.Buffer
	if err := goldmark.Convert(rendered.Bytes(), &discarded); err != nil {
		return nil, fmt.Errorf("%s: rendered output is not valid markdown: %w", models.ErrCodeValidation, err)
	}

	report(models.Progress{Step: "done", Percent: 100})

	return &models.Results{
		MarkdownContent: rendered.String(),
		Assets:          []string{},
	}, nil
}

func (h *TransformerTemplateHandler) resolveInput(ctx context.Context, params map[string]interface{}) (string, error) {
	text, hasText := params["text"].(string)
	url, hasURL := params["url"].(string)

	switch {
	case hasText && text != "" && hasURL && url != "":
		return "", fmt.Errorf("%s: parameters.text and parameters.url are mutually exclusive", models.ErrCodeValidation)
	case hasText && text != "":
		return text, nil
	case hasURL && url != "":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", fmt.Errorf("failed to build request: %w", err)
		}
		resp, err := h.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to fetch url: %w", err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read url body: %w", err)
		}
		return string(body), nil
	default:
		return "", fmt.Errorf("%s: exactly one of parameters.text or parameters.url is required", models.ErrCodeValidation)
	}
}

func (h *TransformerTemplateHandler) resolveTemplate(params map[string]interface{}) (string, error) {
	tmplPath, hasPath := params["template"].(string)
	tmplContent, hasContent := params["template_content"].(string)

	switch {
	case hasPath && tmplPath != "" && hasContent && tmplContent != "":
		return "", fmt.Errorf("%s: parameters.template and parameters.template_content are mutually exclusive", models.ErrCodeValidation)
	case hasContent && tmplContent != "":
		return tmplContent, nil
	case hasPath && tmplPath != "":
		data, err := readFile(tmplPath)
		if err != nil {
			return "", fmt.Errorf("failed to read template file: %w", err)
		}
		return data, nil
	default:
		return "", fmt.Errorf("%s: exactly one of parameters.template or parameters.template_content is required", models.ErrCodeValidation)
	}
}
