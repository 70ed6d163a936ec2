package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/contentforge/orchestrator/internal/models"
	"github.com/ternarybob/arbor"
)

// SessionHandler fetches a web page and converts its main content to
// Markdown, matching the teacher's httpclient construction style and its
// transform.Service HTML→Markdown conversion (with the same strip-tags
// fallback on converter failure or empty output).
type SessionHandler struct {
	logger     arbor.ILogger
	httpClient *http.Client
}

// NewSessionHandler returns a Handler for the "session" job type.
func NewSessionHandler(logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{
		logger:     logger,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *SessionHandler) Handle(ctx context.Context, job *models.Job, report ProgressReporter) (*models.Results, error) {
	rawURL, ok := job.Parameters["url"].(string)
	if !ok || rawURL == "" {
		return nil, fmt.Errorf("%s: parameters.url is required", models.ErrCodeValidation)
	}

	report(models.Progress{Step: "fetching", Percent: 10})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("url returned status %d", resp.StatusCode)
	}

	report(models.Progress{Step: "parsing", Percent: 40})

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	htmlContent, err := doc.Find("body").Html()
	if err != nil {
		return nil, fmt.Errorf("failed to extract body: %w", err)
	}

	report(models.Progress{Step: "converting", Percent: 70})

	markdown := h.htmlToMarkdown(htmlContent, rawURL)

	report(models.Progress{Step: "done", Percent: 100})

	return &models.Results{
		MarkdownContent: markdown,
		Assets:          []string{},
		StructuredData: map[string]interface{}{
			"title": title,
			"url":   rawURL,
		},
	}, nil
}

func (h *SessionHandler) htmlToMarkdown(html, baseURL string) string {
	if html == "" {
		return ""
	}
	converter := md.NewConverter(baseURL, true, nil)
	converted, err := converter.ConvertString(html)
	if err != nil {
		h.logger.Warn().Err(err).Msg("html to markdown conversion failed, using fallback")
		return stripHTMLTags(html)
	}
	if strings.TrimSpace(converted) == "" {
		return stripHTMLTags(html)
	}
	return converted
}

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

func stripHTMLTags(htmlStr string) string {
	stripped := tagRe.ReplaceAllString(htmlStr, "")
	cleaned := spaceRe.ReplaceAllString(stripped, " ")
	cleaned = strings.ReplaceAll(cleaned, "&amp;", "&")
	cleaned = strings.ReplaceAll(cleaned, "&lt;", "<")
	cleaned = strings.ReplaceAll(cleaned, "&gt;", ">")
	cleaned = strings.ReplaceAll(cleaned, "&quot;", "\"")
	cleaned = strings.ReplaceAll(cleaned, "&#39;", "'")
	cleaned = strings.ReplaceAll(cleaned, "&nbsp;", " ")
	return strings.TrimSpace(cleaned)
}
