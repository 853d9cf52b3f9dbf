// Package extract pulls the main textual content out of arbitrary news
// pages. Extraction never fails: any network, HTTP or parse problem is
// folded into a placeholder result so callers can proceed uniformly.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsforge/internal/retry"
)

const (
	// Browser-like user agent, many news sites reject default Go clients.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// A selector match below this many characters is not real article
	// body, keep trying the next selector.
	minContentChars = 200

	failedTitle = "Contenido no disponible"
)

// Ordered by how often real news sites use them.
var contentSelectors = []string{
	"article",
	".article-content",
	".post-content",
	".entry-content",
	".content",
	"main",
	".story-body",
}

var titleSelectors = []string{
	"h1",
	"title",
	".title",
	".headline",
}

var strippedElements = "script, style, nav, footer, header, aside"

// Result is one extracted page. Failed marks placeholder results whose
// Content explains what went wrong.
type Result struct {
	Title   string
	Content string
	URL     string
	Failed  bool
}

type Extractor struct {
	client   *http.Client
	maxChars int
	attempts int
	delay    time.Duration
}

// New builds an extractor with the given fetch timeout and content cap.
func New(timeout time.Duration, maxChars int) *Extractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxChars <= 0 {
		maxChars = 2000
	}
	return &Extractor{
		client:   &http.Client{Timeout: timeout},
		maxChars: maxChars,
		attempts: 2,
		delay:    500 * time.Millisecond,
	}
}

// Extract fetches url and returns its title and main text, truncated to
// the configured cap. On any failure it returns a placeholder result.
func (e *Extractor) Extract(ctx context.Context, url string) *Result {
	return e.ExtractWithCap(ctx, url, e.maxChars)
}

// ExtractWithCap is Extract with a per-call content cap.
func (e *Extractor) ExtractWithCap(ctx context.Context, url string, maxChars int) *Result {
	if maxChars <= 0 {
		maxChars = e.maxChars
	}

	var resp *http.Response
	err := retry.Do(ctx, retry.Config{MaxAttempts: e.attempts, Delay: e.delay}, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)

		r, err := e.client.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode < 200 || r.StatusCode > 299 {
			r.Body.Close()
			return fmt.Errorf("HTTP error: %d", r.StatusCode)
		}
		resp = r
		return nil
	})
	if err != nil {
		return failure(url, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return failure(url, fmt.Errorf("error parsing HTML: %w", err))
	}

	doc.Find(strippedElements).Remove()

	content := extractContent(doc)
	if content == "" {
		return failure(url, fmt.Errorf("no extractable paragraphs"))
	}

	return &Result{
		Title:   extractTitle(doc),
		Content: truncate(content, maxChars),
		URL:     url,
	}
}

func failure(url string, err error) *Result {
	return &Result{
		Title:   failedTitle,
		Content: fmt.Sprintf("No se pudo extraer contenido de %s: %v", url, err),
		URL:     url,
		Failed:  true,
	}
}

// extractContent tries the selector cascade, then falls back to every
// paragraph in the document.
func extractContent(doc *goquery.Document) string {
	for _, selector := range contentSelectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}

		content := joinParagraphs(container)
		if len(content) > minContentChars {
			return content
		}
	}

	return joinParagraphs(doc.Selection)
}

func joinParagraphs(s *goquery.Selection) string {
	var paragraphs []string
	s.Find("p").Each(func(i int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, " ")
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range titleSelectors {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}
	return failedTitle
}

// truncate cuts at a fixed rune cap. Deterministic: the same page
// yields the same truncated content on every call.
func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
