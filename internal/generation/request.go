// Package generation implements the news generation pipeline: source
// acquisition, AI content synthesis and the request state machine.
package generation

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a generation request.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusSearching  Status = "SEARCHING"
	StatusGenerating Status = "GENERATING"
	StatusCompleted  Status = "COMPLETED"
	StatusError      Status = "ERROR"
	StatusPublished  Status = "PUBLISHED"
)

// Source record types. The ai_* kinds come from the synthetic strategy.
const (
	SourceSearched   = "searched"
	SourceManualURL  = "manual_url"
	SourceSimulated  = "simulated"
	SourceAIResearch = "ai_research"
	SourceAIIndustry = "ai_industry"
	SourceAIAcademic = "ai_academic"
	SourceAIMarket   = "ai_market"
	SourceAIExpert   = "ai_expert"
)

// SourceRecord is one unit of reference material feeding the
// synthesizer. Type discriminates which of the optional fields are set.
type SourceRecord struct {
	Type           string `json:"type"`
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	URL            string `json:"url,omitempty"`
	PublishedAt    string `json:"published_at,omitempty"`
	SourceName     string `json:"source_name,omitempty"`
	Author         string `json:"author,omitempty"`
	Content        string `json:"content,omitempty"`
	ContentPreview string `json:"content_preview,omitempty"`
	Focus          string `json:"focus,omitempty"`
	Model          string `json:"model,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
	Failed         bool   `json:"failed,omitempty"`
}

var sourceLabels = map[string]string{
	SourceSearched:   "Búsqueda web",
	SourceManualURL:  "URL manual",
	SourceSimulated:  "Contenido simulado",
	SourceAIResearch: "Fuente IA: investigación",
	SourceAIIndustry: "Fuente IA: industria",
	SourceAIAcademic: "Fuente IA: académica",
	SourceAIMarket:   "Fuente IA: mercado",
	SourceAIExpert:   "Fuente IA: expertos",
}

// DisplayLabel is the human-readable kind shown in previews.
func (r SourceRecord) DisplayLabel() string {
	if label, ok := sourceLabels[r.Type]; ok {
		return label
	}
	return "Fuente"
}

// Article is the five-field output of synthesis.
type Article struct {
	Title           string `json:"title"`
	Excerpt         string `json:"excerpt"`
	Content         string `json:"content"`
	MetaDescription string `json:"meta_description"`
	MetaKeywords    string `json:"meta_keywords"`
}

// Complete reports whether all five fields are non-empty.
func (a *Article) Complete() bool {
	if a == nil {
		return false
	}
	return a.Title != "" && a.Excerpt != "" && a.Content != "" &&
		a.MetaDescription != "" && a.MetaKeywords != ""
}

// GenerationRequest is the central entity the orchestrator drives.
// Tags and ManualURLs keep the raw submitted text; the parsed views are
// TagsList and URLList.
type GenerationRequest struct {
	ID                int64          `json:"id"`
	Tags              string         `json:"tags"`
	ManualURLs        string         `json:"manual_urls,omitempty"`
	Status            Status         `json:"status"`
	SourceRecords     []SourceRecord `json:"source_records,omitempty"`
	TotalSourcesFound int            `json:"total_sources_found"`
	Article           *Article       `json:"generated_article,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	PublishedPostID   int64          `json:"published_post_id,omitempty"`
}

// TagsList splits the comma-separated tags, dropping empty entries.
func (g *GenerationRequest) TagsList() []string {
	return splitClean(g.Tags, ",")
}

// URLList splits manual URLs, one per line, dropping blank lines.
func (g *GenerationRequest) URLList() []string {
	return splitClean(g.ManualURLs, "\n")
}

func splitClean(raw, sep string) []string {
	var out []string
	for _, part := range strings.Split(raw, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Clone returns a deep copy so stores can hand out snapshots.
func (g *GenerationRequest) Clone() *GenerationRequest {
	cp := *g
	if g.SourceRecords != nil {
		cp.SourceRecords = make([]SourceRecord, len(g.SourceRecords))
		copy(cp.SourceRecords, g.SourceRecords)
	}
	if g.Article != nil {
		a := *g.Article
		cp.Article = &a
	}
	if g.CompletedAt != nil {
		t := *g.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// Preview is the read-only projection served to the editor.
type Preview struct {
	ID                int64           `json:"id"`
	Tags              []string        `json:"tags"`
	Status            Status          `json:"status"`
	TotalSourcesFound int             `json:"total_sources_found"`
	Excerpt           string          `json:"excerpt,omitempty"`
	Content           string          `json:"content,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	Sources           []SourcePreview `json:"sources,omitempty"`
}

type SourcePreview struct {
	Label       string `json:"label"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}
