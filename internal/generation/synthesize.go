package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"newsforge/internal/ai"
	"newsforge/internal/logger"
	"newsforge/internal/metrics"
	"newsforge/internal/ratelimit"
)

// Hard size caps and floors. These are exact ceilings, enforced by
// truncation, never by rejection.
const (
	maxTitleChars    = 65
	maxExcerptChars  = 250
	maxMetaDescChars = 160
	maxKeywordChars  = 255

	maxContextSources  = 5
	contextContentCap  = 500
	fallbackContentCap = 500
)

// Generic SEO keywords appended after the tags.
var genericKeywords = []string{"noticias", "actualidad", "información"}

// SynthesisReport records which fallback paths fired, so callers and
// tests can tell a clean run from a degraded one.
type SynthesisReport struct {
	TitleFallback   bool
	ContentFallback bool
	PayloadFallback bool
	ExpandRetried   bool
	ExpandFailed    bool
}

// Synthesizer drives the AI completion calls that turn source material
// into a structured article.
type Synthesizer struct {
	completer   ai.Completer
	budget      *ratelimit.AIBudget
	model       string
	temperature float32
	minChars    int
	minWords    int
}

func NewSynthesizer(completer ai.Completer, budget *ratelimit.AIBudget, model string, temperature float32, minChars, minWords int) *Synthesizer {
	if minChars <= 0 {
		minChars = 2000
	}
	if minWords <= 0 {
		minWords = 800
	}
	return &Synthesizer{
		completer:   completer,
		budget:      budget,
		model:       model,
		temperature: temperature,
		minChars:    minChars,
		minWords:    minWords,
	}
}

type completionOpts struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
}

func (s *Synthesizer) complete(ctx context.Context, opts completionOpts) (string, error) {
	if s.completer == nil {
		return "", fmt.Errorf("no AI completer configured")
	}
	if s.budget != nil {
		if err := s.budget.Allow(s.completer.Provider()); err != nil {
			return "", err
		}
	}

	temp := opts.Temperature
	if temp == 0 {
		temp = s.temperature
	}

	metrics.Global.IncAICalls()
	return s.completer.Complete(ctx, ai.Request{
		Model:       s.model,
		Messages:    ai.UserMessage(opts.Prompt),
		MaxTokens:   opts.MaxTokens,
		Temperature: temp,
	})
}

// SynthesizeBasic is the per-field pipeline: title call, body call,
// then deterministic derivation of excerpt and SEO fields. Every AI
// failure has a templated fallback, so this path never errors.
func (s *Synthesizer) SynthesizeBasic(ctx context.Context, tags []string, sources []SourceRecord) (*Article, *SynthesisReport, error) {
	report := &SynthesisReport{}
	sourcesText := buildSourcesContext(sources)
	tagsText := strings.Join(tags, ", ")

	title := s.generateTitle(ctx, sourcesText, tagsText, report)
	content := s.generateContent(ctx, sourcesText, tagsText, title, report)
	excerpt := deriveExcerpt(content)
	metaDescription := deriveMetaDescription(excerpt)
	metaKeywords := deriveMetaKeywords(tags)

	return &Article{
		Title:           clampRunes(title, maxTitleChars),
		Excerpt:         excerpt,
		Content:         content,
		MetaDescription: metaDescription,
		MetaKeywords:    metaKeywords,
	}, report, nil
}

func (s *Synthesizer) generateTitle(ctx context.Context, sourcesText, tagsText string, report *SynthesisReport) string {
	prompt := fmt.Sprintf(`Basándote en estos artículos sobre %s, genera un título atractivo y informativo en español para un nuevo artículo que compile la información más relevante.

%s

Requisitos:
- Máximo 60 caracteres
- Debe ser llamativo pero profesional
- En español
- Que capture la esencia de la información más importante

Responde solo con el título, sin comillas ni explicaciones.`, tagsText, sourcesText)

	title, err := s.complete(ctx, completionOpts{Prompt: prompt, MaxTokens: 100})
	if err != nil || title == "" {
		logger.Warn("title generation failed, using template", "error", err)
		metrics.Global.IncAIFallbacks()
		report.TitleFallback = true
		return fmt.Sprintf("Últimas noticias sobre %s", tagsText)
	}
	return strings.Trim(title, `"`)
}

func (s *Synthesizer) generateContent(ctx context.Context, sourcesText, tagsText, title string, report *SynthesisReport) string {
	prompt := fmt.Sprintf(`Eres un periodista profesional. Crea un artículo completo en español basándote en las siguientes fuentes sobre %s.

%s

Título del artículo: %s

Instrucciones:
1. Escribe un artículo periodístico profesional de 400-600 palabras
2. Utiliza formato HTML simple (<p>, <h3>, <strong>, <em>)
3. Incluye subtítulos cuando sea apropiado
4. Combina información de múltiples fuentes sin plagiar
5. Mantén un tono profesional e informativo
6. No incluyas enlaces externos
7. No menciones las fuentes directamente en el texto
8. El artículo debe fluir naturalmente y ser original

Responde solo con el contenido HTML, sin explicaciones adicionales.`, tagsText, sourcesText, title)

	content, err := s.complete(ctx, completionOpts{Prompt: prompt, MaxTokens: 1500, Temperature: 0.6})
	if err != nil || content == "" {
		logger.Warn("content generation failed, using template", "error", err)
		metrics.Global.IncAIFallbacks()
		report.ContentFallback = true
		return fmt.Sprintf("<p>Error al generar contenido automático sobre %s.</p>", tagsText)
	}
	return content
}

type comprehensivePayload struct {
	Title           string `json:"title"`
	Excerpt         string `json:"excerpt"`
	Content         string `json:"content"`
	MetaDescription string `json:"meta_description"`
	MetaKeywords    string `json:"meta_keywords"`
}

// SynthesizeComprehensive is the long-form path: a single structured
// call asking for a full essay, a length-guarded expand retry, and a
// deterministic fallback article when the payload cannot be parsed.
func (s *Synthesizer) SynthesizeComprehensive(ctx context.Context, tags []string, sources []SourceRecord) (*Article, *SynthesisReport, error) {
	report := &SynthesisReport{}
	tagsText := strings.Join(tags, ", ")

	var sourcesContext strings.Builder
	for i, src := range sources {
		if i >= maxContextSources {
			break
		}
		fmt.Fprintf(&sourcesContext, "\nFuente %d - %s (%s):\n", i+1, src.SourceName, src.Type)
		fmt.Fprintf(&sourcesContext, "Enfoque: %s\n", src.Focus)
		fmt.Fprintf(&sourcesContext, "Puntos clave: %s\n", src.Description)
	}

	prompt := fmt.Sprintf(`Eres un periodista senior escribiendo un artículo de investigación sobre %s.

Has consultado múltiples fuentes especializadas:
%s

REQUISITOS DEL ARTÍCULO:
- MÍNIMO %d palabras (muy importante)
- MÍNIMO 6 párrafos principales
- Incluir al menos 3 subtítulos <h3>
- Estructura profesional: introducción, desarrollo (múltiples secciones), conclusión
- Mencionar diferentes perspectivas basadas en las fuentes
- Incluir datos específicos y ejemplos concretos
- Tono profesional y periodístico

ESTRUCTURA REQUERIDA:
1. Introducción (2 párrafos)
2. Desarrollo principal (4-5 párrafos con subtítulos)
3. Análisis de impacto (2 párrafos)
4. Perspectivas futuras (2 párrafos)
5. Conclusión (1 párrafo)

Respuesta en formato JSON:
{
  "title": "Título impactante (máximo 65 caracteres)",
  "excerpt": "Resumen ejecutivo del artículo (200-250 caracteres)",
  "content": "Artículo completo en HTML con estructura profesional",
  "meta_description": "Descripción SEO optimizada (150-160 caracteres)",
  "meta_keywords": "15-20 palabras clave relevantes separadas por comas"
}

IMPORTANTE: El contenido debe ser sustancioso, informativo y parecer escrito por un experto en %s.`,
		tagsText, sourcesContext.String(), s.minWords, tagsText)

	raw, err := s.complete(ctx, completionOpts{Prompt: prompt, MaxTokens: 3000, Temperature: 0.6})
	if err != nil {
		logger.Warn("comprehensive synthesis failed, using fallback article", "error", err)
		metrics.Global.IncAIFallbacks()
		report.PayloadFallback = true
		return fallbackArticle(tagsText, err.Error()), report, nil
	}

	var payload comprehensivePayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil || payload.Content == "" {
		logger.Warn("comprehensive payload unparseable, using fallback article")
		metrics.Global.IncAIFallbacks()
		report.PayloadFallback = true
		return fallbackArticle(tagsText, raw), report, nil
	}

	if len(payload.Content) < s.minChars {
		logger.Warn("generated content too short, requesting expansion",
			"chars", len(payload.Content), "min", s.minChars)
		report.ExpandRetried = true
		payload = s.expandContent(ctx, tagsText, payload, report)
	}

	return s.payloadToArticle(tags, payload), report, nil
}

// expandContent asks once for a longer draft. If the expansion itself
// fails, the short draft is kept; a short article beats no article.
func (s *Synthesizer) expandContent(ctx context.Context, tagsText string, base comprehensivePayload, report *SynthesisReport) comprehensivePayload {
	prompt := fmt.Sprintf(`El siguiente artículo sobre %s necesita ser expandido significativamente:

Título actual: %s
Contenido actual: %s

TAREA: Expandir el contenido a MÍNIMO %d palabras, agregando:
- Más ejemplos específicos y casos de estudio
- Análisis más profundo de las implicaciones
- Comparaciones con situaciones similares
- Datos y estadísticas relevantes
- Perspectivas de diferentes stakeholders
- Secciones adicionales con subtítulos <h3>

Mantén el título original pero expande dramáticamente el contenido.

Responde en JSON con los campos title, excerpt, content, meta_description, meta_keywords.`,
		tagsText, base.Title, base.Content, s.minWords)

	raw, err := s.complete(ctx, completionOpts{Prompt: prompt, MaxTokens: 3500, Temperature: 0.6})
	if err != nil {
		logger.Warn("content expansion failed, keeping short draft", "error", err)
		report.ExpandFailed = true
		return base
	}

	var expanded comprehensivePayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &expanded); err != nil || expanded.Content == "" {
		logger.Warn("expansion payload unparseable, keeping short draft")
		report.ExpandFailed = true
		return base
	}

	if expanded.Title == "" {
		expanded.Title = base.Title
	}
	return expanded
}

func (s *Synthesizer) payloadToArticle(tags []string, payload comprehensivePayload) *Article {
	excerpt := payload.Excerpt
	if excerpt == "" {
		excerpt = deriveExcerpt(payload.Content)
	} else if runeLen(excerpt) > maxExcerptChars {
		excerpt = clampRunes(excerpt, maxExcerptChars-3) + "..."
	}

	metaDescription := payload.MetaDescription
	if metaDescription == "" || runeLen(metaDescription) > maxMetaDescChars {
		metaDescription = deriveMetaDescription(excerpt)
	}

	metaKeywords := payload.MetaKeywords
	if metaKeywords == "" {
		metaKeywords = deriveMetaKeywords(tags)
	}

	return &Article{
		Title:           clampRunes(payload.Title, maxTitleChars),
		Excerpt:         excerpt,
		Content:         payload.Content,
		MetaDescription: clampRunes(metaDescription, maxMetaDescChars),
		MetaKeywords:    clampRunes(metaKeywords, maxKeywordChars),
	}
}

// fallbackArticle is the deterministic last resort: a valid article
// embedding a truncated slice of whatever the AI returned.
func fallbackArticle(tagsText, rawResponse string) *Article {
	return &Article{
		Title:   clampRunes(fmt.Sprintf("Últimas Noticias: %s", titleCase(tagsText)), maxTitleChars),
		Excerpt: fmt.Sprintf("Análisis de las tendencias más recientes en %s.", tagsText),
		Content: fmt.Sprintf("<p>Desarrollos importantes en el campo de <strong>%s</strong>.</p><p>%s...</p>",
			tagsText, clampRunes(rawResponse, fallbackContentCap)),
		MetaDescription: clampRunes(fmt.Sprintf("Noticias actualizadas sobre %s.", tagsText), maxMetaDescChars),
		MetaKeywords:    clampRunes(fmt.Sprintf("%s, noticias, actualidad, tendencias", tagsText), maxKeywordChars),
	}
}

// buildSourcesContext folds at most the first five source records into
// the prompt context.
func buildSourcesContext(sources []SourceRecord) string {
	var b strings.Builder
	b.WriteString("Artículos de referencia:\n\n")

	for i, src := range sources {
		if i >= maxContextSources {
			break
		}

		name := src.SourceName
		if name == "" {
			name = src.DisplayLabel()
		}
		fmt.Fprintf(&b, "%d. **%s** (%s)\n", i+1, src.Title, name)
		if src.Description != "" {
			fmt.Fprintf(&b, "   Descripción: %s\n", src.Description)
		}

		content := src.Content
		if content == "" {
			content = src.ContentPreview
		}
		if content != "" {
			fmt.Fprintf(&b, "   Contenido: %s...\n", clampRunes(content, contextContentCap))
		}
		if src.URL != "" {
			fmt.Fprintf(&b, "   URL: %s\n", src.URL)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// deriveExcerpt strips HTML from the body, keeps the first three
// sentences and caps the result at 250 characters.
func deriveExcerpt(htmlContent string) string {
	text := stripHTML(htmlContent)

	sentences := strings.Split(text, ".")
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	excerpt := strings.TrimSpace(strings.Join(sentences, "."))
	if excerpt != "" && !strings.HasSuffix(excerpt, ".") {
		excerpt += "."
	}

	if runeLen(excerpt) > maxExcerptChars {
		excerpt = clampRunes(excerpt, maxExcerptChars-3) + "..."
	}
	return excerpt
}

// deriveMetaDescription caps the excerpt at 160 characters, breaking at
// the last whole word with an ellipsis when truncation happens.
func deriveMetaDescription(excerpt string) string {
	if runeLen(excerpt) <= maxMetaDescChars {
		return excerpt
	}

	cut := clampRunes(excerpt, maxMetaDescChars-3)
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// deriveMetaKeywords joins the tags with generic SEO keywords, capped
// at 255 characters.
func deriveMetaKeywords(tags []string) string {
	all := append(append([]string{}, tags...), genericKeywords...)
	return clampRunes(strings.Join(all, ", "), maxKeywordChars)
}

// stripHTML removes tags and collapses whitespace.
func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// stripCodeFence unwraps ```json ... ``` blocks some models insist on.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func runeLen(s string) int {
	return len([]rune(s))
}

func clampRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}

func titleCase(s string) string {
	prev := ' '
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(prev) || prev == ',' {
			prev = r
			return unicode.ToUpper(r)
		}
		prev = r
		return r
	}, s)
}
