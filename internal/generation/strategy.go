package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsforge/internal/config"
	"newsforge/internal/extract"
	"newsforge/internal/logger"
	"newsforge/internal/newsapi"
)

// Strategy produces source material and turns it into an article. All
// strategies share the same two-phase shape so the orchestrator drives
// them identically.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context, req *GenerationRequest) ([]SourceRecord, error)
	Synthesize(ctx context.Context, tags []string, sources []SourceRecord) (*Article, *SynthesisReport, error)
}

// realStrategy: live news search plus per-field AI synthesis.
type realStrategy struct {
	acquirer *searchAcquirer
	synth    *Synthesizer
}

func (s *realStrategy) Name() string { return "real" }

func (s *realStrategy) Acquire(ctx context.Context, req *GenerationRequest) ([]SourceRecord, error) {
	return s.acquirer.acquire(ctx, req)
}

func (s *realStrategy) Synthesize(ctx context.Context, tags []string, sources []SourceRecord) (*Article, *SynthesisReport, error) {
	return s.synth.SynthesizeBasic(ctx, tags, sources)
}

// manualStrategy: editor-supplied URLs plus per-field AI synthesis.
type manualStrategy struct {
	acquirer *manualAcquirer
	synth    *Synthesizer
}

func (s *manualStrategy) Name() string { return "manual" }

func (s *manualStrategy) Acquire(ctx context.Context, req *GenerationRequest) ([]SourceRecord, error) {
	return s.acquirer.acquire(ctx, req)
}

func (s *manualStrategy) Synthesize(ctx context.Context, tags []string, sources []SourceRecord) (*Article, *SynthesisReport, error) {
	return s.synth.SynthesizeBasic(ctx, tags, sources)
}

// syntheticStrategy: AI-generated sources plus one comprehensive
// long-form synthesis call. Works with an AI key alone, no search
// credentials needed.
type syntheticStrategy struct {
	acquirer *syntheticAcquirer
	synth    *Synthesizer
}

func (s *syntheticStrategy) Name() string { return "synthetic" }

func (s *syntheticStrategy) Acquire(ctx context.Context, req *GenerationRequest) ([]SourceRecord, error) {
	return s.acquirer.acquire(ctx, req)
}

func (s *syntheticStrategy) Synthesize(ctx context.Context, tags []string, sources []SourceRecord) (*Article, *SynthesisReport, error) {
	return s.synth.SynthesizeComprehensive(ctx, tags, sources)
}

// mockStrategy needs no external services at all. It fabricates one
// simulated source and a templated article after an artificial delay,
// so the rest of the pipeline can be exercised offline.
type mockStrategy struct {
	delay time.Duration
	now   func() time.Time
}

func (s *mockStrategy) Name() string { return "mock" }

func (s *mockStrategy) Acquire(ctx context.Context, req *GenerationRequest) ([]SourceRecord, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return mockSources(req, "mock-generator-v1", now()), nil
}

func (s *mockStrategy) Synthesize(ctx context.Context, tags []string, sources []SourceRecord) (*Article, *SynthesisReport, error) {
	tagsText := strings.Join(tags, ", ")
	first := "actualidad"
	if len(tags) > 0 {
		first = tags[0]
	}

	content := fmt.Sprintf(`<p>Este es un artículo generado automáticamente sobre <strong>%s</strong> con fines de desarrollo y pruebas.</p>
<h3>Contexto actual de %s</h3>
<p>El sector de %s continúa evolucionando con rapidez. Los especialistas coinciden en que los próximos meses serán decisivos para consolidar las tendencias observadas recientemente.</p>
<h3>Puntos destacados</h3>
<p>Entre los aspectos más relevantes se encuentran la adopción creciente de nuevas tecnologías, el interés del público general y la inversión sostenida de los principales actores del mercado.</p>
<p>Este contenido es simulado y no debe publicarse en producción.</p>`,
		tagsText, first, tagsText)

	article := &Article{
		Title:           clampRunes(fmt.Sprintf("Novedades sobre %s", tagsText), maxTitleChars),
		Excerpt:         clampRunes(fmt.Sprintf("Resumen de desarrollo sobre %s. Contenido simulado para pruebas.", tagsText), maxExcerptChars),
		Content:         content,
		MetaDescription: clampRunes(fmt.Sprintf("Artículo de prueba sobre %s.", tagsText), maxMetaDescChars),
		MetaKeywords:    deriveMetaKeywords(tags),
	}
	return article, &SynthesisReport{}, nil
}

// StrategyFactory picks a strategy per request: manual URLs always win,
// then the configured mode, then credential-based auto detection.
type StrategyFactory struct {
	cfg       *config.Config
	synth     *Synthesizer
	search    *newsapi.Client
	extractor *extract.Extractor
	feeds     []string

	// MockDelay overrides the mock strategy's artificial latency.
	MockDelay time.Duration
}

func NewStrategyFactory(cfg *config.Config, synth *Synthesizer, search *newsapi.Client, extractor *extract.Extractor, feeds []string) *StrategyFactory {
	return &StrategyFactory{
		cfg:       cfg,
		synth:     synth,
		search:    search,
		extractor: extractor,
		feeds:     feeds,
		MockDelay: 2 * time.Second,
	}
}

// ForRequest resolves the strategy used to process req.
func (f *StrategyFactory) ForRequest(req *GenerationRequest) (Strategy, error) {
	if len(req.URLList()) > 0 {
		if !f.hasAI() {
			return nil, NewError(KindConfigurationMissing,
				"se requiere una clave de IA para procesar URLs manuales")
		}
		return &manualStrategy{
			acquirer: &manualAcquirer{extractor: f.extractor},
			synth:    f.synth,
		}, nil
	}

	mode := f.cfg.GenerationMode
	if mode == config.ModeAuto {
		mode = f.detectMode()
	}
	logger.Debug("strategy resolved", "request_id", req.ID, "mode", mode)

	switch mode {
	case config.ModeReal:
		if f.search == nil {
			return nil, NewError(KindConfigurationMissing,
				"falta la clave de la API de noticias para el modo real")
		}
		if !f.hasAI() {
			return nil, NewError(KindConfigurationMissing,
				"falta la clave de IA para el modo real")
		}
		return &realStrategy{
			acquirer: &searchAcquirer{
				search:    f.search,
				extractor: f.extractor,
				feeds:     f.feeds,
				feedLimit: f.cfg.SearchPageSize,
			},
			synth: f.synth,
		}, nil

	case config.ModeSynthetic:
		if !f.hasAI() {
			return nil, NewError(KindConfigurationMissing,
				"falta la clave de IA para el modo sintético")
		}
		return &syntheticStrategy{
			acquirer: &syntheticAcquirer{synth: f.synth},
			synth:    f.synth,
		}, nil

	case config.ModeMock:
		return &mockStrategy{delay: f.MockDelay}, nil

	default:
		return nil, NewError(KindConfigurationMissing,
			fmt.Sprintf("modo de generación desconocido: %s", mode))
	}
}

func (f *StrategyFactory) hasAI() bool {
	return f.synth != nil && f.synth.completer != nil
}

// detectMode maps available credentials to the richest usable mode.
func (f *StrategyFactory) detectMode() string {
	switch {
	case f.search != nil && f.hasAI():
		return config.ModeReal
	case f.hasAI():
		return config.ModeSynthetic
	default:
		return config.ModeMock
	}
}
