package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsforge/internal/config"
	"newsforge/internal/extract"
	"newsforge/internal/newsapi"
)

func testConfig(mode string) *config.Config {
	return &config.Config{
		GenerationMode: mode,
		SearchPageSize: 10,
	}
}

func newTestFactory(cfg *config.Config, synth *Synthesizer, search *newsapi.Client) *StrategyFactory {
	f := NewStrategyFactory(cfg, synth, search, extract.New(time.Second, 2000), nil)
	f.MockDelay = 0
	return f
}

func TestFactoryManualURLsWin(t *testing.T) {
	synth := newTestSynthesizer(&fakeCompleter{responses: []string{"ok"}})
	f := newTestFactory(testConfig(config.ModeSynthetic), synth, nil)

	s, err := f.ForRequest(&GenerationRequest{Tags: "a", ManualURLs: "https://example.com/x"})
	require.NoError(t, err)
	assert.Equal(t, "manual", s.Name())
}

func TestFactoryManualNeedsAI(t *testing.T) {
	f := newTestFactory(testConfig(config.ModeAuto), newTestSynthesizer(nil), nil)

	_, err := f.ForRequest(&GenerationRequest{Tags: "a", ManualURLs: "https://example.com/x"})
	require.Error(t, err)
	assert.Equal(t, KindConfigurationMissing, KindOf(err))
}

func TestFactoryAutoDetection(t *testing.T) {
	synth := newTestSynthesizer(&fakeCompleter{responses: []string{"ok"}})
	search := newsapi.NewClient("http://localhost", "key", newsapi.Options{})

	cases := []struct {
		name   string
		synth  *Synthesizer
		search *newsapi.Client
		want   string
	}{
		{"search and ai", synth, search, "real"},
		{"ai only", synth, nil, "synthetic"},
		{"nothing", newTestSynthesizer(nil), nil, "mock"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTestFactory(testConfig(config.ModeAuto), tc.synth, tc.search)
			s, err := f.ForRequest(&GenerationRequest{Tags: "a"})
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.Name())
		})
	}
}

func TestFactoryForcedModeNeedsCredentials(t *testing.T) {
	f := newTestFactory(testConfig(config.ModeReal), newTestSynthesizer(nil), nil)
	_, err := f.ForRequest(&GenerationRequest{Tags: "a"})
	assert.Equal(t, KindConfigurationMissing, KindOf(err))

	f = newTestFactory(testConfig(config.ModeSynthetic), newTestSynthesizer(nil), nil)
	_, err = f.ForRequest(&GenerationRequest{Tags: "a"})
	assert.Equal(t, KindConfigurationMissing, KindOf(err))
}

func TestMockStrategyProducesCompleteArticle(t *testing.T) {
	s := &mockStrategy{delay: 0}
	req := &GenerationRequest{Tags: "golang, concurrencia"}

	sources, err := s.Acquire(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, SourceSimulated, sources[0].Type)
	assert.Equal(t, "mock-generator-v1", sources[0].Model)
	assert.NotEmpty(t, sources[0].Timestamp)

	article, report, err := s.Synthesize(context.Background(), req.TagsList(), sources)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, article.Complete())
	assert.LessOrEqual(t, len([]rune(article.Title)), 65)
	assert.LessOrEqual(t, len([]rune(article.MetaDescription)), 160)
	assert.Contains(t, article.Content, "golang, concurrencia")
}

func TestMockStrategyHonorsContextDuringDelay(t *testing.T) {
	s := &mockStrategy{delay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Acquire(ctx, &GenerationRequest{Tags: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
