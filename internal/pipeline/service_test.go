package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsforge/internal/ai"
	"newsforge/internal/config"
	"newsforge/internal/extract"
	"newsforge/internal/generation"
	"newsforge/internal/newsapi"
	"newsforge/internal/storage"
)

// recordingStore remembers every status persisted through Update, so
// tests can assert intermediate transitions were visible.
type recordingStore struct {
	storage.RequestStore
	mu       sync.Mutex
	statuses []generation.Status
}

func (r *recordingStore) Update(ctx context.Context, req *generation.GenerationRequest) error {
	r.mu.Lock()
	r.statuses = append(r.statuses, req.Status)
	r.mu.Unlock()
	return r.RequestStore.Update(ctx, req)
}

type staticCompleter struct{ response string }

func (s staticCompleter) Provider() string { return "static" }
func (s staticCompleter) Complete(ctx context.Context, req ai.Request) (string, error) {
	return s.response, nil
}

func mockService(t *testing.T) (*Service, *recordingStore, *storage.MemoryStore) {
	t.Helper()
	mem := storage.NewMemoryStore()
	rec := &recordingStore{RequestStore: mem}

	cfg := &config.Config{GenerationMode: config.ModeMock, SearchPageSize: 10}
	factory := generation.NewStrategyFactory(cfg, generation.NewSynthesizer(nil, nil, "", 0.7, 2000, 800),
		nil, extract.New(time.Second, 2000), nil)
	factory.MockDelay = 0

	return NewService(rec, mem.Posts(), factory, nil), rec, mem
}

func TestSubmitRequiresTags(t *testing.T) {
	svc, _, _ := mockService(t)

	_, err := svc.Submit(context.Background(), "  , ,", "")
	require.Error(t, err)
	assert.Equal(t, generation.KindValidation, generation.KindOf(err))
}

func TestSubmitCreatesPendingRequest(t *testing.T) {
	svc, _, _ := mockService(t)

	req, err := svc.Submit(context.Background(), "golang, testing", "")
	require.NoError(t, err)

	assert.NotZero(t, req.ID)
	assert.Equal(t, generation.StatusPending, req.Status)
	assert.False(t, req.CreatedAt.IsZero())
}

func TestProcessWalksTheStateMachine(t *testing.T) {
	svc, rec, _ := mockService(t)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, "golang", "")
	require.NoError(t, err)

	done, err := svc.Process(ctx, submitted.ID)
	require.NoError(t, err)

	assert.Equal(t, []generation.Status{
		generation.StatusSearching,
		generation.StatusGenerating,
		generation.StatusCompleted,
	}, rec.statuses)

	assert.Equal(t, generation.StatusCompleted, done.Status)
	assert.Len(t, done.SourceRecords, 1)
	assert.Equal(t, 1, done.TotalSourcesFound)
	assert.True(t, done.Article.Complete())
	require.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.ErrorMessage)

	stored, err := svc.Get(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, generation.StatusCompleted, stored.Status)
}

func TestProcessUnknownRequest(t *testing.T) {
	svc, _, _ := mockService(t)

	_, err := svc.Process(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, generation.KindNotFound, generation.KindOf(err))
}

func TestProcessRejectsConcurrentRun(t *testing.T) {
	svc, _, _ := mockService(t)
	require.NoError(t, svc.acquireRun(5))
	defer svc.releaseRun(5)

	_, err := svc.Process(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, generation.KindAlreadyRunning, generation.KindOf(err))
}

func TestProcessRetryResetsPreviousRun(t *testing.T) {
	svc, _, _ := mockService(t)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, "golang", "")
	require.NoError(t, err)

	first, err := svc.Process(ctx, submitted.ID)
	require.NoError(t, err)

	second, err := svc.Process(ctx, submitted.ID)
	require.NoError(t, err)

	assert.Equal(t, generation.StatusCompleted, second.Status)
	assert.Equal(t, 1, second.TotalSourcesFound, "sources from the first run must not pile up")
	assert.NotEqual(t, first.SourceRecords[0].Timestamp, "", "fresh records each run")
}

func TestProcessFailsWithZeroSources(t *testing.T) {
	// Real strategy against a search endpoint that finds nothing.
	emptySearch := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","articles":[]}`)
	}))
	defer emptySearch.Close()

	mem := storage.NewMemoryStore()
	rec := &recordingStore{RequestStore: mem}
	cfg := &config.Config{GenerationMode: config.ModeReal, SearchPageSize: 10}
	synth := generation.NewSynthesizer(staticCompleter{response: "x"}, nil, "m", 0.7, 2000, 800)
	search := newsapi.NewClient(emptySearch.URL, "key", newsapi.Options{})
	factory := generation.NewStrategyFactory(cfg, synth, search, extract.New(time.Second, 2000), nil)

	svc := NewService(rec, mem.Posts(), factory, nil)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, "tema inexistente", "")
	require.NoError(t, err)

	req, err := svc.Process(ctx, submitted.ID)
	require.Error(t, err)
	assert.Equal(t, generation.KindSearchError, generation.KindOf(err))

	require.NotNil(t, req)
	assert.Equal(t, generation.StatusError, req.Status)
	assert.Contains(t, req.ErrorMessage, "no se encontraron artículos")
	assert.NotNil(t, req.CompletedAt, "a failed run is still a finished run")

	// The transient states were still persisted before the failure.
	assert.Equal(t, []generation.Status{
		generation.StatusSearching,
		generation.StatusGenerating,
		generation.StatusError,
	}, rec.statuses)
}

func TestFailedRunSetsCompletedAtOnce(t *testing.T) {
	svc, _, _ := mockService(t)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, "golang", "https://not-a-valid-url.invalid./x")
	require.NoError(t, err)

	// Manual URLs without an AI completer fail strategy selection.
	req, err := svc.Process(ctx, submitted.ID)
	require.Error(t, err)

	require.NotNil(t, req)
	assert.Equal(t, generation.StatusError, req.Status)
	require.NotNil(t, req.CompletedAt)

	stored, err := svc.Get(ctx, submitted.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, *req.CompletedAt, *stored.CompletedAt)
}

func TestProcessRejectsPublishedRequest(t *testing.T) {
	svc, _, _ := mockService(t)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, "golang", "")
	require.NoError(t, err)
	_, err = svc.Process(ctx, submitted.ID)
	require.NoError(t, err)
	post, err := svc.Publish(ctx, submitted.ID)
	require.NoError(t, err)

	_, err = svc.Process(ctx, submitted.ID)
	require.Error(t, err)
	assert.Equal(t, generation.KindAlreadyPublished, generation.KindOf(err))

	// The published state and its post link are untouched.
	stored, err := svc.Get(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, generation.StatusPublished, stored.Status)
	assert.Equal(t, post.ID, stored.PublishedPostID)
}

func TestPublishRequiresCompletedRequest(t *testing.T) {
	svc, _, _ := mockService(t)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, "golang", "")
	require.NoError(t, err)

	_, err = svc.Publish(ctx, submitted.ID)
	require.Error(t, err)
	assert.Equal(t, generation.KindNotReady, generation.KindOf(err))
}

func TestPublishCreatesPostAndLinksBack(t *testing.T) {
	svc, _, mem := mockService(t)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, "golang", "")
	require.NoError(t, err)
	_, err = svc.Process(ctx, submitted.ID)
	require.NoError(t, err)

	post, err := svc.Publish(ctx, submitted.ID)
	require.NoError(t, err)

	assert.NotZero(t, post.ID)
	assert.NotEmpty(t, post.Slug)
	assert.True(t, post.Published)
	require.NotNil(t, post.PublishedAt)

	stored, err := mem.GetPostBySlug(ctx, post.Slug)
	require.NoError(t, err)
	assert.Equal(t, post.ID, stored.ID)

	req, err := svc.Get(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, generation.StatusPublished, req.Status)
	assert.Equal(t, post.ID, req.PublishedPostID)
}

func TestPreviewProjectsRequest(t *testing.T) {
	svc, _, _ := mockService(t)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, "golang, testing", "")
	require.NoError(t, err)
	_, err = svc.Process(ctx, submitted.ID)
	require.NoError(t, err)

	preview, err := svc.Preview(ctx, submitted.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"golang", "testing"}, preview.Tags)
	assert.Equal(t, generation.StatusCompleted, preview.Status)
	assert.NotEmpty(t, preview.Excerpt)
	assert.NotEmpty(t, preview.Content)
	require.Len(t, preview.Sources, 1)
	assert.Equal(t, "Contenido simulado", preview.Sources[0].Label)
}
