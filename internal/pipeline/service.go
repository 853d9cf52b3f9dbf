// Package pipeline drives generation requests through their lifecycle:
// submit, process (acquire sources, synthesize an article) and publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"newsforge/internal/blog"
	"newsforge/internal/generation"
	"newsforge/internal/logger"
	"newsforge/internal/metrics"
	"newsforge/internal/storage"
)

// Notifier pushes a short status message to an external channel.
// Notification failures are logged, never propagated.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Service is the request orchestrator.
type Service struct {
	requests storage.RequestStore
	posts    storage.PostStore
	factory  *generation.StrategyFactory
	notifier Notifier
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[int64]bool
}

func NewService(requests storage.RequestStore, posts storage.PostStore, factory *generation.StrategyFactory, notifier Notifier) *Service {
	return &Service{
		requests: requests,
		posts:    posts,
		factory:  factory,
		notifier: notifier,
		now:      time.Now,
		inFlight: make(map[int64]bool),
	}
}

// Submit validates and persists a new request in PENDING state.
func (s *Service) Submit(ctx context.Context, tags, manualURLs string) (*generation.GenerationRequest, error) {
	req := &generation.GenerationRequest{
		Tags:       tags,
		ManualURLs: manualURLs,
		Status:     generation.StatusPending,
		CreatedAt:  s.now(),
	}
	if len(req.TagsList()) == 0 {
		return nil, generation.NewError(generation.KindValidation,
			"se requiere al menos un tag")
	}

	created, err := s.requests.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to persist request: %w", err)
	}

	logger.Info("generation request submitted", "id", created.ID, "tags", created.Tags)
	return created, nil
}

// Get returns the stored request.
func (s *Service) Get(ctx context.Context, id int64) (*generation.GenerationRequest, error) {
	req, err := s.requests.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, generation.NewError(generation.KindNotFound,
				fmt.Sprintf("solicitud %d no encontrada", id))
		}
		return nil, err
	}
	return req, nil
}

// List returns the most recent requests.
func (s *Service) List(ctx context.Context, limit int) ([]*generation.GenerationRequest, error) {
	return s.requests.List(ctx, limit)
}

// Process runs the full pipeline for one request. Every state
// transition is persisted before the next phase starts, so an observer
// polling the store sees SEARCHING and GENERATING while work happens.
// A request already being processed is rejected; a finished or failed
// request may be processed again from scratch.
func (s *Service) Process(ctx context.Context, id int64) (*generation.GenerationRequest, error) {
	if err := s.acquireRun(id); err != nil {
		return nil, err
	}
	defer s.releaseRun(id)

	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// PUBLISHED is terminal. Re-running would regress the state machine
	// and orphan the post the request already links to.
	if req.Status == generation.StatusPublished {
		return nil, generation.NewError(generation.KindAlreadyPublished,
			fmt.Sprintf("la solicitud %d ya fue publicada", id))
	}

	strategy, err := s.factory.ForRequest(req)
	if err != nil {
		return s.fail(ctx, req, err)
	}

	started := s.now()
	metrics.Global.IncGenerationsStarted()
	logger.Info("processing generation request",
		"id", req.ID, "strategy", strategy.Name(), "tags", req.Tags)

	// Reset leftovers from a previous run before going back to work.
	req.Status = generation.StatusSearching
	req.SourceRecords = nil
	req.TotalSourcesFound = 0
	req.Article = nil
	req.ErrorMessage = ""
	req.CompletedAt = nil
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to persist SEARCHING state: %w", err)
	}

	sources, err := strategy.Acquire(ctx, req)
	if err != nil {
		return s.fail(ctx, req, err)
	}

	req.SourceRecords = sources
	req.TotalSourcesFound = len(sources)
	req.Status = generation.StatusGenerating
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to persist GENERATING state: %w", err)
	}

	if len(sources) == 0 {
		return s.fail(ctx, req, generation.NewError(generation.KindSearchError,
			"no se encontraron artículos para los tags especificados"))
	}

	article, report, err := strategy.Synthesize(ctx, req.TagsList(), sources)
	if err != nil {
		return s.fail(ctx, req, generation.WrapError(generation.KindSynthesisFailed,
			"la síntesis del artículo falló", err))
	}
	if !article.Complete() {
		return s.fail(ctx, req, generation.NewError(generation.KindSynthesisFailed,
			"el artículo generado está incompleto"))
	}
	if report != nil && (report.TitleFallback || report.ContentFallback || report.PayloadFallback) {
		logger.Warn("generation finished on fallback content", "id", req.ID)
	}

	completed := s.now()
	req.Article = article
	req.Status = generation.StatusCompleted
	req.CompletedAt = &completed
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to persist COMPLETED state: %w", err)
	}

	metrics.Global.IncGenerationsCompleted()
	metrics.Global.RecordProcessingTime(completed.Sub(started))
	logger.Info("generation request completed",
		"id", req.ID, "sources", req.TotalSourcesFound,
		"duration", completed.Sub(started).String())

	s.notify(ctx, fmt.Sprintf("✅ Artículo generado: %s (solicitud %d, %d fuentes)",
		article.Title, req.ID, req.TotalSourcesFound))

	return req, nil
}

// Publish turns a completed request into a published blog post.
func (s *Service) Publish(ctx context.Context, id int64) (*blog.Post, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != generation.StatusCompleted {
		return nil, generation.NewError(generation.KindNotReady,
			fmt.Sprintf("la solicitud %d no está lista para publicar (estado %s)", id, req.Status))
	}
	if !req.Article.Complete() {
		return nil, generation.NewError(generation.KindNotReady,
			fmt.Sprintf("la solicitud %d no tiene un artículo completo", id))
	}

	post, err := s.posts.Create(ctx, blog.NewPostFromArticle(req.Article, s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to persist post: %w", err)
	}

	req.Status = generation.StatusPublished
	req.PublishedPostID = post.ID
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to persist PUBLISHED state: %w", err)
	}

	metrics.Global.IncPostsPublished()
	logger.Info("generation request published",
		"id", req.ID, "post_id", post.ID, "slug", post.Slug)

	s.notify(ctx, fmt.Sprintf("📰 Publicado: %s (/%s)", post.Title, post.Slug))

	return post, nil
}

// Preview projects a request into its editor-facing view.
func (s *Service) Preview(ctx context.Context, id int64) (*generation.Preview, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &generation.Preview{
		ID:                req.ID,
		Tags:              req.TagsList(),
		Status:            req.Status,
		TotalSourcesFound: req.TotalSourcesFound,
		ErrorMessage:      req.ErrorMessage,
	}
	if req.Article != nil {
		p.Excerpt = req.Article.Excerpt
		p.Content = req.Article.Content
	}
	for _, src := range req.SourceRecords {
		p.Sources = append(p.Sources, generation.SourcePreview{
			Label:       src.DisplayLabel(),
			Title:       src.Title,
			Description: src.Description,
			URL:         src.URL,
		})
	}
	return p, nil
}

func (s *Service) acquireRun(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return generation.NewError(generation.KindAlreadyRunning,
			fmt.Sprintf("la solicitud %d ya se está procesando", id))
	}
	s.inFlight[id] = true
	return nil
}

func (s *Service) releaseRun(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

// fail persists the ERROR state and returns the classified error. A
// failure to persist wins over the pipeline error, since it means the
// store itself is broken. CompletedAt marks the end of the run whether
// it finished in COMPLETED or ERROR.
func (s *Service) fail(ctx context.Context, req *generation.GenerationRequest, cause error) (*generation.GenerationRequest, error) {
	failed := s.now()
	req.Status = generation.StatusError
	req.ErrorMessage = cause.Error()
	req.CompletedAt = &failed
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to persist ERROR state: %w", err)
	}

	metrics.Global.IncGenerationsFailed(cause.Error())
	logger.Error("generation request failed", "id", req.ID, "error", cause)

	s.notify(ctx, fmt.Sprintf("⚠️ Generación %d falló: %v", req.ID, cause))
	return req, cause
}

func (s *Service) notify(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		logger.Warn("notification failed", "error", err)
	}
}
