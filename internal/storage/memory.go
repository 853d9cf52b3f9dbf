package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"newsforge/internal/blog"
	"newsforge/internal/generation"
)

// MemoryStore keeps everything in maps behind a mutex. Suitable for
// development and tests; state is lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[int64]*generation.GenerationRequest
	posts    map[int64]*blog.Post
	slugs    map[string]int64
	nextReq  int64
	nextPost int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[int64]*generation.GenerationRequest),
		posts:    make(map[int64]*blog.Post),
		slugs:    make(map[string]int64),
		nextReq:  1,
		nextPost: 1,
	}
}

func (s *MemoryStore) Create(ctx context.Context, req *generation.GenerationRequest) (*generation.GenerationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := req.Clone()
	cp.ID = s.nextReq
	s.nextReq++
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.requests[cp.ID] = cp
	return cp.Clone(), nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*generation.GenerationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return req.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, req *generation.GenerationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[req.ID]; !ok {
		return ErrNotFound
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]*generation.GenerationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*generation.GenerationRequest, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreatePost deduplicates slugs by appending -2, -3, ... when the
// natural slug is taken.
func (s *MemoryStore) CreatePost(ctx context.Context, post *blog.Post) (*blog.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *post
	cp.ID = s.nextPost
	s.nextPost++
	cp.Slug = s.uniqueSlug(cp.Slug)

	s.posts[cp.ID] = &cp
	s.slugs[cp.Slug] = cp.ID

	out := cp
	return &out, nil
}

func (s *MemoryStore) GetPostBySlug(ctx context.Context, slug string) (*blog.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.slugs[slug]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.posts[id]
	return &cp, nil
}

func (s *MemoryStore) uniqueSlug(slug string) string {
	if slug == "" {
		slug = "post"
	}
	if _, taken := s.slugs[slug]; !taken {
		return slug
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", slug, n)
		if _, taken := s.slugs[candidate]; !taken {
			return candidate
		}
	}
}

// memoryPostStore adapts MemoryStore to the PostStore interface.
type memoryPostStore struct{ s *MemoryStore }

func (m memoryPostStore) Create(ctx context.Context, post *blog.Post) (*blog.Post, error) {
	return m.s.CreatePost(ctx, post)
}

func (m memoryPostStore) GetBySlug(ctx context.Context, slug string) (*blog.Post, error) {
	return m.s.GetPostBySlug(ctx, slug)
}

// Posts returns the PostStore view of the memory store.
func (s *MemoryStore) Posts() PostStore {
	return memoryPostStore{s}
}
