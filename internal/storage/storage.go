// Package storage persists generation requests and published posts.
// Two implementations: an in-memory store for development and tests,
// and a PostgreSQL store for production.
package storage

import (
	"context"
	"errors"

	"newsforge/internal/blog"
	"newsforge/internal/generation"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// RequestStore persists generation requests. Implementations return
// snapshots; mutating a returned request never changes stored state
// until Update is called.
type RequestStore interface {
	Create(ctx context.Context, req *generation.GenerationRequest) (*generation.GenerationRequest, error)
	Get(ctx context.Context, id int64) (*generation.GenerationRequest, error)
	Update(ctx context.Context, req *generation.GenerationRequest) error
	List(ctx context.Context, limit int) ([]*generation.GenerationRequest, error)
}

// PostStore persists published blog posts.
type PostStore interface {
	Create(ctx context.Context, post *blog.Post) (*blog.Post, error)
	GetBySlug(ctx context.Context, slug string) (*blog.Post, error)
}
