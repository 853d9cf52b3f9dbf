package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsforge/internal/blog"
	"newsforge/internal/generation"
)

func TestMemoryRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	created, err := store.Create(ctx, &generation.GenerationRequest{
		Tags:   "golang",
		Status: generation.StatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	created.Status = generation.StatusSearching
	require.NoError(t, store.Update(ctx, created))

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, generation.StatusSearching, got.Status)
}

func TestMemoryGetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	created, err := store.Create(ctx, &generation.GenerationRequest{
		Tags:          "golang",
		SourceRecords: []generation.SourceRecord{{Type: generation.SourceSearched, Title: "a"}},
	})
	require.NoError(t, err)

	// Mutating the returned copy must not leak into the store.
	created.SourceRecords[0].Title = "mutated"
	created.Tags = "mutated"

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.SourceRecords[0].Title)
	assert.Equal(t, "golang", got.Tags)
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Update(ctx, &generation.GenerationRequest{ID: 42})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 3; i++ {
		_, err := store.Create(ctx, &generation.GenerationRequest{Tags: "t"})
		require.NoError(t, err)
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].ID)

	limited, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestMemorySlugDeduplication(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	posts := store.Posts()
	for i, want := range []string{"mi-articulo", "mi-articulo-2", "mi-articulo-3"} {
		post, err := posts.Create(ctx, &blog.Post{
			Title: "Mi artículo", Slug: "mi-articulo", Content: "c",
			CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err, "post %d", i)
		assert.Equal(t, want, post.Slug)
	}

	got, err := posts.GetBySlug(ctx, "mi-articulo-2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)

	_, err = posts.GetBySlug(ctx, "inexistente")
	assert.ErrorIs(t, err, ErrNotFound)
}
