package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"newsforge/internal/blog"
	"newsforge/internal/generation"
	"newsforge/internal/logger"
)

// PostgresStore persists requests and posts in PostgreSQL. Source
// records and the generated article are stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects, pings and ensures the schema.
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %v", err)
	}

	logger.Info("postgres store connected")
	return store, nil
}

func (ps *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generation_requests (
		id BIGSERIAL PRIMARY KEY,
		tags TEXT NOT NULL,
		manual_urls TEXT NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
		source_records JSONB,
		total_sources_found INTEGER NOT NULL DEFAULT 0,
		article JSONB,
		error_message TEXT NOT NULL DEFAULT '',
		published_post_id BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_generation_requests_status ON generation_requests(status);
	CREATE INDEX IF NOT EXISTS idx_generation_requests_created_at ON generation_requests(created_at);

	CREATE TABLE IF NOT EXISTS posts (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(200) NOT NULL,
		slug VARCHAR(220) UNIQUE NOT NULL,
		excerpt VARCHAR(300) NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		meta_description VARCHAR(160) NOT NULL DEFAULT '',
		meta_keywords VARCHAR(255) NOT NULL DEFAULT '',
		category_id BIGINT NOT NULL DEFAULT 0,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		published_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug);
	CREATE INDEX IF NOT EXISTS idx_posts_published_at ON posts(published_at);
	`

	if _, err := ps.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %v", err)
	}
	return nil
}

func (ps *PostgresStore) Create(ctx context.Context, req *generation.GenerationRequest) (*generation.GenerationRequest, error) {
	sources, article, err := marshalRequestBlobs(req)
	if err != nil {
		return nil, err
	}

	cp := req.Clone()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO generation_requests
			(tags, manual_urls, status, source_records, total_sources_found, article, error_message, published_post_id, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err = ps.db.QueryRowContext(ctx, query,
		cp.Tags, cp.ManualURLs, string(cp.Status), sources, cp.TotalSourcesFound,
		article, cp.ErrorMessage, cp.PublishedPostID, cp.CreatedAt, cp.CompletedAt,
	).Scan(&cp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert generation request: %v", err)
	}

	return cp, nil
}

func (ps *PostgresStore) Get(ctx context.Context, id int64) (*generation.GenerationRequest, error) {
	query := `
		SELECT id, tags, manual_urls, status, source_records, total_sources_found, article, error_message, published_post_id, created_at, completed_at
		FROM generation_requests
		WHERE id = $1
	`

	var req generation.GenerationRequest
	var status string
	var sources, article []byte
	var completedAt sql.NullTime

	err := ps.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID, &req.Tags, &req.ManualURLs, &status, &sources, &req.TotalSourcesFound,
		&article, &req.ErrorMessage, &req.PublishedPostID, &req.CreatedAt, &completedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get generation request: %v", err)
	}

	req.Status = generation.Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		req.CompletedAt = &t
	}
	if err := unmarshalRequestBlobs(&req, sources, article); err != nil {
		return nil, err
	}

	return &req, nil
}

func (ps *PostgresStore) Update(ctx context.Context, req *generation.GenerationRequest) error {
	sources, article, err := marshalRequestBlobs(req)
	if err != nil {
		return err
	}

	query := `
		UPDATE generation_requests
		SET tags = $2, manual_urls = $3, status = $4, source_records = $5,
			total_sources_found = $6, article = $7, error_message = $8,
			published_post_id = $9, completed_at = $10
		WHERE id = $1
	`
	result, err := ps.db.ExecContext(ctx, query,
		req.ID, req.Tags, req.ManualURLs, string(req.Status), sources,
		req.TotalSourcesFound, article, req.ErrorMessage, req.PublishedPostID, req.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update generation request: %v", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (ps *PostgresStore) List(ctx context.Context, limit int) ([]*generation.GenerationRequest, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, tags, manual_urls, status, source_records, total_sources_found, article, error_message, published_post_id, created_at, completed_at
		FROM generation_requests
		ORDER BY id DESC
		LIMIT $1
	`
	rows, err := ps.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list generation requests: %v", err)
	}
	defer rows.Close()

	var out []*generation.GenerationRequest
	for rows.Next() {
		var req generation.GenerationRequest
		var status string
		var sources, article []byte
		var completedAt sql.NullTime

		err := rows.Scan(
			&req.ID, &req.Tags, &req.ManualURLs, &status, &sources, &req.TotalSourcesFound,
			&article, &req.ErrorMessage, &req.PublishedPostID, &req.CreatedAt, &completedAt,
		)
		if err != nil {
			logger.Warn("skipping unreadable request row", "error", err)
			continue
		}

		req.Status = generation.Status(status)
		if completedAt.Valid {
			t := completedAt.Time
			req.CompletedAt = &t
		}
		if err := unmarshalRequestBlobs(&req, sources, article); err != nil {
			logger.Warn("skipping request row with bad blobs", "id", req.ID, "error", err)
			continue
		}
		out = append(out, &req)
	}

	return out, rows.Err()
}

// CreatePost retries with numbered slug suffixes on unique violations.
func (ps *PostgresStore) CreatePost(ctx context.Context, post *blog.Post) (*blog.Post, error) {
	cp := *post
	baseSlug := cp.Slug
	if baseSlug == "" {
		baseSlug = "post"
		cp.Slug = baseSlug
	}

	query := `
		INSERT INTO posts
			(title, slug, excerpt, content, meta_description, meta_keywords, category_id, published, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (slug) DO NOTHING
		RETURNING id
	`

	for n := 1; n <= 50; n++ {
		if n > 1 {
			cp.Slug = fmt.Sprintf("%s-%d", baseSlug, n)
		}
		err := ps.db.QueryRowContext(ctx, query,
			cp.Title, cp.Slug, cp.Excerpt, cp.Content, cp.MetaDescription,
			cp.MetaKeywords, cp.CategoryID, cp.Published, cp.PublishedAt,
			cp.CreatedAt, cp.UpdatedAt,
		).Scan(&cp.ID)
		if err == nil {
			return &cp, nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to insert post: %v", err)
		}
	}

	return nil, fmt.Errorf("failed to find a free slug for %q", baseSlug)
}

func (ps *PostgresStore) GetPostBySlug(ctx context.Context, slug string) (*blog.Post, error) {
	query := `
		SELECT id, title, slug, excerpt, content, meta_description, meta_keywords, category_id, published, published_at, created_at, updated_at
		FROM posts
		WHERE slug = $1
	`

	var post blog.Post
	var publishedAt sql.NullTime
	err := ps.db.QueryRowContext(ctx, query, slug).Scan(
		&post.ID, &post.Title, &post.Slug, &post.Excerpt, &post.Content,
		&post.MetaDescription, &post.MetaKeywords, &post.CategoryID,
		&post.Published, &publishedAt, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post: %v", err)
	}

	if publishedAt.Valid {
		t := publishedAt.Time
		post.PublishedAt = &t
	}
	return &post, nil
}

// pgPostStore adapts PostgresStore to the PostStore interface.
type pgPostStore struct{ s *PostgresStore }

func (p pgPostStore) Create(ctx context.Context, post *blog.Post) (*blog.Post, error) {
	return p.s.CreatePost(ctx, post)
}

func (p pgPostStore) GetBySlug(ctx context.Context, slug string) (*blog.Post, error) {
	return p.s.GetPostBySlug(ctx, slug)
}

// Posts returns the PostStore view of the postgres store.
func (ps *PostgresStore) Posts() PostStore {
	return pgPostStore{ps}
}

func (ps *PostgresStore) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}

func marshalRequestBlobs(req *generation.GenerationRequest) ([]byte, []byte, error) {
	var sources, article []byte
	var err error

	if req.SourceRecords != nil {
		sources, err = json.Marshal(req.SourceRecords)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal source records: %v", err)
		}
	}
	if req.Article != nil {
		article, err = json.Marshal(req.Article)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal article: %v", err)
		}
	}
	return sources, article, nil
}

func unmarshalRequestBlobs(req *generation.GenerationRequest, sources, article []byte) error {
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &req.SourceRecords); err != nil {
			return fmt.Errorf("failed to unmarshal source records: %v", err)
		}
	}
	if len(article) > 0 {
		if err := json.Unmarshal(article, &req.Article); err != nil {
			return fmt.Errorf("failed to unmarshal article: %v", err)
		}
	}
	return nil
}
