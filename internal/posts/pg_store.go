package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore persiste posts programados en Postgres. El contenido va como JSONB.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const postColumns = `id, tenant_id, org_id, platform, content, scheduled_at, status,
	attempts, failure_reason, published_at, provider_post_id, created_at, updated_at`

func (s *PgStore) Create(ctx context.Context, p Post) (Post, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	content, err := json.Marshal(p.Content)
	if err != nil {
		return Post{}, fmt.Errorf("posts: marshal content: %w", err)
	}

	if p.Status == "" {
		p.Status = StatusScheduled
	}

	const q = `
		INSERT INTO scheduled_posts (id, tenant_id, org_id, platform, content, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + postColumns

	return s.scan(s.pool.QueryRow(ctx, q, p.ID, p.TenantID, p.OrgID, p.Platform, content, p.ScheduledAt, p.Status))
}

func (s *PgStore) Get(ctx context.Context, id string) (Post, error) {
	const q = `SELECT ` + postColumns + ` FROM scheduled_posts WHERE id = $1`

	p, err := s.scan(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	return p, err
}

func (s *PgStore) Due(ctx context.Context, now time.Time, limit int) ([]Post, error) {
	const q = `
		SELECT ` + postColumns + `
		FROM scheduled_posts
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, q, now, limit)
	if err != nil {
		return nil, fmt.Errorf("posts: query due: %w", err)
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		p, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PgStore) MarkPublished(ctx context.Context, id, providerPostID string, at time.Time) error {
	const q = `
		UPDATE scheduled_posts
		SET status = 'published', published_at = $2, provider_post_id = $3, updated_at = now()
		WHERE id = $1 AND status IN ('scheduled', 'publishing')`

	return s.conditional(ctx, q, id, at, providerPostID)
}

func (s *PgStore) MarkFailed(ctx context.Context, id, reason string) error {
	const q = `
		UPDATE scheduled_posts
		SET status = 'failed', failure_reason = $2, updated_at = now()
		WHERE id = $1 AND status IN ('scheduled', 'publishing')`

	return s.conditional(ctx, q, id, reason)
}

func (s *PgStore) RecordAttempt(ctx context.Context, id, reason string) error {
	const q = `
		UPDATE scheduled_posts
		SET attempts = attempts + 1, failure_reason = $2, updated_at = now()
		WHERE id = $1 AND status = 'scheduled'`

	return s.conditional(ctx, q, id, reason)
}

func (s *PgStore) conditional(ctx context.Context, q string, args ...any) error {
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("posts: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotClaimable
	}
	return nil
}

func (s *PgStore) scan(row pgx.Row) (Post, error) {
	var p Post
	var content []byte
	var publishedAt *time.Time
	err := row.Scan(
		&p.ID, &p.TenantID, &p.OrgID, &p.Platform, &content, &p.ScheduledAt,
		&p.Status, &p.Attempts, &p.FailureReason, &publishedAt,
		&p.ProviderPostID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Post{}, err
	}
	if publishedAt != nil {
		p.PublishedAt = *publishedAt
	}
	if err := json.Unmarshal(content, &p.Content); err != nil {
		return Post{}, fmt.Errorf("posts: unmarshal content: %w", err)
	}
	return p, nil
}
