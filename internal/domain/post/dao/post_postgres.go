package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/neo-content/internal/domain/post/entity"
)

const uniqueViolation = "23505"

const postColumns = `id, store_id, title, content, tags, meta_description, status,
	scheduled_at, published_at, external_id, topic, generation_job_id,
	uses_fallback_provider, forced, sync_error, created_at, updated_at`

// PostPostgres implements PostRepository for PostgreSQL
type PostPostgres struct {
	pool *pgxpool.Pool
}

// NewPostPostgres creates a new PostgreSQL post repository
func NewPostPostgres(pool *pgxpool.Pool) *PostPostgres {
	return &PostPostgres{pool: pool}
}

// Create inserts a new post
func (r *PostPostgres) Create(ctx context.Context, p *entity.Post) error {
	query := `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.StoreID,
		p.Title,
		p.Content,
		tags,
		p.MetaDescription,
		p.Status,
		p.ScheduledAt,
		p.PublishedAt,
		nullString(p.ExternalID),
		p.Topic,
		nullString(p.GenerationJobID),
		p.UsesFallbackProvider,
		p.Forced,
		nullString(p.SyncError),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return entity.ErrDuplicatePost
		}
		return fmt.Errorf("inserting post: %w", err)
	}

	return nil
}

// GetByID retrieves a post by ID
func (r *PostPostgres) GetByID(ctx context.Context, id string) (*entity.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	p, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning post: %w", err)
	}
	return p, nil
}

// FindRecent returns the store's posts created since the given instant
func (r *PostPostgres) FindRecent(ctx context.Context, storeID string, since time.Time) ([]entity.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE store_id = $1 AND created_at >= $2
		ORDER BY created_at ASC, id ASC
	`
	return r.query(ctx, query, storeID, since)
}

// FindByTitleOrExternalID finds a post that would duplicate the candidate
func (r *PostPostgres) FindByTitleOrExternalID(ctx context.Context, storeID, title, externalID string) (*entity.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE store_id = $1
		  AND (($3 <> '' AND external_id = $3) OR lower(btrim(title)) = $2)
		ORDER BY (external_id IS NOT DISTINCT FROM NULLIF($3, '')) DESC, created_at ASC
		LIMIT 1
	`

	p, err := scanPost(r.pool.QueryRow(ctx, query, storeID, entity.TitleKey(title), externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding duplicate post: %w", err)
	}
	return p, nil
}

// List retrieves posts with filtering
func (r *PostPostgres) List(ctx context.Context, filter PostFilter, opts ListOptions) ([]entity.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filter.StoreID != "" {
		query += fmt.Sprintf(" AND store_id = $%d", argNum)
		args = append(args, filter.StoreID)
		argNum++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filter.Status)
		argNum++
	}
	if filter.GenerationJobID != "" {
		query += fmt.Sprintf(" AND generation_job_id = $%d", argNum)
		args = append(args, filter.GenerationJobID)
		argNum++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, opts.Limit)
		argNum++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, opts.Offset)
	}

	return r.query(ctx, query, args...)
}

// ListUnsynced returns posts waiting to be pushed to the publishing platform
func (r *PostPostgres) ListUnsynced(ctx context.Context, storeID string, limit int) ([]entity.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE external_id IS NULL AND status <> 'draft'
		  AND ($1 = '' OR store_id = $1)
		ORDER BY created_at ASC
		LIMIT $2
	`
	return r.query(ctx, query, storeID, limit)
}

// SetExternalID marks a post as synced
func (r *PostPostgres) SetExternalID(ctx context.Context, id, externalID string) error {
	query := `
		UPDATE posts
		SET external_id = $2, sync_error = NULL, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, externalID, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return entity.ErrDuplicatePost
		}
		return fmt.Errorf("setting external id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrPostNotFound
	}
	return nil
}

// SetSyncError records a sync failure
func (r *PostPostgres) SetSyncError(ctx context.Context, id, message string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE posts SET sync_error = $2, updated_at = $3 WHERE id = $1`,
		id, nullString(message), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("setting sync error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrPostNotFound
	}
	return nil
}

func (r *PostPostgres) query(ctx context.Context, query string, args ...interface{}) ([]entity.Post, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	var posts []entity.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating posts: %w", err)
	}

	return posts, nil
}

func scanPost(row pgx.Row) (*entity.Post, error) {
	var p entity.Post
	var externalID, jobID, syncError *string

	err := row.Scan(
		&p.ID,
		&p.StoreID,
		&p.Title,
		&p.Content,
		&p.Tags,
		&p.MetaDescription,
		&p.Status,
		&p.ScheduledAt,
		&p.PublishedAt,
		&externalID,
		&p.Topic,
		&jobID,
		&p.UsesFallbackProvider,
		&p.Forced,
		&syncError,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if externalID != nil {
		p.ExternalID = *externalID
	}
	if jobID != nil {
		p.GenerationJobID = *jobID
	}
	if syncError != nil {
		p.SyncError = *syncError
	}

	return &p, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
