package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/neo-content/internal/domain/batch/entity"
)

const runColumns = `id, store_id, mode, status, root_topic, topics, job, claimed,
	error, deadline, created_at, updated_at`

// RunPostgres implements RunRepository for PostgreSQL. Topic entries, the job
// and claimed post IDs are stored as JSONB.
type RunPostgres struct {
	pool *pgxpool.Pool
}

// NewRunPostgres creates a new PostgreSQL run repository
func NewRunPostgres(pool *pgxpool.Pool) *RunPostgres {
	return &RunPostgres{pool: pool}
}

// Create inserts a new run
func (r *RunPostgres) Create(ctx context.Context, run *entity.Run) error {
	query := `
		INSERT INTO batch_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	args, err := runArgs(run)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID
func (r *RunPostgres) Get(ctx context.Context, id string) (*entity.Run, error) {
	query := `SELECT ` + runColumns + ` FROM batch_runs WHERE id = $1`

	run, err := scanRun(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return run, nil
}

// Update locks the row, applies fn and writes the run back in one transaction
func (r *RunPostgres) Update(ctx context.Context, id string, fn UpdateFunc) (*entity.Run, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + runColumns + ` FROM batch_runs WHERE id = $1 FOR UPDATE`
	run, err := scanRun(tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locking run: %w", err)
	}

	if err := fn(run); err != nil {
		return nil, err
	}

	update := `
		UPDATE batch_runs
		SET store_id = $2, mode = $3, status = $4, root_topic = $5, topics = $6, job = $7,
			claimed = $8, error = $9, deadline = $10, created_at = $11, updated_at = $12
		WHERE id = $1
	`
	args, err := runArgs(run)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, update, args...); err != nil {
		return nil, fmt.Errorf("updating run: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing run update: %w", err)
	}
	return run, nil
}

// ListActive returns runs that are not completed, oldest first
func (r *RunPostgres) ListActive(ctx context.Context, storeID string) ([]entity.Run, error) {
	query := `
		SELECT ` + runColumns + ` FROM batch_runs
		WHERE status <> $1 AND ($2 = '' OR store_id = $2)
		ORDER BY created_at ASC
	`
	return r.queryRuns(ctx, query, entity.RunStatusCompleted, storeID)
}

// List returns the most recent runs of a store, newest first
func (r *RunPostgres) List(ctx context.Context, storeID string, limit int) ([]entity.Run, error) {
	query := `
		SELECT ` + runColumns + ` FROM batch_runs
		WHERE ($1 = '' OR store_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.queryRuns(ctx, query, storeID, limit)
}

func (r *RunPostgres) queryRuns(ctx context.Context, query string, args ...any) ([]entity.Run, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []entity.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func runArgs(run *entity.Run) ([]any, error) {
	topics, err := json.Marshal(run.Entries)
	if err != nil {
		return nil, fmt.Errorf("encoding topics: %w", err)
	}
	job, err := json.Marshal(run.Job)
	if err != nil {
		return nil, fmt.Errorf("encoding job: %w", err)
	}
	claimed := run.Claimed
	if claimed == nil {
		claimed = []string{}
	}
	claimedJSON, err := json.Marshal(claimed)
	if err != nil {
		return nil, fmt.Errorf("encoding claimed posts: %w", err)
	}

	var runErr *string
	if run.Error != "" {
		runErr = &run.Error
	}

	return []any{
		run.ID,
		run.StoreID,
		run.Mode,
		run.Status,
		run.RootTopic,
		topics,
		job,
		claimedJSON,
		runErr,
		run.Deadline,
		run.CreatedAt,
		run.UpdatedAt,
	}, nil
}

func scanRun(row pgx.Row) (*entity.Run, error) {
	var (
		run                 entity.Run
		topics, job, claims []byte
		runErr              *string
	)

	err := row.Scan(
		&run.ID,
		&run.StoreID,
		&run.Mode,
		&run.Status,
		&run.RootTopic,
		&topics,
		&job,
		&claims,
		&runErr,
		&run.Deadline,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(topics, &run.Entries); err != nil {
		return nil, fmt.Errorf("decoding topics: %w", err)
	}
	if err := json.Unmarshal(job, &run.Job); err != nil {
		return nil, fmt.Errorf("decoding job: %w", err)
	}
	if err := json.Unmarshal(claims, &run.Claimed); err != nil {
		return nil, fmt.Errorf("decoding claimed posts: %w", err)
	}
	if runErr != nil {
		run.Error = *runErr
	}
	return &run, nil
}
