package dao

import (
	"context"

	"github.com/vadim/neo-content/internal/domain/batch/entity"
)

// UpdateFunc mutates a run inside a read-modify-write cycle.
// Returning an error aborts the update without writing.
type UpdateFunc func(run *entity.Run) error

// RunRepository defines the interface for batch run data access
type RunRepository interface {
	Create(ctx context.Context, run *entity.Run) error
	// Get returns nil, nil when the run does not exist
	Get(ctx context.Context, id string) (*entity.Run, error)
	// Update applies fn atomically and returns the stored result
	Update(ctx context.Context, id string, fn UpdateFunc) (*entity.Run, error)
	// ListActive returns runs that are not completed, oldest first. Empty storeID lists all stores.
	ListActive(ctx context.Context, storeID string) ([]entity.Run, error)
	// List returns the most recent runs of a store, newest first
	List(ctx context.Context, storeID string, limit int) ([]entity.Run, error)
}
