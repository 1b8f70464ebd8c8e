package dao

import (
	"context"
	"time"

	"github.com/vadim/neo-content/internal/domain/post/entity"
)

// PostFilter contains filters for listing posts
type PostFilter struct {
	StoreID         string
	Status          *entity.PostStatus
	GenerationJobID string
}

// ListOptions contains pagination options. Results are ordered newest first.
type ListOptions struct {
	Limit  int
	Offset int
}

// PostRepository defines the interface for post data access
type PostRepository interface {
	// Create inserts a new post. A uniqueness violation is reported as entity.ErrDuplicatePost.
	Create(ctx context.Context, post *entity.Post) error

	// GetByID retrieves a post by its ID, nil when it does not exist
	GetByID(ctx context.Context, id string) (*entity.Post, error)

	// FindRecent returns the store's posts created at or after since, oldest first
	FindRecent(ctx context.Context, storeID string, since time.Time) ([]entity.Post, error)

	// FindByTitleOrExternalID returns a post of the store whose external ID equals externalID
	// (when non-empty) or whose title matches title trimmed and case-insensitively. Nil when none.
	FindByTitleOrExternalID(ctx context.Context, storeID, title, externalID string) (*entity.Post, error)

	// List retrieves posts with optional filtering and pagination
	List(ctx context.Context, filter PostFilter, opts ListOptions) ([]entity.Post, error)

	// ListUnsynced returns the store's non-draft posts without an external ID, oldest first.
	// An empty storeID lists every store.
	ListUnsynced(ctx context.Context, storeID string, limit int) ([]entity.Post, error)

	// SetExternalID stores the publishing platform ID and clears the sync error
	SetExternalID(ctx context.Context, id, externalID string) error

	// SetSyncError records the last publishing platform failure
	SetSyncError(ctx context.Context, id, message string) error
}
