package service

import (
	"context"
	"fmt"

	"github.com/vadim/neo-content/internal/domain/post/dao"
	"github.com/vadim/neo-content/internal/domain/post/entity"
)

// DedupGuard prevents creating a second post with the same external ID or title in a store
type DedupGuard struct {
	posts dao.PostRepository
}

// NewDedupGuard creates a guard over the post repository
func NewDedupGuard(posts dao.PostRepository) *DedupGuard {
	return &DedupGuard{posts: posts}
}

// ShouldCreate reports whether candidate may be created in storeID
func (g *DedupGuard) ShouldCreate(ctx context.Context, candidate *entity.Post, storeID string) (bool, error) {
	existing, err := g.FindDuplicate(ctx, candidate, storeID, false)
	if err != nil {
		return false, err
	}
	return existing == nil, nil
}

// FindDuplicate returns the existing post candidate would duplicate, nil when there is none.
// With force set only the external ID is compared, so a repeated title is allowed.
func (g *DedupGuard) FindDuplicate(ctx context.Context, candidate *entity.Post, storeID string, force bool) (*entity.Post, error) {
	title := candidate.Title
	if force {
		if candidate.ExternalID == "" {
			return nil, nil
		}
		title = ""
	}

	existing, err := g.posts.FindByTitleOrExternalID(ctx, storeID, title, candidate.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("%w: checking duplicates: %w", entity.ErrPersistenceFailed, err)
	}
	if existing == nil {
		return nil, nil
	}
	if force && existing.ExternalID != candidate.ExternalID {
		return nil, nil
	}
	return existing, nil
}
