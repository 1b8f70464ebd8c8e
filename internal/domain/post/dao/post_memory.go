package dao

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vadim/neo-content/internal/domain/post/entity"
)

// PostMemory implements PostRepository in process memory. It is used when no
// database is configured and in tests.
type PostMemory struct {
	mu    sync.RWMutex
	posts map[string]entity.Post
	order []string
	now   func() time.Time
}

// NewPostMemory creates an empty in-memory post repository
func NewPostMemory() *PostMemory {
	return &PostMemory{
		posts: make(map[string]entity.Post),
		now:   time.Now,
	}
}

// Create inserts a new post
func (r *PostMemory) Create(_ context.Context, p *entity.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[p.ID]; ok {
		return entity.ErrDuplicatePost
	}
	if p.ExternalID != "" && r.externalIDTaken(p.StoreID, p.ExternalID, "") {
		return entity.ErrDuplicatePost
	}
	if p.TitleGuarded() && r.titleTaken(p.StoreID, entity.TitleKey(p.Title)) {
		return entity.ErrDuplicatePost
	}

	r.posts[p.ID] = clonePost(*p)
	r.order = append(r.order, p.ID)
	return nil
}

// GetByID retrieves a post by ID
func (r *PostMemory) GetByID(_ context.Context, id string) (*entity.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	out := clonePost(p)
	return &out, nil
}

// FindRecent returns the store's posts created since the given instant
func (r *PostMemory) FindRecent(_ context.Context, storeID string, since time.Time) ([]entity.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Post
	for _, id := range r.order {
		p := r.posts[id]
		if p.StoreID == storeID && !p.CreatedAt.Before(since) {
			out = append(out, clonePost(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// FindByTitleOrExternalID finds a post that would duplicate the candidate
func (r *PostMemory) FindByTitleOrExternalID(_ context.Context, storeID, title, externalID string) (*entity.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := entity.TitleKey(title)
	var byTitle *entity.Post
	for _, id := range r.order {
		p := r.posts[id]
		if p.StoreID != storeID {
			continue
		}
		if externalID != "" && p.ExternalID == externalID {
			out := clonePost(p)
			return &out, nil
		}
		if byTitle == nil && key != "" && entity.TitleKey(p.Title) == key {
			out := clonePost(p)
			byTitle = &out
		}
	}
	return byTitle, nil
}

// List retrieves posts with filtering, newest first
func (r *PostMemory) List(_ context.Context, filter PostFilter, opts ListOptions) ([]entity.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Post
	for i := len(r.order) - 1; i >= 0; i-- {
		p := r.posts[r.order[i]]
		if filter.StoreID != "" && p.StoreID != filter.StoreID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.GenerationJobID != "" && p.GenerationJobID != filter.GenerationJobID {
			continue
		}
		out = append(out, clonePost(p))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// ListUnsynced returns posts waiting to be pushed to the publishing platform
func (r *PostMemory) ListUnsynced(_ context.Context, storeID string, limit int) ([]entity.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Post
	for _, id := range r.order {
		p := r.posts[id]
		if !p.NeedsSync() || (storeID != "" && p.StoreID != storeID) {
			continue
		}
		out = append(out, clonePost(p))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// SetExternalID marks a post as synced
func (r *PostMemory) SetExternalID(_ context.Context, id, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok {
		return entity.ErrPostNotFound
	}
	if r.externalIDTaken(p.StoreID, externalID, id) {
		return entity.ErrDuplicatePost
	}
	p.ExternalID = externalID
	p.SyncError = ""
	p.UpdatedAt = r.now()
	r.posts[id] = p
	return nil
}

// SetSyncError records a sync failure
func (r *PostMemory) SetSyncError(_ context.Context, id, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok {
		return entity.ErrPostNotFound
	}
	p.SyncError = message
	p.UpdatedAt = r.now()
	r.posts[id] = p
	return nil
}

func (r *PostMemory) externalIDTaken(storeID, externalID, exceptID string) bool {
	for id, p := range r.posts {
		if id != exceptID && p.StoreID == storeID && p.ExternalID == externalID {
			return true
		}
	}
	return false
}

// titleTaken mirrors the partial unique index on guarded titles
func (r *PostMemory) titleTaken(storeID, key string) bool {
	for _, p := range r.posts {
		if p.StoreID == storeID && p.TitleGuarded() && entity.TitleKey(p.Title) == key {
			return true
		}
	}
	return false
}

func clonePost(p entity.Post) entity.Post {
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	if p.ScheduledAt != nil {
		t := *p.ScheduledAt
		p.ScheduledAt = &t
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		p.PublishedAt = &t
	}
	return p
}
