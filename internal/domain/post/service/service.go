package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/neo-content/internal/domain/post/dao"
	"github.com/vadim/neo-content/internal/domain/post/entity"
	"github.com/vadim/neo-content/internal/timezone"
)

// ScheduleResolver turns a local date and time into an instant in the store's timezone
type ScheduleResolver interface {
	ResolveForStore(ctx context.Context, storeID, localDate, localTime string) (timezone.Resolution, error)
}

// Service handles business logic for posts
type Service struct {
	posts    dao.PostRepository
	guard    *DedupGuard
	schedule ScheduleResolver
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a new post service
func New(posts dao.PostRepository, schedule ScheduleResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		posts:    posts,
		guard:    NewDedupGuard(posts),
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the clock, used by tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Guard returns the dedup guard the service applies
func (s *Service) Guard() *DedupGuard {
	return s.guard
}

// CreateInput represents input for creating a post
type CreateInput struct {
	StoreID         string
	Title           string
	Content         string
	Tags            []string
	MetaDescription string
	Type            entity.PublicationType
	ExternalID      string

	// Local schedule in the store timezone; empty values default to tomorrow 09:30
	ScheduleDate string
	ScheduleTime string

	// ForceCreate allows a title that already exists in the store
	ForceCreate bool

	Topic                string
	GenerationJobID      string
	UsesFallbackProvider bool
}

// CreateOutput is the outcome of a create call. Duplicate posts are not errors.
type CreateOutput struct {
	Post            *entity.Post
	Duplicate       bool
	DuplicateOf     string
	ScheduleWarning string
}

// CreatePost validates, deduplicates and persists a new post
func (s *Service) CreatePost(ctx context.Context, in CreateInput) (*CreateOutput, error) {
	if in.Type == "" {
		in.Type = entity.PublicationTypeDraft
	}
	if !in.Type.Valid() {
		return nil, entity.ErrInvalidPublicationType
	}

	now := s.now().UTC()
	post := &entity.Post{
		ID:                   uuid.New().String(),
		StoreID:              strings.TrimSpace(in.StoreID),
		Title:                strings.TrimSpace(in.Title),
		Content:              in.Content,
		Tags:                 in.Tags,
		MetaDescription:      in.MetaDescription,
		Status:               in.Type.Status(),
		ExternalID:           in.ExternalID,
		Topic:                in.Topic,
		GenerationJobID:      in.GenerationJobID,
		UsesFallbackProvider: in.UsesFallbackProvider,
		Forced:               in.ForceCreate,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	out := &CreateOutput{}

	switch post.Status {
	case entity.PostStatusScheduled:
		res, err := s.schedule.ResolveForStore(ctx, post.StoreID, in.ScheduleDate, in.ScheduleTime)
		if err != nil {
			return nil, fmt.Errorf("resolving schedule: %w", err)
		}
		instant := res.Instant
		post.ScheduledAt = &instant
		out.ScheduleWarning = res.Warning
	case entity.PostStatusPublished:
		post.PublishedAt = &now
	}

	if err := post.Validate(); err != nil {
		return nil, err
	}

	// Drafts are never published, so they are not guarded.
	if post.Status != entity.PostStatusDraft {
		existing, err := s.guard.FindDuplicate(ctx, post, post.StoreID, in.ForceCreate)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.Info("duplicate post skipped",
				"store_id", post.StoreID,
				"title", post.Title,
				"existing_id", existing.ID,
			)
			out.Duplicate = true
			out.DuplicateOf = existing.ID
			return out, nil
		}
	}

	if err := s.posts.Create(ctx, post); err != nil {
		if errors.Is(err, entity.ErrDuplicatePost) {
			out.Duplicate = true
			return out, nil
		}
		return nil, fmt.Errorf("%w: %w", entity.ErrPersistenceFailed, err)
	}

	out.Post = post
	return out, nil
}

// GetPost retrieves a post by ID
func (s *Service) GetPost(ctx context.Context, id string) (*entity.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, entity.ErrPostNotFound
	}
	return post, nil
}

// ListInput represents input for listing posts
type ListInput struct {
	StoreID         string
	Status          *entity.PostStatus
	GenerationJobID string
	Limit           int
	Offset          int
}

// ListPosts retrieves posts newest first
func (s *Service) ListPosts(ctx context.Context, in ListInput) ([]entity.Post, error) {
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}
	return s.posts.List(ctx,
		dao.PostFilter{StoreID: in.StoreID, Status: in.Status, GenerationJobID: in.GenerationJobID},
		dao.ListOptions{Limit: in.Limit, Offset: in.Offset},
	)
}

// FindRecent returns the store's posts created since the given instant, oldest first
func (s *Service) FindRecent(ctx context.Context, storeID string, since time.Time) ([]entity.Post, error) {
	return s.posts.FindRecent(ctx, storeID, since)
}

// ListUnsynced returns the store's posts waiting for the publishing platform
func (s *Service) ListUnsynced(ctx context.Context, storeID string, limit int) ([]entity.Post, error) {
	return s.posts.ListUnsynced(ctx, storeID, limit)
}

// MarkSynced stores the publishing platform ID of a post
func (s *Service) MarkSynced(ctx context.Context, id, externalID string) error {
	return s.posts.SetExternalID(ctx, id, externalID)
}

// MarkSyncFailed records a publishing platform failure on a post
func (s *Service) MarkSyncFailed(ctx context.Context, id string, cause error) error {
	return s.posts.SetSyncError(ctx, id, cause.Error())
}
