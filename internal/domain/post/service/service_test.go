package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/neo-content/internal/domain/post/dao"
	"github.com/vadim/neo-content/internal/domain/post/entity"
	"github.com/vadim/neo-content/internal/timezone"
)

var testNow = time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC)

type zoneFetcher map[string]string

func (z zoneFetcher) StoreTimezone(_ context.Context, storeID string) (string, error) {
	zone, ok := z[storeID]
	if !ok {
		return "", errors.New("unknown store")
	}
	return zone, nil
}

type failingRepo struct {
	*dao.PostMemory
}

func (f failingRepo) Create(context.Context, *entity.Post) error {
	return errors.New("connection refused")
}

func newTestService(repo dao.PostRepository) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	zones := timezone.NewZoneSource(zoneFetcher{"ny-shop": "America/New_York"}, time.Hour, logger).
		WithClock(func() time.Time { return testNow })
	return New(repo, zones, logger).WithClock(func() time.Time { return testNow })
}

func TestDedupGuard_ShouldCreate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(dao.NewPostMemory())

	first, err := svc.CreatePost(ctx, CreateInput{StoreID: "shop-1", Title: "Winter Boots", Content: "a", Type: entity.PublicationTypePublish})
	require.NoError(t, err)
	require.NotNil(t, first.Post)

	ok, err := svc.Guard().ShouldCreate(ctx, &entity.Post{Title: "  winter boots "}, "shop-1")
	require.NoError(t, err)
	assert.False(t, ok, "same title in the same store is a duplicate")

	ok, err = svc.Guard().ShouldCreate(ctx, &entity.Post{Title: "Winter Boots"}, "shop-2")
	require.NoError(t, err)
	assert.True(t, ok, "same title in another store is allowed")
}

func TestCreatePost_DuplicateIsSkippedNotFailed(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(dao.NewPostMemory())

	in := CreateInput{StoreID: "shop-1", Title: "Winter Boots", Content: "a", Type: entity.PublicationTypeSchedule}

	first, err := svc.CreatePost(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, first.Post)

	second, err := svc.CreatePost(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Nil(t, second.Post)
	assert.Equal(t, first.Post.ID, second.DuplicateOf)

	in.StoreID = "shop-2"
	third, err := svc.CreatePost(ctx, in)
	require.NoError(t, err)
	assert.False(t, third.Duplicate)
	require.NotNil(t, third.Post)
}

func TestCreatePost_ForceCreate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(dao.NewPostMemory())

	in := CreateInput{StoreID: "shop-1", Title: "Holiday Gift Guide", Content: "a", Type: entity.PublicationTypePublish, ExternalID: "gid-1"}
	_, err := svc.CreatePost(ctx, in)
	require.NoError(t, err)

	rerun := in
	rerun.ExternalID = ""
	rerun.ForceCreate = true
	out, err := svc.CreatePost(ctx, rerun)
	require.NoError(t, err)
	assert.False(t, out.Duplicate, "force create bypasses the title rule")
	require.NotNil(t, out.Post)
	assert.True(t, out.Post.Forced)

	sameExternal := in
	sameExternal.Title = "Different title"
	sameExternal.ForceCreate = true
	out, err = svc.CreatePost(ctx, sameExternal)
	require.NoError(t, err)
	assert.True(t, out.Duplicate, "force create never bypasses the external id rule")
}

func TestCreatePost_DraftsAreNotGuarded(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(dao.NewPostMemory())

	for i := 0; i < 2; i++ {
		out, err := svc.CreatePost(ctx, CreateInput{StoreID: "shop-1", Title: "Notes", Content: "a"})
		require.NoError(t, err)
		require.NotNil(t, out.Post)
		assert.Equal(t, entity.PostStatusDraft, out.Post.Status)
		assert.Nil(t, out.Post.ScheduledAt)
		assert.Nil(t, out.Post.PublishedAt)
	}
}

func TestCreatePost_Schedule(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(dao.NewPostMemory())

	t.Run("store timezone", func(t *testing.T) {
		out, err := svc.CreatePost(ctx, CreateInput{
			StoreID: "ny-shop", Title: "Spring Sale", Content: "a",
			Type: entity.PublicationTypeSchedule, ScheduleDate: "2024-07-04", ScheduleTime: "09:30",
		})
		require.NoError(t, err)
		require.NotNil(t, out.Post.ScheduledAt)
		assert.Equal(t, time.Date(2024, 7, 4, 13, 30, 0, 0, time.UTC), *out.Post.ScheduledAt)
		assert.Nil(t, out.Post.PublishedAt)
		assert.Empty(t, out.ScheduleWarning)
	})

	t.Run("defaults to tomorrow with UTC fallback warning", func(t *testing.T) {
		out, err := svc.CreatePost(ctx, CreateInput{
			StoreID: "unknown-shop", Title: "Autumn Sale", Content: "a", Type: entity.PublicationTypeSchedule,
		})
		require.NoError(t, err)
		require.NotNil(t, out.Post.ScheduledAt)
		assert.Equal(t, time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC), *out.Post.ScheduledAt)
		assert.NotEmpty(t, out.ScheduleWarning)
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := svc.CreatePost(ctx, CreateInput{
			StoreID: "ny-shop", Title: "Bad", Content: "a",
			Type: entity.PublicationTypeSchedule, ScheduleDate: "tomorrow",
		})
		assert.ErrorIs(t, err, timezone.ErrInvalidDate)
	})
}

func TestCreatePost_Validation(t *testing.T) {
	svc := newTestService(dao.NewPostMemory())

	_, err := svc.CreatePost(context.Background(), CreateInput{StoreID: "shop-1", Title: "x", Content: "y", Type: "later"})
	assert.ErrorIs(t, err, entity.ErrInvalidPublicationType)

	_, err = svc.CreatePost(context.Background(), CreateInput{StoreID: "shop-1", Title: "  ", Content: "y"})
	assert.ErrorIs(t, err, entity.ErrEmptyTitle)
}

func TestCreatePost_PersistenceFailure(t *testing.T) {
	svc := newTestService(failingRepo{dao.NewPostMemory()})

	_, err := svc.CreatePost(context.Background(), CreateInput{StoreID: "shop-1", Title: "x", Content: "y", Type: entity.PublicationTypePublish})
	assert.ErrorIs(t, err, entity.ErrPersistenceFailed)
}

func TestGetPost_NotFound(t *testing.T) {
	svc := newTestService(dao.NewPostMemory())

	_, err := svc.GetPost(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrPostNotFound)
}
