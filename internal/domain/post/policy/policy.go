package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vadim/neo-content/internal/domain/post/entity"
	"github.com/vadim/neo-content/internal/domain/post/service"
	"github.com/vadim/neo-content/internal/metrics"
)

// PlatformPublisher defines the interface for the publishing platform.
// This interface is defined here (consumer) not in the upstream package (provider)
type PlatformPublisher interface {
	Publish(ctx context.Context, post *entity.Post) (string, error)
	// StoreID is the only store the publisher can write to
	StoreID() string
}

// Policy orchestrates post use-cases that involve the publishing platform
type Policy struct {
	svc       *service.Service
	publisher PlatformPublisher
	logger    *slog.Logger
}

// New creates a new post policy. publisher may be nil when no platform is configured.
func New(svc *service.Service, publisher PlatformPublisher, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		svc:       svc,
		publisher: publisher,
		logger:    logger,
	}
}

// CreatePostOutput represents output from creating a post
type CreatePostOutput struct {
	*service.CreateOutput
	SyncError string
}

// CreatePost creates a post and syncs it to the publishing platform when it is not a draft.
// A sync failure is reported but never undoes the created post.
func (p *Policy) CreatePost(ctx context.Context, in service.CreateInput) (*CreatePostOutput, error) {
	created, err := p.svc.CreatePost(ctx, in)
	if err != nil {
		return nil, err
	}

	out := &CreatePostOutput{CreateOutput: created}
	if created.Post == nil || !created.Post.NeedsSync() {
		return out, nil
	}

	report := p.SyncPosts(ctx, []string{created.Post.ID})
	if msg, ok := report.Failed[created.Post.ID]; ok {
		out.SyncError = msg
		return out, nil
	}
	if externalID, ok := report.Synced[created.Post.ID]; ok {
		created.Post.ExternalID = externalID
	}
	return out, nil
}

// SyncReport summarizes a sync pass
type SyncReport struct {
	Synced  map[string]string `json:"synced"`  // post ID -> external ID
	Failed  map[string]string `json:"failed"`  // post ID -> error
	Skipped []string          `json:"skipped"` // drafts, already synced or unknown posts
}

func newSyncReport() SyncReport {
	return SyncReport{Synced: map[string]string{}, Failed: map[string]string{}}
}

// SyncPosts pushes the given posts to the publishing platform. Failures are
// recorded on the post and logged; they never roll back the post.
func (p *Policy) SyncPosts(ctx context.Context, ids []string) SyncReport {
	report := newSyncReport()

	for _, id := range ids {
		post, err := p.svc.GetPost(ctx, id)
		if err != nil {
			p.logger.Warn("post not available for sync", "post_id", id, "error", err)
			report.Skipped = append(report.Skipped, id)
			continue
		}
		p.syncOne(ctx, post, &report)
	}

	return report
}

// SyncPending retries posts of the connected store that are still waiting for the
// publishing platform. Posts of other stores are never listed.
func (p *Policy) SyncPending(ctx context.Context, limit int) (SyncReport, error) {
	report := newSyncReport()

	storeID := ""
	if p.publisher != nil {
		storeID = p.publisher.StoreID()
	}
	posts, err := p.svc.ListUnsynced(ctx, storeID, limit)
	if err != nil {
		return report, err
	}
	for i := range posts {
		p.syncOne(ctx, &posts[i], &report)
	}

	return report, nil
}

// ProcessPendingSync implements scheduler.SyncProcessor
func (p *Policy) ProcessPendingSync(ctx context.Context, limit int) error {
	report, err := p.SyncPending(ctx, limit)
	if err != nil {
		return err
	}
	if len(report.Synced) > 0 || len(report.Failed) > 0 {
		p.logger.Info("pending posts synced", "synced", len(report.Synced), "failed", len(report.Failed))
	}
	return nil
}

func (p *Policy) syncOne(ctx context.Context, post *entity.Post, report *SyncReport) {
	if !post.NeedsSync() {
		report.Skipped = append(report.Skipped, post.ID)
		return
	}
	if p.publisher == nil {
		report.Skipped = append(report.Skipped, post.ID)
		return
	}
	if post.StoreID != p.publisher.StoreID() {
		metrics.RecordPlatformSync("unconnected_store")
		p.logger.Warn("post belongs to a store the publishing platform is not connected to",
			"post_id", post.ID,
			"store_id", post.StoreID,
		)
		report.Failed[post.ID] = fmt.Sprintf("%s: %s", entity.ErrStoreNotConnected, post.StoreID)
		return
	}

	externalID, err := p.publisher.Publish(ctx, post)
	if err != nil {
		metrics.RecordPlatformSync("failed")
		p.logger.Error("failed to sync post to publishing platform",
			"post_id", post.ID,
			"store_id", post.StoreID,
			"error", err,
		)
		report.Failed[post.ID] = err.Error()
		if serr := p.svc.MarkSyncFailed(ctx, post.ID, err); serr != nil {
			p.logger.Error("failed to record sync error", "post_id", post.ID, "error", serr)
		}
		return
	}

	if err := p.svc.MarkSynced(ctx, post.ID, externalID); err != nil {
		metrics.RecordPlatformSync("failed")
		p.logger.Error("failed to store external id", "post_id", post.ID, "external_id", externalID, "error", err)
		report.Failed[post.ID] = err.Error()
		return
	}

	metrics.RecordPlatformSync("synced")
	p.logger.Info("post synced to publishing platform", "post_id", post.ID, "external_id", externalID)
	report.Synced[post.ID] = externalID
}
