package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/neo-content/internal/domain/batch/dao"
	"github.com/vadim/neo-content/internal/domain/batch/entity"
	"github.com/vadim/neo-content/internal/domain/batch/reconcile"
	genentity "github.com/vadim/neo-content/internal/domain/generation/entity"
	postentity "github.com/vadim/neo-content/internal/domain/post/entity"
	postpolicy "github.com/vadim/neo-content/internal/domain/post/policy"
	postservice "github.com/vadim/neo-content/internal/domain/post/service"
	"github.com/vadim/neo-content/internal/metrics"
	"github.com/vadim/neo-content/internal/textutil"
)

// Generator produces an article for one topic
type Generator interface {
	Generate(ctx context.Context, req genentity.Request) genentity.Result
}

// PostStore creates posts and reads back recently created ones
type PostStore interface {
	CreatePost(ctx context.Context, in postservice.CreateInput) (*postservice.CreateOutput, error)
	FindRecent(ctx context.Context, storeID string, since time.Time) ([]postentity.Post, error)
}

// PostSyncer pushes created posts to the publishing platform
type PostSyncer interface {
	SyncPosts(ctx context.Context, ids []string) postpolicy.SyncReport
}

// MaxBulkTopics bounds the topics accepted by one bulk run
const MaxBulkTopics = 50

const previewLen = 200

// errCancelled is reported for topics not saved because the context ended
const errCancelled = "generation was cancelled before the topic was saved"

// Config holds cluster execution and reconciliation settings
type Config struct {
	ClusterSize         int
	ClusterTimeout      time.Duration
	Lookback            time.Duration
	RecentClaimWindow   time.Duration
	CorrelationMatching bool
}

// DefaultConfig returns the production cluster settings
func DefaultConfig() Config {
	return Config{
		ClusterSize:         10,
		ClusterTimeout:      20 * time.Minute,
		Lookback:            time.Hour,
		RecentClaimWindow:   5 * time.Minute,
		CorrelationMatching: true,
	}
}

// Orchestrator runs bulk and cluster batches over the generation gateway and the post service
type Orchestrator struct {
	gen    Generator
	posts  PostStore
	syncer PostSyncer
	runs   dao.RunRepository
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	jobsCtx    context.Context
	cancelJobs context.CancelFunc
	jobs       sync.WaitGroup
}

// New creates an orchestrator. syncer may be nil when no platform is configured.
func New(gen Generator, posts PostStore, syncer PostSyncer, runs dao.RunRepository, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		gen:        gen,
		posts:      posts,
		syncer:     syncer,
		runs:       runs,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		jobsCtx:    ctx,
		cancelJobs: cancel,
	}
}

// WithClock replaces the clock, used by tests
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Settings are applied to every topic of a batch
type Settings struct {
	StoreID      string
	StylePrompt  string
	Tone         genentity.Tone
	Keywords     []string
	Type         postentity.PublicationType
	ScheduleDate string
	ScheduleTime string
	ForceCreate  bool
}

// BulkInput represents input for a bulk run
type BulkInput struct {
	Settings
	Topics []string
}

// ClusterInput represents input for a cluster run
type ClusterInput struct {
	Settings
	RootTopic string
	Subtopics []string
	Size      int
}

// RunBulk generates every topic sequentially and returns when all of them finished.
// Each topic fails on its own; an exhausted provider chain or a cancelled context
// ends the run early and fails the topics that were not generated.
func (o *Orchestrator) RunBulk(ctx context.Context, in BulkInput) (*entity.Run, error) {
	if err := validateSettings(in.Settings); err != nil {
		return nil, err
	}
	if len(in.Topics) == 0 {
		return nil, entity.ErrNoTopics
	}
	if len(in.Topics) > MaxBulkTopics {
		return nil, fmt.Errorf("%w: at most %d", entity.ErrTooManyTopics, MaxBulkTopics)
	}

	now := o.now().UTC()
	run := entity.NewRun(uuid.New().String(), in.StoreID, entity.ModeBulk, in.Topics, now)
	run.Status = entity.RunStatusInProgress

	log := o.logger.With("run_id", run.ID, "mode", run.Mode, "store_id", in.StoreID)
	log.Info("bulk run started", "topics", len(in.Topics))

	var created []string
	var abort genentity.ErrorKind
	for i, topic := range in.Topics {
		if abort != "" {
			break
		}
		if ctx.Err() != nil {
			abort = genentity.ErrorKindCancelled
			run.Error = errCancelled
			break
		}

		entry, postID := o.processTopic(ctx, in.Settings, topic, nil, "")
		switch entry.Reason {
		case genentity.ErrorKindProviderExhausted:
			abort = entry.Reason
			run.Error = entry.Error
		case genentity.ErrorKindCancelled:
			abort = entry.Reason
			run.Error = errCancelled
		}
		run.Resolve(i, entry, o.now().UTC())
		if postID != "" {
			created = append(created, postID)
		}
		metrics.RecordTopicOutcome(string(run.Mode), entry.State.ClientStatus())
	}

	if abort != "" {
		log.Error("bulk run aborted", "reason", abort, "error", run.Error)
		run.FailPending(abort, run.Error, o.now().UTC())
	}

	// Posts already written are still pushed when the caller went away.
	o.syncCreated(context.WithoutCancel(ctx), run, created)
	run.Complete(o.now().UTC())

	log.Info("bulk run finished", "successful", run.Successful(), "total", len(run.Entries))
	return run, nil
}

// StartCluster persists a cluster run with every topic pending, submits its
// generation job and returns without waiting for it. Topic outcomes are filled in
// by the job (failures) and by reconciliation (created posts).
func (o *Orchestrator) StartCluster(ctx context.Context, in ClusterInput) (*entity.Run, error) {
	if err := validateSettings(in.Settings); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.RootTopic) == "" {
		return nil, entity.ErrEmptyRootTopic
	}

	size := in.Size
	if size <= 0 {
		size = o.cfg.ClusterSize
	}
	topics := PlanCluster(in.RootTopic, in.Subtopics, size)

	now := o.now().UTC()
	run := entity.NewRun(uuid.New().String(), in.StoreID, entity.ModeCluster, topics, now)
	run.Status = entity.RunStatusInProgress
	run.RootTopic = topics[0]
	run.Deadline = now.Add(o.cfg.ClusterTimeout)
	run.Job = entity.Job{ID: uuid.New().String(), State: entity.JobStateSubmitted, SubmittedAt: now}

	if err := o.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	metrics.RecordClusterRun("started")

	o.jobs.Add(1)
	go func() {
		defer o.jobs.Done()
		o.runClusterJob(o.jobsCtx, run.ID, in.Settings, topics)
	}()

	o.logger.Info("cluster run submitted",
		"run_id", run.ID,
		"job_id", run.Job.ID,
		"store_id", in.StoreID,
		"topics", len(topics),
		"deadline", run.Deadline,
	)
	return run, nil
}

// runClusterJob generates every topic of a cluster. Posts are stamped with the run ID
// and left for reconciliation to attribute; only failures are written to the run.
func (o *Orchestrator) runClusterJob(ctx context.Context, runID string, settings Settings, topics []string) {
	log := o.logger.With("run_id", runID, "mode", entity.ModeCluster)
	store := context.WithoutCancel(ctx)

	o.updateRun(store, runID, func(run *entity.Run) error {
		now := o.now().UTC()
		run.Job.State = entity.JobStateRunning
		run.Job.StartedAt = &now
		return nil
	})

	var created []string
	exhausted := ""
	attempted := 0
	for _, topic := range topics {
		if ctx.Err() != nil || exhausted != "" {
			break
		}
		attempted++

		related := siblings(topics, topic)
		entry, postID := o.processTopic(ctx, settings, topic, related, runID)
		if postID != "" {
			created = append(created, postID)
		}
		if entry.State == entity.TopicStateSuccess {
			continue
		}

		metrics.RecordTopicOutcome(string(entity.ModeCluster), entry.State.ClientStatus())
		if entry.Reason == genentity.ErrorKindProviderExhausted {
			exhausted = entry.Error
		}
		o.updateRun(store, runID, func(run *entity.Run) error {
			for i, e := range run.Entries {
				if e.Topic == topic {
					run.Resolve(i, entry, o.now().UTC())
					break
				}
			}
			return nil
		})
	}

	if len(created) > 0 && o.syncer != nil {
		report := o.syncer.SyncPosts(store, created)
		if len(report.Failed) > 0 {
			log.Warn("cluster posts failed to sync", "failed", len(report.Failed))
		}
	}

	o.updateRun(store, runID, func(run *entity.Run) error {
		now := o.now().UTC()
		run.Job.FinishedAt = &now
		switch {
		case exhausted != "":
			// Topics generated before the failure keep waiting for reconciliation.
			run.Error = exhausted
			for i := attempted; i < len(run.Entries); i++ {
				run.Resolve(i, entity.TopicEntry{
					State:  entity.TopicStateFailed,
					Reason: genentity.ErrorKindProviderExhausted,
					Error:  exhausted,
				}, now)
			}
			run.Job.State = entity.JobStateCompleted
		case ctx.Err() != nil:
			run.Job.State = entity.JobStateInterrupted
			run.Job.Error = "service shut down before the job finished"
		default:
			run.Job.State = entity.JobStateCompleted
		}
		return nil
	})

	log.Info("cluster job finished", "created", len(created), "interrupted", ctx.Err() != nil)
}

// processTopic generates, persists and describes one topic. The returned post ID is
// set when a post was created.
func (o *Orchestrator) processTopic(ctx context.Context, s Settings, topic string, related []string, jobID string) (entity.TopicEntry, string) {
	res := o.gen.Generate(ctx, genentity.Request{
		Topic:         topic,
		StylePrompt:   s.StylePrompt,
		Tone:          s.Tone,
		Keywords:      s.Keywords,
		RelatedTopics: related,
	})
	if !res.Succeeded() {
		return entity.TopicEntry{
			State:  entity.TopicStateFailed,
			Reason: res.Failure.Reason,
			Error:  res.Failure.Detail,
		}, ""
	}
	if ctx.Err() != nil {
		return entity.TopicEntry{
			State:  entity.TopicStateFailed,
			Reason: genentity.ErrorKindCancelled,
			Error:  errCancelled,
		}, ""
	}

	a := res.Article
	out, err := o.posts.CreatePost(ctx, postservice.CreateInput{
		StoreID:              s.StoreID,
		Title:                a.Title,
		Content:              a.Content,
		Tags:                 a.Tags,
		MetaDescription:      a.MetaDescription,
		Type:                 s.Type,
		ScheduleDate:         s.ScheduleDate,
		ScheduleTime:         s.ScheduleTime,
		ForceCreate:          s.ForceCreate,
		Topic:                topic,
		GenerationJobID:      jobID,
		UsesFallbackProvider: res.UsesFallbackProvider,
	})
	entry := entity.TopicEntry{
		Title:                a.Title,
		ContentPreview:       textutil.Preview(a.Content, previewLen),
		UsesFallbackProvider: res.UsesFallbackProvider,
		Provider:             res.Provider,
	}

	switch {
	case err != nil:
		entry.State = entity.TopicStateFailed
		entry.Reason = genentity.ErrorKindValidationFailed
		if errors.Is(err, postentity.ErrPersistenceFailed) {
			entry.Reason = genentity.ErrorKindPersistenceFailed
		}
		entry.Error = err.Error()
		o.logger.Warn("failed to save generated post", "topic", topic, "reason", entry.Reason, "error", err)
		return entry, ""
	case out.Duplicate:
		entry.State = entity.TopicStateSkipped
		entry.Reason = genentity.ErrorKindDuplicateSkipped
		entry.Error = fmt.Sprintf("a post with this title already exists (%s)", out.DuplicateOf)
		return entry, ""
	}

	entry.State = entity.TopicStateSuccess
	entry.PostID = out.Post.ID
	entry.Warning = out.ScheduleWarning
	return entry, out.Post.ID
}

func (o *Orchestrator) syncCreated(ctx context.Context, run *entity.Run, ids []string) {
	if len(ids) == 0 || o.syncer == nil {
		return
	}
	report := o.syncer.SyncPosts(ctx, ids)
	for i, e := range run.Entries {
		msg, ok := report.Failed[e.PostID]
		if !ok || e.PostID == "" {
			continue
		}
		warning := "saved but not yet published to the store: " + msg
		if e.Warning != "" {
			warning = e.Warning + "; " + warning
		}
		run.Entries[i].Warning = warning
	}
}

// GetRun returns a run by ID
func (o *Orchestrator) GetRun(ctx context.Context, id string) (*entity.Run, error) {
	run, err := o.runs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, entity.ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns the most recent cluster runs of a store
func (o *Orchestrator) ListRuns(ctx context.Context, storeID string, limit int) ([]entity.Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return o.runs.List(ctx, storeID, limit)
}

// ListActive returns the store's runs that are still in progress, oldest first
func (o *Orchestrator) ListActive(ctx context.Context, storeID string) ([]entity.Run, error) {
	return o.runs.ListActive(ctx, storeID)
}

// ReconcileActive reconciles every cluster run that is not completed
func (o *Orchestrator) ReconcileActive(ctx context.Context) error {
	runs, err := o.runs.ListActive(ctx, "")
	if err != nil {
		return fmt.Errorf("listing active runs: %w", err)
	}

	var errs []error
	for _, run := range runs {
		if run.Mode != entity.ModeCluster {
			continue
		}
		if _, err := o.ReconcileRun(ctx, run.ID); err != nil {
			errs = append(errs, fmt.Errorf("run %s: %w", run.ID, err))
		}
	}
	return errors.Join(errs...)
}

// ReconcileRun attributes recently created posts to the pending topics of a run,
// completes the run when nothing is pending and times out what is left after the
// deadline. Repeating it with the same posts changes nothing.
func (o *Orchestrator) ReconcileRun(ctx context.Context, id string) (*entity.Run, error) {
	current, err := o.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == entity.RunStatusCompleted {
		return current, nil
	}

	now := o.now().UTC()
	since := now.Add(-o.cfg.Lookback)
	if current.CreatedAt.After(since) {
		since = current.CreatedAt
	}
	candidates, err := o.posts.FindRecent(ctx, current.StoreID, since)
	if err != nil {
		return nil, fmt.Errorf("finding recent posts: %w", err)
	}

	var (
		matched  []reconcile.Match
		finished string
	)
	run, err := o.runs.Update(ctx, id, func(run *entity.Run) error {
		matched, finished = nil, ""
		if run.Status == entity.RunStatusCompleted {
			return nil
		}

		matches := reconcile.Attribute(run, candidates, reconcile.Options{
			CorrelationMatching: o.cfg.CorrelationMatching,
			RecentClaimWindow:   o.cfg.RecentClaimWindow,
			Now:                 now,
		})
		for _, m := range matches {
			if run.Resolve(m.EntryIndex, entryFromPost(m), now) {
				matched = append(matched, m)
			}
		}

		switch {
		case len(run.PendingIndexes()) == 0:
			run.Complete(now)
			finished = "completed"
		case !run.Deadline.IsZero() && !now.Before(run.Deadline):
			run.TimeOut(now)
			finished = "timed_out"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, m := range matched {
		metrics.RecordReconcileMatch(string(m.Rule))
		metrics.RecordTopicOutcome(string(entity.ModeCluster), entity.TopicStateSuccess.ClientStatus())
		o.logger.Info("cluster topic matched",
			"run_id", id,
			"topic", run.Entries[m.EntryIndex].Topic,
			"post_id", m.Post.ID,
			"rule", m.Rule,
		)
	}
	if finished != "" {
		metrics.RecordClusterRun(finished)
		o.logger.Info("cluster run finished",
			"run_id", id,
			"state", finished,
			"successful", run.Successful(),
			"total", len(run.Entries),
		)
	}
	return run, nil
}

// RecoverOrphans marks jobs left submitted or running by a previous process as
// interrupted. Their runs stay active so reconciliation can still attribute posts
// and time out the rest.
func (o *Orchestrator) RecoverOrphans(ctx context.Context) (int, error) {
	runs, err := o.runs.ListActive(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("listing active runs: %w", err)
	}

	recovered := 0
	for _, run := range runs {
		if !run.Job.Active() {
			continue
		}
		_, err := o.runs.Update(ctx, run.ID, func(r *entity.Run) error {
			if !r.Job.Active() {
				return nil
			}
			now := o.now().UTC()
			r.Job.State = entity.JobStateInterrupted
			r.Job.FinishedAt = &now
			r.Job.Error = "service restarted before the job finished"
			return nil
		})
		if err != nil {
			return recovered, fmt.Errorf("recovering run %s: %w", run.ID, err)
		}
		recovered++
		o.logger.Warn("cluster job interrupted by restart", "run_id", run.ID, "job_id", run.Job.ID)
	}
	return recovered, nil
}

// Wait blocks until every submitted job has returned
func (o *Orchestrator) Wait() {
	o.jobs.Wait()
}

// Shutdown cancels running jobs and waits for them to record their state
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancelJobs()

	done := make(chan struct{})
	go func() {
		o.jobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) updateRun(ctx context.Context, id string, fn dao.UpdateFunc) {
	if _, err := o.runs.Update(ctx, id, fn); err != nil {
		o.logger.Error("failed to update run", "run_id", id, "error", err)
	}
}

func entryFromPost(m reconcile.Match) entity.TopicEntry {
	return entity.TopicEntry{
		State:                entity.TopicStateSuccess,
		PostID:               m.Post.ID,
		Title:                m.Post.Title,
		ContentPreview:       textutil.Preview(m.Post.Content, previewLen),
		UsesFallbackProvider: m.Post.UsesFallbackProvider,
		MatchRule:            string(m.Rule),
	}
}

func siblings(topics []string, topic string) []string {
	out := make([]string, 0, len(topics)-1)
	for _, t := range topics {
		if t != topic {
			out = append(out, t)
		}
	}
	return out
}

func validateSettings(s Settings) error {
	if strings.TrimSpace(s.StoreID) == "" {
		return entity.ErrEmptyStoreID
	}
	if s.Type != "" && !s.Type.Valid() {
		return postentity.ErrInvalidPublicationType
	}
	return nil
}
