package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/vadim/neo-content/internal/worker"
)

// SyncProcessor defines the interface for retrying posts the publishing platform has not accepted yet
type SyncProcessor interface {
	ProcessPendingSync(ctx context.Context, limit int) error
}

// Scheduler handles periodic retries of the platform sync
type Scheduler struct {
	processor SyncProcessor
	batchSize int
	logger    *slog.Logger
	loop      *worker.Loop
}

// New creates a new sync scheduler
func New(processor SyncProcessor, interval time.Duration, batchSize int, logger *slog.Logger) *Scheduler {
	if batchSize <= 0 {
		batchSize = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		processor: processor,
		batchSize: batchSize,
		logger:    logger,
	}
	s.loop = worker.NewLoop("post sync scheduler", interval, s.process, logger)
	return s
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	s.loop.Start(ctx, "batch_size", s.batchSize)
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.loop.Stop()
}

func (s *Scheduler) process(ctx context.Context) {
	s.logger.Debug("retrying pending post sync")

	if err := s.processor.ProcessPendingSync(ctx, s.batchSize); err != nil {
		s.logger.Error("failed to retry pending post sync", "error", err)
	}
}
