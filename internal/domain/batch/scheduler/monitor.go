package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/vadim/neo-content/internal/worker"
)

// Reconciler attributes created posts to the topics of active cluster runs
type Reconciler interface {
	ReconcileActive(ctx context.Context) error
}

// Monitor polls active cluster runs until each one completes or times out
type Monitor struct {
	reconciler Reconciler
	logger     *slog.Logger
	loop       *worker.Loop
}

// NewMonitor creates a cluster monitor
func NewMonitor(reconciler Reconciler, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{reconciler: reconciler, logger: logger}
	m.loop = worker.NewLoop("cluster monitor", interval, m.tick, logger)
	return m
}

// Start starts polling
func (m *Monitor) Start(ctx context.Context) {
	m.loop.Start(ctx)
}

// Stop stops polling and waits for an in-flight pass to finish
func (m *Monitor) Stop() {
	m.loop.Stop()
}

func (m *Monitor) tick(ctx context.Context) {
	if err := m.reconciler.ReconcileActive(ctx); err != nil {
		m.logger.Error("failed to reconcile cluster runs", "error", err)
	}
}
