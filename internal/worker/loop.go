package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Loop runs a task immediately and then on every tick until it is stopped or its
// context ends. A stopped loop can be started again.
type Loop struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context)
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewLoop creates a stopped loop
func NewLoop(name string, interval time.Duration, task func(ctx context.Context), logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger,
	}
}

// Start launches the loop. Calling Start on a running loop is a no-op.
func (l *Loop) Start(ctx context.Context, attrs ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.stopCh = make(chan struct{})

	l.logger.Info(l.name+" started", append([]any{"interval", l.interval}, attrs...)...)

	l.wg.Add(1)
	go l.run(ctx, l.stopCh)
}

// Stop stops the loop and waits for an in-flight task to finish
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false

	close(l.stopCh)
	l.wg.Wait()
	l.logger.Info(l.name + " stopped")
}

// Running reports whether the loop has been started and not stopped
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Loop) run(ctx context.Context, stop <-chan struct{}) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.task(ctx)

	for {
		select {
		case <-ticker.C:
			l.task(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}
