package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingProcessor struct {
	calls atomic.Int32
	limit atomic.Int32
	err   error
}

func (p *countingProcessor) ProcessPendingSync(_ context.Context, limit int) error {
	p.calls.Add(1)
	p.limit.Store(int32(limit))
	return p.err
}

func TestScheduler_RunsImmediatelyAndOnTicks(t *testing.T) {
	proc := &countingProcessor{err: errors.New("transient")}
	s := New(proc, 10*time.Millisecond, 5, slog.New(slog.NewTextHandler(io.Discard, nil)))

	s.Start(context.Background())
	s.Start(context.Background()) // second start is a no-op

	assert.Eventually(t, func() bool { return proc.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	assert.EqualValues(t, 5, proc.limit.Load())

	after := proc.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, proc.calls.Load())
}

func TestScheduler_RestartsAfterStop(t *testing.T) {
	proc := &countingProcessor{}
	s := New(proc, 10*time.Millisecond, 5, slog.New(slog.NewTextHandler(io.Discard, nil)))

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return proc.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	stopped := proc.calls.Load()
	s.Start(context.Background())
	assert.Eventually(t, func() bool { return proc.calls.Load() >= stopped+3 }, time.Second, 5*time.Millisecond)
	s.Stop()
}
