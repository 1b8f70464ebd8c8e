package dao

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vadim/neo-content/internal/domain/batch/entity"
)

// RunMemory implements RunRepository in process memory
type RunMemory struct {
	mu   sync.Mutex
	runs map[string]entity.Run
}

// NewRunMemory creates an empty in-memory run repository
func NewRunMemory() *RunMemory {
	return &RunMemory{runs: make(map[string]entity.Run)}
}

// Create stores a new run
func (r *RunMemory) Create(_ context.Context, run *entity.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	r.runs[run.ID] = cloneRun(*run)
	return nil
}

// Get retrieves a run by ID
func (r *RunMemory) Get(_ context.Context, id string) (*entity.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, nil
	}
	out := cloneRun(run)
	return &out, nil
}

// Update applies fn under the repository lock
func (r *RunMemory) Update(_ context.Context, id string, fn UpdateFunc) (*entity.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, entity.ErrRunNotFound
	}

	working := cloneRun(run)
	if err := fn(&working); err != nil {
		return nil, err
	}
	r.runs[id] = cloneRun(working)
	return &working, nil
}

// ListActive returns runs that are not completed, oldest first
func (r *RunMemory) ListActive(_ context.Context, storeID string) ([]entity.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.Run
	for _, run := range r.runs {
		if run.Status == entity.RunStatusCompleted {
			continue
		}
		if storeID != "" && run.StoreID != storeID {
			continue
		}
		out = append(out, cloneRun(run))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// List returns the most recent runs of a store, newest first
func (r *RunMemory) List(_ context.Context, storeID string, limit int) ([]entity.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.Run
	for _, run := range r.runs {
		if storeID != "" && run.StoreID != storeID {
			continue
		}
		out = append(out, cloneRun(run))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneRun(run entity.Run) entity.Run {
	run.Entries = append([]entity.TopicEntry(nil), run.Entries...)
	run.Claimed = append([]string{}, run.Claimed...)
	if run.Job.StartedAt != nil {
		t := *run.Job.StartedAt
		run.Job.StartedAt = &t
	}
	if run.Job.FinishedAt != nil {
		t := *run.Job.FinishedAt
		run.Job.FinishedAt = &t
	}
	return run
}
