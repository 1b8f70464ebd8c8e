package entity

import (
	"time"

	genentity "github.com/vadim/neo-content/internal/domain/generation/entity"
)

// Mode selects how a batch is executed
type Mode string

const (
	ModeBulk    Mode = "bulk"
	ModeCluster Mode = "cluster"
)

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
)

// TopicState is the state of one topic inside a run
type TopicState string

const (
	TopicStatePending  TopicState = "pending"
	TopicStateSuccess  TopicState = "success"
	TopicStateFailed   TopicState = "failed"
	TopicStateSkipped  TopicState = "skipped"
	TopicStateTimedOut TopicState = "timed_out"
)

// UnresolvedMessage is shown for cluster topics still unmatched at the deadline
const UnresolvedMessage = "still processing or may have failed silently"

// ClientStatus maps a topic state to the status clients render
func (s TopicState) ClientStatus() string {
	switch s {
	case TopicStatePending:
		return "processing"
	case TopicStateTimedOut:
		return "unresolved"
	default:
		return string(s)
	}
}

// JobState is the lifecycle state of the background generation job of a cluster run
type JobState string

const (
	JobStateSubmitted   JobState = "submitted"
	JobStateRunning     JobState = "running"
	JobStateCompleted   JobState = "completed"
	JobStateInterrupted JobState = "interrupted"
)

// Job tracks the background work that produces the posts of a cluster run
type Job struct {
	ID          string     `json:"id"`
	State       JobState   `json:"state"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Active reports whether the job may still create posts
func (j Job) Active() bool {
	return j.State == JobStateSubmitted || j.State == JobStateRunning
}

// TopicEntry is the outcome for one topic, kept in input order
type TopicEntry struct {
	Topic                string              `json:"topic"`
	State                TopicState          `json:"state"`
	PostID               string              `json:"post_id,omitempty"`
	Title                string              `json:"title,omitempty"`
	ContentPreview       string              `json:"content_preview,omitempty"`
	UsesFallbackProvider bool                `json:"uses_fallback_provider"`
	Provider             string              `json:"provider,omitempty"`
	Reason               genentity.ErrorKind `json:"reason,omitempty"`
	Error                string              `json:"error,omitempty"`
	Warning              string              `json:"warning,omitempty"`
	MatchRule            string              `json:"match_rule,omitempty"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// Run is one bulk or cluster execution over an ordered topic list
type Run struct {
	ID        string       `json:"id"`
	StoreID   string       `json:"store_id"`
	Mode      Mode         `json:"mode"`
	Status    RunStatus    `json:"status"`
	RootTopic string       `json:"root_topic,omitempty"`
	Entries   []TopicEntry `json:"entries"`
	Job       Job          `json:"job"`
	Claimed   []string     `json:"claimed"` // post IDs already attributed to a topic
	Error     string       `json:"error,omitempty"`
	Deadline  time.Time    `json:"deadline"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewRun creates a run with every topic pending
func NewRun(id, storeID string, mode Mode, topics []string, now time.Time) *Run {
	entries := make([]TopicEntry, len(topics))
	for i, t := range topics {
		entries[i] = TopicEntry{Topic: t, State: TopicStatePending, UpdatedAt: now}
	}
	return &Run{
		ID:        id,
		StoreID:   storeID,
		Mode:      mode,
		Status:    RunStatusPending,
		Entries:   entries,
		Claimed:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Topics returns the topics in input order
func (r *Run) Topics() []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Topic
	}
	return out
}

// PendingIndexes returns the indexes of pending entries in input order
func (r *Run) PendingIndexes() []int {
	var out []int
	for i, e := range r.Entries {
		if e.State == TopicStatePending {
			out = append(out, i)
		}
	}
	return out
}

// IsClaimed reports whether a post has already been attributed to a topic of this run
func (r *Run) IsClaimed(postID string) bool {
	for _, id := range r.Claimed {
		if id == postID {
			return true
		}
	}
	return false
}

// Resolve sets the outcome of a pending entry. Entries that already left the
// pending state are never overwritten, which keeps repeated updates idempotent.
func (r *Run) Resolve(i int, e TopicEntry, now time.Time) bool {
	if i < 0 || i >= len(r.Entries) || r.Entries[i].State != TopicStatePending {
		return false
	}
	e.Topic = r.Entries[i].Topic
	e.UpdatedAt = now
	r.Entries[i] = e
	if e.PostID != "" && !r.IsClaimed(e.PostID) {
		r.Claimed = append(r.Claimed, e.PostID)
	}
	r.UpdatedAt = now
	return true
}

// FailPending marks every pending entry failed with the same reason
func (r *Run) FailPending(reason genentity.ErrorKind, msg string, now time.Time) {
	for _, i := range r.PendingIndexes() {
		r.Resolve(i, TopicEntry{State: TopicStateFailed, Reason: reason, Error: msg}, now)
	}
}

// Complete marks the run completed
func (r *Run) Complete(now time.Time) {
	r.Status = RunStatusCompleted
	r.UpdatedAt = now
}

// TimeOut surfaces every pending entry as unresolved and completes the run
func (r *Run) TimeOut(now time.Time) {
	for _, i := range r.PendingIndexes() {
		r.Resolve(i, TopicEntry{State: TopicStateTimedOut, Error: UnresolvedMessage}, now)
	}
	r.Complete(now)
}

// Successful counts entries that produced a post
func (r *Run) Successful() int {
	n := 0
	for _, e := range r.Entries {
		if e.State == TopicStateSuccess {
			n++
		}
	}
	return n
}
