package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	genentity "github.com/vadim/neo-content/internal/domain/generation/entity"
)

func TestRun_ResolveNeverOverwrites(t *testing.T) {
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	run := NewRun("r", "shop", ModeCluster, []string{"a", "b"}, now)

	require.True(t, run.Resolve(0, TopicEntry{State: TopicStateSuccess, PostID: "p1"}, now))
	assert.False(t, run.Resolve(0, TopicEntry{State: TopicStateFailed}, now))
	assert.False(t, run.Resolve(5, TopicEntry{State: TopicStateFailed}, now))

	assert.Equal(t, "a", run.Entries[0].Topic)
	assert.Equal(t, TopicStateSuccess, run.Entries[0].State)
	assert.Equal(t, []string{"p1"}, run.Claimed)
	assert.Equal(t, []int{1}, run.PendingIndexes())
}

func TestRun_TimeOutAndResponse(t *testing.T) {
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	run := NewRun("r", "shop", ModeCluster, []string{"a", "b", "c"}, now)
	run.Resolve(0, TopicEntry{State: TopicStateSuccess, PostID: "p1", Title: "A"}, now)
	run.Resolve(1, TopicEntry{State: TopicStateFailed, Reason: genentity.ErrorKindValidationFailed, Error: "bad"}, now)
	run.TimeOut(now)

	resp := run.Response()
	assert.True(t, resp.Success)
	assert.Equal(t, RunStatusCompleted, resp.Status)
	assert.Equal(t, 3, resp.TotalTopics)
	assert.Equal(t, 1, resp.Successful)
	assert.Equal(t, "success", resp.Results[0].Status)
	assert.Equal(t, "failed", resp.Results[1].Status)
	assert.Equal(t, "unresolved", resp.Results[2].Status)
	assert.Equal(t, UnresolvedMessage, resp.Results[2].Error)
}

func TestRun_FailPendingSetsError(t *testing.T) {
	now := time.Now()
	run := NewRun("r", "shop", ModeBulk, []string{"a", "b"}, now)
	run.Error = "chain exhausted"
	run.FailPending(genentity.ErrorKindProviderExhausted, run.Error, now)

	resp := run.Response()
	assert.False(t, resp.Success)
	assert.Equal(t, "chain exhausted", resp.Error)
	assert.Equal(t, []ResultEntry{
		{Topic: "a", Status: "failed", Error: "chain exhausted"},
		{Topic: "b", Status: "failed", Error: "chain exhausted"},
	}, resp.Results)
}
