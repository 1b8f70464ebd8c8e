package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/neo-content/internal/domain/batch/entity"
	postentity "github.com/vadim/neo-content/internal/domain/post/entity"
)

var base = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func newRun(topics ...string) *entity.Run {
	return entity.NewRun("run-1", "shop", entity.ModeCluster, topics, base)
}

func post(id, title, content string, age time.Duration) postentity.Post {
	return postentity.Post{ID: id, StoreID: "shop", Title: title, Content: content, CreatedAt: base.Add(-age)}
}

func opts() Options {
	return Options{RecentClaimWindow: 5 * time.Minute, Now: base}
}

func TestAttribute_Rules(t *testing.T) {
	tests := []struct {
		name     string
		topic    string
		post     postentity.Post
		wantRule Rule
	}{
		{
			name:     "topic inside title",
			topic:    "Winter Boots",
			post:     post("p1", "The ultimate winter boots checklist", "", 30*time.Minute),
			wantRule: RuleTitleSubstring,
		},
		{
			name:     "two topic words in title",
			topic:    "caring for leather boots",
			post:     post("p1", "Leather care: keep boots new", "", 30*time.Minute),
			wantRule: RuleTitleWords,
		},
		{
			name:     "single content word topic",
			topic:    "sandals",
			post:     post("p1", "Summer footwear", "Our favourite sandals this year.", 30*time.Minute),
			wantRule: RuleContentWords,
		},
		{
			name:     "recent unclaimed post",
			topic:    "gift ideas",
			post:     post("p1", "Something unrelated", "Nothing in common.", time.Minute),
			wantRule: RuleRecentUnclaimed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := Attribute(newRun(tt.topic), []postentity.Post{tt.post}, opts())
			require.Len(t, matches, 1)
			assert.Equal(t, tt.wantRule, matches[0].Rule)
			assert.Equal(t, "p1", matches[0].Post.ID)
			assert.Equal(t, 0, matches[0].EntryIndex)
		})
	}
}

func TestAttribute_OldUnrelatedPostIsIgnored(t *testing.T) {
	matches := Attribute(newRun("gift ideas"), []postentity.Post{post("p1", "Something unrelated", "Nothing.", 30*time.Minute)}, opts())
	assert.Empty(t, matches)
}

func TestAttribute_StrongRuleWinsOverEarlierWeakTopic(t *testing.T) {
	run := newRun("boots care", "winter boots")
	posts := []postentity.Post{
		post("p1", "Winter boots for city walks", "", 30*time.Minute),
	}

	matches := Attribute(run, posts, opts())
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].EntryIndex)
	assert.Equal(t, RuleTitleSubstring, matches[0].Rule)
}

func TestAttribute_EachPostUsedOnce(t *testing.T) {
	run := newRun("winter boots", "winter boots care")
	posts := []postentity.Post{
		post("p1", "Winter boots care guide", "", 30*time.Minute),
	}

	matches := Attribute(run, posts, opts())
	require.Len(t, matches, 1)
}

func TestAttribute_IsIdempotent(t *testing.T) {
	run := newRun("winter boots", "summer sandals")
	posts := []postentity.Post{
		post("p1", "Winter boots guide", "", 30*time.Minute),
		post("p2", "Summer sandals guide", "", 20*time.Minute),
	}

	first := Attribute(run, posts, opts())
	require.Len(t, first, 2)
	for _, m := range first {
		run.Resolve(m.EntryIndex, entity.TopicEntry{State: entity.TopicStateSuccess, PostID: m.Post.ID}, base)
	}

	assert.Empty(t, Attribute(run, posts, opts()))
	assert.ElementsMatch(t, []string{"p1", "p2"}, run.Claimed)
}

func TestAttribute_Correlation(t *testing.T) {
	run := newRun("gift ideas", "holiday wrapping")
	posts := []postentity.Post{
		{ID: "foreign", Title: "Gift ideas for dads", GenerationJobID: "other-run", CreatedAt: base.Add(-time.Minute)},
		{ID: "mine", Title: "Ten presents they will love", Topic: "Gift Ideas", GenerationJobID: "run-1", CreatedAt: base.Add(-2 * time.Minute)},
	}

	t.Run("enabled", func(t *testing.T) {
		o := opts()
		o.CorrelationMatching = true

		matches := Attribute(run, posts, o)
		require.Len(t, matches, 1)
		assert.Equal(t, "mine", matches[0].Post.ID)
		assert.Equal(t, RuleCorrelation, matches[0].Rule)
		assert.Equal(t, 0, matches[0].EntryIndex)
	})

	t.Run("disabled", func(t *testing.T) {
		matches := Attribute(run, posts, opts())
		require.Len(t, matches, 2)
		assert.Equal(t, "foreign", matches[0].Post.ID)
		assert.Equal(t, RuleTitleSubstring, matches[0].Rule)
		assert.Equal(t, "mine", matches[1].Post.ID)
		assert.Equal(t, RuleRecentUnclaimed, matches[1].Rule)
	})
}
