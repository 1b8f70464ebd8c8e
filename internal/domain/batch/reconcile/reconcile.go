// Package reconcile attributes newly created posts to the pending topics of a cluster run.
package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/vadim/neo-content/internal/domain/batch/entity"
	postentity "github.com/vadim/neo-content/internal/domain/post/entity"
	"github.com/vadim/neo-content/internal/textutil"
)

// Rule names the heuristic that produced a match
type Rule string

const (
	RuleCorrelation     Rule = "correlation_id"
	RuleTitleSubstring  Rule = "title_substring"
	RuleTitleWords      Rule = "title_words"
	RuleContentWords    Rule = "content_words"
	RuleRecentUnclaimed Rule = "recent_unclaimed"
)

// Options tunes matching
type Options struct {
	// CorrelationMatching enables matching on the job ID stamped on posts
	// and excludes posts stamped by other runs from the text heuristics.
	CorrelationMatching bool
	// RecentClaimWindow bounds how old an unclaimed post may be for the last-resort rule
	RecentClaimWindow time.Duration
	Now               time.Time
}

// Match is one post attributed to one topic entry
type Match struct {
	EntryIndex int
	Post       postentity.Post
	Rule       Rule
}

type matcher struct {
	rule Rule
	fn   func(topic string, p postentity.Post) bool
}

// Attribute assigns candidate posts to the pending entries of run. Rules are tried
// in precedence order, each over every pending topic in input order, so a strong
// match is never taken by a weaker rule on an earlier topic. A post is used at most
// once, and posts the run already claimed are never considered.
func Attribute(run *entity.Run, candidates []postentity.Post, opts Options) []Match {
	pending := run.PendingIndexes()
	if len(pending) == 0 {
		return nil
	}

	available := make([]postentity.Post, 0, len(candidates))
	for _, p := range candidates {
		if run.IsClaimed(p.ID) {
			continue
		}
		if opts.CorrelationMatching && p.GenerationJobID != "" && p.GenerationJobID != run.ID {
			continue
		}
		available = append(available, p)
	}
	sort.SliceStable(available, func(i, j int) bool {
		return available[i].CreatedAt.Before(available[j].CreatedAt)
	})

	used := make(map[string]bool)
	matched := make(map[int]bool)
	var out []Match

	for _, m := range matchers(run.ID, opts) {
		for _, idx := range pending {
			if matched[idx] {
				continue
			}
			topic := run.Entries[idx].Topic
			for _, p := range available {
				if used[p.ID] || !m.fn(topic, p) {
					continue
				}
				used[p.ID] = true
				matched[idx] = true
				out = append(out, Match{EntryIndex: idx, Post: p, Rule: m.rule})
				break
			}
		}
	}

	// Last resort: the oldest recent unclaimed post goes to the oldest pending topic.
	cutoff := opts.Now.Add(-opts.RecentClaimWindow)
	for _, idx := range pending {
		if matched[idx] {
			continue
		}
		for _, p := range available {
			if used[p.ID] || p.CreatedAt.Before(cutoff) {
				continue
			}
			used[p.ID] = true
			matched[idx] = true
			out = append(out, Match{EntryIndex: idx, Post: p, Rule: RuleRecentUnclaimed})
			break
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EntryIndex < out[j].EntryIndex })
	return out
}

func matchers(runID string, opts Options) []matcher {
	var ms []matcher
	if opts.CorrelationMatching {
		ms = append(ms, matcher{rule: RuleCorrelation, fn: func(topic string, p postentity.Post) bool {
			return p.GenerationJobID == runID && postentity.TitleKey(p.Topic) == postentity.TitleKey(topic)
		}})
	}
	return append(ms,
		matcher{rule: RuleTitleSubstring, fn: titleContainsTopic},
		matcher{rule: RuleTitleWords, fn: titleHasTopicWords},
		matcher{rule: RuleContentWords, fn: contentHasTopicWord},
	)
}

func titleContainsTopic(topic string, p postentity.Post) bool {
	t := strings.ToLower(strings.TrimSpace(topic))
	return t != "" && strings.Contains(strings.ToLower(p.Title), t)
}

func titleHasTopicWords(topic string, p postentity.Post) bool {
	words := textutil.ContentWords(topic)
	need := min(2, len(words))
	if need == 0 {
		return false
	}
	title := strings.ToLower(p.Title)
	found := 0
	for _, w := range words {
		if strings.Contains(title, w) {
			found++
		}
	}
	return found >= need
}

func contentHasTopicWord(topic string, p postentity.Post) bool {
	content := strings.ToLower(p.Content)
	for _, w := range textutil.ContentWords(topic) {
		if strings.Contains(content, w) {
			return true
		}
	}
	return false
}
