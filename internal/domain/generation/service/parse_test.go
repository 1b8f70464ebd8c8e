package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/neo-content/internal/domain/generation/entity"
)

func TestParseArticle(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		topic        string
		wantStrategy string
		wantTitle    string
		wantContent  string
		wantTags     []string
	}{
		{
			name:         "strict json",
			raw:          `{"title":"Boots 101","content":"Warm and dry.","tags":["Boots","#Winter"],"metaDescription":"All about boots."}`,
			topic:        "winter boots",
			wantStrategy: "strict_json",
			wantTitle:    "Boots 101",
			wantContent:  "Warm and dry.",
			wantTags:     []string{"boots", "winter"},
		},
		{
			name:         "json inside code fence with string tags",
			raw:          "```json\n{\"title\":\"Boots 101\",\"content\":\"Warm and dry.\",\"tags\":\"boots, winter , boots\"}\n```",
			topic:        "winter boots",
			wantStrategy: "strict_json",
			wantTitle:    "Boots 101",
			wantContent:  "Warm and dry.",
			wantTags:     []string{"boots", "winter"},
		},
		{
			name:         "prose around json with raw newlines",
			raw:          "Sure! Here is the article:\n{\"title\": \"Boots 101\", \"content\": \"Line one.\nLine two.\", \"tags\": [\"boots\"]}\nEnjoy.",
			topic:        "winter boots",
			wantStrategy: "regex_fields",
			wantTitle:    "Boots 101",
			wantContent:  "Line one.\nLine two.",
			wantTags:     []string{"boots"},
		},
		{
			name:         "brace balanced object with capitalised keys",
			raw:          "Output follows {\"Title\": \"Boots 101\", \"Content\": \"Body {with braces} inside.\"} done",
			topic:        "winter boots",
			wantStrategy: "balanced_json",
			wantTitle:    "Boots 101",
			wantContent:  "Body {with braces} inside.",
			wantTags:     []string{"winter", "boots"},
		},
		{
			name:         "markdown heading with hashtags",
			raw:          "# Boots 101\n\nStay warm this season with #boots and #winter.",
			topic:        "cold weather footwear",
			wantStrategy: "line_heuristics",
			wantTitle:    "Boots 101",
			wantContent:  "Stay warm this season with #boots and #winter.",
			wantTags:     []string{"boots", "winter"},
		},
		{
			name:         "labelled plain text",
			raw:          "Title: Boots 101\nTags: boots, snow\nMeta description: Short.\nFirst paragraph.\nSecond paragraph.",
			topic:        "winter boots",
			wantStrategy: "line_heuristics",
			wantTitle:    "Boots 101",
			wantContent:  "First paragraph.\nSecond paragraph.",
			wantTags:     []string{"boots", "snow"},
		},
		{
			name:         "missing tags are derived from the topic",
			raw:          `{"title":"Boots 101","content":"Warm and dry."}`,
			topic:        "the best winter boots",
			wantStrategy: "strict_json",
			wantTitle:    "Boots 101",
			wantContent:  "Warm and dry.",
			wantTags:     []string{"best", "winter", "boots"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, strategy, err := ParseArticle(tt.raw, tt.topic)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStrategy, strategy)
			assert.Equal(t, tt.wantTitle, a.Title)
			assert.Equal(t, tt.wantContent, a.Content)
			assert.Equal(t, tt.wantTags, a.Tags)
			assert.NotEmpty(t, a.MetaDescription)
		})
	}
}

func TestParseArticle_Failures(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{name: "empty", raw: "  \n ", wantErr: entity.ErrEmptyOutput},
		{name: "noise", raw: "???", wantErr: entity.ErrUnparseableOutput},
		{name: "json without content", raw: `{"title":"Only a title"}`, wantErr: entity.ErrUnparseableOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseArticle(tt.raw, "winter boots")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseArticle_MetaDescriptionIsDerived(t *testing.T) {
	content := "## Intro\\n\\nBoots keep your feet **warm** and dry in every season of the year. " +
		"Choosing the right pair depends on material, fit and the terrain you walk on most days of the week, " +
		"so take your time and compare."

	a, _, err := ParseArticle(`{"title":"Boots","content":"`+content+`"}`, "boots")
	require.NoError(t, err)

	assert.LessOrEqual(t, len([]rune(a.MetaDescription)), metaDescMaxLen+3)
	assert.True(t, strings.HasPrefix(a.MetaDescription, "Intro Boots keep your feet warm"))
	assert.NotContains(t, a.MetaDescription, "#")
	assert.NotContains(t, a.MetaDescription, "*")
}
