package entity

import (
	"strings"
)

// Tone holds the style knobs applied to every article in a run
type Tone struct {
	Voice     string `json:"voice,omitempty"`
	Audience  string `json:"audience,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
	Language  string `json:"language,omitempty"`
}

// Request is one topic to generate. It is built per topic at run start and never mutated.
type Request struct {
	Topic         string
	StylePrompt   string
	Tone          Tone
	Keywords      []string
	RelatedTopics []string // sibling articles the content should reference
}

// Validate checks caller-level input
func (r Request) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return ErrEmptyTopic
	}
	return nil
}

// Article is the parsed output of a provider
type Article struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Tags            []string `json:"tags"`
	MetaDescription string   `json:"metaDescription,omitempty"`
}

// Result is the outcome for one topic: Success (Article set) or Failure (Failure set).
type Result struct {
	Article              *Article
	Provider             string
	UsesFallbackProvider bool

	Failure *Failure
}

// Failure describes why no article was produced
type Failure struct {
	Reason ErrorKind
	Detail string
}

// Succeeded reports whether the result carries an article
func (r Result) Succeeded() bool {
	return r.Article != nil && r.Failure == nil
}

// NewSuccess creates a successful result
func NewSuccess(a Article, provider string, usesFallback bool) Result {
	return Result{Article: &a, Provider: provider, UsesFallbackProvider: usesFallback}
}

// NewFailure creates a failed result
func NewFailure(reason ErrorKind, detail string) Result {
	return Result{Failure: &Failure{Reason: reason, Detail: detail}}
}
