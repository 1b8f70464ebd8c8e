package entity

import (
	"strings"
	"time"
)

// PublicationType is the caller's intent for a new post
type PublicationType string

const (
	PublicationTypeDraft    PublicationType = "draft"
	PublicationTypeSchedule PublicationType = "schedule"
	PublicationTypePublish  PublicationType = "publish"
)

// Valid reports whether t is a known publication type
func (t PublicationType) Valid() bool {
	switch t {
	case PublicationTypeDraft, PublicationTypeSchedule, PublicationTypePublish:
		return true
	}
	return false
}

// Status returns the post status a publication type produces
func (t PublicationType) Status() PostStatus {
	switch t {
	case PublicationTypeSchedule:
		return PostStatusScheduled
	case PublicationTypePublish:
		return PostStatusPublished
	default:
		return PostStatusDraft
	}
}

// PostStatus represents the lifecycle state of a post
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
)

// Post is a persisted article
type Post struct {
	ID              string     `json:"id"`
	StoreID         string     `json:"store_id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	Tags            []string   `json:"tags"`
	MetaDescription string     `json:"meta_description,omitempty"`
	Status          PostStatus `json:"status"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	ExternalID      string     `json:"external_id,omitempty"` // article ID on the publishing platform

	// Provenance of generated posts
	Topic                string `json:"topic,omitempty"`
	GenerationJobID      string `json:"generation_job_id,omitempty"`
	UsesFallbackProvider bool   `json:"uses_fallback_provider"`

	// Forced posts were created over an existing title and are exempt from title uniqueness
	Forced bool `json:"forced,omitempty"`

	SyncError string    `json:"sync_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TitleGuarded reports whether the post takes part in per-store title uniqueness
func (p *Post) TitleGuarded() bool {
	return p.Status != PostStatusDraft && !p.Forced
}

// NeedsSync returns true if the post should be pushed to the publishing platform
func (p *Post) NeedsSync() bool {
	return p.Status != PostStatusDraft && p.ExternalID == ""
}

// Validate checks the post fields and the status/date invariant
func (p *Post) Validate() error {
	if p.StoreID == "" {
		return ErrEmptyStoreID
	}
	if p.Title == "" {
		return ErrEmptyTitle
	}
	if p.Content == "" {
		return ErrEmptyContent
	}

	switch p.Status {
	case PostStatusDraft:
		if p.ScheduledAt != nil || p.PublishedAt != nil {
			return ErrDraftHasPublicationDate
		}
	case PostStatusScheduled:
		if p.ScheduledAt == nil || p.PublishedAt != nil {
			return ErrScheduleDateMismatch
		}
	case PostStatusPublished:
		if p.PublishedAt == nil || p.ScheduledAt != nil {
			return ErrScheduleDateMismatch
		}
	default:
		return ErrInvalidStatus
	}

	return nil
}

// TitleKey is the form titles are compared in: trimmed and case-insensitive
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
