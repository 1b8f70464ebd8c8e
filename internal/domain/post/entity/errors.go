package entity

import "errors"

// Domain errors for posts
var (
	// Validation errors
	ErrEmptyStoreID            = errors.New("store ID is required")
	ErrEmptyTitle              = errors.New("title is required")
	ErrEmptyContent            = errors.New("content is required")
	ErrInvalidPublicationType  = errors.New("invalid publication type")
	ErrInvalidStatus           = errors.New("invalid post status")
	ErrScheduleDateMismatch    = errors.New("exactly one of scheduled_at and published_at must be set for the post status")
	ErrDraftHasPublicationDate = errors.New("draft posts cannot carry scheduled_at or published_at")

	// Business logic errors
	ErrPostNotFound  = errors.New("post not found")
	ErrDuplicatePost = errors.New("post with the same title or external ID already exists for this store")

	// Publishing platform errors
	ErrPlatformNotConfigured = errors.New("publishing platform is not configured")
	ErrPlatformUnauthorized  = errors.New("publishing platform access token is invalid or expired")
	ErrPlatformRateLimited   = errors.New("publishing platform rate limit exceeded")
	ErrStoreNotConnected     = errors.New("store is not connected to the publishing platform")
)

// ErrPersistenceFailed wraps storage failures so callers can tell them from validation errors
var ErrPersistenceFailed = errors.New("post could not be saved")
