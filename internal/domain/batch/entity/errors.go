package entity

import "errors"

// Domain errors for batch runs
var (
	ErrNoTopics       = errors.New("at least one topic is required")
	ErrEmptyStoreID   = errors.New("store ID is required")
	ErrEmptyRootTopic = errors.New("root topic is required")
	ErrTooManyTopics  = errors.New("too many topics in one batch")
	ErrRunNotFound    = errors.New("batch run not found")
)
