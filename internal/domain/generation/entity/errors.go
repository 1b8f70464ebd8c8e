package entity

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why a generation step failed
type ErrorKind string

const (
	ErrorKindValidationFailed        ErrorKind = "validation_failed"
	ErrorKindProviderAuthFailed      ErrorKind = "provider_auth_failed"
	ErrorKindProviderTransientFailed ErrorKind = "provider_transient_failed"
	ErrorKindProviderExhausted       ErrorKind = "provider_exhausted"
	ErrorKindPersistenceFailed       ErrorKind = "persistence_failed"
	ErrorKindDuplicateSkipped        ErrorKind = "duplicate_skipped"
	ErrorKindCancelled               ErrorKind = "cancelled"
)

// Domain errors for generation
var (
	ErrEmptyTopic        = errors.New("topic is required")
	ErrNoProviders       = errors.New("no generation providers configured")
	ErrProviderExhausted = errors.New("every generation provider failed, including the template fallback")
	ErrUnparseableOutput = errors.New("provider output could not be parsed into title, content and tags")
	ErrEmptyOutput       = errors.New("provider returned an empty response")
)

// ProviderError is a failed provider call with an HTTP-like status code.
// StatusCode is 0 when the failure happened before a response was received.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Kind reports whether the failure is an authorization failure or a transient one
func (e *ProviderError) Kind() ErrorKind {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrorKindProviderAuthFailed
	}
	return ErrorKindProviderTransientFailed
}

// ClassifyError maps any provider error to an ErrorKind. Errors that are not
// ProviderErrors are treated as transient.
func ClassifyError(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind()
	}
	return ErrorKindProviderTransientFailed
}
