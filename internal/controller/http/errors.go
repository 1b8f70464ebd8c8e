package http

import (
	"errors"
	"net/http"

	batchentity "github.com/vadim/neo-content/internal/domain/batch/entity"
	genentity "github.com/vadim/neo-content/internal/domain/generation/entity"
	postentity "github.com/vadim/neo-content/internal/domain/post/entity"
	"github.com/vadim/neo-content/internal/httpx/response"
	"github.com/vadim/neo-content/internal/timezone"
)

var badRequestErrors = []error{
	genentity.ErrEmptyTopic,
	batchentity.ErrNoTopics,
	batchentity.ErrEmptyStoreID,
	batchentity.ErrEmptyRootTopic,
	batchentity.ErrTooManyTopics,
	postentity.ErrEmptyStoreID,
	postentity.ErrEmptyTitle,
	postentity.ErrEmptyContent,
	postentity.ErrInvalidPublicationType,
	postentity.ErrInvalidStatus,
	postentity.ErrScheduleDateMismatch,
	postentity.ErrDraftHasPublicationDate,
	timezone.ErrInvalidDate,
	timezone.ErrInvalidTime,
	timezone.ErrUnknownTimezone,
}

func handleDomainError(w http.ResponseWriter, err error) {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			response.BadRequest(w, err.Error())
			return
		}
	}

	switch {
	case errors.Is(err, postentity.ErrPostNotFound), errors.Is(err, batchentity.ErrRunNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, postentity.ErrDuplicatePost):
		response.Conflict(w, err.Error())
	case errors.Is(err, postentity.ErrPlatformRateLimited):
		response.Error(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, postentity.ErrPlatformUnauthorized):
		response.BadGateway(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}

func parsePublicationType(s string) (postentity.PublicationType, error) {
	if s == "" {
		return postentity.PublicationTypeDraft, nil
	}
	t := postentity.PublicationType(s)
	if !t.Valid() {
		return "", postentity.ErrInvalidPublicationType
	}
	return t, nil
}

func parsePostStatus(s string) (*postentity.PostStatus, error) {
	if s == "" {
		return nil, nil
	}
	status := postentity.PostStatus(s)
	switch status {
	case postentity.PostStatusDraft, postentity.PostStatusScheduled, postentity.PostStatusPublished:
		return &status, nil
	default:
		return nil, postentity.ErrInvalidStatus
	}
}
