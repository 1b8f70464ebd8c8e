package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	postentity "github.com/vadim/neo-content/internal/domain/post/entity"
	postpolicy "github.com/vadim/neo-content/internal/domain/post/policy"
	postservice "github.com/vadim/neo-content/internal/domain/post/service"
	"github.com/vadim/neo-content/internal/httpx/response"
)

// PostPolicy defines the interface for post use-cases that reach the publishing platform
type PostPolicy interface {
	CreatePost(ctx context.Context, in postservice.CreateInput) (*postpolicy.CreatePostOutput, error)
	SyncPosts(ctx context.Context, ids []string) postpolicy.SyncReport
	SyncPending(ctx context.Context, limit int) (postpolicy.SyncReport, error)
}

// PostReader defines the interface for reading posts
type PostReader interface {
	GetPost(ctx context.Context, id string) (*postentity.Post, error)
	ListPosts(ctx context.Context, in postservice.ListInput) ([]postentity.Post, error)
}

// PostHandler handles HTTP requests for posts
type PostHandler struct {
	policy PostPolicy
	reader PostReader
}

// NewPostHandler creates a new post handler
func NewPostHandler(p PostPolicy, reader PostReader) *PostHandler {
	return &PostHandler{policy: p, reader: reader}
}

// RegisterRoutes registers post routes
func (h *PostHandler) RegisterRoutes(r chi.Router) {
	r.Route("/posts", func(r chi.Router) {
		r.Post("/", h.Create())
		r.Get("/", h.List())
		r.Post("/sync", h.Sync())
		r.Get("/{id}", h.Get())
	})
}

// CreatePostRequest represents the request body for creating a post
type CreatePostRequest struct {
	StoreID         string   `json:"store_id"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Tags            []string `json:"tags"`
	MetaDescription string   `json:"meta_description"`
	Type            string   `json:"type"` // draft, schedule, publish
	ExternalID      string   `json:"external_id"`
	ScheduleDate    string   `json:"schedule_date"` // YYYY-MM-DD in the store timezone
	ScheduleTime    string   `json:"schedule_time"` // HH:MM in the store timezone
	ForceCreate     bool     `json:"force_create"`
}

// CreatePostResponse represents the outcome of a create call
type CreatePostResponse struct {
	Post            *postentity.Post `json:"post,omitempty"`
	Duplicate       bool             `json:"duplicate"`
	DuplicateOf     string           `json:"duplicate_of,omitempty"`
	ScheduleWarning string           `json:"schedule_warning,omitempty"`
	SyncError       string           `json:"sync_error,omitempty"`
}

// Create handles POST /posts
func (h *PostHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		pubType, err := parsePublicationType(req.Type)
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		out, err := h.policy.CreatePost(r.Context(), postservice.CreateInput{
			StoreID:         req.StoreID,
			Title:           req.Title,
			Content:         req.Content,
			Tags:            req.Tags,
			MetaDescription: req.MetaDescription,
			Type:            pubType,
			ExternalID:      req.ExternalID,
			ScheduleDate:    req.ScheduleDate,
			ScheduleTime:    req.ScheduleTime,
			ForceCreate:     req.ForceCreate,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := CreatePostResponse{
			Post:            out.Post,
			Duplicate:       out.Duplicate,
			DuplicateOf:     out.DuplicateOf,
			ScheduleWarning: out.ScheduleWarning,
			SyncError:       out.SyncError,
		}
		// A duplicate is a reported outcome, not an error
		if out.Duplicate {
			response.OK(w, resp)
			return
		}
		response.Created(w, resp)
	}
}

// Get handles GET /posts/{id}
func (h *PostHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := h.reader.GetPost(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, post)
	}
}

// ListPostsResponse represents a page of posts
type ListPostsResponse struct {
	Posts  []postentity.Post `json:"posts"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// List handles GET /posts
func (h *PostHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		storeID := q.Get("store_id")
		if storeID == "" {
			response.BadRequest(w, "store_id is required")
			return
		}

		status, err := parsePostStatus(q.Get("status"))
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		if offset < 0 {
			offset = 0
		}

		in := postservice.ListInput{
			StoreID:         storeID,
			Status:          status,
			GenerationJobID: q.Get("generation_job_id"),
			Limit:           limit,
			Offset:          offset,
		}
		posts, err := h.reader.ListPosts(r.Context(), in)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		if posts == nil {
			posts = []postentity.Post{}
		}

		if limit <= 0 || limit > 100 {
			limit = 20
		}
		response.OK(w, ListPostsResponse{Posts: posts, Limit: limit, Offset: offset})
	}
}

// SyncRequest represents the request body for a platform sync.
// Without IDs, pending posts are retried.
type SyncRequest struct {
	IDs   []string `json:"ids"`
	Limit int      `json:"limit"`
}

// Sync handles POST /posts/sync
func (h *PostHandler) Sync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(w, "invalid JSON")
			return
		}

		if len(req.IDs) > 0 {
			response.OK(w, h.policy.SyncPosts(r.Context(), req.IDs))
			return
		}

		limit := req.Limit
		if limit <= 0 || limit > 100 {
			limit = 50
		}
		report, err := h.policy.SyncPending(r.Context(), limit)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, report)
	}
}
