package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/neo-content/internal/httpx/response"
	"github.com/vadim/neo-content/internal/timezone"
)

// ScheduleResolver defines the interface for resolving store-local schedules
type ScheduleResolver interface {
	ResolveForStore(ctx context.Context, storeID, localDate, localTime string) (timezone.Resolution, error)
	ResolveInZone(localDate, localTime, ianaTimezone string) (timezone.Resolution, error)
}

// ScheduleHandler handles HTTP requests for schedule resolution
type ScheduleHandler struct {
	resolver ScheduleResolver
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(r ScheduleResolver) *ScheduleHandler {
	return &ScheduleHandler{resolver: r}
}

// RegisterRoutes registers schedule routes
func (h *ScheduleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/schedule", func(r chi.Router) {
		r.Post("/resolve", h.Resolve())
		r.Get("/tomorrow", h.Tomorrow())
	})
}

// ResolveRequest represents a local schedule to resolve. An explicit timezone
// takes precedence over the store's zone.
type ResolveRequest struct {
	StoreID  string `json:"store_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

// Resolve handles POST /schedule/resolve
func (h *ScheduleHandler) Resolve() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}
		h.resolve(w, r, req)
	}
}

// Tomorrow handles GET /schedule/tomorrow?timezone=... or ?store_id=...
func (h *ScheduleHandler) Tomorrow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		h.resolve(w, r, ResolveRequest{StoreID: q.Get("store_id"), Timezone: q.Get("timezone")})
	}
}

func (h *ScheduleHandler) resolve(w http.ResponseWriter, r *http.Request, req ResolveRequest) {
	var (
		res timezone.Resolution
		err error
	)
	switch {
	case req.Timezone != "":
		res, err = h.resolver.ResolveInZone(req.Date, req.Time, req.Timezone)
	case req.StoreID != "":
		res, err = h.resolver.ResolveForStore(r.Context(), req.StoreID, req.Date, req.Time)
	default:
		response.BadRequest(w, "timezone or store_id is required")
		return
	}
	if err != nil {
		handleDomainError(w, err)
		return
	}
	response.OK(w, res)
}
