package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	batchentity "github.com/vadim/neo-content/internal/domain/batch/entity"
	batchpolicy "github.com/vadim/neo-content/internal/domain/batch/policy"
	genentity "github.com/vadim/neo-content/internal/domain/generation/entity"
	"github.com/vadim/neo-content/internal/httpx/response"
)

// ArticleGenerator defines the interface for one-off article generation
type ArticleGenerator interface {
	Generate(ctx context.Context, req genentity.Request) genentity.Result
}

// BatchOrchestrator defines the interface for bulk and cluster runs.
// Interface is defined by consumer (handler), not provider (policy)
type BatchOrchestrator interface {
	RunBulk(ctx context.Context, in batchpolicy.BulkInput) (*batchentity.Run, error)
	StartCluster(ctx context.Context, in batchpolicy.ClusterInput) (*batchentity.Run, error)
	GetRun(ctx context.Context, id string) (*batchentity.Run, error)
	ListRuns(ctx context.Context, storeID string, limit int) ([]batchentity.Run, error)
	ListActive(ctx context.Context, storeID string) ([]batchentity.Run, error)
}

// GenerationHandler handles HTTP requests for article generation
type GenerationHandler struct {
	generator    ArticleGenerator
	orchestrator BatchOrchestrator
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(g ArticleGenerator, o BatchOrchestrator) *GenerationHandler {
	return &GenerationHandler{generator: g, orchestrator: o}
}

// RegisterRoutes registers generation routes
func (h *GenerationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/generations", func(r chi.Router) {
		r.Post("/preview", h.Preview())
		r.Post("/bulk", h.Bulk())
		r.Post("/clusters", h.StartCluster())
		r.Get("/clusters", h.ListClusters())
		r.Get("/clusters/{id}", h.GetCluster())
	})
}

// ToneRequest represents style knobs in requests
type ToneRequest struct {
	Voice     string `json:"voice"`
	Audience  string `json:"audience"`
	WordCount int    `json:"wordCount"`
	Language  string `json:"language"`
}

func (t ToneRequest) toEntity() genentity.Tone {
	return genentity.Tone{Voice: t.Voice, Audience: t.Audience, WordCount: t.WordCount, Language: t.Language}
}

// PreviewRequest represents the request body for a single-topic preview
type PreviewRequest struct {
	Topic         string      `json:"topic"`
	StylePrompt   string      `json:"stylePrompt"`
	Tone          ToneRequest `json:"tone"`
	Keywords      []string    `json:"keywords"`
	RelatedTopics []string    `json:"relatedTopics"`
}

// PreviewResponse represents a generated article that was not persisted
type PreviewResponse struct {
	Success              bool     `json:"success"`
	Title                string   `json:"title,omitempty"`
	Content              string   `json:"content,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	MetaDescription      string   `json:"metaDescription,omitempty"`
	Provider             string   `json:"provider,omitempty"`
	UsesFallbackProvider bool     `json:"usesFallbackProvider"`
	Reason               string   `json:"reason,omitempty"`
	Error                string   `json:"error,omitempty"`
}

// Preview handles POST /generations/preview
func (h *GenerationHandler) Preview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PreviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		res := h.generator.Generate(r.Context(), genentity.Request{
			Topic:         req.Topic,
			StylePrompt:   req.StylePrompt,
			Tone:          req.Tone.toEntity(),
			Keywords:      req.Keywords,
			RelatedTopics: req.RelatedTopics,
		})

		if !res.Succeeded() {
			out := PreviewResponse{Reason: string(res.Failure.Reason), Error: res.Failure.Detail}
			code := http.StatusBadGateway
			if res.Failure.Reason == genentity.ErrorKindValidationFailed {
				code = http.StatusBadRequest
			}
			response.JSON(w, code, out)
			return
		}

		response.OK(w, PreviewResponse{
			Success:              true,
			Title:                res.Article.Title,
			Content:              res.Article.Content,
			Tags:                 res.Article.Tags,
			MetaDescription:      res.Article.MetaDescription,
			Provider:             res.Provider,
			UsesFallbackProvider: res.UsesFallbackProvider,
		})
	}
}

// SettingsRequest holds the fields shared by bulk and cluster requests
type SettingsRequest struct {
	StoreID      string      `json:"storeId"`
	StylePrompt  string      `json:"stylePrompt"`
	Tone         ToneRequest `json:"tone"`
	Keywords     []string    `json:"keywords"`
	Type         string      `json:"type"` // draft, schedule, publish
	ScheduleDate string      `json:"scheduleDate"`
	ScheduleTime string      `json:"scheduleTime"`
	ForceCreate  bool        `json:"forceCreate"`
}

func (s SettingsRequest) toSettings() (batchpolicy.Settings, error) {
	pubType, err := parsePublicationType(s.Type)
	if err != nil {
		return batchpolicy.Settings{}, err
	}
	return batchpolicy.Settings{
		StoreID:      s.StoreID,
		StylePrompt:  s.StylePrompt,
		Tone:         s.Tone.toEntity(),
		Keywords:     s.Keywords,
		Type:         pubType,
		ScheduleDate: s.ScheduleDate,
		ScheduleTime: s.ScheduleTime,
		ForceCreate:  s.ForceCreate,
	}, nil
}

// BulkRequest represents the request body for a bulk run
type BulkRequest struct {
	SettingsRequest
	Topics []string `json:"topics"`
}

// Bulk handles POST /generations/bulk
func (h *GenerationHandler) Bulk() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		settings, err := req.toSettings()
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		run, err := h.orchestrator.RunBulk(r.Context(), batchpolicy.BulkInput{Settings: settings, Topics: req.Topics})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, run.Response())
	}
}

// ClusterRequest represents the request body for a cluster run
type ClusterRequest struct {
	SettingsRequest
	RootTopic string   `json:"rootTopic"`
	Subtopics []string `json:"subtopics"`
	Size      int      `json:"size"`
}

// ClusterResponse is a cluster run snapshot with its generation job
type ClusterResponse struct {
	batchentity.Response
	RootTopic string          `json:"rootTopic"`
	Job       batchentity.Job `json:"job"`
	Deadline  string          `json:"deadline"`
}

func clusterResponse(run *batchentity.Run) ClusterResponse {
	return ClusterResponse{
		Response:  run.Response(),
		RootTopic: run.RootTopic,
		Job:       run.Job,
		Deadline:  run.Deadline.Format(time.RFC3339),
	}
}

// StartCluster handles POST /generations/clusters
func (h *GenerationHandler) StartCluster() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClusterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		settings, err := req.toSettings()
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		run, err := h.orchestrator.StartCluster(r.Context(), batchpolicy.ClusterInput{
			Settings:  settings,
			RootTopic: req.RootTopic,
			Subtopics: req.Subtopics,
			Size:      req.Size,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		w.Header().Set("Location", "/api/v1/generations/clusters/"+run.ID)
		response.Accepted(w, clusterResponse(run))
	}
}

// GetCluster handles GET /generations/clusters/{id}
func (h *GenerationHandler) GetCluster() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := h.orchestrator.GetRun(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, clusterResponse(run))
	}
}

// ListClusters handles GET /generations/clusters
func (h *GenerationHandler) ListClusters() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		storeID := q.Get("store_id")
		if storeID == "" {
			response.BadRequest(w, "store_id is required")
			return
		}

		var (
			runs []batchentity.Run
			err  error
		)
		if q.Get("active") == "true" {
			runs, err = h.orchestrator.ListActive(r.Context(), storeID)
		} else {
			limit, _ := strconv.Atoi(q.Get("limit"))
			runs, err = h.orchestrator.ListRuns(r.Context(), storeID, limit)
		}
		if err != nil {
			handleDomainError(w, err)
			return
		}

		out := make([]ClusterResponse, 0, len(runs))
		for i := range runs {
			if runs[i].Mode != batchentity.ModeCluster {
				continue
			}
			out = append(out, clusterResponse(&runs[i]))
		}
		response.OK(w, map[string]any{"runs": out})
	}
}
