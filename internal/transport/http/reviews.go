package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"trrhub/internal/platform/middleware"
	"trrhub/internal/review"
	"trrhub/internal/timeline"
	"trrhub/internal/transport/http/shared"
	pkgerrors "trrhub/pkg/errors"
)

const defaultTimelineLimit = 100

// ReviewService is the slice of the review service the handler needs.
type ReviewService interface {
	Create(ctx context.Context, userID string, form timeline.Snapshot) (string, error)
	Update(ctx context.Context, userID, id string, patch timeline.Snapshot) error
	Delete(ctx context.Context, userID, id string) error
	Get(ctx context.Context, id string) (timeline.Snapshot, error)
	List(filters review.Filters) []review.Entity
}

// TimelineReader lists persisted events for the timeline endpoints.
type TimelineReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]timeline.Event, error)
	ListByObject(ctx context.Context, objectType, objectID string, limit int) ([]timeline.Event, error)
}

// ReviewHandler serves the review CRUD and timeline endpoints.
type ReviewHandler struct {
	reviews  ReviewService
	events   TimelineReader
	logger   *slog.Logger
	validate middleware.JWTValidator
}

func NewReviewHandler(reviews ReviewService, events TimelineReader, validate middleware.JWTValidator, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews:  reviews,
		events:   events,
		logger:   logger,
		validate: validate,
	}
}

// Register mounts the review routes behind authentication.
func (h *ReviewHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validate, h.logger))
		r.Route("/api/v1/reviews", func(r chi.Router) {
			r.Post("/", h.handleCreate)
			r.Get("/", h.handleList)
			r.Get("/{id}", h.handleGet)
			r.Patch("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
			r.Get("/{id}/timeline", h.handleObjectTimeline)
		})
		r.Get("/api/v1/timeline", h.handleUserTimeline)
	})
}

func (h *ReviewHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var form timeline.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeInvalidRequest, "invalid request body"))
		return
	}

	id, err := h.reviews.Create(ctx, userID, form)
	if err != nil {
		h.logger.ErrorContext(ctx, "create review failed", "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *ReviewHandler) handleList(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"reviews": h.reviews.List(filtersFromQuery(r)),
	})
}

func (h *ReviewHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshot, err := h.reviews.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snapshot)
}

func (h *ReviewHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	id := chi.URLParam(r, "id")

	var patch timeline.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeInvalidRequest, "invalid request body"))
		return
	}

	if err := h.reviews.Update(ctx, userID, id, patch); err != nil {
		if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "update review failed", "review_id", id, "error", err)
		}
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	id := chi.URLParam(r, "id")

	if err := h.reviews.Delete(ctx, userID, id); err != nil {
		if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "delete review failed", "review_id", id, "error", err)
		}
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewHandler) handleObjectTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := h.events.ListByObject(ctx, "review", chi.URLParam(r, "id"), limitFromQuery(r))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *ReviewHandler) handleUserTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = middleware.GetUserID(ctx)
	}
	events, err := h.events.ListByUser(ctx, userID, limitFromQuery(r))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func filtersFromQuery(r *http.Request) review.Filters {
	q := r.URL.Query()
	filters := review.Filters{
		Status:     csvValues(q.Get("status")),
		Priority:   csvValues(q.Get("priority")),
		AssignedTo: q.Get("assignedTo"),
		Tags:       csvValues(q.Get("tags")),
		Query:      q.Get("q"),
		SortBy:     q.Get("sortBy"),
	}
	if q.Get("order") == "asc" {
		filters.SortOrder = review.SortAsc
	}
	return filters
}

// csvValues splits a comma-separated query parameter into a slice,
// returning nil for an absent or empty parameter so the filter stays
// unconstrained.
func csvValues(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func limitFromQuery(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			return limit
		}
	}
	return defaultTimelineLimit
}
