package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trrhub/internal/assist"
	"trrhub/internal/platform/middleware"
	"trrhub/internal/transport/http/shared"
	pkgerrors "trrhub/pkg/errors"
)

// AssistService is the suggestion port the handler fronts.
type AssistService interface {
	GetSuggestion(ctx context.Context, req assist.Request) (assist.Response, error)
	Remaining(tenant string) int
}

// AssistHandler serves the suggestion endpoint.
type AssistHandler struct {
	service  AssistService
	logger   *slog.Logger
	validate middleware.JWTValidator
}

func NewAssistHandler(service AssistService, validate middleware.JWTValidator, logger *slog.Logger) *AssistHandler {
	return &AssistHandler{
		service:  service,
		logger:   logger,
		validate: validate,
	}
}

func (h *AssistHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validate, h.logger))
		r.Post("/api/v1/assist/suggest", h.handleSuggest)
		r.Get("/api/v1/assist/quota", h.handleQuota)
	})
}

func (h *AssistHandler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req assist.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeInvalidRequest, "invalid request body"))
		return
	}

	// Tenant scope comes from the token, never from the body.
	req.Context.OrganizationID = middleware.GetOrganizationID(ctx)

	resp, err := h.service.GetSuggestion(ctx, req)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeUnavailable) {
			h.logger.ErrorContext(ctx, "suggestion call failed",
				"type", req.Type, "error", err)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *AssistHandler) handleQuota(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetOrganizationID(r.Context())
	shared.WriteJSON(w, http.StatusOK, map[string]int{
		"remaining": h.service.Remaining(tenant),
	})
}
