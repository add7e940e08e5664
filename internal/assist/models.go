// Package assist wraps the upstream suggestion service with validation,
// response caching, and per-tenant rate limiting.
package assist

import (
	"trrhub/internal/timeline"
	pkgerrors "trrhub/pkg/errors"
)

// SuggestionType names the form field a suggestion targets.
type SuggestionType string

const (
	SuggestionTitle       SuggestionType = "title"
	SuggestionDescription SuggestionType = "description"
	SuggestionScenario    SuggestionType = "scenario"
	SuggestionMitigation  SuggestionType = "mitigation"
	SuggestionLabels      SuggestionType = "labels"
)

// RequestContext scopes a suggestion request to a tenant and, optionally,
// a project within it.
type RequestContext struct {
	OrganizationID string `json:"organizationId"`
	ProjectID      string `json:"projectId,omitempty"`
	WorkflowStage  string `json:"workflowStage,omitempty"`
}

// Request is the input envelope for one suggestion call.
type Request struct {
	Type     SuggestionType    `json:"type"`
	FormData timeline.Snapshot `json:"formData"`
	Context  RequestContext    `json:"context"`
}

// Validate fails fast on a malformed request before any quota is touched.
func (r Request) Validate() error {
	if r.Type == "" {
		return pkgerrors.New(pkgerrors.CodeInvalidRequest, "suggestion type is required")
	}
	if len(r.FormData) == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidRequest, "form data is required")
	}
	if r.Context.OrganizationID == "" {
		return pkgerrors.New(pkgerrors.CodeInvalidRequest, "organization id is required")
	}
	return nil
}

// Response is what the upstream suggestion service produced.
type Response struct {
	Suggestions []string `json:"suggestions"`
	Confidence  float64  `json:"confidence,omitempty"`
	Rationale   string   `json:"rationale,omitempty"`
	Model       string   `json:"model,omitempty"`
	TokensUsed  int      `json:"tokensUsed,omitempty"`
}
