// Package errors defines the closed set of error codes the core exposes to
// callers. Heterogeneous collaborator failures (document store, suggestion
// service) are normalized into these codes at the boundary so transport and
// UI code never branch on collaborator-specific error shapes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	// CodeInvalidRequest marks caller-fixable input problems. Never retried.
	CodeInvalidRequest Code = "invalid_request"
	// CodeAuthRequired and CodePermissionDenied pass through collaborator
	// auth failures unchanged. Not retried.
	CodeAuthRequired     Code = "auth_required"
	CodePermissionDenied Code = "permission_denied"
	// CodeRateLimited carries a retry hint; callers should back off.
	CodeRateLimited Code = "rate_limited"
	// CodeUnavailable marks transient collaborator failures. Callers may
	// retry with backoff; the core never retries internally.
	CodeUnavailable Code = "unavailable"
	CodeNotFound    Code = "not_found"
	CodeConflict    Code = "conflict"
	// CodeInternal marks programmer errors (e.g. an event failing
	// validation before persist). Not user-facing.
	CodeInternal Code = "internal"
)

// PortalError is the error type crossing the core's boundary.
type PortalError struct {
	Code    Code
	Message string
	// Hint is a human-readable recovery suggestion, set for rate-limited
	// and unavailable errors.
	Hint  string
	cause error
}

func (e *PortalError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PortalError) Unwrap() error { return e.cause }

func New(code Code, message string) *PortalError {
	return &PortalError{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *PortalError {
	return &PortalError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error while keeping the
// cause reachable through errors.Is/As.
func Wrap(err error, code Code, message string) *PortalError {
	return &PortalError{Code: code, Message: message, cause: err}
}

// WithHint returns a copy carrying a human-readable recovery hint.
func (e *PortalError) WithHint(hint string) *PortalError {
	c := *e
	c.Hint = hint
	return &c
}

// CodeOf extracts the portal code from an error chain, defaulting to
// CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var pe *PortalError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}

func HasCode(err error, code Code) bool {
	var pe *PortalError
	return errors.As(err, &pe) && pe.Code == code
}

// HintOf returns the recovery hint from an error chain, if any.
func HintOf(err error) string {
	var pe *PortalError
	if errors.As(err, &pe) {
		return pe.Hint
	}
	return ""
}

// ToHTTPStatus keeps the transport translation in one place.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeAuthRequired:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
