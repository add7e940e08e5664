package testutil

import (
	"context"
	"net/http"

	"trrhub/internal/platform/middleware"
)

// WithAuth adds a user ID and tenant scope to the request context.
// This simulates what the auth middleware does for authenticated requests,
// so handlers can be exercised directly without a token round trip.
func WithAuth(req *http.Request, userID, orgID string) *http.Request {
	ctx := req.Context()
	if userID != "" {
		ctx = context.WithValue(ctx, middleware.ContextKeyUserID, userID)
	}
	if orgID != "" {
		ctx = context.WithValue(ctx, middleware.ContextKeyOrgID, orgID)
	}
	return req.WithContext(ctx)
}
