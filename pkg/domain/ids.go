// Package domain holds the typed identifiers shared across the core.
// Distinct ID types keep tenant, user and review identifiers from being
// swapped at call sites; the compiler enforces what code review would miss.
package domain

import (
	"github.com/google/uuid"

	pkgerrors "trrhub/pkg/errors"
)

type (
	TenantID uuid.UUID
	UserID   uuid.UUID
	ReviewID uuid.UUID
)

func NewTenantID() TenantID { return TenantID(uuid.New()) }
func NewUserID() UserID     { return UserID(uuid.New()) }
func NewReviewID() ReviewID { return ReviewID(uuid.New()) }

func (id TenantID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string   { return uuid.UUID(id).String() }
func (id ReviewID) String() string { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ReviewID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeInvalidRequest, "%s id is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(err, pkgerrors.CodeInvalidRequest, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeInvalidRequest, "%s id must not be nil", kind)
	}
	return parsed, nil
}

func ParseTenantID(raw string) (TenantID, error) {
	parsed, err := parseUUID(raw, "tenant")
	return TenantID(parsed), err
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	return UserID(parsed), err
}

func ParseReviewID(raw string) (ReviewID, error) {
	parsed, err := parseUUID(raw, "review")
	return ReviewID(parsed), err
}
