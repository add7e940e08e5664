package storage

import pkgerrors "trrhub/pkg/errors"

var (
	// ErrNotFound keeps storage-specific 404s consistent across in-memory
	// and postgres implementations.
	ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
)
