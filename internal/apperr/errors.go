package apperr

import "errors"

var (
	// ErrNoIndex signals that the persisted index is absent or unreadable;
	// callers fall back to a full rebuild.
	ErrNoIndex = errors.New("no index")
)
