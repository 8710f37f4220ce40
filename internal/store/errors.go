package store

import "errors"

var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")

	// ErrUnavailable wraps connection-level failures of the backing store.
	ErrUnavailable = errors.New("store unavailable")
)
