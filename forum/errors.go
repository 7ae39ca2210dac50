package forum

import "errors"

// Sentinel errors shared by the store, view and service layers. Wrap them
// with fmt.Errorf("...: %w") and match with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
)
