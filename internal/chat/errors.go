package chat

import (
	"errors"

	"yuchat/internal/repo"
)

// ErrValidation marks malformed input; the operation was not attempted.
var ErrValidation = errors.New("validation failure")

// Re-exported storage taxonomy so callers can branch without importing repo.
var (
	ErrNotFound    = repo.ErrNotFound
	ErrConstraint  = repo.ErrConstraint
	ErrUnavailable = repo.ErrUnavailable
)
