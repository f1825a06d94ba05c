package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrInvalidFixture marks a provider fixture missing a field the sync cannot do without.
	ErrInvalidFixture = errors.New("invalid fixture")
)
