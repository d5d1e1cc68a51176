// Package lists implements the watched and watchlist operations: input
// validation, owner scoping, duplicate detection and partial-update merging.
package lists

import (
	"errors"

	"marquee/repository"
)

var (
	// ErrUnauthorized is returned when an operation is attempted without a caller
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when the item does not exist or is owned by someone else
	ErrNotFound = errors.New("item not found")
	// ErrConflict is returned when a watchlist entry already exists
	ErrConflict = errors.New("item already in watchlist")
)

// Validation messages returned to callers
const (
	msgMissingWatched   = "Missing required fields: tmdbId, type, watchedDate, rating"
	msgMissingWatchlist = "Missing required fields: tmdbId, type, addedDate"
	msgInvalidType      = "Invalid type. Must be 'movie' or 'tv'"
	msgInvalidRating    = "Rating must be between 1 and 10"
	msgInvalidDate      = "Invalid date. Must be YYYY-MM-DD"
	msgInvalidTMDBID    = "Invalid tmdbId. Must be a positive integer"
)

// ValidationError describes input that was missing, malformed or out of range
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrorKind classifies an error returned by this package
type ErrorKind int

// Error kinds
const (
	KindUpstream ErrorKind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	default:
		return "UPSTREAM_ERROR"
	}
}

// KindOf returns the kind of err. Anything unrecognised is an upstream failure.
func KindOf(err error) ErrorKind {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return KindValidation
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindUpstream
	}
}

// translate maps repository sentinels onto this package's errors
func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrConflict
	default:
		return err
	}
}
