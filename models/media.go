// Package models defines the data structures used throughout the application.
package models

// MediaType represents the kind of media an item refers to
type MediaType string

// Media type constants
const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// Valid reports whether t is one of the supported media types.
// The comparison is exact, so "Movie" or "TV" are rejected.
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeTV
}

// DateLayout is the calendar date format used for watched and added dates
const DateLayout = "2006-01-02"
