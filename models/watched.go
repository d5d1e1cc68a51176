package models

import "time"

// WatchedItem records a user having watched a movie or TV show
type WatchedItem struct {
	ID          int       `json:"id"`
	UserID      string    `json:"userId"`
	TMDBID      int       `json:"tmdbId"`
	Type        MediaType `json:"type"`
	WatchedDate string    `json:"watchedDate"` // YYYY-MM-DD
	Rating      int       `json:"rating"`      // 1-10
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WatchedFilter narrows a watched list query. Empty fields are ignored.
type WatchedFilter struct {
	Search   string // case-insensitive substring of notes
	DateFrom string // inclusive lower bound on watched date
	DateTo   string // inclusive upper bound on watched date
}
