package models

// WatchlistItem records a user's intent to watch a movie or TV show
type WatchlistItem struct {
	ID        int       `json:"id"`
	UserID    string    `json:"userId"`
	TMDBID    int       `json:"tmdbId"`
	Type      MediaType `json:"type"`
	AddedDate string    `json:"addedDate"` // YYYY-MM-DD
}
