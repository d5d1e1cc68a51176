package models

// MediaSummary is a search result from the metadata provider, unified across movies and TV shows
type MediaSummary struct {
	ID          int       `json:"id"`
	Type        MediaType `json:"type"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview"`
	ReleaseDate string    `json:"releaseDate,omitempty"`
	PosterPath  string    `json:"posterPath,omitempty"`
	VoteAverage float64   `json:"voteAverage"`
}

// MediaDetail is the full record for a single movie or TV show
type MediaDetail struct {
	MediaSummary
	BackdropPath     string   `json:"backdropPath,omitempty"`
	VoteCount        int      `json:"voteCount"`
	OriginalLanguage string   `json:"originalLanguage,omitempty"`
	Genres           []string `json:"genres"`
	Runtime          int      `json:"runtime,omitempty"`          // movies, in minutes
	NumberOfSeasons  int      `json:"numberOfSeasons,omitempty"`  // tv
	NumberOfEpisodes int      `json:"numberOfEpisodes,omitempty"` // tv
	IMDBID           string   `json:"imdbId,omitempty"`
}
