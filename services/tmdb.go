// Package services provides external service integrations.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"marquee/models"
)

// DefaultTMDBBaseURL is the public TMDB v3 endpoint
const DefaultTMDBBaseURL = "https://api.themoviedb.org/3"

// ErrUpstream is matched by every failure that originates at the metadata provider
var ErrUpstream = errors.New("metadata provider error")

// UpstreamError carries the provider's HTTP status when there is one
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("TMDB API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("TMDB request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is reports every UpstreamError as ErrUpstream
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// TMDBService handles interactions with The Movie Database API
type TMDBService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// tmdbResult covers both movie and tv payloads; tv uses name and first_air_date
type tmdbResult struct {
	ID               int         `json:"id"`
	Title            string      `json:"title"`
	Name             string      `json:"name"`
	Overview         string      `json:"overview"`
	ReleaseDate      string      `json:"release_date"`
	FirstAirDate     string      `json:"first_air_date"`
	PosterPath       string      `json:"poster_path"`
	BackdropPath     string      `json:"backdrop_path"`
	VoteAverage      float64     `json:"vote_average"`
	VoteCount        int         `json:"vote_count"`
	OriginalLanguage string      `json:"original_language"`
	Genres           []tmdbGenre `json:"genres"`
	Runtime          int         `json:"runtime"`
	NumberOfSeasons  int         `json:"number_of_seasons"`
	NumberOfEpisodes int         `json:"number_of_episodes"`
	IMDBID           string      `json:"imdb_id"`
}

type tmdbGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type tmdbSearchResponse struct {
	Page         int          `json:"page"`
	TotalPages   int          `json:"total_pages"`
	TotalResults int          `json:"total_results"`
	Results      []tmdbResult `json:"results"`
}

// NewTMDBService creates a new TMDB service instance. An empty baseURL
// falls back to DefaultTMDBBaseURL.
func NewTMDBService(apiKey, baseURL string, timeout time.Duration) *TMDBService {
	if baseURL == "" {
		baseURL = DefaultTMDBBaseURL
	}
	return &TMDBService{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// SearchByTitle searches movies or TV shows by free-text query
func (t *TMDBService) SearchByTitle(ctx context.Context, kind models.MediaType, query string) ([]models.MediaSummary, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unsupported media type %q", kind)
	}

	var out tmdbSearchResponse
	if err := t.get(ctx, "/search/"+string(kind), url.Values{"query": {query}}, &out); err != nil {
		return nil, err
	}

	results := make([]models.MediaSummary, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, r.summary(kind))
	}
	return results, nil
}

// GetByID fetches the full record for one movie or TV show
func (t *TMDBService) GetByID(ctx context.Context, kind models.MediaType, id int) (*models.MediaDetail, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unsupported media type %q", kind)
	}

	var r tmdbResult
	if err := t.get(ctx, fmt.Sprintf("/%s/%d", kind, id), nil, &r); err != nil {
		return nil, err
	}

	detail := &models.MediaDetail{
		MediaSummary:     r.summary(kind),
		BackdropPath:     r.BackdropPath,
		VoteCount:        r.VoteCount,
		OriginalLanguage: r.OriginalLanguage,
		Genres:           make([]string, 0, len(r.Genres)),
		Runtime:          r.Runtime,
		NumberOfSeasons:  r.NumberOfSeasons,
		NumberOfEpisodes: r.NumberOfEpisodes,
		IMDBID:           r.IMDBID,
	}
	for _, g := range r.Genres {
		detail.Genres = append(detail.Genres, g.Name)
	}
	return detail, nil
}

func (t *TMDBService) get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", t.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build TMDB request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return &UpstreamError{Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn("Failed to close response body", "err", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		log.Debug("TMDB request failed", "path", path, "status", resp.StatusCode)
		return &UpstreamError{StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Err: fmt.Errorf("failed to decode TMDB response: %w", err)}
	}
	return nil
}

func (r tmdbResult) summary(kind models.MediaType) models.MediaSummary {
	s := models.MediaSummary{
		ID:          r.ID,
		Type:        kind,
		Title:       r.Title,
		Overview:    r.Overview,
		ReleaseDate: r.ReleaseDate,
		PosterPath:  r.PosterPath,
		VoteAverage: r.VoteAverage,
	}
	if kind == models.MediaTypeTV {
		s.Title = r.Name
		s.ReleaseDate = r.FirstAirDate
	}
	return s
}
