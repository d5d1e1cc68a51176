package lists

import (
	"context"
	"fmt"

	"marquee/models"
)

// WatchlistStore persists watchlist items scoped by owner
type WatchlistStore interface {
	List(ctx context.Context, userID string) ([]models.WatchlistItem, error)
	Exists(ctx context.Context, userID string, tmdbID int, mediaType models.MediaType) (bool, error)
	Create(ctx context.Context, item *models.WatchlistItem) error
	Delete(ctx context.Context, userID string, id int) error
}

// WatchlistInput is the body of a watchlist add request
type WatchlistInput struct {
	TMDBID    int              `json:"tmdbId"`
	Type      models.MediaType `json:"type"`
	AddedDate string           `json:"addedDate"`
}

// WatchlistService manages a user's watchlist. Entries are never updated in place.
type WatchlistService struct {
	store WatchlistStore
}

// NewWatchlistService creates a watchlist service backed by store
func NewWatchlistService(store WatchlistStore) *WatchlistService {
	return &WatchlistService{store: store}
}

// List returns the owner's watchlist, oldest added date first
func (s *WatchlistService) List(ctx context.Context, ownerID string) ([]models.WatchlistItem, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	items, err := s.store.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	return items, nil
}

// Create adds an entry unless (owner, tmdbId, type) is already present, in which case ErrConflict is returned
func (s *WatchlistService) Create(ctx context.Context, ownerID string, in WatchlistInput) (*models.WatchlistItem, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	fields := watchlistFields(in)
	if err := check(fields, msgMissingWatchlist); err != nil {
		return nil, err
	}

	exists, err := s.store.Exists(ctx, ownerID, in.TMDBID, in.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to check watchlist: %w", err)
	}
	if exists {
		return nil, ErrConflict
	}

	item := &models.WatchlistItem{
		UserID:    ownerID,
		TMDBID:    in.TMDBID,
		Type:      in.Type,
		AddedDate: in.AddedDate,
	}
	if err := s.store.Create(ctx, item); err != nil {
		// a concurrent add can still trip the unique index
		return nil, translate(err)
	}
	return item, nil
}

// Delete removes an entry owned by ownerID
func (s *WatchlistService) Delete(ctx context.Context, ownerID string, id int) error {
	if ownerID == "" {
		return ErrUnauthorized
	}
	return translate(s.store.Delete(ctx, ownerID, id))
}
