package lists

import (
	"context"
	"fmt"

	"marquee/models"
)

// WatchedStore persists watched items scoped by owner
type WatchedStore interface {
	List(ctx context.Context, userID string, filter models.WatchedFilter) ([]models.WatchedItem, error)
	GetByID(ctx context.Context, userID string, id int) (*models.WatchedItem, error)
	Create(ctx context.Context, item *models.WatchedItem) error
	Update(ctx context.Context, item *models.WatchedItem) error
	Delete(ctx context.Context, userID string, id int) error
}

// WatchedInput is the body of a create request
type WatchedInput struct {
	TMDBID      int              `json:"tmdbId"`
	Type        models.MediaType `json:"type"`
	WatchedDate string           `json:"watchedDate"`
	Rating      *int             `json:"rating"`
	Notes       *string          `json:"notes"`
}

// WatchedPatch is the body of an update request. Absent and null core
// fields keep their stored value; a present notes key always replaces notes.
type WatchedPatch struct {
	TMDBID      Optional[int]              `json:"tmdbId,omitzero"`
	Type        Optional[models.MediaType] `json:"type,omitzero"`
	WatchedDate Optional[string]           `json:"watchedDate,omitzero"`
	Rating      Optional[int]              `json:"rating,omitzero"`
	Notes       Optional[string]           `json:"notes,omitzero"`
}

// WatchedService manages a user's watched list
type WatchedService struct {
	store WatchedStore
}

// NewWatchedService creates a watched service backed by store
func NewWatchedService(store WatchedStore) *WatchedService {
	return &WatchedService{store: store}
}

// List returns the owner's items matching filter, oldest watched date first
func (s *WatchedService) List(ctx context.Context, ownerID string, filter models.WatchedFilter) ([]models.WatchedItem, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	items, err := s.store.List(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched items: %w", err)
	}
	return items, nil
}

// Get returns a single item. Items owned by other users are reported as not found.
func (s *WatchedService) Get(ctx context.Context, ownerID string, id int) (*models.WatchedItem, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	item, err := s.store.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, translate(err)
	}
	return item, nil
}

// Create validates in and stores a new item owned by ownerID
func (s *WatchedService) Create(ctx context.Context, ownerID string, in WatchedInput) (*models.WatchedItem, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	fields := watchedFields{
		TMDBID:      in.TMDBID,
		Type:        in.Type,
		WatchedDate: in.WatchedDate,
		Rating:      in.Rating,
	}
	if err := check(fields, msgMissingWatched); err != nil {
		return nil, err
	}

	item := &models.WatchedItem{
		UserID:      ownerID,
		TMDBID:      in.TMDBID,
		Type:        in.Type,
		WatchedDate: in.WatchedDate,
		Rating:      *in.Rating,
		Notes:       normalizeNotes(in.Notes),
	}
	if err := s.store.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add watched item: %w", err)
	}
	return item, nil
}

// Update merges patch onto the stored item, re-validates and writes it back.
// The write is scoped by owner again; if the row vanished in between, ErrNotFound is returned.
func (s *WatchedService) Update(ctx context.Context, ownerID string, id int, patch WatchedPatch) (*models.WatchedItem, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	existing, err := s.store.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, translate(err)
	}

	merged := merge(existing, patch)

	rating := merged.Rating
	fields := watchedFields{
		TMDBID:      merged.TMDBID,
		Type:        merged.Type,
		WatchedDate: merged.WatchedDate,
		Rating:      &rating,
	}
	if err := check(fields, msgMissingWatched); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, merged); err != nil {
		return nil, translate(err)
	}
	return merged, nil
}

// Delete removes an item owned by ownerID
func (s *WatchedService) Delete(ctx context.Context, ownerID string, id int) error {
	if ownerID == "" {
		return ErrUnauthorized
	}
	return translate(s.store.Delete(ctx, ownerID, id))
}

// merge applies patch to a copy of existing
func merge(existing *models.WatchedItem, patch WatchedPatch) *models.WatchedItem {
	merged := *existing

	if patch.TMDBID.HasValue() {
		merged.TMDBID = patch.TMDBID.Value
	}
	if patch.Type.HasValue() {
		merged.Type = patch.Type.Value
	}
	if patch.WatchedDate.HasValue() {
		merged.WatchedDate = patch.WatchedDate.Value
	}
	if patch.Rating.HasValue() {
		merged.Rating = patch.Rating.Value
	}
	if patch.Notes.Set {
		if patch.Notes.Null {
			merged.Notes = nil
		} else {
			merged.Notes = normalizeNotes(&patch.Notes.Value)
		}
	}
	return &merged
}

// normalizeNotes stores empty notes as NULL
func normalizeNotes(notes *string) *string {
	if notes == nil || *notes == "" {
		return nil
	}
	n := *notes
	return &n
}
