package repository

import (
	"context"
	"fmt"

	"marquee/database"
	"marquee/models"
)

// WatchlistRepository handles database operations for watchlist items
type WatchlistRepository struct {
	db *database.DB
}

// NewWatchlistRepository creates a new watchlist repository
func NewWatchlistRepository(db *database.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// List returns the user's watchlist ordered by added date ascending
func (r *WatchlistRepository) List(ctx context.Context, userID string) ([]models.WatchlistItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, tmdb_id, type, added_date FROM watchlist
		 WHERE user_id = ? ORDER BY added_date ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer closeRows(rows)

	items := []models.WatchlistItem{}
	for rows.Next() {
		var item models.WatchlistItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.TMDBID, &item.Type, &item.AddedDate); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return items, nil
}

// Exists reports whether the user already has (tmdbID, mediaType) on their watchlist
func (r *WatchlistRepository) Exists(ctx context.Context, userID string, tmdbID int, mediaType models.MediaType) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM watchlist WHERE user_id = ? AND tmdb_id = ? AND type = ?`,
		userID, tmdbID, string(mediaType),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check watchlist: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new watchlist item and fills in its ID.
// Returns ErrDuplicate if the (user, tmdb id, type) triple already exists.
func (r *WatchlistRepository) Create(ctx context.Context, item *models.WatchlistItem) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO watchlist (user_id, tmdb_id, type, added_date) VALUES (?, ?, ?, ?)`,
		item.UserID, item.TMDBID, string(item.Type), item.AddedDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("watchlist item %s/%d: %w", item.Type, item.TMDBID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create watchlist item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	item.ID = int(id)
	return nil
}

// Delete removes a watchlist item owned by userID
func (r *WatchlistRepository) Delete(ctx context.Context, userID string, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM watchlist WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete watchlist item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("watchlist item with id %d: %w", id, ErrNotFound)
	}
	return nil
}
