package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"marquee/database"
	"marquee/models"
)

const watchedColumns = `id, user_id, tmdb_id, type, watched_date, rating, notes, created_at, updated_at`

// WatchedRepository handles database operations for watched items.
// Every query is scoped to the owning user.
type WatchedRepository struct {
	db *database.DB
}

// NewWatchedRepository creates a new watched repository
func NewWatchedRepository(db *database.DB) *WatchedRepository {
	return &WatchedRepository{db: db}
}

// List returns the user's watched items matching filter, ordered by watched date ascending
func (r *WatchedRepository) List(ctx context.Context, userID string, filter models.WatchedFilter) ([]models.WatchedItem, error) {
	conditions := []string{"user_id = ?"}
	args := []any{userID}

	if filter.Search != "" {
		conditions = append(conditions, `unicode_lower(COALESCE(notes, '')) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Search))+"%")
	}
	if filter.DateFrom != "" {
		conditions = append(conditions, "watched_date >= ?")
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		conditions = append(conditions, "watched_date <= ?")
		args = append(args, filter.DateTo)
	}

	query := `SELECT ` + watchedColumns + ` FROM watched WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY watched_date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query watched items: %w", err)
	}
	defer closeRows(rows)

	items := []models.WatchedItem{}
	for rows.Next() {
		item, err := scanWatched(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watched item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return items, nil
}

// GetByID retrieves a watched item by ID if it is owned by userID
func (r *WatchedRepository) GetByID(ctx context.Context, userID string, id int) (*models.WatchedItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+watchedColumns+` FROM watched WHERE id = ? AND user_id = ?`, id, userID)

	item, err := scanWatched(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("watched item with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get watched item: %w", err)
	}
	return item, nil
}

// Create inserts a new watched item and fills in its ID and timestamps
func (r *WatchedRepository) Create(ctx context.Context, item *models.WatchedItem) error {
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO watched (user_id, tmdb_id, type, watched_date, rating, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.UserID, item.TMDBID, string(item.Type), item.WatchedDate, item.Rating,
		nullStringPtr(item.Notes), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create watched item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	item.ID = int(id)
	return nil
}

// Update writes all mutable fields of item, scoped by (ID, UserID), and refreshes UpdatedAt.
// Returns ErrNotFound when no row matched.
func (r *WatchedRepository) Update(ctx context.Context, item *models.WatchedItem) error {
	updatedAt := time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE watched
		 SET tmdb_id = ?, type = ?, watched_date = ?, rating = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		item.TMDBID, string(item.Type), item.WatchedDate, item.Rating, nullStringPtr(item.Notes),
		updatedAt, item.ID, item.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update watched item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("watched item with id %d: %w", item.ID, ErrNotFound)
	}

	item.UpdatedAt = updatedAt
	return nil
}

// Delete removes a watched item owned by userID
func (r *WatchedRepository) Delete(ctx context.Context, userID string, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM watched WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete watched item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("watched item with id %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanWatched(s scanner) (*models.WatchedItem, error) {
	var item models.WatchedItem
	var notes sql.NullString

	err := s.Scan(
		&item.ID, &item.UserID, &item.TMDBID, &item.Type, &item.WatchedDate,
		&item.Rating, &notes, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if notes.Valid {
		item.Notes = &notes.String
	}
	return &item, nil
}
