package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marquee/database"
	"marquee/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. The caller supplies the ID.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, nullString(user.Name), nullString(user.PasswordHash), user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user with email %s: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, password, created_at FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email address
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, password, created_at FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func scanUser(s scanner) (*models.User, error) {
	var user models.User
	var name, password sql.NullString

	if err := s.Scan(&user.ID, &user.Email, &name, &password, &user.CreatedAt); err != nil {
		return nil, err
	}
	if name.Valid {
		user.Name = name.String
	}
	if password.Valid {
		user.PasswordHash = password.String
	}
	return &user, nil
}
