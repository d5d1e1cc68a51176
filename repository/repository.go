// Package repository provides data access layer for the application.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when no row matches, including rows owned by another user
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a unique constraint
	ErrDuplicate = errors.New("duplicate")
)

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Warn("Failed to close rows", "err", err)
	}
}

// Helper functions for handling null values
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return nullString(*s)
}

// escapeLike escapes LIKE wildcards so the input matches literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
