// Package database provides database connectivity and schema management.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-sqlite3"
)

// DriverName is the sqlite3 driver with the marquee SQL functions installed
const DriverName = "sqlite3_marquee"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// SQLite's lower() and LIKE only fold ASCII
			return conn.RegisterFunc("unicode_lower", strings.ToLower, true)
		},
	})
}

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection.
// The path can be ":memory:" for an in-memory database.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open(DriverName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database
	if isMemory(path) {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		if cerr := db.Close(); cerr != nil {
			log.Warn("Failed to close database", "err", cerr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// Configure sets connection pool limits. It is a no-op for in-memory databases.
func (db *DB) Configure(path string, maxOpenConns, maxIdleConns int) {
	if isMemory(path) {
		return
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}

// dsn enables foreign keys and a busy timeout on every connection
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT,
		password TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);

	CREATE TABLE IF NOT EXISTS watched (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		tmdb_id INTEGER NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('movie', 'tv')),
		watched_date TEXT NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 10),
		notes TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_watched_user_id ON watched(user_id);
	CREATE INDEX IF NOT EXISTS idx_watched_user_date ON watched(user_id, watched_date);

	CREATE TABLE IF NOT EXISTS watchlist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		tmdb_id INTEGER NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('movie', 'tv')),
		added_date TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_watchlist_user_media ON watchlist(user_id, tmdb_id, type);
	CREATE INDEX IF NOT EXISTS idx_watchlist_user_date ON watchlist(user_id, added_date);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Debug("Database schema initialized")
	return nil
}
