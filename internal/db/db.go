// Package db provides database connection management and photo storage.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB with photo wall configuration.
type DB struct {
	*sql.DB
}

// Open opens the in-memory SQLite database backing the photo wall.
// All wall state is ephemeral: it lives exactly as long as the process,
// so nothing survives across sessions.
func Open() (*DB, error) {
	// modernc.org/sqlite (pure Go, no CGO)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps the in-memory database alive and makes
	// every photo update atomic with respect to every other.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &DB{db}, nil
}

// migrate creates the photo schema.
func migrate(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		image BLOB NOT NULL,
		caption TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL,
		x REAL NOT NULL DEFAULT 0,
		y REAL NOT NULL DEFAULT 0,
		rotation REAL NOT NULL DEFAULT 0,
		state TEXT NOT NULL,
		z_index INTEGER NOT NULL DEFAULT 0,
		caption_generation INTEGER NOT NULL DEFAULT 0,
		progress INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	`)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
