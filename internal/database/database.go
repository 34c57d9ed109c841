// Package database is the SQLite persistence layer. Every mutation
// publishes a table-change notification so readers can pull a fresh
// snapshot.
package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"truckspot/internal/events"
)

// DB wraps sql.DB and the change-notification bus.
type DB struct {
	*sql.DB
	bus *events.Bus
}

// New opens the database at path, runs migrations, and wires the change
// feed. bus may be nil when no subscriber exists (tools, tests).
func New(path string, bus *events.Bus) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{DB: db, bus: bus}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trucks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			menu TEXT NOT NULL DEFAULT '',
			logo_url TEXT NOT NULL DEFAULT '',
			schedule_json TEXT,
			last_seen_lat REAL,
			last_seen_lng REAL,
			last_seen_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS checkins (
			id TEXT PRIMARY KEY,
			truck_id INTEGER NOT NULL,
			lat REAL NOT NULL,
			lng REAL NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			FOREIGN KEY (truck_id) REFERENCES trucks(id)
		)`,

		`CREATE TABLE IF NOT EXISTS reviews (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			truck_id INTEGER NOT NULL,
			rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			comment TEXT NOT NULL DEFAULT '',
			user_email TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (truck_id) REFERENCES trucks(id)
		)`,

		// Serializes the at-most-one-open-session invariant at the
		// storage layer: a second open session for the same truck fails
		// the insert.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_checkins_open
			ON checkins(truck_id) WHERE ended_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_checkins_truck ON checkins(truck_id, started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_truck ON reviews(truck_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

func (db *DB) notify(table string) {
	if db.bus != nil {
		db.bus.Publish(events.Change{Table: table})
	}
}
