// Package sqlite stores the inventory in a single SQLite file for local runs.
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS card_inventory (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	url                 TEXT UNIQUE NOT NULL,
	site_name           TEXT NOT NULL,
	first_discovered_at INTEGER NOT NULL,
	last_verified_at    INTEGER NOT NULL,
	is_active           BOOLEAN NOT NULL DEFAULT TRUE,
	attributes          TEXT
);
CREATE INDEX IF NOT EXISTS card_inventory_site_name_idx ON card_inventory (site_name);

CREATE TABLE IF NOT EXISTS discovery_failures (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	site_name       TEXT UNIQUE NOT NULL,
	listing_url     TEXT NOT NULL,
	failure_reason  TEXT NOT NULL,
	attempt_count   INTEGER NOT NULL DEFAULT 1,
	last_attempt_at INTEGER NOT NULL
);
`

// Open connects to the database at path (":memory:" is accepted) and creates
// the schema if needed. Timestamps are stored as UTC unix microseconds.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}
