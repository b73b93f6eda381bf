package tracking

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// NewDatabase opens the SQLite decode history at dbPath, creating the file
// and schema when missing. ":memory:" opens a private in-memory database.
func NewDatabase(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives and dies with its connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA user_version = 1",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	schema := `
-- One row per decoder session run by a CLI command
CREATE TABLE IF NOT EXISTS decode_events (
    id             INTEGER PRIMARY KEY,
    event_id       TEXT    NOT NULL UNIQUE,
    session_id     TEXT    NOT NULL,
    timestamp      INTEGER NOT NULL,
    command        TEXT    NOT NULL,
    source_url     TEXT    NOT NULL,
    file_type      TEXT    NOT NULL DEFAULT '',
    source_format  TEXT    NOT NULL DEFAULT '',
    client_format  TEXT    NOT NULL DEFAULT '',
    position_mode  TEXT    NOT NULL DEFAULT '',
    total_frames   INTEGER NOT NULL DEFAULT -1,
    frames_decoded INTEGER NOT NULL DEFAULT 0 CHECK (frames_decoded >= 0),
    error_code     INTEGER NOT NULL DEFAULT 0,
    error          TEXT    NOT NULL DEFAULT '',
    context        JSON    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_timestamp ON decode_events(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_events_session ON decode_events(session_id);
CREATE INDEX IF NOT EXISTS idx_events_source ON decode_events(source_url);
CREATE INDEX IF NOT EXISTS idx_events_failed ON decode_events(error_code) WHERE error_code != 0;
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
