package store

import (
	"database/sql"
	"fmt"
)

// schema lists one step per schema version. Step i moves user_version from i
// to i+1; append new steps, never edit applied ones.
var schema = [][]string{
	{
		`CREATE TABLE signs (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			type       TEXT NOT NULL CHECK(type IN ('static', 'dynamic')),
			tolerance  REAL NOT NULL DEFAULT 0.15,
			samples    INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE sign_landmarks (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			sign_id        TEXT NOT NULL REFERENCES signs(id) ON DELETE CASCADE,
			landmark_index INTEGER NOT NULL,
			x REAL NOT NULL, y REAL NOT NULL, z REAL NOT NULL
		)`,
		`CREATE TABLE sign_paths (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			sign_id      TEXT NOT NULL REFERENCES signs(id) ON DELETE CASCADE,
			sequence     INTEGER NOT NULL,
			x REAL NOT NULL, y REAL NOT NULL,
			timestamp_ms INTEGER NOT NULL
		)`,
		`CREATE TABLE sign_samples (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			sign_id      TEXT NOT NULL REFERENCES signs(id) ON DELETE CASCADE,
			sample_index INTEGER NOT NULL,
			data         TEXT NOT NULL,
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX idx_sign_landmarks_sign_id ON sign_landmarks(sign_id)`,
		`CREATE INDEX idx_sign_paths_sign_id ON sign_paths(sign_id)`,
		`CREATE INDEX idx_sign_samples_sign_id ON sign_samples(sign_id)`,
	},
	{
		`CREATE TABLE predictions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			kind        TEXT NOT NULL CHECK(kind IN ('static', 'dynamic')),
			label       TEXT NOT NULL,
			confidence  REAL NOT NULL,
			produced_at DATETIME NOT NULL
		)`,
		`CREATE INDEX idx_predictions_produced_at ON predictions(produced_at)`,
	},
	{
		`CREATE TABLE settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	},
}

// SchemaVersion is the user_version a fully migrated database reports.
var SchemaVersion = len(schema)

// runMigrations applies every step past the database's user_version, each in
// its own transaction.
func (s *Store) runMigrations() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(schema) {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, len(schema))
	}

	for v := version; v < len(schema); v++ {
		err := inTx(s.db, func(tx *sql.Tx) error {
			for _, stmt := range schema[v] {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			// PRAGMA does not take bound parameters.
			_, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1))
			return err
		})
		if err != nil {
			return fmt.Errorf("schema step %d: %w", v+1, err)
		}
	}
	return nil
}
