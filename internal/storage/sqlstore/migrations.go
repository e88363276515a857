package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	name    string
	up      string
}

var sqliteMigrations = []migration{
	{
		version: 1,
		name:    "create_saved_images_table",
		up: `
			CREATE TABLE IF NOT EXISTS saved_images (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				data BLOB NOT NULL,
				created_at TIMESTAMP NOT NULL
			);
		`,
	},
	{
		version: 2,
		name:    "index_saved_images_created_at",
		up: `
			CREATE INDEX IF NOT EXISTS idx_saved_images_created_at
			ON saved_images(created_at DESC);
		`,
	},
}

var postgresMigrations = []migration{
	{
		version: 1,
		name:    "create_saved_images_table",
		up: `
			CREATE TABLE IF NOT EXISTS saved_images (
				id BIGSERIAL PRIMARY KEY,
				data BYTEA NOT NULL,
				created_at TIMESTAMPTZ NOT NULL
			);
		`,
	},
	{
		version: 2,
		name:    "index_saved_images_created_at",
		up: `
			CREATE INDEX IF NOT EXISTS idx_saved_images_created_at
			ON saved_images(created_at DESC);
		`,
	},
}

// runMigrations applies every migration newer than the recorded schema
// version, each in its own transaction.
func runMigrations(ctx context.Context, db *sql.DB, d dialect) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	currentVersion := 0
	err = db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, m := range d.migrations {
		if m.version <= currentVersion {
			continue
		}

		err := RunInTransaction(ctx, db, func(txCtx context.Context) error {
			exec := GetExecutor(txCtx, db)
			if _, err := exec.ExecContext(txCtx, m.up); err != nil {
				return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
			}
			if _, err := exec.ExecContext(txCtx,
				d.rebind("INSERT INTO schema_migrations (version, name) VALUES (?, ?)"),
				m.version,
				m.name,
			); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
