package sqlstore

import (
	"fmt"
	"os"
	"path/filepath"

	"photo-filters/internal/storage"

	_ "modernc.org/sqlite"
)

const (
	SQLiteDriverName = "sqlite"

	defaultPath = "./photo-filters.db"
	envDBPath   = "PHOTO_FILTERS_DB_PATH"
)

func init() {
	storage.Register(SQLiteDriverName, openSQLite)
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// NewSQLiteConfig reads the database path from PHOTO_FILTERS_DB_PATH,
// falling back to ./photo-filters.db.
func NewSQLiteConfig() *SQLiteConfig {
	path := os.Getenv(envDBPath)
	if path == "" {
		path = defaultPath
	}
	return &SQLiteConfig{Path: path}
}

var sqliteDialect = dialect{
	name:       "sqlite",
	driverName: "sqlite",
	pragmas: []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-64000",
	},
	// Pragmas are per connection; one connection keeps them in force and
	// serializes writers.
	maxOpenConns: 1,
	migrations:   sqliteMigrations,
}

// NewSQLite returns an unopened SQLite backend.
func NewSQLite(cfg *SQLiteConfig) (*Backend, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: no database path specified")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite: could not create database directory: %w", err)
		}
	}
	return newBackend(sqliteDialect, cfg.Path), nil
}

func openSQLite(driverCfg storage.DriverConfig) (storage.Backend, error) {
	cfg := NewSQLiteConfig()
	if err := storage.DecodeOptions(driverCfg.Options, cfg); err != nil {
		return nil, fmt.Errorf("sqlite: could not load configuration: %w", err)
	}
	return NewSQLite(cfg)
}
