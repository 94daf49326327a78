package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"askmeter-hq/askproxy/pkg/config"
	"askmeter-hq/askproxy/pkg/ledger"
)

// NewSQLiteStorage opens the ledger with the pure-Go SQLite driver
// (modernc.org/sqlite). This is the default backend and needs no cgo.
func NewSQLiteStorage(cfg config.SQLiteConfig) (*SQLStorage, error) {
	return openSQLite("sqlite", "sqlite", cfg)
}

// NewSQLite3Storage opens the ledger with the cgo SQLite driver
// (mattn/go-sqlite3). The on-disk format is identical to NewSQLiteStorage.
func NewSQLite3Storage(cfg config.SQLiteConfig) (*SQLStorage, error) {
	return openSQLite("sqlite3", "sqlite3", cfg)
}

func openSQLite(driver, backend string, cfg config.SQLiteConfig) (*SQLStorage, error) {
	if cfg.Path == "" {
		return nil, ledger.NewStorageError(backend, "open", fmt.Errorf("database path is required"))
	}

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ledger.NewStorageError(backend, "mkdir", err)
		}
	}

	db, err := sql.Open(driver, cfg.Path)
	if err != nil {
		return nil, ledger.NewStorageError(backend, "open", err)
	}

	// PRAGMAs are per connection, and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if cfg.WALMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, ledger.NewStorageError(backend, "enable_wal", err)
		}
	}

	if cfg.BusyTimeout > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
			db.Close()
			return nil, ledger.NewStorageError(backend, "set_busy_timeout", err)
		}
	}

	s, err := newSQLStorage(db, backend, false)
	if err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("SQLite storage initialized",
		"path", cfg.Path,
		"driver", driver,
		"wal_mode", cfg.WALMode,
	)
	return s, nil
}
