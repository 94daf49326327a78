package storage

import (
	"fmt"

	"askmeter-hq/askproxy/pkg/config"
	"askmeter-hq/askproxy/pkg/ledger"
)

// New opens the backend selected by cfg.Backend.
func New(cfg config.LedgerConfig) (ledger.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStorage(), nil
	case "sqlite", "":
		return NewSQLiteStorage(cfg.SQLite)
	case "sqlite3":
		return NewSQLite3Storage(cfg.SQLite)
	case "postgres":
		return NewPostgresStorage(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}
