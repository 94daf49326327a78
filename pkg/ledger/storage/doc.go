// Package storage provides ledger.Storage backends.
//
//   - memory: MemoryStorage, in process, lost on restart
//   - sqlite: SQLStorage over modernc.org/sqlite (pure Go, default)
//   - sqlite3: SQLStorage over github.com/mattn/go-sqlite3 (cgo)
//   - postgres: SQLStorage over github.com/lib/pq
//
// New selects a backend from config.LedgerConfig. The SQL backends share one
// schema (see Schema) and differ only in driver and placeholder style.
package storage
