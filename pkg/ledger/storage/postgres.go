package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"askmeter-hq/askproxy/pkg/config"
	"askmeter-hq/askproxy/pkg/ledger"
)

// NewPostgresStorage opens the ledger on PostgreSQL through lib/pq.
func NewPostgresStorage(cfg config.PostgresConfig) (*SQLStorage, error) {
	db, err := sql.Open("postgres", PostgresDSN(cfg))
	if err != nil {
		return nil, ledger.NewStorageError("postgres", "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	}

	s, err := newSQLStorage(db, "postgres", true)
	if err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("PostgreSQL storage initialized",
		"host", cfg.Host,
		"database", cfg.Database,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

// PostgresDSN returns cfg.DSN when set, otherwise a key/value connection
// string built from the individual fields.
func PostgresDSN(cfg config.PostgresConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	var parts []string
	add := func(key, value string) {
		if value == "" {
			return
		}
		parts = append(parts, key+"="+quoteDSNValue(value))
	}

	add("host", cfg.Host)
	if cfg.Port > 0 {
		add("port", fmt.Sprint(cfg.Port))
	}
	add("dbname", cfg.Database)
	add("user", cfg.User)
	add("password", cfg.Password)
	add("sslmode", cfg.SSLMode)

	return strings.Join(parts, " ")
}

// quoteDSNValue quotes values containing spaces, quotes or backslashes.
func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
