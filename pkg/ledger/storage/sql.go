package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"askmeter-hq/askproxy/pkg/ledger"
)

// SQLStorage implements ledger.Storage on top of database/sql. The same
// implementation serves SQLite and PostgreSQL; only the driver and the
// placeholder style differ.
type SQLStorage struct {
	db       *sql.DB
	backend  string
	numbered bool
	logger   *slog.Logger
}

// newSQLStorage wraps an open database and applies the schema. numbered
// selects PostgreSQL-style $N placeholders.
func newSQLStorage(db *sql.DB, backend string, numbered bool) (*SQLStorage, error) {
	s := &SQLStorage{
		db:       db,
		backend:  backend,
		numbered: numbered,
		logger:   slog.Default().With("component", "ledger.storage."+backend),
	}

	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return ledger.NewStorageError(s.backend, "create_schema", err)
	}
	s.logger.Debug("database schema created")

	if _, err := s.db.Exec(s.rebind(InsertSchemaVersion), SchemaVersion, time.Now().UnixNano()); err != nil {
		return ledger.NewStorageError(s.backend, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ledger.NewStorageError(s.backend, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return ledger.NewStorageError(s.backend, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Backend returns the backend name ("sqlite", "sqlite3" or "postgres").
func (s *SQLStorage) Backend() string {
	return s.backend
}

// Store persists a record.
func (s *SQLStorage) Store(ctx context.Context, record *ledger.Record) error {
	var errorVal interface{}
	if record.Error != "" {
		errorVal = record.Error
	}

	_, err := s.db.ExecContext(ctx, s.rebind(insertRecord),
		record.ID, record.RequestID, record.User, record.LabelUser, string(record.Status), record.StatusCode,
		record.PromptTokens, record.CompletionTokens, record.TotalTokens,
		record.PromptCost, record.CompletionCost, record.TotalCost,
		int64(record.Latency), errorVal, record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return ledger.NewStorageError(s.backend, "store", err)
	}
	return nil
}

// Query returns records matching f, newest first.
func (s *SQLStorage) Query(ctx context.Context, f ledger.Filter) ([]*ledger.Record, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.User != "" {
		where = append(where, "user_name = ?")
		args = append(args, f.User)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if !f.Until.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, f.Until.UnixNano())
	}

	var b strings.Builder
	b.WriteString(selectRecords)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id ASC")
	if f.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}
	if f.Offset > 0 {
		if f.Limit <= 0 && !s.numbered {
			// SQLite only accepts OFFSET after a LIMIT clause.
			b.WriteString(" LIMIT -1")
		}
		b.WriteString(" OFFSET ?")
		args = append(args, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(b.String()), args...)
	if err != nil {
		return nil, ledger.NewStorageError(s.backend, "query", err)
	}
	defer rows.Close()

	records := make([]*ledger.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, ledger.NewStorageError(s.backend, "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError(s.backend, "query", err)
	}

	return records, nil
}

// SummarizeByUser aggregates records created at or after since.
func (s *SQLStorage) SummarizeByUser(ctx context.Context, since time.Time) ([]ledger.UserSummary, error) {
	var sinceNanos int64
	if !since.IsZero() {
		sinceNanos = since.UnixNano()
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(summarizeByUser), string(ledger.StatusSuccess), sinceNanos)
	if err != nil {
		return nil, ledger.NewStorageError(s.backend, "summarize", err)
	}
	defer rows.Close()

	summaries := make([]ledger.UserSummary, 0)
	for rows.Next() {
		var sum ledger.UserSummary
		if err := rows.Scan(
			&sum.User, &sum.Requests, &sum.Failures,
			&sum.PromptTokens, &sum.CompletionTokens, &sum.TotalTokens,
			&sum.TotalCost,
		); err != nil {
			return nil, ledger.NewStorageError(s.backend, "scan", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError(s.backend, "summarize", err)
	}

	return summaries, nil
}

// Prune deletes records created before the given time.
func (s *SQLStorage) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.rebind(pruneRecords), before.UnixNano())
	if err != nil {
		return 0, ledger.NewStorageError(s.backend, "prune", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, ledger.NewStorageError(s.backend, "prune", err)
	}
	return deleted, nil
}

// Count returns the number of stored records.
func (s *SQLStorage) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, countRecords).Scan(&n); err != nil {
		return 0, ledger.NewStorageError(s.backend, "count", err)
	}
	return n, nil
}

// Ping checks that the database is reachable.
func (s *SQLStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return ledger.NewStorageError(s.backend, "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return ledger.NewStorageError(s.backend, "close", err)
	}
	s.logger.Info("ledger storage closed")
	return nil
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func (s *SQLStorage) rebind(query string) string {
	if !s.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*ledger.Record, error) {
	var (
		record    ledger.Record
		status    string
		latencyNs int64
		errorVal  sql.NullString
		createdNs int64
	)

	err := row.Scan(
		&record.ID, &record.RequestID, &record.User, &record.LabelUser, &status, &record.StatusCode,
		&record.PromptTokens, &record.CompletionTokens, &record.TotalTokens,
		&record.PromptCost, &record.CompletionCost, &record.TotalCost,
		&latencyNs, &errorVal, &createdNs,
	)
	if err != nil {
		return nil, err
	}

	record.Status = ledger.Status(status)
	record.Latency = time.Duration(latencyNs)
	record.Error = errorVal.String
	record.CreatedAt = time.Unix(0, createdNs).UTC()

	return &record, nil
}
