package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"askmeter-hq/askproxy/pkg/config"
	"askmeter-hq/askproxy/pkg/ledger"
)

func newMockPostgres(t *testing.T) (*SQLStorage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS usage_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_version (version, applied_at)\nVALUES ($1, $2)")).
		WithArgs(SchemaVersion, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(GetSchemaVersion)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(SchemaVersion))

	s, err := newSQLStorage(db, "postgres", true)
	if err != nil {
		t.Fatalf("newSQLStorage() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return s, mock
}

func TestPostgresStorage_Initialize(t *testing.T) {
	_, mock := newMockPostgres(t)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStorage_SchemaMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_version").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(99))

	_, err = newSQLStorage(db, "postgres", true)
	var se *ledger.StorageError
	if !errors.As(err, &se) || se.Operation != "schema_version_mismatch" {
		t.Errorf("expected schema_version_mismatch, got %v", err)
	}
}

func TestPostgresStorage_Store(t *testing.T) {
	s, mock := newMockPostgres(t)

	r := testRecord("p1", "alice", ledger.StatusSuccess, 0)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO usage_records")).
		WithArgs(
			"p1", "req-p1", "alice", "alice", "success", 200,
			100, 50, 150,
			0.00015, 0.0001, 0.00025,
			int64(1500*time.Millisecond), nil, base.UnixNano(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.Store(context.Background(), r); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStorage_QueryUsesNumberedPlaceholders(t *testing.T) {
	s, mock := newMockPostgres(t)

	columns := []string{
		"id", "request_id", "user_name", "label_user", "status", "status_code",
		"prompt_tokens", "completion_tokens", "total_tokens",
		"prompt_cost", "completion_cost", "total_cost",
		"latency_ns", "error", "created_at",
	}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_name = $1 AND status = $2 ORDER BY created_at DESC, id ASC LIMIT $3 OFFSET $4")).
		WithArgs("bob", "upstream_error", 10, 5).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"p2", "req-p2", "bob", "other", "upstream_error", 429,
			0, 0, 0,
			0.0, 0.0, 0.0,
			int64(time.Second), "rate limited", base.UnixNano(),
		))

	got, err := s.Query(context.Background(), ledger.Filter{
		User:   "bob",
		Status: ledger.StatusUpstreamError,
		Limit:  10,
		Offset: 5,
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].LabelUser != "other" || got[0].Error != "rate limited" || got[0].Latency != time.Second {
		t.Errorf("record = %+v", got[0])
	}
	if !got[0].CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v", got[0].CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStorage_SummarizeByUser(t *testing.T) {
	s, mock := newMockPostgres(t)

	since := base.Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SUM(CASE WHEN status <> $1 THEN 1 ELSE 0 END)")).
		WithArgs("success", since.UnixNano()).
		WillReturnRows(sqlmock.NewRows([]string{"user_name", "count", "failures", "p", "c", "t", "cost"}).
			AddRow("alice", 3, 1, 200, 100, 300, 0.0005).
			AddRow("bob", 1, 0, 100, 50, 150, 0.00025))

	got, err := s.SummarizeByUser(context.Background(), since)
	if err != nil {
		t.Fatalf("SummarizeByUser() error = %v", err)
	}
	if len(got) != 2 || got[0].User != "alice" || got[0].Failures != 1 || got[1].TotalTokens != 150 {
		t.Errorf("summaries = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStorage_Prune(t *testing.T) {
	s, mock := newMockPostgres(t)

	before := base.Add(-30 * 24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM usage_records WHERE created_at < $1")).
		WithArgs(before.UnixNano()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	deleted, err := s.Prune(context.Background(), before)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 7 {
		t.Errorf("deleted = %d, want 7", deleted)
	}
}

func TestPostgresStorage_StoreError(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO usage_records").WillReturnError(sql.ErrConnDone)

	err := s.Store(context.Background(), testRecord("p3", "alice", ledger.StatusSuccess, 0))
	if !errors.Is(err, sql.ErrConnDone) {
		t.Errorf("expected wrapped sql.ErrConnDone, got %v", err)
	}
	var se *ledger.StorageError
	if !errors.As(err, &se) || se.Backend != "postgres" {
		t.Errorf("expected postgres StorageError, got %v", err)
	}
}

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.PostgresConfig
		want string
	}{
		{
			name: "dsn wins",
			cfg:  config.PostgresConfig{DSN: "postgres://u:p@db/usage", Host: "ignored"},
			want: "postgres://u:p@db/usage",
		},
		{
			name: "fields",
			cfg:  config.PostgresConfig{Host: "db", Port: 5432, Database: "usage", User: "askproxy", SSLMode: "require"},
			want: "host=db port=5432 dbname=usage user=askproxy sslmode=require",
		},
		{
			name: "quoted password",
			cfg:  config.PostgresConfig{Host: "db", Password: `it's secret`},
			want: `host=db password='it\'s secret'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PostgresDSN(tt.cfg); got != tt.want {
				t.Errorf("PostgresDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}
