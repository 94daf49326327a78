package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"askmeter-hq/askproxy/pkg/ledger"
)

func sampleSummaries() []ledger.UserSummary {
	return []ledger.UserSummary{
		{User: "alice", Requests: 3, Failures: 1, PromptTokens: 200, CompletionTokens: 100, TotalTokens: 300, TotalCost: 0.0005},
		{User: "bob, jr", Requests: 1, PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, TotalCost: 0.00025},
	}
}

func sampleRecords() []*ledger.Record {
	return []*ledger.Record{{
		ID:               "id-1",
		RequestID:        "req-1",
		User:             "alice",
		LabelUser:        "alice",
		Status:           ledger.StatusSuccess,
		StatusCode:       200,
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		PromptCost:       0.00015,
		CompletionCost:   0.0001,
		TotalCost:        0.00025,
		Latency:          1234 * time.Millisecond,
		CreatedAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}
}

func TestCSVExporter_Summaries(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(true).ExportSummaries(context.Background(), sampleSummaries(), &buf); err != nil {
		t.Fatalf("ExportSummaries() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(summaryHeader, ",") {
		t.Errorf("header = %v", rows[0])
	}
	if got := strings.Join(rows[1], "|"); got != "alice|3|1|200|100|300|0.0005" {
		t.Errorf("row 1 = %s", got)
	}
	if rows[2][0] != "bob, jr" {
		t.Errorf("comma in user not preserved: %q", rows[2][0])
	}
}

func TestCSVExporter_Records(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(false).ExportRecords(context.Background(), sampleRecords(), &buf); err != nil {
		t.Fatalf("ExportRecords() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row without header, got %d", len(rows))
	}
	row := rows[0]
	if row[2] != "2026-01-02T03:04:05Z" {
		t.Errorf("created_at = %q", row[2])
	}
	if row[13] != "1.234" {
		t.Errorf("latency_seconds = %q", row[13])
	}
}

func TestCSVExporter_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewCSVExporter(true).ExportSummaries(ctx, sampleSummaries(), &bytes.Buffer{})
	var ee *ledger.ExportError
	if !errors.As(err, &ee) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected ExportError wrapping context.Canceled, got %v", err)
	}
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(false).ExportSummaries(context.Background(), sampleSummaries(), &buf); err != nil {
		t.Fatalf("ExportSummaries() error = %v", err)
	}

	var got []ledger.UserSummary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 2 || got[0].User != "alice" || got[0].TotalTokens != 300 {
		t.Errorf("decoded = %+v", got)
	}
}

func TestJSONExporter_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(false).ExportRecords(context.Background(), nil, &buf); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("got %q, want []", got)
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"csv", "json"} {
		if _, err := New(format); err != nil {
			t.Errorf("New(%q) error = %v", format, err)
		}
	}
	if _, err := New("xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
