package export

import (
	"context"
	"encoding/json"
	"io"

	"askmeter-hq/askproxy/pkg/ledger"
)

// JSONExporter exports ledger data as a JSON array.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// ExportRecords writes records as a JSON array.
func (e *JSONExporter) ExportRecords(ctx context.Context, records []*ledger.Record, w io.Writer) error {
	if records == nil {
		records = []*ledger.Record{}
	}
	return e.encode(ctx, records, len(records), w)
}

// ExportSummaries writes summaries as a JSON array.
func (e *JSONExporter) ExportSummaries(ctx context.Context, summaries []ledger.UserSummary, w io.Writer) error {
	if summaries == nil {
		summaries = []ledger.UserSummary{}
	}
	return e.encode(ctx, summaries, len(summaries), w)
}

func (e *JSONExporter) encode(ctx context.Context, v interface{}, n int, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return ledger.NewExportError("json", 0, err)
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return ledger.NewExportError("json", n, err)
	}
	return nil
}
