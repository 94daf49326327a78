package export

import (
	"context"
	"fmt"
	"io"

	"askmeter-hq/askproxy/pkg/ledger"
)

// Exporter renders ledger data to a writer.
type Exporter interface {
	// ExportRecords writes individual ledger records.
	ExportRecords(ctx context.Context, records []*ledger.Record, w io.Writer) error

	// ExportSummaries writes per-user summaries.
	ExportSummaries(ctx context.Context, summaries []ledger.UserSummary, w io.Writer) error
}

// New returns the exporter for format ("csv" or "json").
func New(format string) (Exporter, error) {
	switch format {
	case "csv":
		return NewCSVExporter(true), nil
	case "json":
		return NewJSONExporter(true), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (expected csv or json)", format)
	}
}
