package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"askmeter-hq/askproxy/pkg/ledger"
)

// CSVExporter exports ledger data to CSV.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

var recordHeader = []string{
	"id", "request_id", "created_at", "user", "label_user", "status", "status_code",
	"prompt_tokens", "completion_tokens", "total_tokens",
	"prompt_cost", "completion_cost", "total_cost",
	"latency_seconds", "error",
}

var summaryHeader = []string{
	"user", "requests", "failures",
	"prompt_tokens", "completion_tokens", "total_tokens", "total_cost",
}

// ExportRecords writes one row per record.
func (e *CSVExporter) ExportRecords(ctx context.Context, records []*ledger.Record, w io.Writer) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ID,
			r.RequestID,
			r.CreatedAt.UTC().Format(time.RFC3339Nano),
			r.User,
			r.LabelUser,
			string(r.Status),
			strconv.Itoa(r.StatusCode),
			strconv.Itoa(r.PromptTokens),
			strconv.Itoa(r.CompletionTokens),
			strconv.Itoa(r.TotalTokens),
			formatFloat(r.PromptCost),
			formatFloat(r.CompletionCost),
			formatFloat(r.TotalCost),
			formatFloat(r.Latency.Seconds()),
			r.Error,
		})
	}
	return e.write(ctx, recordHeader, rows, w)
}

// ExportSummaries writes one row per user.
func (e *CSVExporter) ExportSummaries(ctx context.Context, summaries []ledger.UserSummary, w io.Writer) error {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.User,
			strconv.FormatInt(s.Requests, 10),
			strconv.FormatInt(s.Failures, 10),
			strconv.FormatInt(s.PromptTokens, 10),
			strconv.FormatInt(s.CompletionTokens, 10),
			strconv.FormatInt(s.TotalTokens, 10),
			formatFloat(s.TotalCost),
		})
	}
	return e.write(ctx, summaryHeader, rows, w)
}

func (e *CSVExporter) write(ctx context.Context, header []string, rows [][]string, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(header); err != nil {
			return ledger.NewExportError("csv", 0, err)
		}
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return ledger.NewExportError("csv", i, err)
		}
		if err := writer.Write(row); err != nil {
			return ledger.NewExportError("csv", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return ledger.NewExportError("csv", len(rows), err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
