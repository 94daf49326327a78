package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"askmeter-hq/askproxy/pkg/ledger"
	"askmeter-hq/askproxy/pkg/ledger/export"
	"askmeter-hq/askproxy/pkg/proxy"
)

// Record listing bounds for GET /usage/records.
const (
	DefaultRecordLimit = 100
	MaxRecordLimit     = 1000
)

// ledgerDisabledDetail is returned when no ledger storage is configured.
const ledgerDisabledDetail = "usage ledger is disabled"

// UsageHandler serves the ledger read endpoints. A nil storage means the
// ledger is disabled and every request answers 503.
type UsageHandler struct {
	storage ledger.Storage
}

// NewUsageHandler creates the usage handler.
func NewUsageHandler(storage ledger.Storage) *UsageHandler {
	return &UsageHandler{storage: storage}
}

// Summaries serves GET /usage.
//
// Query parameters:
//   - since: RFC3339 lower bound on record time; absent means all time
//   - format: "json" (default) or "csv"
func (h *UsageHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		proxy.WriteErrorResponse(w, http.StatusServiceUnavailable, ledgerDisabledDetail)
		return
	}

	q := r.URL.Query()
	since, err := parseTime(q.Get("since"))
	if err != nil {
		proxy.WriteErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid since: %v", err))
		return
	}
	exporter, contentType, err := exporterFor(q.Get("format"))
	if err != nil {
		proxy.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	summaries, err := h.storage.SummarizeByUser(r.Context(), since)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to summarize usage", "error", err)
		proxy.WriteErrorResponse(w, http.StatusInternalServerError, "failed to read usage ledger")
		return
	}

	var buf bytes.Buffer
	if err := exporter.ExportSummaries(r.Context(), summaries, &buf); err != nil {
		slog.ErrorContext(r.Context(), "failed to export usage", "error", err)
		proxy.WriteErrorResponse(w, http.StatusInternalServerError, "failed to render usage")
		return
	}
	writeBody(w, contentType, buf.Bytes())
}

// Records serves GET /usage/records.
//
// Query parameters:
//   - user, status: exact-match filters
//   - since, until: RFC3339 time window, until exclusive
//   - limit (default 100, max 1000), offset
//   - format: "json" (default) or "csv"
func (h *UsageHandler) Records(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		proxy.WriteErrorResponse(w, http.StatusServiceUnavailable, ledgerDisabledDetail)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		proxy.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	exporter, contentType, err := exporterFor(r.URL.Query().Get("format"))
	if err != nil {
		proxy.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.storage.Query(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to query usage records", "error", err)
		proxy.WriteErrorResponse(w, http.StatusInternalServerError, "failed to read usage ledger")
		return
	}

	var buf bytes.Buffer
	if err := exporter.ExportRecords(r.Context(), records, &buf); err != nil {
		slog.ErrorContext(r.Context(), "failed to export usage records", "error", err)
		proxy.WriteErrorResponse(w, http.StatusInternalServerError, "failed to render usage")
		return
	}
	writeBody(w, contentType, buf.Bytes())
}

func parseFilter(r *http.Request) (ledger.Filter, error) {
	q := r.URL.Query()
	f := ledger.Filter{
		User:   q.Get("user"),
		Status: ledger.Status(q.Get("status")),
		Limit:  DefaultRecordLimit,
	}

	switch f.Status {
	case "", ledger.StatusSuccess, ledger.StatusUpstreamError, ledger.StatusInternalError:
	default:
		return f, fmt.Errorf("invalid status %q", f.Status)
	}

	var err error
	if f.Since, err = parseTime(q.Get("since")); err != nil {
		return f, fmt.Errorf("invalid since: %w", err)
	}
	if f.Until, err = parseTime(q.Get("until")); err != nil {
		return f, fmt.Errorf("invalid until: %w", err)
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return f, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = min(n, MaxRecordLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid offset %q", v)
		}
		f.Offset = n
	}

	return f, nil
}

// parseTime accepts RFC3339 with or without fractional seconds. Empty
// returns the zero time.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

func exporterFor(format string) (export.Exporter, string, error) {
	if format == "" {
		format = "json"
	}
	exporter, err := export.New(format)
	if err != nil {
		return nil, "", err
	}
	if format == "csv" {
		return exporter, "text/csv; charset=utf-8", nil
	}
	return exporter, "application/json", nil
}

func writeBody(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
