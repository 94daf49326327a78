// Package export renders ledger records and per-user summaries as CSV or
// JSON for the usage command.
package export
