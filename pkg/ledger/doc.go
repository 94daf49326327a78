// Package ledger defines the durable per-call usage ledger.
//
// A Record is written for every proxied call, successful or not, carrying
// the user, token counts, estimated cost, latency and outcome. Records never
// include prompt or answer text.
//
// Subpackages:
//   - storage: memory, SQLite (pure Go and cgo drivers) and PostgreSQL backends
//   - recorder: asynchronous, non-blocking writer used on the request path
//   - retention: age-based pruning on a cron schedule
//   - export: CSV and JSON rendering of records and per-user summaries
package ledger
