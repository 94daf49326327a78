// Package recorder provides the asynchronous ledger writer used on the
// request path.
//
// Record hands a ledger.Record to a buffered channel and returns at once; a
// single worker goroutine writes records to storage with a per-write
// timeout. A full buffer drops the record and logs a warning. Close drains
// whatever is queued before returning.
package recorder
