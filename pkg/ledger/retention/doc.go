// Package retention deletes ledger records older than the configured number
// of days, either on demand (Pruner.Prune) or on a cron schedule
// (Pruner.Start).
package retention
