package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"askmeter-hq/askproxy/pkg/config"
	"askmeter-hq/askproxy/pkg/ledger"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain records.
	// 0 means keep records forever (no pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: config.DefaultLedgerRetentionDays,
		PruneSchedule: config.DefaultLedgerPruneSchedule,
	}
}

// FromRetentionConfig converts the ledger retention settings.
func FromRetentionConfig(cfg config.RetentionConfig) *Config {
	return &Config{
		RetentionDays: cfg.Days,
		PruneSchedule: cfg.Schedule,
	}
}

// Pruner enforces the retention period on ledger records.
type Pruner struct {
	storage   ledger.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage ledger.Storage, cfg *Config) *Pruner {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	pruner := &Pruner{
		storage: storage,
		config:  cfg,
		logger:  slog.Default().With("component", "ledger.retention"),
		now:     time.Now,
	}
	pruner.scheduler = NewScheduler(pruner)

	return pruner
}

// Cutoff returns the instant before which records are pruned, and false
// when retention is unlimited.
func (p *Pruner) Cutoff() (time.Time, bool) {
	if p.config.RetentionDays <= 0 {
		return time.Time{}, false
	}
	return p.now().AddDate(0, 0, -p.config.RetentionDays), true
}

// Prune deletes records older than the retention period and returns how many
// were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff, ok := p.Cutoff()
	if !ok {
		p.logger.Debug("retention unlimited, nothing to prune")
		return 0, nil
	}

	deleted, err := p.storage.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune by age failed: %w", err)
	}

	if deleted == 0 {
		p.logger.Debug("no records pruned",
			"retention_days", p.config.RetentionDays,
		)
	} else {
		p.logger.Info("ledger pruning completed",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
			"cutoff", cutoff,
		)
	}

	return deleted, nil
}

// Start starts the automatic pruning scheduler. It returns once the
// schedule is registered; the scheduler stops when ctx is canceled.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
