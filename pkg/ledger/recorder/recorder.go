package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"askmeter-hq/askproxy/pkg/config"
	"askmeter-hq/askproxy/pkg/ledger"
)

// Config contains configuration for the ledger recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing one record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:  config.DefaultLedgerAsyncBuffer,
		WriteTimeout: config.DefaultLedgerWriteTimeout,
	}
}

// FromLedgerConfig extracts the recorder settings from the ledger config.
func FromLedgerConfig(cfg config.LedgerConfig) *Config {
	c := DefaultConfig()
	if cfg.AsyncBuffer > 0 {
		c.AsyncBuffer = cfg.AsyncBuffer
	}
	if cfg.WriteTimeout > 0 {
		c.WriteTimeout = cfg.WriteTimeout
	}
	return c
}

// Stats reports recorder activity since creation.
type Stats struct {
	Enqueued uint64
	Written  uint64
	Dropped  uint64
	Failed   uint64
}

// Recorder writes ledger records asynchronously so the request path never
// waits on storage. When the buffer is full, records are dropped with a
// warning rather than blocking the caller.
type Recorder struct {
	storage    ledger.Storage
	config     *Config
	recordChan chan *ledger.Record
	wg         sync.WaitGroup
	logger     *slog.Logger

	// mu guards closed and every send on recordChan, so no send can race
	// with the channel being closed.
	mu     sync.RWMutex
	closed bool

	enqueued atomic.Uint64
	written  atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
}

// NewRecorder creates a recorder over storage and starts its background worker.
func NewRecorder(storage ledger.Storage, cfg *Config) *Recorder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.AsyncBuffer < 0 {
		cfg.AsyncBuffer = 0
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultLedgerWriteTimeout
	}

	r := &Recorder{
		storage:    storage,
		config:     cfg,
		recordChan: make(chan *ledger.Record, cfg.AsyncBuffer),
		logger:     slog.Default().With("component", "ledger.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("ledger recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)

	return r
}

// Record enqueues record for writing and reports whether it was accepted.
// It assigns an ID and creation time when missing. Record never blocks.
func (r *Recorder) Record(record *ledger.Record) bool {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		r.logger.Warn("recorder shutting down, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
		)
		return false
	}

	select {
	case r.recordChan <- record:
		r.enqueued.Add(1)
		return true
	default:
		r.dropped.Add(1)
		r.logger.Warn("ledger buffer full, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return false
	}
}

// Stats returns a snapshot of the recorder's counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Enqueued: r.enqueued.Load(),
		Written:  r.written.Load(),
		Dropped:  r.dropped.Load(),
		Failed:   r.failed.Load(),
	}
}

// Close stops accepting records, drains the buffer and waits for pending
// writes. Every record Record accepted is written or counted as failed
// before Close returns. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.logger.Info("shutting down ledger recorder", "pending_count", len(r.recordChan))
	close(r.recordChan)
	r.mu.Unlock()

	r.wg.Wait()

	stats := r.Stats()
	r.logger.Info("ledger recorder shut down complete",
		"written", stats.Written,
		"dropped", stats.Dropped,
		"failed", stats.Failed,
	)
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for record := range r.recordChan {
		r.writeRecord(record)
	}
}

func (r *Recorder) writeRecord(record *ledger.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to store ledger record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}
	r.written.Add(1)

	duration := time.Since(start)
	r.logger.Debug("ledger record written",
		"record_id", record.ID,
		"request_id", record.RequestID,
		"status", record.Status,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow ledger write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}
