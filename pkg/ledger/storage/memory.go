package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"askmeter-hq/askproxy/pkg/ledger"
)

// MemoryStorage implements ledger.Storage with an in-memory slice.
// Records are lost on restart; it suits tests and ephemeral deployments.
type MemoryStorage struct {
	records []*ledger.Record
	closed  bool
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store persists a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *ledger.Record) error {
	if err := ctx.Err(); err != nil {
		return ledger.NewStorageError("memory", "store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ledger.NewStorageError("memory", "store", ledger.ErrClosed)
	}

	recordCopy := *record
	s.records = append(s.records, &recordCopy)
	return nil
}

// Query returns copies of the records matching f, newest first.
func (s *MemoryStorage) Query(ctx context.Context, f ledger.Filter) ([]*ledger.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ledger.NewStorageError("memory", "query", ledger.ErrClosed)
	}

	results := make([]*ledger.Record, 0)
	for _, record := range s.records {
		if matches(record, f) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(results) {
			return []*ledger.Record{}, nil
		}
		results = results[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(results) {
		results = results[:f.Limit]
	}

	return results, nil
}

// SummarizeByUser aggregates records created at or after since.
func (s *MemoryStorage) SummarizeByUser(ctx context.Context, since time.Time) ([]ledger.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ledger.NewStorageError("memory", "summarize", ledger.ErrClosed)
	}

	byUser := make(map[string]*ledger.UserSummary)
	for _, record := range s.records {
		if !since.IsZero() && record.CreatedAt.Before(since) {
			continue
		}
		sum, ok := byUser[record.User]
		if !ok {
			sum = &ledger.UserSummary{User: record.User}
			byUser[record.User] = sum
		}
		sum.Requests++
		if record.Status != ledger.StatusSuccess {
			sum.Failures++
		}
		sum.PromptTokens += int64(record.PromptTokens)
		sum.CompletionTokens += int64(record.CompletionTokens)
		sum.TotalTokens += int64(record.TotalTokens)
		sum.TotalCost += record.TotalCost
	}

	summaries := make([]ledger.UserSummary, 0, len(byUser))
	for _, sum := range byUser {
		summaries = append(summaries, *sum)
	}
	sortSummaries(summaries)

	return summaries, nil
}

// Prune deletes records created before the given time.
func (s *MemoryStorage) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ledger.NewStorageError("memory", "prune", ledger.ErrClosed)
	}

	kept := s.records[:0]
	var deleted int64
	for _, record := range s.records {
		if record.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	for i := len(kept); i < len(s.records); i++ {
		s.records[i] = nil
	}
	s.records = kept

	return deleted, nil
}

// Count returns the number of stored records.
func (s *MemoryStorage) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ledger.NewStorageError("memory", "count", ledger.ErrClosed)
	}
	return int64(len(s.records)), nil
}

// Close releases the stored records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.closed = true
	return nil
}

func matches(record *ledger.Record, f ledger.Filter) bool {
	if f.User != "" && record.User != f.User {
		return false
	}
	if f.Status != "" && record.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && record.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !record.CreatedAt.Before(f.Until) {
		return false
	}
	return true
}

// sortSummaries orders by total cost descending, then user ascending.
func sortSummaries(summaries []ledger.UserSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].TotalCost != summaries[j].TotalCost {
			return summaries[i].TotalCost > summaries[j].TotalCost
		}
		return summaries[i].User < summaries[j].User
	})
}
