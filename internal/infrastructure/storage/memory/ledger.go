package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/registers/ledger"
)

// LedgerStore is an in-memory ledger.Repository.
type LedgerStore struct {
	mu      sync.RWMutex
	entries []ledger.Entry
}

// NewLedgerStore creates an empty ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{}
}

func (s *LedgerStore) Append(ctx context.Context, entries []ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *LedgerStore) ListByMedicine(ctx context.Context, medicineID id.ID, filter ledger.Filter) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ledger.Entry
	for _, e := range s.entries {
		if e.MedicineID != medicineID {
			continue
		}
		if filter.StoreID != nil && e.StoreID != *filter.StoreID {
			continue
		}
		if filter.Kind != nil && e.Kind != *filter.Kind {
			continue
		}
		if filter.Unit != nil && e.Unit != *filter.Unit {
			continue
		}
		if filter.FromDate != nil && e.CreatedAt.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && e.CreatedAt.After(*filter.ToDate) {
			continue
		}
		result = append(result, e)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *LedgerStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var removed int64
	for _, e := range s.entries {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}

// All returns a copy of every entry, append order. Test helper.
func (s *LedgerStore) All() []ledger.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
