package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/lots"
)

// LotStore is an in-memory lots.Repository.
type LotStore struct {
	mu   sync.RWMutex
	byID map[id.ID]lots.Lot
}

// NewLotStore creates an empty lot store.
func NewLotStore() *LotStore {
	return &LotStore{byID: make(map[id.ID]lots.Lot)}
}

func (s *LotStore) Create(ctx context.Context, l *lots.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if existing.Active &&
			existing.MedicineID == l.MedicineID &&
			existing.StoreID == l.StoreID &&
			strings.EqualFold(existing.LotNumber, l.LotNumber) {
			return apperror.NewDuplicateLot(l.LotNumber)
		}
	}
	s.byID[l.ID] = *l
	return nil
}

func (s *LotStore) GetByID(ctx context.Context, lotID id.ID) (*lots.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.byID[lotID]
	if !ok {
		return nil, apperror.NewNotFound("lot", lotID)
	}
	return &l, nil
}

// GetForUpdate is GetByID here; exclusivity comes from the TxManager lock.
func (s *LotStore) GetForUpdate(ctx context.Context, lotID id.ID) (*lots.Lot, error) {
	return s.GetByID(ctx, lotID)
}

func (s *LotStore) GetByLotNumber(ctx context.Context, medicineID, storeID id.ID, lotNumber string) (*lots.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.byID {
		if l.Active &&
			l.MedicineID == medicineID &&
			l.StoreID == storeID &&
			strings.EqualFold(l.LotNumber, lotNumber) {
			found := l
			return &found, nil
		}
	}
	return nil, apperror.NewNotFound("lot", lotNumber)
}

func (s *LotStore) FindActive(ctx context.Context, filter lots.Filter) ([]lots.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	var result []lots.Lot
	for _, l := range s.byID {
		if !l.Active {
			continue
		}
		if !id.IsNil(filter.MedicineID) && l.MedicineID != filter.MedicineID {
			continue
		}
		if !id.IsNil(filter.StoreID) && l.StoreID != filter.StoreID {
			continue
		}
		if filter.Unit != "" && !l.QuantityFor(filter.Unit).IsPositive() {
			continue
		}
		if filter.ExcludeExpired && l.IsExpiredAt(now) {
			continue
		}
		if filter.ExpiredOnly && !l.IsExpiredAt(now) {
			continue
		}
		result = append(result, l)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return bytes.Compare(result[i].ID[:], result[j].ID[:]) < 0
	})
	return result, nil
}

func (s *LotStore) UpdateQuantities(ctx context.Context, l *lots.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[l.ID]
	if !ok {
		return apperror.NewNotFound("lot", l.ID)
	}
	if existing.Version >= l.Version {
		return apperror.NewConcurrentModification("lot", l.ID)
	}
	s.byID[l.ID] = *l
	return nil
}

func (s *LotStore) Deactivate(ctx context.Context, lotID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.byID[lotID]
	if !ok {
		return apperror.NewNotFound("lot", lotID)
	}
	l.Active = false
	l.Touch()
	s.byID[lotID] = l
	return nil
}

func (s *LotStore) MarkExpired(ctx context.Context, storeID *id.ID, asOf time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flipped int64
	for key, l := range s.byID {
		if !l.Active || l.Expired {
			continue
		}
		if storeID != nil && l.StoreID != *storeID {
			continue
		}
		if !l.IsExpiredAt(asOf) {
			continue
		}
		l.Expired = true
		l.Touch()
		s.byID[key] = l
		flipped++
	}
	return flipped, nil
}

func (s *LotStore) SumActiveQuantities(ctx context.Context, medicineID, storeID id.ID) (lots.QuantitySums, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sums lots.QuantitySums
	for _, l := range s.byID {
		if !l.Active || l.MedicineID != medicineID || l.StoreID != storeID {
			continue
		}
		sums.Strip += l.StripQuantity
		sums.Individual += l.IndividualQuantity
		sums.LotCount++
	}
	return sums, nil
}

func (s *LotStore) ExpiringWithin(ctx context.Context, storeID id.ID, window time.Duration) ([]lots.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	deadline := now.Add(window)
	var result []lots.Lot
	for _, l := range s.byID {
		if !l.Active || l.StoreID != storeID {
			continue
		}
		if l.ExpiryDate.IsZero() || l.IsExpiredAt(now) {
			continue
		}
		if l.ExpiryDate.After(deadline) {
			continue
		}
		result = append(result, l)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ExpiryDate.Before(result[j].ExpiryDate)
	})
	return result, nil
}
