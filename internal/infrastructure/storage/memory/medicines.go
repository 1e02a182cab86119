package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/catalogs/medicine"
	"pharmacore/internal/domain/lowstock"
)

// MedicineStore is an in-memory medicine.Repository. Low-stock queries go
// through the shared lowstock predicate, same policy as the SQL filter.
type MedicineStore struct {
	mu   sync.RWMutex
	byID map[id.ID]medicine.Medicine
}

// NewMedicineStore creates an empty medicine store.
func NewMedicineStore() *MedicineStore {
	return &MedicineStore{byID: make(map[id.ID]medicine.Medicine)}
}

func (s *MedicineStore) Create(ctx context.Context, m *medicine.Medicine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[m.ID] = *m
	return nil
}

func (s *MedicineStore) GetByID(ctx context.Context, medicineID id.ID) (*medicine.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.byID[medicineID]
	if !ok {
		return nil, apperror.NewNotFound("medicine", medicineID)
	}
	return &m, nil
}

func (s *MedicineStore) GetForUpdate(ctx context.Context, medicineID id.ID) (*medicine.Medicine, error) {
	return s.GetByID(ctx, medicineID)
}

func (s *MedicineStore) GetByName(ctx context.Context, storeID id.ID, name string) (*medicine.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.byID {
		if m.Active && m.StoreID == storeID && strings.EqualFold(m.Name, name) {
			found := m
			return &found, nil
		}
	}
	return nil, apperror.NewNotFound("medicine", name)
}

func (s *MedicineStore) UpdateStock(ctx context.Context, m *medicine.Medicine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[m.ID]
	if !ok {
		return apperror.NewNotFound("medicine", m.ID)
	}
	if existing.Version >= m.Version {
		return apperror.NewConcurrentModification("medicine", m.ID)
	}
	s.byID[m.ID] = *m
	return nil
}

func (s *MedicineStore) ListIDs(ctx context.Context, storeID id.ID) ([]id.ID, error) {
	all, err := s.listStore(storeID, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]id.ID, 0, len(all))
	for _, m := range all {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (s *MedicineStore) CountLowStock(ctx context.Context, storeID id.ID) (int, error) {
	low, err := s.listStore(storeID, lowstock.IsLowStock)
	if err != nil {
		return 0, err
	}
	return len(low), nil
}

func (s *MedicineStore) ListLowStock(ctx context.Context, storeID id.ID, limit, offset int) ([]medicine.Medicine, error) {
	low, err := s.listStore(storeID, lowstock.IsLowStock)
	if err != nil {
		return nil, err
	}
	if offset >= len(low) {
		return nil, nil
	}
	low = low[offset:]
	if limit > 0 && limit < len(low) {
		low = low[:limit]
	}
	return low, nil
}

// listStore returns the store's active medicines name-ordered, optionally
// filtered by a predicate.
func (s *MedicineStore) listStore(storeID id.ID, pred func(*medicine.Medicine) bool) ([]medicine.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []medicine.Medicine
	for _, m := range s.byID {
		if !m.Active || m.StoreID != storeID {
			continue
		}
		if pred != nil && !pred(&m) {
			continue
		}
		result = append(result, m)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}
