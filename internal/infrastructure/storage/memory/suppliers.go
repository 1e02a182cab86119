package memory

import (
	"context"
	"strings"
	"sync"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/catalogs/supplier"
)

// SupplierStore is an in-memory supplier.Repository.
type SupplierStore struct {
	mu   sync.RWMutex
	byID map[id.ID]supplier.Supplier
}

// NewSupplierStore creates an empty supplier store.
func NewSupplierStore() *SupplierStore {
	return &SupplierStore{byID: make(map[id.ID]supplier.Supplier)}
}

func (s *SupplierStore) Create(ctx context.Context, sup *supplier.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[sup.ID] = *sup
	return nil
}

func (s *SupplierStore) GetByID(ctx context.Context, supplierID id.ID) (*supplier.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sup, ok := s.byID[supplierID]
	if !ok {
		return nil, apperror.NewNotFound("supplier", supplierID)
	}
	return &sup, nil
}

func (s *SupplierStore) GetByName(ctx context.Context, storeID id.ID, name string) (*supplier.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sup := range s.byID {
		if sup.Active && sup.StoreID == storeID && strings.EqualFold(sup.Name, name) {
			found := sup
			return &found, nil
		}
	}
	return nil, apperror.NewNotFound("supplier", name)
}

func (s *SupplierStore) Update(ctx context.Context, sup *supplier.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[sup.ID]; !ok {
		return apperror.NewNotFound("supplier", sup.ID)
	}
	s.byID[sup.ID] = *sup
	return nil
}
