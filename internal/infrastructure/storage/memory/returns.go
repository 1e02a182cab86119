package memory

import (
	"context"
	"sync"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/returns"
)

// ReturnStore is an in-memory returns.Repository.
type ReturnStore struct {
	mu   sync.RWMutex
	byID map[id.ID]returns.PurchaseReturn
}

// NewReturnStore creates an empty return store.
func NewReturnStore() *ReturnStore {
	return &ReturnStore{byID: make(map[id.ID]returns.PurchaseReturn)}
}

func (s *ReturnStore) Create(ctx context.Context, r *returns.PurchaseReturn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[r.ID] = cloneReturn(r)
	return nil
}

func (s *ReturnStore) GetByID(ctx context.Context, returnID id.ID) (*returns.PurchaseReturn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[returnID]
	if !ok {
		return nil, apperror.NewNotFound("purchase return", returnID)
	}
	out := cloneReturn(&r)
	return &out, nil
}

func (s *ReturnStore) GetForUpdate(ctx context.Context, returnID id.ID) (*returns.PurchaseReturn, error) {
	return s.GetByID(ctx, returnID)
}

func (s *ReturnStore) Update(ctx context.Context, r *returns.PurchaseReturn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[r.ID]
	if !ok {
		return apperror.NewNotFound("purchase return", r.ID)
	}
	if existing.Version >= r.Version {
		return apperror.NewConcurrentModification("purchase return", r.ID)
	}

	// header update only; items persist through UpdateItem
	updated := cloneReturn(r)
	updated.Items = existing.Items
	s.byID[r.ID] = updated
	return nil
}

func (s *ReturnStore) UpdateItem(ctx context.Context, item *returns.ReturnItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[item.ReturnID]
	if !ok {
		return apperror.NewNotFound("purchase return", item.ReturnID)
	}
	for i := range r.Items {
		if r.Items[i].ID == item.ID {
			r.Items[i] = *item
			s.byID[item.ReturnID] = r
			return nil
		}
	}
	return apperror.NewNotFound("return item", item.ID)
}

func cloneReturn(r *returns.PurchaseReturn) returns.PurchaseReturn {
	out := *r
	out.Items = make([]returns.ReturnItem, len(r.Items))
	copy(out.Items, r.Items)
	return out
}
