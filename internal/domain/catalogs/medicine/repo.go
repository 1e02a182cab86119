package medicine

import (
	"context"

	"pharmacore/internal/core/id"
)

// Repository defines storage operations for the medicine catalog.
type Repository interface {
	Create(ctx context.Context, m *Medicine) error

	// GetByID returns the medicine or a NOT_FOUND AppError.
	GetByID(ctx context.Context, medicineID id.ID) (*Medicine, error)

	// GetForUpdate returns the medicine with a row lock. Must be called
	// inside a transaction.
	GetForUpdate(ctx context.Context, medicineID id.ID) (*Medicine, error)

	// GetByName performs a case-insensitive exact-name lookup scoped to a
	// store. Used as the fallback resolution path for return items.
	GetByName(ctx context.Context, storeID id.ID, name string) (*Medicine, error)

	// UpdateStock persists aggregate stock fields with optimistic locking.
	UpdateStock(ctx context.Context, m *Medicine) error

	// ListIDs returns all active medicine ids for a store (reconciler sweep).
	ListIDs(ctx context.Context, storeID id.ID) ([]id.ID, error)

	// CountLowStock counts medicines matching the shared low-stock policy.
	CountLowStock(ctx context.Context, storeID id.ID) (int, error)

	// ListLowStock returns medicines matching the shared low-stock policy.
	ListLowStock(ctx context.Context, storeID id.ID, limit, offset int) ([]Medicine, error)
}
