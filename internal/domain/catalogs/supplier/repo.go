package supplier

import (
	"context"

	"pharmacore/internal/core/id"
)

// Repository defines storage operations for the supplier catalog.
type Repository interface {
	Create(ctx context.Context, s *Supplier) error
	GetByID(ctx context.Context, supplierID id.ID) (*Supplier, error)
	GetByName(ctx context.Context, storeID id.ID, name string) (*Supplier, error)
	Update(ctx context.Context, s *Supplier) error
}
