package returns

import (
	"context"

	"pharmacore/internal/core/id"
)

// Repository defines storage operations for purchase returns.
type Repository interface {
	Create(ctx context.Context, r *PurchaseReturn) error

	// GetByID returns the document with its items.
	GetByID(ctx context.Context, returnID id.ID) (*PurchaseReturn, error)

	// GetForUpdate returns the document with a row lock, items included.
	// The only-once completion guard relies on this read.
	GetForUpdate(ctx context.Context, returnID id.ID) (*PurchaseReturn, error)

	// Update persists document header fields with optimistic locking.
	Update(ctx context.Context, r *PurchaseReturn) error

	// UpdateItem persists one item's inventory-effect fields.
	UpdateItem(ctx context.Context, item *ReturnItem) error
}
