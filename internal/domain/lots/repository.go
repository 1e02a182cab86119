package lots

import (
	"context"
	"time"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
)

// Filter narrows active-lot queries.
type Filter struct {
	MedicineID id.ID
	StoreID    id.ID

	// Unit restricts results to lots with positive quantity in this unit.
	Unit types.UnitType

	// ExcludeExpired drops lots whose expiry date has passed (derived from
	// the date, not the advisory flag, so a stale flag cannot leak expired
	// stock into an allocation).
	ExcludeExpired bool

	// ExpiredOnly returns only lots whose expiry date has passed.
	ExpiredOnly bool
}

// QuantitySums is the per-unit total over a medicine's active lots.
type QuantitySums struct {
	Strip      types.Quantity
	Individual types.Quantity
	LotCount   int
}

// Repository defines storage operations for the batch registry.
type Repository interface {
	// Create inserts a lot. Returns a DUPLICATE_LOT AppError when an active
	// lot with the same (medicine, lot number, store) triple exists.
	Create(ctx context.Context, l *Lot) error

	// GetByID returns the lot or a NOT_FOUND AppError.
	GetByID(ctx context.Context, lotID id.ID) (*Lot, error)

	// GetForUpdate returns the lot with a row lock. Must be called inside a
	// transaction; this is the read the mutator re-validates against.
	GetForUpdate(ctx context.Context, lotID id.ID) (*Lot, error)

	// GetByLotNumber finds an active lot by its human-assigned number.
	GetByLotNumber(ctx context.Context, medicineID, storeID id.ID, lotNumber string) (*Lot, error)

	// FindActive returns active lots matching the filter, creation order.
	FindActive(ctx context.Context, filter Filter) ([]Lot, error)

	// UpdateQuantities persists quantity fields with optimistic locking.
	UpdateQuantities(ctx context.Context, l *Lot) error

	// Deactivate soft-deletes a lot.
	Deactivate(ctx context.Context, lotID id.ID) error

	// MarkExpired flips expired=true for active lots whose expiry date is
	// before asOf. Scoped to one store when storeID is non-nil. Idempotent.
	MarkExpired(ctx context.Context, storeID *id.ID, asOf time.Time) (int64, error)

	// SumActiveQuantities totals active lots per unit for one medicine.
	SumActiveQuantities(ctx context.Context, medicineID, storeID id.ID) (QuantitySums, error)

	// ExpiringWithin returns active, unexpired lots whose expiry date falls
	// inside the window, soonest first.
	ExpiringWithin(ctx context.Context, storeID id.ID, window time.Duration) ([]Lot, error)
}
