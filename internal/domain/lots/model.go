// Package lots provides the batch registry: per-lot quantities, dates and
// flags for a medicine within a store. Lots are authoritative for stock;
// medicine aggregates are derived from them.
package lots

import (
	"context"
	"time"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/catalogs/supplier"
)

// Lot is one manufacturing/receiving batch of a medicine within a store.
// Unique among active lots by (medicine, lot number, store).
//
// Lots are never hard-deleted; Deactivate clears the active flag so ledger
// entries keep valid references. The expired flag is derived from the expiry
// date and advisory: stale values are tolerated and corrected by the
// status-refresh sweep.
type Lot struct {
	ID         id.ID  `db:"id" json:"id"`
	MedicineID id.ID  `db:"medicine_id" json:"medicineId"`
	StoreID    id.ID  `db:"store_id" json:"storeId"`
	LotNumber  string `db:"lot_number" json:"lotNumber"`

	MfgDate    time.Time `db:"mfg_date" json:"mfgDate"`
	ExpiryDate time.Time `db:"expiry_date" json:"expiryDate"`

	StripQuantity      types.Quantity `db:"strip_quantity" json:"stripQuantity"`
	IndividualQuantity types.Quantity `db:"individual_quantity" json:"individualQuantity"`

	Location string       `db:"location" json:"location,omitempty"`
	Supplier supplier.Ref `db:"supplier_ref" json:"supplierRef"`

	// UnitCost is the per-strip cost recorded at receipt, carried through
	// allocation plans for downstream costing. The engine applies no
	// pricing rules to it.
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	Active  bool `db:"active" json:"active"`
	Expired bool `db:"expired" json:"expired"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate checks entity invariants: non-negative quantities, required keys.
func (l *Lot) Validate(ctx context.Context) error {
	if id.IsNil(l.MedicineID) {
		return apperror.NewValidation("medicine is required").
			WithDetail("field", "medicineId")
	}
	if id.IsNil(l.StoreID) {
		return apperror.NewValidation("store is required").
			WithDetail("field", "storeId")
	}
	if l.LotNumber == "" {
		return apperror.NewValidation("lot number is required").
			WithDetail("field", "lotNumber")
	}
	if l.StripQuantity.IsNegative() {
		return apperror.NewValidation("strip quantity must not be negative").
			WithDetail("field", "stripQuantity")
	}
	if l.IndividualQuantity.IsNegative() {
		return apperror.NewValidation("individual quantity must not be negative").
			WithDetail("field", "individualQuantity")
	}
	return nil
}

// QuantityFor returns the lot quantity for a unit type.
func (l *Lot) QuantityFor(unit types.UnitType) types.Quantity {
	if unit == types.UnitStrip {
		return l.StripQuantity
	}
	return l.IndividualQuantity
}

// SetQuantityFor overwrites the lot quantity for a unit type.
func (l *Lot) SetQuantityFor(unit types.UnitType, q types.Quantity) {
	if unit == types.UnitStrip {
		l.StripQuantity = q
		return
	}
	l.IndividualQuantity = q
}

// AddQuantity applies a signed delta to the unit's quantity.
func (l *Lot) AddQuantity(unit types.UnitType, delta types.Quantity) {
	l.SetQuantityFor(unit, l.QuantityFor(unit)+delta)
}

// IsExpiredAt derives the expired state from the expiry date.
func (l *Lot) IsExpiredAt(t time.Time) bool {
	return !l.ExpiryDate.IsZero() && l.ExpiryDate.Before(t)
}

// Touch updates the timestamp and version for optimistic locking.
func (l *Lot) Touch() {
	l.UpdatedAt = time.Now().UTC()
	l.Version++
}
