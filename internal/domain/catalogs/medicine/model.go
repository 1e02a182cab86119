// Package medicine provides the medicine catalog: one sellable product per
// store, tracked in up to two independent unit records (strips and
// individual pieces).
package medicine

import (
	"context"
	"time"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
)

// Medicine is a sellable product within one store.
//
// The strip and individual sub-records are independent inventories. Which of
// them a medicine uses is immutable business configuration (HasStrips /
// HasIndividual), never derived from quantities. Records migrated from the
// legacy flat stock model have neither flag set and carry their numbers in
// the legacy fields.
//
// Aggregate quantities are a denormalized cache over active lots; the
// reconciler corrects drift, writes never assume they are exact.
type Medicine struct {
	ID      id.ID  `db:"id" json:"id"`
	StoreID id.ID  `db:"store_id" json:"storeId"`
	Code    string `db:"code" json:"code"`
	Name    string `db:"name" json:"name"`
	Active  bool   `db:"active" json:"active"`

	HasStrips     bool `db:"has_strips" json:"hasStrips"`
	HasIndividual bool `db:"has_individual" json:"hasIndividual"`

	StripQuantity        types.Quantity `db:"strip_quantity" json:"stripQuantity"`
	StripMinQuantity     types.Quantity `db:"strip_min_quantity" json:"stripMinQuantity"`
	StripReorderQuantity types.Quantity `db:"strip_reorder_quantity" json:"stripReorderQuantity"`

	IndividualQuantity        types.Quantity `db:"individual_quantity" json:"individualQuantity"`
	IndividualMinQuantity     types.Quantity `db:"individual_min_quantity" json:"individualMinQuantity"`
	IndividualReorderQuantity types.Quantity `db:"individual_reorder_quantity" json:"individualReorderQuantity"`

	// Legacy flat stock, used only when neither unit flag is set
	LegacyQuantity    types.Quantity `db:"legacy_quantity" json:"legacyQuantity"`
	LegacyMinQuantity types.Quantity `db:"legacy_min_quantity" json:"legacyMinQuantity"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a medicine with generated id and timestamps.
func New(storeID id.ID, code, name string) *Medicine {
	now := time.Now().UTC()
	return &Medicine{
		ID:        id.New(),
		StoreID:   storeID,
		Code:      code,
		Name:      name,
		Active:    true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks catalog invariants.
func (m *Medicine) Validate(ctx context.Context) error {
	if m.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if id.IsNil(m.StoreID) {
		return apperror.NewValidation("store is required").
			WithDetail("field", "storeId")
	}
	return nil
}

// SupportsUnit reports whether the unit type is enabled for this medicine.
// Legacy records (neither flag) accept individual-unit operations only.
func (m *Medicine) SupportsUnit(unit types.UnitType) bool {
	switch unit {
	case types.UnitStrip:
		return m.HasStrips
	case types.UnitIndividual:
		return m.HasIndividual || m.IsLegacy()
	}
	return false
}

// IsLegacy reports whether the record predates dual-unit tracking.
func (m *Medicine) IsLegacy() bool {
	return !m.HasStrips && !m.HasIndividual
}

// QuantityFor returns the aggregate on-hand quantity for a unit type.
// Legacy records answer individual-unit reads from the legacy field.
func (m *Medicine) QuantityFor(unit types.UnitType) types.Quantity {
	switch unit {
	case types.UnitStrip:
		return m.StripQuantity
	case types.UnitIndividual:
		if m.IsLegacy() {
			return m.LegacyQuantity
		}
		return m.IndividualQuantity
	}
	return 0
}

// SetQuantityFor overwrites the aggregate quantity for a unit type.
func (m *Medicine) SetQuantityFor(unit types.UnitType, q types.Quantity) {
	switch unit {
	case types.UnitStrip:
		m.StripQuantity = q
	case types.UnitIndividual:
		if m.IsLegacy() {
			m.LegacyQuantity = q
			return
		}
		m.IndividualQuantity = q
	}
}

// Touch updates the timestamp and version for optimistic locking.
func (m *Medicine) Touch() {
	m.UpdatedAt = time.Now().UTC()
	m.Version++
}
