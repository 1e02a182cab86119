// Package ledger provides the append-only stock ledger: one immutable entry
// per lot-level quantity change, the source of truth for reconciliation.
package ledger

import (
	"time"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
)

// ChangeKind classifies what caused a quantity change.
type ChangeKind string

const (
	KindSale           ChangeKind = "sale"
	KindPurchase       ChangeKind = "purchase"
	KindPurchaseReturn ChangeKind = "purchase_return"
	KindAdjustment     ChangeKind = "adjustment"
	KindTransfer       ChangeKind = "transfer"
	KindExpiry         ChangeKind = "expiry"
	KindDamage         ChangeKind = "damage"
	KindCorrection     ChangeKind = "correction"
)

// IsValid reports whether the kind is one of the known values.
func (k ChangeKind) IsValid() bool {
	switch k {
	case KindSale, KindPurchase, KindPurchaseReturn, KindAdjustment,
		KindTransfer, KindExpiry, KindDamage, KindCorrection:
		return true
	}
	return false
}

// DocumentRef points at the business document that caused the change.
type DocumentRef struct {
	Kind   string `db:"doc_kind" json:"docKind"`
	ID     id.ID  `db:"doc_id" json:"docId"`
	Number string `db:"doc_number" json:"docNumber"`
}

// Entry is one immutable ledger record. Entries are never updated or
// deleted; only a retention-limited purge removes them by age.
type Entry struct {
	ID         id.ID      `db:"id" json:"id"`
	MedicineID id.ID      `db:"medicine_id" json:"medicineId"`
	StoreID    id.ID      `db:"store_id" json:"storeId"`
	Kind       ChangeKind `db:"kind" json:"kind"`

	Unit  types.UnitType `db:"unit_type" json:"unitType"`
	Delta types.Quantity `db:"delta" json:"delta"`

	// Aggregate quantity before and after this change. Soft invariant:
	// NewQuantity == PrevQuantity + Delta (logged when violated, not enforced).
	PrevQuantity types.Quantity `db:"prev_quantity" json:"prevQuantity"`
	NewQuantity  types.Quantity `db:"new_quantity" json:"newQuantity"`

	DocKind   string `db:"doc_kind" json:"docKind"`
	DocID     id.ID  `db:"doc_id" json:"docId"`
	DocNumber string `db:"doc_number" json:"docNumber"`

	ActorID string `db:"actor_id" json:"actorId"`

	// Optional lot snapshot at the time of the change
	LotID     *id.ID     `db:"lot_id" json:"lotId,omitempty"`
	LotNumber string     `db:"lot_number" json:"lotNumber,omitempty"`
	LotExpiry *time.Time `db:"lot_expiry" json:"lotExpiry,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// WithDocument attaches the originating document reference.
func (e Entry) WithDocument(ref DocumentRef) Entry {
	e.DocKind = ref.Kind
	e.DocID = ref.ID
	e.DocNumber = ref.Number
	return e
}

// WithLotSnapshot attaches the lot snapshot.
func (e Entry) WithLotSnapshot(lotID id.ID, lotNumber string, expiry time.Time) Entry {
	e.LotID = &lotID
	e.LotNumber = lotNumber
	exp := expiry
	e.LotExpiry = &exp
	return e
}

// Filter narrows ledger history queries.
type Filter struct {
	StoreID  *id.ID
	Kind     *ChangeKind
	Unit     *types.UnitType
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
