package returns

import (
	"time"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
)

// PurchaseReturn is a return-to-supplier document. Only the transition into
// completed has inventory effects, and only once.
type PurchaseReturn struct {
	ID      id.ID  `db:"id" json:"id"`
	StoreID id.ID  `db:"store_id" json:"storeId"`
	Number  string `db:"number" json:"number"`
	Status  Status `db:"status" json:"status"`

	// RestorationStatus is set when the return completes:
	// completed if every eligible item was restored, else partial.
	RestorationStatus RestorationStatus `db:"restoration_status" json:"restorationStatus,omitempty"`

	SupplierID *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	Items []ReturnItem `db:"-" json:"items"`

	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	Version     int        `db:"version" json:"version"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// Touch updates the timestamp and version for optimistic locking.
func (r *PurchaseReturn) Touch() {
	r.UpdatedAt = time.Now().UTC()
	r.Version++
}

// ReturnItem is one line of a purchase return. The medicine reference may be
// absent when the return originates from a customer request that never
// entered inventory; resolution then falls back to a name lookup.
//
// InventoryUpdated is the idempotency marker: once true, the line is never
// credited again.
type ReturnItem struct {
	ID       id.ID `db:"id" json:"id"`
	ReturnID id.ID `db:"return_id" json:"returnId"`
	LineNo   int   `db:"line_no" json:"lineNo"`

	// Reference to the original purchase line
	PurchaseLineID *id.ID `db:"purchase_line_id" json:"purchaseLineId,omitempty"`

	MedicineID   *id.ID `db:"medicine_id" json:"medicineId,omitempty"`
	MedicineName string `db:"medicine_name" json:"medicineName"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`
	Unit     types.UnitType `db:"unit_type" json:"unitType"`

	// RemoveFromInventory marks lines whose stock should be restored when
	// the return completes.
	RemoveFromInventory bool `db:"remove_from_inventory" json:"removeFromInventory"`

	// Lot snapshot taken at return creation
	LotNumber string     `db:"lot_number" json:"lotNumber,omitempty"`
	LotExpiry *time.Time `db:"lot_expiry" json:"lotExpiry,omitempty"`

	// Inventory-effect fields, written exactly once on completion
	InventoryUpdated bool           `db:"inventory_updated" json:"inventoryUpdated"`
	PrevQuantity     types.Quantity `db:"prev_quantity" json:"prevQuantity"`
	NewQuantity      types.Quantity `db:"new_quantity" json:"newQuantity"`
	SkipReason       string         `db:"skip_reason" json:"skipReason,omitempty"`
}

// Eligible reports whether completion should touch inventory for this item.
func (i *ReturnItem) Eligible() bool {
	return i.RemoveFromInventory && !i.InventoryUpdated
}
