package returns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/tx"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/catalogs/medicine"
	"pharmacore/internal/domain/lots"
	"pharmacore/internal/domain/registers/ledger"
	"pharmacore/pkg/logger"
)

// ItemOutcome reports what completion did with one return line.
type ItemOutcome struct {
	ItemID       id.ID          `json:"itemId"`
	MedicineID   *id.ID         `json:"medicineId,omitempty"`
	MedicineName string         `json:"medicineName"`
	Restored     bool           `json:"restored"`
	SkipReason   string         `json:"skipReason,omitempty"`
	PrevQuantity types.Quantity `json:"prevQuantity"`
	NewQuantity  types.Quantity `json:"newQuantity"`
}

// Outcome reports the result of completing a return.
type Outcome struct {
	ReturnID          id.ID             `json:"returnId"`
	Status            Status            `json:"status"`
	RestorationStatus RestorationStatus `json:"restorationStatus"`
	Items             []ItemOutcome     `json:"items"`

	// AlreadyCompleted is set when the call was a re-entrant no-op.
	AlreadyCompleted bool `json:"alreadyCompleted"`
}

// Workflow drives a purchase return through its lifecycle. Completion is the
// only transition with inventory effects.
type Workflow struct {
	txm       tx.Manager
	repo      Repository
	lots      lots.Repository
	medicines medicine.Repository
	ledger    *ledger.Service
}

// NewWorkflow creates a return workflow.
func NewWorkflow(
	txm tx.Manager,
	repo Repository,
	lotRepo lots.Repository,
	medicineRepo medicine.Repository,
	ledgerSvc *ledger.Service,
) *Workflow {
	return &Workflow{
		txm:       txm,
		repo:      repo,
		lots:      lotRepo,
		medicines: medicineRepo,
		ledger:    ledgerSvc,
	}
}

// Approve moves pending -> approved.
func (w *Workflow) Approve(ctx context.Context, returnID id.ID) error {
	return w.transition(ctx, returnID, StatusApproved)
}

// Process moves approved -> processed.
func (w *Workflow) Process(ctx context.Context, returnID id.ID) error {
	return w.transition(ctx, returnID, StatusProcessed)
}

// Reject moves any non-terminal status to rejected.
func (w *Workflow) Reject(ctx context.Context, returnID id.ID) error {
	return w.transition(ctx, returnID, StatusRejected)
}

func (w *Workflow) transition(ctx context.Context, returnID id.ID, to Status) error {
	return w.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := w.repo.GetForUpdate(ctx, returnID)
		if err != nil {
			return err
		}
		if err := Transition(r.Status, to); err != nil {
			return err
		}
		r.Status = to
		r.Touch()
		return w.repo.Update(ctx, r)
	})
}

// Complete moves processed -> completed and restores inventory for every
// eligible item. The whole operation runs in one transaction: status change,
// aggregate and lot credits, and ledger entries commit together.
//
// Calling Complete on an already-completed return is a no-op reporting the
// stored outcome, so retried jobs cannot double-credit stock.
func (w *Workflow) Complete(ctx context.Context, returnID id.ID) (*Outcome, error) {
	var outcome *Outcome

	err := w.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := w.repo.GetForUpdate(ctx, returnID)
		if err != nil {
			return err
		}

		if r.Status == StatusCompleted {
			outcome = replayOutcome(r)
			logger.Info(ctx, "return already completed",
				"return_id", returnID,
				"restoration_status", r.RestorationStatus,
			)
			return nil
		}
		if err := Transition(r.Status, StatusCompleted); err != nil {
			return err
		}

		outcome = &Outcome{
			ReturnID: r.ID,
			Status:   StatusCompleted,
		}

		eligible, restored := 0, 0
		for i := range r.Items {
			item := &r.Items[i]
			if !item.Eligible() {
				continue
			}
			eligible++

			io, err := w.restoreItem(ctx, r, item)
			if err != nil {
				return err
			}
			outcome.Items = append(outcome.Items, io)
			if io.Restored {
				restored++
			}

			if err := w.repo.UpdateItem(ctx, item); err != nil {
				return fmt.Errorf("update return item: %w", err)
			}
		}

		r.Status = StatusCompleted
		r.RestorationStatus = RestorationCompleted
		if restored < eligible {
			r.RestorationStatus = RestorationPartial
		}
		now := time.Now().UTC()
		r.CompletedAt = &now
		r.Touch()
		if err := w.repo.Update(ctx, r); err != nil {
			return fmt.Errorf("update return: %w", err)
		}

		outcome.RestorationStatus = r.RestorationStatus
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !outcome.AlreadyCompleted {
		logger.Info(ctx, "return completed",
			"return_id", returnID,
			"restoration_status", outcome.RestorationStatus,
			"items", len(outcome.Items),
		)
	}
	return outcome, nil
}

// restoreItem credits one item back into inventory: aggregate quantity, the
// matching lot when one exists, and a positive-delta ledger entry. Resolution
// failures skip the item with a recorded reason rather than failing the
// whole return.
func (w *Workflow) restoreItem(ctx context.Context, r *PurchaseReturn, item *ReturnItem) (ItemOutcome, error) {
	out := ItemOutcome{
		ItemID:       item.ID,
		MedicineID:   item.MedicineID,
		MedicineName: item.MedicineName,
	}

	skip := func(reason string) (ItemOutcome, error) {
		item.SkipReason = reason
		out.SkipReason = reason
		logger.Warn(ctx, "return item skipped",
			"return_id", r.ID,
			"item_id", item.ID,
			"medicine_name", item.MedicineName,
			"reason", reason,
		)
		return out, nil
	}

	if !item.Quantity.IsPositive() {
		return skip("non-positive quantity")
	}

	med, reason, err := w.resolveMedicine(ctx, r.StoreID, item)
	if err != nil {
		return out, err
	}
	if med == nil {
		return skip(reason)
	}
	out.MedicineID = &med.ID

	if !med.SupportsUnit(item.Unit) {
		return skip(fmt.Sprintf("unit %s not enabled for medicine", item.Unit))
	}

	prev := med.QuantityFor(item.Unit)
	next := prev + item.Quantity
	med.SetQuantityFor(item.Unit, next)
	med.Touch()
	if err := w.medicines.UpdateStock(ctx, med); err != nil {
		return out, fmt.Errorf("update medicine stock: %w", err)
	}

	entry := ledger.Entry{
		MedicineID:   med.ID,
		StoreID:      r.StoreID,
		Kind:         ledger.KindPurchaseReturn,
		Unit:         item.Unit,
		Delta:        item.Quantity,
		PrevQuantity: prev,
		NewQuantity:  next,
	}.WithDocument(ledger.DocumentRef{
		Kind:   "purchase_return",
		ID:     r.ID,
		Number: r.Number,
	})

	// Credit the matching lot when the snapshot still points at one. A
	// missing or deactivated lot is tolerated; the reconciler will fold the
	// aggregate back onto lot totals on its next sweep.
	if item.LotNumber != "" {
		lot, err := w.lots.GetByLotNumber(ctx, med.ID, r.StoreID, item.LotNumber)
		switch {
		case err == nil:
			locked, err := w.lots.GetForUpdate(ctx, lot.ID)
			if err != nil {
				return out, err
			}
			locked.AddQuantity(item.Unit, item.Quantity)
			locked.Touch()
			if err := w.lots.UpdateQuantities(ctx, locked); err != nil {
				return out, fmt.Errorf("update lot quantities: %w", err)
			}
			entry = entry.WithLotSnapshot(locked.ID, locked.LotNumber, locked.ExpiryDate)
		case apperror.IsNotFound(err):
			logger.Debug(ctx, "return lot not found, crediting aggregate only",
				"return_id", r.ID,
				"lot_number", item.LotNumber,
			)
		default:
			return out, err
		}
	}

	if err := w.ledger.Record(ctx, entry); err != nil {
		return out, err
	}

	item.InventoryUpdated = true
	item.PrevQuantity = prev
	item.NewQuantity = next
	out.Restored = true
	out.PrevQuantity = prev
	out.NewQuantity = next
	return out, nil
}

// resolveMedicine finds the catalog record for a return item: the stored
// reference first, then a case-insensitive name lookup within the store.
// Returns (nil, reason, nil) when the item cannot be resolved.
func (w *Workflow) resolveMedicine(ctx context.Context, storeID id.ID, item *ReturnItem) (*medicine.Medicine, string, error) {
	if item.MedicineID != nil && !id.IsNil(*item.MedicineID) {
		med, err := w.medicines.GetForUpdate(ctx, *item.MedicineID)
		switch {
		case err == nil:
			return med, "", nil
		case apperror.IsNotFound(err):
			// stale reference, fall through to the name lookup
		default:
			return nil, "", err
		}
	}

	name := strings.TrimSpace(item.MedicineName)
	if name == "" {
		return nil, "no medicine reference", nil
	}

	med, err := w.medicines.GetByName(ctx, storeID, name)
	switch {
	case err == nil:
		locked, err := w.medicines.GetForUpdate(ctx, med.ID)
		if err != nil {
			return nil, "", err
		}
		return locked, "", nil
	case apperror.IsNotFound(err):
		return nil, fmt.Sprintf("medicine %q not found", name), nil
	default:
		return nil, "", err
	}
}

// replayOutcome rebuilds the outcome of a completed return from stored item
// state for re-entrant calls.
func replayOutcome(r *PurchaseReturn) *Outcome {
	out := &Outcome{
		ReturnID:          r.ID,
		Status:            r.Status,
		RestorationStatus: r.RestorationStatus,
		AlreadyCompleted:  true,
	}
	for i := range r.Items {
		item := &r.Items[i]
		if !item.RemoveFromInventory {
			continue
		}
		out.Items = append(out.Items, ItemOutcome{
			ItemID:       item.ID,
			MedicineID:   item.MedicineID,
			MedicineName: item.MedicineName,
			Restored:     item.InventoryUpdated,
			SkipReason:   item.SkipReason,
			PrevQuantity: item.PrevQuantity,
			NewQuantity:  item.NewQuantity,
		})
	}
	return out
}
