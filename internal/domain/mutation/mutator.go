// Package mutation provides the lot mutator: the only component that writes
// lot quantities. Every commit re-reads the touched lots under lock,
// re-validates sufficiency, applies the deltas and appends matching ledger
// entries, all inside one transaction, so a concurrent sale can never leave
// a partial deduction behind.
package mutation

import (
	"context"
	"fmt"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/tx"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/allocation"
	"pharmacore/internal/domain/catalogs/medicine"
	"pharmacore/internal/domain/lots"
	"pharmacore/internal/domain/registers/ledger"
	"pharmacore/pkg/logger"
)

// Line is one lot's share of a commit.
type Line struct {
	LotID    id.ID
	Quantity types.Quantity
}

// Commit describes a quantity change to apply across one medicine's lots.
type Commit struct {
	MedicineID id.ID
	StoreID    id.ID
	Unit       types.UnitType
	Kind       ledger.ChangeKind
	Document   ledger.DocumentRef
	Lines      []Line
}

// FromPlan builds a deduction commit from an allocation plan.
func FromPlan(plan allocation.Plan, kind ledger.ChangeKind, doc ledger.DocumentRef) Commit {
	c := Commit{
		MedicineID: plan.MedicineID,
		StoreID:    plan.StoreID,
		Unit:       plan.Unit,
		Kind:       kind,
		Document:   doc,
	}
	for _, sel := range plan.Selections {
		c.Lines = append(c.Lines, Line{LotID: sel.LotID, Quantity: sel.Quantity})
	}
	return c
}

// Applied reports the outcome for one lot after a successful commit.
type Applied struct {
	LotID       id.ID
	Delta       types.Quantity
	LotQuantity types.Quantity
}

// Mutator applies quantity deltas to lots under transactional guarantees.
type Mutator struct {
	txm       tx.Manager
	lots      lots.Repository
	medicines medicine.Repository
	ledger    *ledger.Service
}

// NewMutator creates a new lot mutator with its storage dependencies.
func NewMutator(txm tx.Manager, lotRepo lots.Repository, medicineRepo medicine.Repository, ledgerSvc *ledger.Service) *Mutator {
	return &Mutator{
		txm:       txm,
		lots:      lotRepo,
		medicines: medicineRepo,
		ledger:    ledgerSvc,
	}
}

// CommitDeduction removes quantity from the lots named in the commit.
// If any lot fails the sufficiency check the whole transaction aborts with
// INSUFFICIENT_LOT_STOCK and no partial writes are visible; the caller may
// retry with a fresh allocation.
func (m *Mutator) CommitDeduction(ctx context.Context, c Commit) ([]Applied, error) {
	return m.commit(ctx, c, -1)
}

// CommitAddition adds quantity to the lots named in the commit.
func (m *Mutator) CommitAddition(ctx context.Context, c Commit) ([]Applied, error) {
	return m.commit(ctx, c, +1)
}

func (m *Mutator) commit(ctx context.Context, c Commit, sign int64) ([]Applied, error) {
	if err := m.validate(c); err != nil {
		return nil, err
	}

	var applied []Applied
	err := m.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// Re-read every lot under lock and validate before touching any of
		// them: a race between planning and committing surfaces here.
		locked := make([]*lots.Lot, len(c.Lines))
		for i, line := range c.Lines {
			lot, err := m.lots.GetForUpdate(ctx, line.LotID)
			if err != nil {
				return fmt.Errorf("lock lot %s: %w", line.LotID, err)
			}
			if !lot.Active {
				return apperror.NewNotFound("lot", line.LotID.String()).
					WithDetail("reason", "deactivated")
			}
			if sign < 0 && lot.QuantityFor(c.Unit) < line.Quantity {
				return apperror.NewInsufficientLotStock(
					lot.ID.String(),
					lot.QuantityFor(c.Unit).Int64(),
					line.Quantity.Int64(),
				)
			}
			locked[i] = lot
		}

		med, err := m.medicines.GetForUpdate(ctx, c.MedicineID)
		if err != nil {
			return fmt.Errorf("lock medicine %s: %w", c.MedicineID, err)
		}

		running := med.QuantityFor(c.Unit)
		entries := make([]ledger.Entry, 0, len(c.Lines))
		applied = applied[:0]

		for i, line := range c.Lines {
			lot := locked[i]
			delta := types.Quantity(sign * line.Quantity.Int64())

			lot.AddQuantity(c.Unit, delta)
			lot.Touch()
			if err := m.lots.UpdateQuantities(ctx, lot); err != nil {
				return fmt.Errorf("update lot %s: %w", lot.ID, err)
			}

			entry := ledger.Entry{
				MedicineID:   c.MedicineID,
				StoreID:      c.StoreID,
				Kind:         c.Kind,
				Unit:         c.Unit,
				Delta:        delta,
				PrevQuantity: running,
				NewQuantity:  running + delta,
			}.WithDocument(c.Document).
				WithLotSnapshot(lot.ID, lot.LotNumber, lot.ExpiryDate)
			entries = append(entries, entry)

			running += delta
			applied = append(applied, Applied{
				LotID:       lot.ID,
				Delta:       delta,
				LotQuantity: lot.QuantityFor(c.Unit),
			})
		}

		med.SetQuantityFor(c.Unit, running)
		med.Touch()
		if err := m.medicines.UpdateStock(ctx, med); err != nil {
			return fmt.Errorf("update medicine stock: %w", err)
		}

		return m.ledger.Record(ctx, entries...)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock committed",
		"medicine_id", c.MedicineID,
		"kind", c.Kind,
		"unit", c.Unit,
		"lots", len(applied),
		"doc_number", c.Document.Number,
	)

	return applied, nil
}

func (m *Mutator) validate(c Commit) error {
	if len(c.Lines) == 0 {
		return apperror.NewValidation("commit has no lines")
	}
	if !c.Unit.IsValid() {
		return apperror.NewValidation(fmt.Sprintf("unknown unit type %q", c.Unit))
	}
	if !c.Kind.IsValid() {
		return apperror.NewValidation(fmt.Sprintf("unknown change kind %q", c.Kind))
	}
	for i, line := range c.Lines {
		if id.IsNil(line.LotID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: lot is required", i))
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewInvalidQuantity(line.Quantity.Int64()).
				WithDetail("line", i)
		}
	}
	return nil
}
