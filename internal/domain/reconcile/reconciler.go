// Package reconcile provides the stock reconciler: it recomputes a
// medicine's aggregate on-hand quantities from its active lots and corrects
// drift. Lots are authoritative; the aggregate is a denormalized cache.
package reconcile

import (
	"context"
	"fmt"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/tx"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/catalogs/medicine"
	"pharmacore/internal/domain/lots"
	"pharmacore/pkg/logger"
)

// UnitResult is the before/after aggregate for one unit type.
type UnitResult struct {
	OldAggregate types.Quantity `json:"oldAggregate"`
	NewAggregate types.Quantity `json:"newAggregate"`
	Delta        types.Quantity `json:"delta"`
}

// Result reports one medicine's synchronization.
type Result struct {
	MedicineID id.ID                            `json:"medicineId"`
	StoreID    id.ID                            `json:"storeId"`
	Units      map[types.UnitType]UnitResult    `json:"units"`
	LotCount   int                              `json:"lotCount"`
}

// Drifted reports whether any unit's aggregate was off.
func (r Result) Drifted() bool {
	for _, u := range r.Units {
		if !u.Delta.IsZero() {
			return true
		}
	}
	return false
}

// Reconciler recomputes aggregates from lots.
type Reconciler struct {
	txm       tx.Manager
	lots      lots.Repository
	medicines medicine.Repository
}

// NewReconciler creates a new stock reconciler.
func NewReconciler(txm tx.Manager, lotRepo lots.Repository, medicineRepo medicine.Repository) *Reconciler {
	return &Reconciler{
		txm:       txm,
		lots:      lotRepo,
		medicines: medicineRepo,
	}
}

// Synchronize overwrites the medicine's aggregate stock with the sum of its
// active lots. Safe to run concurrently with sales: the aggregate is a
// cache, transient staleness is tolerated.
func (r *Reconciler) Synchronize(ctx context.Context, medicineID, storeID id.ID) (Result, error) {
	result := Result{
		MedicineID: medicineID,
		StoreID:    storeID,
		Units:      make(map[types.UnitType]UnitResult),
	}

	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sums, err := r.lots.SumActiveQuantities(ctx, medicineID, storeID)
		if err != nil {
			return fmt.Errorf("sum active lots: %w", err)
		}
		result.LotCount = sums.LotCount

		med, err := r.medicines.GetForUpdate(ctx, medicineID)
		if err != nil {
			return err
		}

		apply := func(unit types.UnitType, sum types.Quantity) {
			old := med.QuantityFor(unit)
			result.Units[unit] = UnitResult{
				OldAggregate: old,
				NewAggregate: sum,
				Delta:        sum - old,
			}
			med.SetQuantityFor(unit, sum)
		}

		if med.HasStrips {
			apply(types.UnitStrip, sums.Strip)
		}
		if med.HasIndividual || med.IsLegacy() {
			// Legacy records track their migrated stock in the lots'
			// individual column.
			apply(types.UnitIndividual, sums.Individual)
		}

		med.Touch()
		if err := r.medicines.UpdateStock(ctx, med); err != nil {
			return fmt.Errorf("update medicine stock: %w", err)
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	if result.Drifted() {
		logger.Warn(ctx, "aggregate stock drift corrected",
			"medicine_id", medicineID,
			"store_id", storeID,
			"units", result.Units,
			"lot_count", result.LotCount,
		)
	}

	return result, nil
}

// SynchronizeStore reconciles every active medicine in a store. One
// medicine's failure does not stop the sweep.
func (r *Reconciler) SynchronizeStore(ctx context.Context, storeID id.ID) (int, error) {
	ids, err := r.medicines.ListIDs(ctx, storeID)
	if err != nil {
		return 0, fmt.Errorf("list medicines: %w", err)
	}

	corrected := 0
	for _, medicineID := range ids {
		result, err := r.Synchronize(ctx, medicineID, storeID)
		if err != nil {
			logger.Error(ctx, "synchronize failed",
				"medicine_id", medicineID,
				"error", err,
			)
			continue
		}
		if result.Drifted() {
			corrected++
		}
	}

	logger.Info(ctx, "store synchronized",
		"store_id", storeID,
		"medicines", len(ids),
		"corrected", corrected,
	)
	return corrected, nil
}
