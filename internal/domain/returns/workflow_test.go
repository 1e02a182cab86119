package returns_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/catalogs/medicine"
	"pharmacore/internal/domain/lots"
	"pharmacore/internal/domain/registers/ledger"
	"pharmacore/internal/domain/returns"
	"pharmacore/internal/infrastructure/storage/memory"
)

type fixture struct {
	lots      *memory.LotStore
	medicines *memory.MedicineStore
	ledger    *memory.LedgerStore
	returns   *memory.ReturnStore
	workflow  *returns.Workflow

	storeID    id.ID
	medicineID id.ID
	lotID      id.ID
}

// newFixture seeds one strip medicine (aggregate 10) with one lot of 10.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		lots:      memory.NewLotStore(),
		medicines: memory.NewMedicineStore(),
		ledger:    memory.NewLedgerStore(),
		returns:   memory.NewReturnStore(),
		storeID:   id.New(),
	}

	med := medicine.New(f.storeID, "MED-001", "Amoxicillin 500mg")
	med.HasStrips = true
	med.StripQuantity = 10
	require.NoError(t, f.medicines.Create(ctx, med))
	f.medicineID = med.ID

	now := time.Now().UTC()
	l := &lots.Lot{
		ID:            id.New(),
		MedicineID:    f.medicineID,
		StoreID:       f.storeID,
		LotNumber:     "LOT-RET-1",
		MfgDate:       now.AddDate(0, -3, 0),
		ExpiryDate:    now.AddDate(1, 0, 0),
		StripQuantity: 10,
		Active:        true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.lots.Create(ctx, l))
	f.lotID = l.ID

	f.workflow = returns.NewWorkflow(
		memory.NewTxManager(), f.returns, f.lots, f.medicines,
		ledger.NewService(f.ledger),
	)
	return f
}

func (f *fixture) seedReturn(t *testing.T, status returns.Status, items ...returns.ReturnItem) id.ID {
	t.Helper()
	now := time.Now().UTC()
	r := &returns.PurchaseReturn{
		ID:        id.New(),
		StoreID:   f.storeID,
		Number:    "PR-0001",
		Status:    status,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := range items {
		items[i].ID = id.New()
		items[i].ReturnID = r.ID
		items[i].LineNo = i + 1
	}
	r.Items = items
	require.NoError(t, f.returns.Create(context.Background(), r))
	return r.ID
}

func restorableItem(f *fixture, qty int64) returns.ReturnItem {
	return returns.ReturnItem{
		MedicineID:          &f.medicineID,
		MedicineName:        "Amoxicillin 500mg",
		Quantity:            types.Quantity(qty),
		Unit:                types.UnitStrip,
		RemoveFromInventory: true,
		LotNumber:           "LOT-RET-1",
	}
}

func TestComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("restores aggregate, lot and ledger", func(t *testing.T) {
		f := newFixture(t)
		returnID := f.seedReturn(t, returns.StatusProcessed, restorableItem(f, 3))

		outcome, err := f.workflow.Complete(ctx, returnID)
		require.NoError(t, err)

		assert.Equal(t, returns.StatusCompleted, outcome.Status)
		assert.Equal(t, returns.RestorationCompleted, outcome.RestorationStatus)
		require.Len(t, outcome.Items, 1)
		assert.True(t, outcome.Items[0].Restored)
		assert.Equal(t, types.Quantity(10), outcome.Items[0].PrevQuantity)
		assert.Equal(t, types.Quantity(13), outcome.Items[0].NewQuantity)

		med, err := f.medicines.GetByID(ctx, f.medicineID)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(13), med.StripQuantity)

		lot, err := f.lots.GetByID(ctx, f.lotID)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(13), lot.StripQuantity)

		entries := f.ledger.All()
		require.Len(t, entries, 1)
		assert.Equal(t, ledger.KindPurchaseReturn, entries[0].Kind)
		assert.Equal(t, types.Quantity(3), entries[0].Delta)
		assert.Equal(t, "PR-0001", entries[0].DocNumber)
		require.NotNil(t, entries[0].LotID)
		assert.Equal(t, f.lotID, *entries[0].LotID)
	})

	t.Run("second completion is a no-op", func(t *testing.T) {
		f := newFixture(t)
		returnID := f.seedReturn(t, returns.StatusProcessed, restorableItem(f, 3))

		_, err := f.workflow.Complete(ctx, returnID)
		require.NoError(t, err)

		outcome, err := f.workflow.Complete(ctx, returnID)
		require.NoError(t, err)
		assert.True(t, outcome.AlreadyCompleted)
		assert.Equal(t, returns.RestorationCompleted, outcome.RestorationStatus)
		require.Len(t, outcome.Items, 1)
		assert.True(t, outcome.Items[0].Restored)

		med, err := f.medicines.GetByID(ctx, f.medicineID)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(13), med.StripQuantity, "no double credit")
		assert.Len(t, f.ledger.All(), 1)
	})

	t.Run("resolves medicine by name when the reference is stale", func(t *testing.T) {
		f := newFixture(t)
		staleID := id.New()
		item := restorableItem(f, 2)
		item.MedicineID = &staleID

		returnID := f.seedReturn(t, returns.StatusProcessed, item)
		outcome, err := f.workflow.Complete(ctx, returnID)
		require.NoError(t, err)

		assert.Equal(t, returns.RestorationCompleted, outcome.RestorationStatus)
		require.Len(t, outcome.Items, 1)
		assert.True(t, outcome.Items[0].Restored)
		require.NotNil(t, outcome.Items[0].MedicineID)
		assert.Equal(t, f.medicineID, *outcome.Items[0].MedicineID)
	})

	t.Run("unresolvable item is skipped and the return is partial", func(t *testing.T) {
		f := newFixture(t)
		unknown := restorableItem(f, 2)
		unknown.MedicineID = nil
		unknown.MedicineName = "No Such Medicine"

		returnID := f.seedReturn(t, returns.StatusProcessed,
			restorableItem(f, 1),
			unknown,
		)

		outcome, err := f.workflow.Complete(ctx, returnID)
		require.NoError(t, err, "a skippable item must not fail the return")

		assert.Equal(t, returns.RestorationPartial, outcome.RestorationStatus)
		require.Len(t, outcome.Items, 2)
		assert.True(t, outcome.Items[0].Restored)
		assert.False(t, outcome.Items[1].Restored)
		assert.Contains(t, outcome.Items[1].SkipReason, "not found")

		med, err := f.medicines.GetByID(ctx, f.medicineID)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(11), med.StripQuantity)
	})

	t.Run("missing lot credits the aggregate only", func(t *testing.T) {
		f := newFixture(t)
		item := restorableItem(f, 4)
		item.LotNumber = "LOT-GONE"

		returnID := f.seedReturn(t, returns.StatusProcessed, item)
		outcome, err := f.workflow.Complete(ctx, returnID)
		require.NoError(t, err)

		assert.Equal(t, returns.RestorationCompleted, outcome.RestorationStatus)

		med, err := f.medicines.GetByID(ctx, f.medicineID)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(14), med.StripQuantity)

		lot, err := f.lots.GetByID(ctx, f.lotID)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(10), lot.StripQuantity, "unrelated lot untouched")

		entries := f.ledger.All()
		require.Len(t, entries, 1)
		assert.Nil(t, entries[0].LotID)
	})

	t.Run("items not flagged for inventory are ignored", func(t *testing.T) {
		f := newFixture(t)
		noInventory := restorableItem(f, 5)
		noInventory.RemoveFromInventory = false

		returnID := f.seedReturn(t, returns.StatusProcessed, noInventory)
		outcome, err := f.workflow.Complete(ctx, returnID)
		require.NoError(t, err)

		assert.Empty(t, outcome.Items)
		assert.Equal(t, returns.RestorationCompleted, outcome.RestorationStatus)
		assert.Empty(t, f.ledger.All())
	})

	t.Run("unsupported unit is skipped with a reason", func(t *testing.T) {
		f := newFixture(t)
		item := restorableItem(f, 2)
		item.Unit = types.UnitIndividual // medicine is strips-only

		returnID := f.seedReturn(t, returns.StatusProcessed, item)
		outcome, err := f.workflow.Complete(ctx, returnID)
		require.NoError(t, err)

		assert.Equal(t, returns.RestorationPartial, outcome.RestorationStatus)
		require.Len(t, outcome.Items, 1)
		assert.False(t, outcome.Items[0].Restored)
		assert.Contains(t, outcome.Items[0].SkipReason, "not enabled")
	})

	t.Run("completion from pending is rejected", func(t *testing.T) {
		f := newFixture(t)
		returnID := f.seedReturn(t, returns.StatusPending, restorableItem(f, 1))

		_, err := f.workflow.Complete(ctx, returnID)
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))

		med, err := f.medicines.GetByID(ctx, f.medicineID)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(10), med.StripQuantity)
	})
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	returnID := f.seedReturn(t, returns.StatusPending, restorableItem(f, 1))

	require.NoError(t, f.workflow.Approve(ctx, returnID))
	require.NoError(t, f.workflow.Process(ctx, returnID))

	outcome, err := f.workflow.Complete(ctx, returnID)
	require.NoError(t, err)
	assert.Equal(t, returns.StatusCompleted, outcome.Status)

	// rejected after completion is invalid
	err = f.workflow.Reject(ctx, returnID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
}
