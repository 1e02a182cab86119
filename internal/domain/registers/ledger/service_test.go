package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacore/internal/core/actor"
	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/registers/ledger"
	"pharmacore/internal/infrastructure/storage/memory"
)

func entry(medicineID, storeID id.ID, delta, prev types.Quantity) ledger.Entry {
	return ledger.Entry{
		MedicineID:   medicineID,
		StoreID:      storeID,
		Kind:         ledger.KindSale,
		Unit:         types.UnitStrip,
		Delta:        delta,
		PrevQuantity: prev,
		NewQuantity:  prev + delta,
	}
}

func TestRecord(t *testing.T) {
	medicineID, storeID := id.New(), id.New()

	t.Run("fills id, timestamp and actor", func(t *testing.T) {
		store := memory.NewLedgerStore()
		svc := ledger.NewService(store)
		ctx := actor.WithActor(context.Background(), actor.Actor{ID: "u-7", Kind: "user"})

		require.NoError(t, svc.Record(ctx, entry(medicineID, storeID, -2, 10)))

		entries := store.All()
		require.Len(t, entries, 1)
		assert.False(t, id.IsNil(entries[0].ID))
		assert.False(t, entries[0].CreatedAt.IsZero())
		assert.Equal(t, "u-7", entries[0].ActorID)
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		svc := ledger.NewService(memory.NewLedgerStore())
		e := entry(medicineID, storeID, -2, 10)
		e.Kind = ledger.ChangeKind("mystery")
		err := svc.Record(context.Background(), e)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("zero delta rejected", func(t *testing.T) {
		svc := ledger.NewService(memory.NewLedgerStore())
		err := svc.Record(context.Background(), entry(medicineID, storeID, 0, 10))
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("arithmetic drift is recorded, not rejected", func(t *testing.T) {
		store := memory.NewLedgerStore()
		svc := ledger.NewService(store)

		e := entry(medicineID, storeID, -2, 10)
		e.NewQuantity = 99 // drifted aggregate snapshot
		require.NoError(t, svc.Record(context.Background(), e))
		assert.Len(t, store.All(), 1)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		svc := ledger.NewService(memory.NewLedgerStore())
		assert.NoError(t, svc.Record(context.Background()))
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	medicineID, storeID := id.New(), id.New()

	store := memory.NewLedgerStore()
	svc := ledger.NewService(store)

	old := entry(medicineID, storeID, 5, 0)
	old.Kind = ledger.KindPurchase
	old.CreatedAt = time.Now().UTC().Add(-time.Hour)
	recent := entry(medicineID, storeID, -2, 5)
	require.NoError(t, svc.Record(ctx, old))
	require.NoError(t, svc.Record(ctx, recent))
	require.NoError(t, svc.Record(ctx, entry(id.New(), storeID, 1, 0)))

	t.Run("newest first, scoped to the medicine", func(t *testing.T) {
		got, err := svc.History(ctx, medicineID, ledger.Filter{})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, ledger.KindSale, got[0].Kind)
		assert.Equal(t, ledger.KindPurchase, got[1].Kind)
	})

	t.Run("kind filter", func(t *testing.T) {
		kind := ledger.KindPurchase
		got, err := svc.History(ctx, medicineID, ledger.Filter{Kind: &kind})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, types.Quantity(5), got[0].Delta)
	})
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	medicineID, storeID := id.New(), id.New()

	store := memory.NewLedgerStore()
	svc := ledger.NewService(store)

	ancient := entry(medicineID, storeID, 5, 0)
	ancient.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, svc.Record(ctx, ancient))
	require.NoError(t, svc.Record(ctx, entry(medicineID, storeID, -1, 5)))

	removed, err := svc.Purge(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Len(t, store.All(), 1)
}
