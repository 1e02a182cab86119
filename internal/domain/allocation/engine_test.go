package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/lots"
	"pharmacore/internal/infrastructure/storage/memory"
)

type lotDef struct {
	lotNumber  string
	strips     int64
	individual int64
	mfgOffset  time.Duration
	expOffset  time.Duration
	unitCost   string
}

func seedLots(t *testing.T, store *memory.LotStore, medicineID, storeID id.ID, defs []lotDef) map[string]id.ID {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	ids := make(map[string]id.ID, len(defs))

	for i, def := range defs {
		cost := types.ZeroMoney()
		if def.unitCost != "" {
			cost = types.MustMoney(def.unitCost)
		}
		l := &lots.Lot{
			ID:                 id.New(),
			MedicineID:         medicineID,
			StoreID:            storeID,
			LotNumber:          def.lotNumber,
			MfgDate:            now.Add(def.mfgOffset),
			ExpiryDate:         now.Add(def.expOffset),
			StripQuantity:      types.Quantity(def.strips),
			IndividualQuantity: types.Quantity(def.individual),
			UnitCost:           cost,
			Active:             true,
			Version:            1,
			CreatedAt:          now.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt:          now,
		}
		require.NoError(t, store.Create(ctx, l))
		ids[def.lotNumber] = l.ID
	}
	return ids
}

func TestAllocate_FEFO(t *testing.T) {
	ctx := context.Background()
	medicineID, storeID := id.New(), id.New()

	t.Run("consumes earliest expiry first, skipping empty lots", func(t *testing.T) {
		store := memory.NewLotStore()
		seedLots(t, store, medicineID, storeID, []lotDef{
			{lotNumber: "L-A", strips: 5, expOffset: 10 * 24 * time.Hour},
			{lotNumber: "L-B", strips: 0, expOffset: 5 * 24 * time.Hour},
			{lotNumber: "L-C", strips: 8, expOffset: 20 * 24 * time.Hour},
		})

		engine := NewEngine(store)
		plan, err := engine.Allocate(ctx, medicineID, storeID, types.UnitStrip, 6, StrategyFEFO)
		require.NoError(t, err)

		assert.True(t, plan.CanFulfill)
		require.Len(t, plan.Selections, 2)
		assert.Equal(t, "L-A", plan.Selections[0].LotNumber)
		assert.Equal(t, types.Quantity(5), plan.Selections[0].Quantity)
		assert.Equal(t, "L-C", plan.Selections[1].LotNumber)
		assert.Equal(t, types.Quantity(1), plan.Selections[1].Quantity)
		assert.Equal(t, types.Quantity(6), plan.TotalSelected)
		assert.True(t, plan.Shortfall.IsZero())
	})

	t.Run("excludes expired lots even with stock", func(t *testing.T) {
		store := memory.NewLotStore()
		seedLots(t, store, medicineID, storeID, []lotDef{
			{lotNumber: "L-OLD", strips: 50, expOffset: -24 * time.Hour},
			{lotNumber: "L-NEW", strips: 4, expOffset: 30 * 24 * time.Hour},
		})

		engine := NewEngine(store)
		plan, err := engine.Allocate(ctx, medicineID, storeID, types.UnitStrip, 10, StrategyFEFO)
		require.NoError(t, err)

		assert.False(t, plan.CanFulfill)
		require.Len(t, plan.Selections, 1)
		assert.Equal(t, "L-NEW", plan.Selections[0].LotNumber)
		assert.Equal(t, types.Quantity(6), plan.Shortfall)
	})

	t.Run("equal expiry ties break by creation order", func(t *testing.T) {
		store := memory.NewLotStore()
		exp := 15 * 24 * time.Hour
		seedLots(t, store, medicineID, storeID, []lotDef{
			{lotNumber: "L-FIRST", strips: 3, expOffset: exp},
			{lotNumber: "L-SECOND", strips: 3, expOffset: exp},
		})

		engine := NewEngine(store)
		plan, err := engine.Allocate(ctx, medicineID, storeID, types.UnitStrip, 4, StrategyFEFO)
		require.NoError(t, err)

		require.Len(t, plan.Selections, 2)
		assert.Equal(t, "L-FIRST", plan.Selections[0].LotNumber)
		assert.Equal(t, types.Quantity(3), plan.Selections[0].Quantity)
		assert.Equal(t, "L-SECOND", plan.Selections[1].LotNumber)
		assert.Equal(t, types.Quantity(1), plan.Selections[1].Quantity)
	})
}

func TestAllocate_Shortfall(t *testing.T) {
	ctx := context.Background()
	medicineID, storeID := id.New(), id.New()

	store := memory.NewLotStore()
	seedLots(t, store, medicineID, storeID, []lotDef{
		{lotNumber: "L-1", strips: 8, expOffset: 10 * 24 * time.Hour},
		{lotNumber: "L-2", strips: 5, expOffset: 20 * 24 * time.Hour},
	})

	engine := NewEngine(store)
	plan, err := engine.Allocate(ctx, medicineID, storeID, types.UnitStrip, 20, StrategyFEFO)
	require.NoError(t, err, "shortfall is a plan outcome, not an error")

	assert.False(t, plan.CanFulfill)
	assert.Equal(t, types.Quantity(13), plan.TotalSelected)
	assert.Equal(t, types.Quantity(7), plan.Shortfall)
	assert.Len(t, plan.Selections, 2, "partial selections are preserved for the caller")
}

func TestAllocate_FIFOAndReceipt(t *testing.T) {
	ctx := context.Background()
	medicineID, storeID := id.New(), id.New()

	// L-LATE was created first but manufactured later
	store := memory.NewLotStore()
	seedLots(t, store, medicineID, storeID, []lotDef{
		{lotNumber: "L-LATE", strips: 10, mfgOffset: -10 * 24 * time.Hour, expOffset: 40 * 24 * time.Hour},
		{lotNumber: "L-EARLY", strips: 10, mfgOffset: -30 * 24 * time.Hour, expOffset: 60 * 24 * time.Hour},
	})

	engine := NewEngine(store)

	t.Run("FIFO orders by manufacture date", func(t *testing.T) {
		plan, err := engine.Allocate(ctx, medicineID, storeID, types.UnitStrip, 5, StrategyFIFO)
		require.NoError(t, err)
		require.Len(t, plan.Selections, 1)
		assert.Equal(t, "L-EARLY", plan.Selections[0].LotNumber)
	})

	t.Run("RECEIPT orders by creation", func(t *testing.T) {
		plan, err := engine.Allocate(ctx, medicineID, storeID, types.UnitStrip, 5, StrategyReceipt)
		require.NoError(t, err)
		require.Len(t, plan.Selections, 1)
		assert.Equal(t, "L-LATE", plan.Selections[0].LotNumber)
	})
}

func TestAllocate_IndividualUnit(t *testing.T) {
	ctx := context.Background()
	medicineID, storeID := id.New(), id.New()

	store := memory.NewLotStore()
	seedLots(t, store, medicineID, storeID, []lotDef{
		{lotNumber: "L-1", strips: 0, individual: 30, expOffset: 10 * 24 * time.Hour},
		{lotNumber: "L-2", strips: 9, individual: 0, expOffset: 5 * 24 * time.Hour},
	})

	engine := NewEngine(store)
	plan, err := engine.Allocate(ctx, medicineID, storeID, types.UnitIndividual, 12, StrategyFEFO)
	require.NoError(t, err)

	assert.True(t, plan.CanFulfill)
	require.Len(t, plan.Selections, 1, "strip-only lots must not satisfy individual demand")
	assert.Equal(t, "L-1", plan.Selections[0].LotNumber)
	assert.Equal(t, types.Quantity(12), plan.Selections[0].Quantity)
}

func TestAllocate_WeightedAverageCost(t *testing.T) {
	ctx := context.Background()
	medicineID, storeID := id.New(), id.New()

	store := memory.NewLotStore()
	seedLots(t, store, medicineID, storeID, []lotDef{
		{lotNumber: "L-CHEAP", strips: 5, expOffset: 10 * 24 * time.Hour, unitCost: "10.00"},
		{lotNumber: "L-DEAR", strips: 5, expOffset: 20 * 24 * time.Hour, unitCost: "16.00"},
	})

	engine := NewEngine(store)
	plan, err := engine.Allocate(ctx, medicineID, storeID, types.UnitStrip, 6, StrategyFEFO)
	require.NoError(t, err)

	// (5*10 + 1*16) / 6 = 11
	assert.True(t, plan.WeightedAverageCost.Equal(types.MustMoney("11")),
		"got %s", plan.WeightedAverageCost)
}

func TestAllocate_Validation(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(memory.NewLotStore())
	medicineID, storeID := id.New(), id.New()

	t.Run("zero quantity", func(t *testing.T) {
		_, err := engine.Allocate(ctx, medicineID, storeID, types.UnitStrip, 0, StrategyFEFO)
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidQuantity))
	})

	t.Run("negative quantity", func(t *testing.T) {
		_, err := engine.Allocate(ctx, medicineID, storeID, types.UnitStrip, -3, StrategyFEFO)
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidQuantity))
	})

	t.Run("unknown unit", func(t *testing.T) {
		_, err := engine.Allocate(ctx, medicineID, storeID, types.UnitType("boxes"), 1, StrategyFEFO)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := engine.Allocate(ctx, medicineID, storeID, types.UnitStrip, 1, Strategy("LIFO"))
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})
}

func TestAllocate_NoLots(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(memory.NewLotStore())

	plan, err := engine.Allocate(ctx, id.New(), id.New(), types.UnitStrip, 5, StrategyFEFO)
	require.NoError(t, err)

	assert.False(t, plan.CanFulfill)
	assert.Empty(t, plan.Selections)
	assert.Equal(t, types.Quantity(5), plan.Shortfall)
	assert.True(t, plan.WeightedAverageCost.IsZero())
}

func TestCanFulfill(t *testing.T) {
	ctx := context.Background()
	medicineID, storeID := id.New(), id.New()

	store := memory.NewLotStore()
	seedLots(t, store, medicineID, storeID, []lotDef{
		{lotNumber: "L-1", strips: 7, expOffset: 10 * 24 * time.Hour},
	})

	engine := NewEngine(store)

	ok, err := engine.CanFulfill(ctx, medicineID, storeID, types.UnitStrip, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.CanFulfill(ctx, medicineID, storeID, types.UnitStrip, 8)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStrategy(t *testing.T) {
	t.Run("IsValid", func(t *testing.T) {
		for _, s := range AllStrategies() {
			assert.True(t, s.IsValid(), s)
		}
		assert.False(t, Strategy("LIFO").IsValid())
		assert.False(t, Strategy("").IsValid())
	})

	t.Run("AllStrategies", func(t *testing.T) {
		all := AllStrategies()
		assert.Len(t, all, 3)
		assert.Contains(t, all, StrategyFEFO)
		assert.Contains(t, all, StrategyFIFO)
		assert.Contains(t, all, StrategyReceipt)
	})
}
