package lots_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/catalogs/supplier"
	"pharmacore/internal/domain/lots"
	"pharmacore/internal/infrastructure/storage/memory"
)

func validInput(medicineID, storeID id.ID) lots.CreateLotInput {
	now := time.Now().UTC()
	return lots.CreateLotInput{
		MedicineID:         medicineID,
		StoreID:            storeID,
		LotNumber:          "LOT-2026-001",
		MfgDate:            now.AddDate(0, -2, 0),
		ExpiryDate:         now.AddDate(1, 0, 0),
		StripQuantity:      10,
		IndividualQuantity: 0,
		Supplier:           supplier.UnresolvedRef("PT Kimia Farma"),
		UnitCost:           types.MustMoney("12.50"),
	}
}

func TestCreateLot(t *testing.T) {
	ctx := context.Background()
	medicineID, storeID := id.New(), id.New()

	t.Run("creates lot with derived expired flag", func(t *testing.T) {
		svc := lots.NewService(memory.NewLotStore())

		lot, err := svc.CreateLot(ctx, validInput(medicineID, storeID))
		require.NoError(t, err)

		assert.False(t, id.IsNil(lot.ID))
		assert.True(t, lot.Active)
		assert.False(t, lot.Expired)
		assert.Equal(t, types.Quantity(10), lot.StripQuantity)
	})

	t.Run("already-expired date sets the flag at write time", func(t *testing.T) {
		svc := lots.NewService(memory.NewLotStore())

		input := validInput(medicineID, storeID)
		input.ExpiryDate = time.Now().UTC().AddDate(0, 0, -1)

		lot, err := svc.CreateLot(ctx, input)
		require.NoError(t, err, "receiving near-expiry goods is legal")
		assert.True(t, lot.Expired)
	})

	t.Run("duplicate lot number rejected", func(t *testing.T) {
		svc := lots.NewService(memory.NewLotStore())

		_, err := svc.CreateLot(ctx, validInput(medicineID, storeID))
		require.NoError(t, err)

		_, err = svc.CreateLot(ctx, validInput(medicineID, storeID))
		assert.True(t, apperror.IsDuplicateLot(err))
	})

	t.Run("same lot number allowed for a different medicine", func(t *testing.T) {
		svc := lots.NewService(memory.NewLotStore())

		_, err := svc.CreateLot(ctx, validInput(medicineID, storeID))
		require.NoError(t, err)

		_, err = svc.CreateLot(ctx, validInput(id.New(), storeID))
		assert.NoError(t, err)
	})

	t.Run("missing required fields rejected", func(t *testing.T) {
		svc := lots.NewService(memory.NewLotStore())

		input := validInput(medicineID, storeID)
		input.LotNumber = ""
		_, err := svc.CreateLot(ctx, input)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("negative quantity rejected", func(t *testing.T) {
		svc := lots.NewService(memory.NewLotStore())

		input := validInput(medicineID, storeID)
		input.StripQuantity = -1
		_, err := svc.CreateLot(ctx, input)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})
}

func TestRefreshExpiredStatus(t *testing.T) {
	ctx := context.Background()
	medicineID, storeID := id.New(), id.New()

	store := memory.NewLotStore()
	svc := lots.NewService(store)

	fresh, err := svc.CreateLot(ctx, validInput(medicineID, storeID))
	require.NoError(t, err)

	input := validInput(id.New(), storeID)
	input.LotNumber = "LOT-2024-099"
	input.ExpiryDate = time.Now().UTC().AddDate(0, 0, 2)
	soonExpired, err := svc.CreateLot(ctx, input)
	require.NoError(t, err)

	// force the date into the past to simulate time passing
	soonExpired.ExpiryDate = time.Now().UTC().AddDate(0, 0, -1)
	soonExpired.Touch()
	require.NoError(t, store.UpdateQuantities(ctx, soonExpired))

	flipped, err := svc.RefreshExpiredStatus(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), flipped)

	got, err := store.GetByID(ctx, soonExpired.ID)
	require.NoError(t, err)
	assert.True(t, got.Expired)

	gotFresh, err := store.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.False(t, gotFresh.Expired)

	// second sweep is a no-op
	flipped, err = svc.RefreshExpiredStatus(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, flipped)
}

func TestFindActiveLots(t *testing.T) {
	ctx := context.Background()
	medicineID, storeID := id.New(), id.New()

	store := memory.NewLotStore()
	svc := lots.NewService(store)

	_, err := svc.CreateLot(ctx, validInput(medicineID, storeID))
	require.NoError(t, err)

	t.Run("unknown unit rejected", func(t *testing.T) {
		_, err := svc.FindActiveLots(ctx, medicineID, storeID, types.UnitType("pallets"), lots.FindOptions{})
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("deactivated lots excluded", func(t *testing.T) {
		input := validInput(medicineID, storeID)
		input.LotNumber = "LOT-2026-002"
		lot, err := svc.CreateLot(ctx, input)
		require.NoError(t, err)
		require.NoError(t, svc.Deactivate(ctx, lot.ID))

		found, err := svc.FindActiveLots(ctx, medicineID, storeID, types.UnitStrip, lots.FindOptions{})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "LOT-2026-001", found[0].LotNumber)
	})
}

func TestExpiringWithin(t *testing.T) {
	ctx := context.Background()
	medicineID, storeID := id.New(), id.New()

	store := memory.NewLotStore()
	svc := lots.NewService(store)

	near := validInput(medicineID, storeID)
	near.LotNumber = "LOT-NEAR"
	near.ExpiryDate = time.Now().UTC().AddDate(0, 0, 10)
	_, err := svc.CreateLot(ctx, near)
	require.NoError(t, err)

	far := validInput(medicineID, storeID)
	far.LotNumber = "LOT-FAR"
	far.ExpiryDate = time.Now().UTC().AddDate(1, 0, 0)
	_, err = svc.CreateLot(ctx, far)
	require.NoError(t, err)

	expiring, err := svc.ExpiringWithin(ctx, storeID, 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "LOT-NEAR", expiring[0].LotNumber)
}
