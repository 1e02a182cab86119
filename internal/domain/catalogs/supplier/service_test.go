package supplier_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/catalogs/supplier"
	"pharmacore/internal/infrastructure/storage/memory"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSupplierStore()
	svc := supplier.NewService(store)

	now := time.Now().UTC()
	known := &supplier.Supplier{
		ID:        id.New(),
		StoreID:   id.New(),
		Name:      "PT Kimia Farma",
		Active:    true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.Create(ctx, known))

	t.Run("resolved reference returns the record", func(t *testing.T) {
		sup, ref, err := svc.Resolve(ctx, supplier.ResolvedRef(known.ID))
		require.NoError(t, err)
		require.NotNil(t, sup)
		assert.Equal(t, "PT Kimia Farma", sup.Name)
		assert.Equal(t, supplier.RefResolved, ref.Kind)
	})

	t.Run("stale id downgrades to unresolved, no error", func(t *testing.T) {
		gone := id.New()
		sup, ref, err := svc.Resolve(ctx, supplier.ResolvedRef(gone))
		require.NoError(t, err)
		assert.Nil(t, sup)
		assert.Equal(t, supplier.RefUnresolved, ref.Kind)
		assert.Equal(t, gone.String(), ref.Raw)
	})

	t.Run("unresolved text passes through", func(t *testing.T) {
		ref := supplier.UnresolvedRef("CV Sumber Waras")
		sup, got, err := svc.Resolve(ctx, ref)
		require.NoError(t, err)
		assert.Nil(t, sup)
		assert.Equal(t, ref, got)
	})

	t.Run("absent stays absent", func(t *testing.T) {
		sup, ref, err := svc.Resolve(ctx, supplier.AbsentRef())
		require.NoError(t, err)
		assert.Nil(t, sup)
		assert.True(t, ref.IsAbsent())
	})
}
