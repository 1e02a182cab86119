package supplier

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacore/internal/core/id"
)

func TestParseRef(t *testing.T) {
	supplierID := id.New()

	t.Run("uuid resolves", func(t *testing.T) {
		ref := ParseRef(supplierID.String())
		assert.Equal(t, RefResolved, ref.Kind)
		assert.Equal(t, supplierID, ref.ID)
	})

	t.Run("free text stays unresolved", func(t *testing.T) {
		ref := ParseRef("PT Kimia Farma")
		assert.Equal(t, RefUnresolved, ref.Kind)
		assert.Equal(t, "PT Kimia Farma", ref.Raw)
	})

	t.Run("empty is absent", func(t *testing.T) {
		assert.True(t, ParseRef("").IsAbsent())
	})
}

func TestRefRoundTrip(t *testing.T) {
	supplierID := id.New()

	for _, ref := range []Ref{
		ResolvedRef(supplierID),
		UnresolvedRef("CV Sumber Waras"),
		AbsentRef(),
	} {
		v, err := ref.Value()
		require.NoError(t, err)

		var scanned Ref
		require.NoError(t, scanned.Scan(v))
		assert.Equal(t, ref.Kind, scanned.Kind)
		assert.Equal(t, ref.String(), scanned.String())
	}
}

func TestRefJSON(t *testing.T) {
	data, err := json.Marshal(UnresolvedRef("Apotek Sehat"))
	require.NoError(t, err)
	assert.Equal(t, `"Apotek Sehat"`, string(data))

	var ref Ref
	require.NoError(t, json.Unmarshal([]byte(`""`), &ref))
	assert.True(t, ref.IsAbsent())
}

func TestUnresolvedRefEmptyCollapsesToAbsent(t *testing.T) {
	assert.True(t, UnresolvedRef("").IsAbsent())
}
