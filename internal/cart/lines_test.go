package cart

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, price, discount int64) Product {
	return Product{
		ID:       id,
		Name:     "Product " + id,
		Price:    decimal.NewFromInt(price),
		Discount: decimal.NewFromInt(discount),
	}
}

func TestAddSameKeyTwiceSumsQuantity(t *testing.T) {
	t.Parallel()

	var ls Lines
	ls = Add(ls, product("A", 10, 0), 2, nil)
	ls = Add(ls, product("A", 10, 0), 3, nil)

	require.Len(t, ls, 1)
	assert.Equal(t, 5, ls[0].Quantity)
}

func TestNilAndLabelledVariationsAreDistinct(t *testing.T) {
	t.Parallel()

	var ls Lines
	ls = Add(ls, product("A", 10, 0), 1, nil)
	ls = Add(ls, product("A", 10, 0), 1, Variation("Red"))
	ls = Add(ls, product("A", 10, 0), 1, Variation("Blue"))
	ls = Add(ls, product("A", 10, 0), 4, Variation("Red"))

	require.Len(t, ls, 3)
	assert.Nil(t, ls[0].Variation)
	assert.Equal(t, "Red", *ls[1].Variation)
	assert.Equal(t, 5, ls[1].Quantity)
	assert.Equal(t, "Blue", *ls[2].Variation)
}

func TestAddKeepsPositionOnIncrement(t *testing.T) {
	t.Parallel()

	var ls Lines
	ls = Add(ls, product("A", 1, 0), 1, nil)
	ls = Add(ls, product("B", 1, 0), 1, nil)
	ls = Add(ls, product("A", 1, 0), 1, nil)
	ls = Add(ls, product("C", 1, 0), 1, nil)

	ids := []string{ls[0].Product.ID, ls[1].Product.ID, ls[2].Product.ID}
	assert.Equal(t, []string{"A", "B", "C"}, ids)
	assert.Equal(t, 2, ls[0].Quantity)
}

func TestAddDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	orig := Add(nil, product("A", 1, 0), 1, Variation("Red"))
	_ = Add(orig, product("A", 1, 0), 5, Variation("Red"))

	assert.Equal(t, 1, orig[0].Quantity)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	var ls Lines
	ls = Add(ls, product("A", 1, 0), 1, nil)
	ls = Add(ls, product("A", 1, 0), 1, Variation("Red"))
	ls = Add(ls, product("B", 1, 0), 1, nil)

	ls = Remove(ls, "A", Variation("Red"))
	require.Len(t, ls, 2)
	assert.Equal(t, "A", ls[0].Product.ID)
	assert.Nil(t, ls[0].Variation)

	same := Remove(ls, "missing", nil)
	assert.True(t, Equal(ls, same))
}

func TestUpdateQuantityFloorsAtOne(t *testing.T) {
	t.Parallel()

	ls := Add(nil, product("A", 1, 0), 3, nil)

	ls = UpdateQuantity(ls, "A", nil, -100)
	assert.Equal(t, 1, ls[0].Quantity)

	ls = UpdateQuantity(ls, "A", nil, 4)
	assert.Equal(t, 5, ls[0].Quantity)

	ls = UpdateQuantity(ls, "A", Variation("Red"), 10)
	assert.Equal(t, 5, ls[0].Quantity, "unknown key is a no-op")
}

func TestMergeIsAdditiveRemoteFirst(t *testing.T) {
	t.Parallel()

	remote := Add(nil, product("A", 10, 0), 1, nil)
	guest := Add(nil, product("A", 10, 0), 2, nil)
	guest = Add(guest, product("B", 5, 0), 1, nil)

	merged := Merge(remote, guest)

	require.Len(t, merged, 2)
	assert.Equal(t, "A", merged[0].Product.ID)
	assert.Equal(t, 3, merged[0].Quantity)
	assert.Equal(t, "B", merged[1].Product.ID)
	assert.Equal(t, 1, merged[1].Quantity)
}

func TestMergeKeepsRemoteOnlyLinesAndVariations(t *testing.T) {
	t.Parallel()

	remote := Add(nil, product("A", 10, 0), 1, Variation("Red"))
	remote = Add(remote, product("C", 10, 0), 7, nil)
	guest := Add(nil, product("A", 10, 0), 2, nil)

	merged := Merge(remote, guest)

	require.Len(t, merged, 3)
	assert.Equal(t, 1, merged[0].Quantity)
	assert.Equal(t, 7, merged[1].Quantity)
	assert.Nil(t, merged[2].Variation)
	assert.Equal(t, 2, merged[2].Quantity)
}

func TestMergeWithEmptySides(t *testing.T) {
	t.Parallel()

	guest := Add(nil, product("A", 1, 0), 2, nil)
	assert.True(t, Equal(guest, Merge(nil, guest)))
	assert.True(t, Equal(guest, Merge(guest, nil)))
	assert.Empty(t, Merge(nil, nil))
}

func TestTotalUsesSnapshotPrice(t *testing.T) {
	t.Parallel()

	ls := Add(nil, product("A", 100, 10), 3, nil)
	ls = Add(ls, product("B", 20, 0), 2, nil)

	assert.True(t, Total(ls).Equal(decimal.NewFromInt(310)), "got %s", Total(ls))
	assert.Equal(t, 5, Count(ls))

	// re-adding with a newer catalog price keeps the first snapshot
	ls = Add(ls, product("A", 500, 0), 1, nil)
	assert.True(t, Total(ls).Equal(decimal.NewFromInt(400)), "got %s", Total(ls))
}

func TestTotalFractionalDiscount(t *testing.T) {
	t.Parallel()

	p := Product{ID: "A", Price: decimal.RequireFromString("19.99"), Discount: decimal.RequireFromString("15")}
	ls := Add(nil, p, 2, nil)

	assert.Equal(t, "33.983", Total(ls).String())
	assert.True(t, Total(nil).IsZero())
	assert.Zero(t, Count(nil))
}

func TestLineJSONShape(t *testing.T) {
	t.Parallel()

	ls := Add(nil, product("A", 100, 10), 1, nil)
	ls = Add(ls, product("B", 5, 0), 2, Variation("Red"))

	raw, err := json.Marshal(ls)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 2)
	assert.Nil(t, decoded[0]["variation"])
	assert.Equal(t, "Red", decoded[1]["variation"])
	assert.EqualValues(t, 2, decoded[1]["quantity"])

	var back Lines
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, Equal(ls, back))
	assert.True(t, back[0].Product.Price.Equal(decimal.NewFromInt(100)))
}
