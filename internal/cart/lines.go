package cart

import "github.com/shopspring/decimal"

// Lines is the ordered cart. Insertion order is user visible and preserved.
type Lines []Line

// Clone returns a deep copy so callers never share variation pointers or the
// backing array with the synchronizer.
func (ls Lines) Clone() Lines {
	if ls == nil {
		return Lines{}
	}
	out := make(Lines, len(ls))
	for i, l := range ls {
		out[i] = l
		out[i].Variation = cloneVariation(l.Variation)
	}
	return out
}

func (ls Lines) index(key Key) int {
	for i, l := range ls {
		if l.Key().Matches(key) {
			return i
		}
	}
	return -1
}

// Find returns the line for key, if present.
func (ls Lines) Find(key Key) (Line, bool) {
	if i := ls.index(key); i >= 0 {
		return ls[i], true
	}
	return Line{}, false
}

// Add increments the matching line in place or appends a new one.
// Quantity is not validated here.
func Add(ls Lines, product Product, quantity int, variation *string) Lines {
	out := ls.Clone()
	key := Key{ProductID: product.ID, Variation: variation}
	if i := out.index(key); i >= 0 {
		out[i].Quantity += quantity
		return out
	}
	return append(out, Line{
		Product:   product,
		Variation: cloneVariation(variation),
		Quantity:  quantity,
	})
}

// Remove drops every line matching the key. Missing keys are a no-op.
func Remove(ls Lines, productID string, variation *string) Lines {
	key := Key{ProductID: productID, Variation: variation}
	out := make(Lines, 0, len(ls))
	for _, l := range ls.Clone() {
		if l.Key().Matches(key) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// UpdateQuantity applies delta to the matching line, never dropping below one.
func UpdateQuantity(ls Lines, productID string, variation *string, delta int) Lines {
	out := ls.Clone()
	if i := out.index(Key{ProductID: productID, Variation: variation}); i >= 0 {
		out[i].Quantity = max(1, out[i].Quantity+delta)
	}
	return out
}

// Merge folds a guest cart into a remote cart. Remote lines keep their order
// and come first; quantities of shared keys are summed; guest-only lines are
// appended in guest order. Nothing from either side is dropped.
func Merge(remote, guest Lines) Lines {
	out := remote.Clone()
	for _, g := range guest {
		if i := out.index(g.Key()); i >= 0 {
			out[i].Quantity += g.Quantity
			continue
		}
		gl := g
		gl.Variation = cloneVariation(g.Variation)
		out = append(out, gl)
	}
	return out
}

// Total sums the snapshotted unit price times quantity across lines.
func Total(ls Lines) decimal.Decimal {
	total := decimal.Zero
	for _, l := range ls {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Count sums the quantities across lines.
func Count(ls Lines) int {
	n := 0
	for _, l := range ls {
		n += l.Quantity
	}
	return n
}

// Equal reports whether two carts hold the same keys and quantities in the same order.
func Equal(a, b Lines) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Key().Matches(b[i].Key()) || a[i].Quantity != b[i].Quantity {
			return false
		}
	}
	return true
}

func cloneVariation(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
