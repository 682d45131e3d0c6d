package cart

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Product is the catalog snapshot copied into a line when it is added.
// It is never refreshed from the catalog afterwards.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Image    string          `json:"image,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
}

// UnitPrice is the snapshotted price after the percentage discount.
func (p Product) UnitPrice() decimal.Decimal {
	if p.Discount.IsZero() {
		return p.Price
	}
	return p.Price.Mul(hundred.Sub(p.Discount)).Div(hundred)
}

// Line is one row in the cart.
type Line struct {
	Product   Product `json:"product"`
	Variation *string `json:"variation"`
	Quantity  int     `json:"quantity"`
}

// Key identifies a line: product id plus variation, where a nil variation
// is its own value and never equals a labelled one.
type Key struct {
	ProductID string
	Variation *string
}

func (l Line) Key() Key {
	return Key{ProductID: l.Product.ID, Variation: l.Variation}
}

// Matches reports whether the key addresses the same line as other.
func (k Key) Matches(other Key) bool {
	if k.ProductID != other.ProductID {
		return false
	}
	switch {
	case k.Variation == nil && other.Variation == nil:
		return true
	case k.Variation == nil || other.Variation == nil:
		return false
	default:
		return *k.Variation == *other.Variation
	}
}

// Subtotal is unit price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Variation returns a pointer to a copy of label, or nil for the empty string.
func Variation(label string) *string {
	if label == "" {
		return nil
	}
	v := label
	return &v
}
