package remote

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/angelmondragon/storefront-edge/internal/cart"
	"github.com/shopspring/decimal"
)

const cartPath = "/cart"

// CartAPI is the account-bound cart for one browser session.
type CartAPI struct {
	client *Client
	tokens TokenSource
}

// Cart binds the remote cart endpoints to a session's bearer token.
func (c *Client) Cart(tokens TokenSource) *CartAPI {
	return &CartAPI{client: c, tokens: tokens}
}

type wireProduct struct {
	ID       string          `json:"id"`
	MongoID  string          `json:"_id"`
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
}

type wireLine struct {
	Product   wireProduct `json:"product"`
	Quantity  int         `json:"quantity"`
	Variation *string     `json:"variation"`
}

type wireCart []wireLine

// UnmarshalJSON accepts either a bare array or an object with a cart field.
func (w *wireCart) UnmarshalJSON(data []byte) error {
	var lines []wireLine
	if err := json.Unmarshal(data, &lines); err == nil {
		*w = lines
		return nil
	}
	var wrapped struct {
		Cart []wireLine `json:"cart"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*w = wrapped.Cart
	return nil
}

type putLine struct {
	Product   string  `json:"product"`
	Quantity  int     `json:"quantity"`
	Variation *string `json:"variation"`
}

type putCartRequest struct {
	Cart []putLine `json:"cart"`
}

// Fetch returns the remote cart in backend order.
func (a *CartAPI) Fetch(ctx context.Context) (cart.Lines, error) {
	var body wireCart
	if err := a.client.do(ctx, http.MethodGet, cartPath, a.token(), nil, &body); err != nil {
		return nil, err
	}
	lines := make(cart.Lines, 0, len(body))
	for _, wl := range body {
		id := wl.Product.ID
		if id == "" {
			id = wl.Product.MongoID
		}
		lines = append(lines, cart.Line{
			Product: cart.Product{
				ID:       id,
				Name:     wl.Product.Name,
				Image:    wl.Product.Image,
				Price:    wl.Product.Price,
				Discount: wl.Product.Discount,
			},
			Variation: wl.Variation,
			Quantity:  wl.Quantity,
		})
	}
	return lines, nil
}

// Replace overwrites the remote cart with lines. Only ids, quantities and
// variations are sent; the backend resolves product data itself.
func (a *CartAPI) Replace(ctx context.Context, lines cart.Lines) error {
	req := putCartRequest{Cart: make([]putLine, 0, len(lines))}
	for _, l := range lines {
		req.Cart = append(req.Cart, putLine{
			Product:   l.Product.ID,
			Quantity:  l.Quantity,
			Variation: l.Variation,
		})
	}
	return a.client.do(ctx, http.MethodPut, cartPath, a.token(), req, nil)
}

func (a *CartAPI) token() string {
	if a.tokens == nil {
		return ""
	}
	return a.tokens.Token()
}
