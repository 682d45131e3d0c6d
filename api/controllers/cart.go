package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-edge/api/responses"
	"github.com/angelmondragon/storefront-edge/api/validators"
	"github.com/angelmondragon/storefront-edge/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-edge/pkg/errors"
	"github.com/angelmondragon/storefront-edge/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

type productPayload struct {
	ID       string          `json:"id" validate:"required"`
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
}

type addItemRequest struct {
	Product   productPayload `json:"product"`
	Quantity  int            `json:"quantity" validate:"required,min=1"`
	Variation *string        `json:"variation"`
}

type updateItemRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	Variation *string `json:"variation"`
	Delta     int     `json:"delta" validate:"ne=0"`
}

type removeItemRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	Variation *string `json:"variation"`
}

func (p productPayload) toProduct() (cart.Product, error) {
	details := map[string]string{}
	if p.Price.IsNegative() {
		details["product.price"] = "must be greater than or equal to 0"
	}
	if p.Discount.IsNegative() || p.Discount.GreaterThan(hundred) {
		details["product.discount"] = "must be between 0 and 100"
	}
	if len(details) > 0 {
		return cart.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return cart.Product{
		ID:       p.ID,
		Name:     p.Name,
		Image:    p.Image,
		Price:    p.Price,
		Discount: p.Discount,
	}, nil
}

// variation normalizes the optional label: absent and "" both mean none.
func variation(v *string) *string {
	if v == nil {
		return nil
	}
	return cart.Variation(*v)
}

func CartGet(svc Storefronts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sf, err := storefrontFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sf.Cart.Snapshot())
	}
}

// CartAddItem adds a product snapshot to the cart.
func CartAddItem(svc Storefronts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := req.Product.toProduct()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sf, err := storefrontFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sf.Cart.AddLine(r.Context(), product, req.Quantity, variation(req.Variation)))
	}
}

// CartUpdateItem adjusts a line quantity by delta; lines never drop below one.
func CartUpdateItem(svc Storefronts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sf, err := storefrontFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sf.Cart.UpdateQuantity(r.Context(), req.ProductID, variation(req.Variation), req.Delta))
	}
}

func CartRemoveItem(svc Storefronts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req removeItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sf, err := storefrontFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sf.Cart.RemoveLine(r.Context(), req.ProductID, variation(req.Variation)))
	}
}

func CartClear(svc Storefronts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sf, err := storefrontFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sf.Cart.Clear(r.Context()))
	}
}

// CartComplete is called once the backend has accepted the order.
func CartComplete(svc Storefronts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sf, err := storefrontFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sf.CompleteOrder(r.Context()))
	}
}
