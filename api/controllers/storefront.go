package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-edge/api/middleware"
	"github.com/angelmondragon/storefront-edge/internal/auth"
	"github.com/angelmondragon/storefront-edge/internal/cartsync"
	"github.com/angelmondragon/storefront-edge/internal/storefront"
	pkgerrors "github.com/angelmondragon/storefront-edge/pkg/errors"
)

// Storefronts resolves the per-session storefront for a request.
type Storefronts interface {
	Get(ctx context.Context, sessionID string) (*storefront.Storefront, error)
	Load(ctx context.Context, sessionID string) (*storefront.Storefront, cartsync.Snapshot, error)
}

// sessionResponse is returned by every endpoint that may change auth state.
type sessionResponse struct {
	SessionID string            `json:"session_id"`
	Auth      auth.Status       `json:"auth"`
	Cart      cartsync.Snapshot `json:"cart"`
}

func storefrontFor(r *http.Request, svc Storefronts) (*storefront.Storefront, error) {
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "storefront registry unavailable")
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id missing")
	}
	return svc.Get(r.Context(), sessionID)
}

func newSessionResponse(sf *storefront.Storefront) sessionResponse {
	return sessionResponse{
		SessionID: sf.ID,
		Auth:      sf.Auth.Status(),
		Cart:      sf.Cart.Snapshot(),
	}
}
