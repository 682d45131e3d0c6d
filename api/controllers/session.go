package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-edge/api/middleware"
	"github.com/angelmondragon/storefront-edge/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-edge/pkg/errors"
	"github.com/angelmondragon/storefront-edge/pkg/logger"
)

// SessionLoad is called by the UI on every page load. It restores auth from
// the persisted token and reconciles the cart with the backend.
func SessionLoad(svc Storefronts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storefront registry unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())

		sf, snap, err := svc.Load(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionResponse{
			SessionID: sf.ID,
			Auth:      sf.Auth.Status(),
			Cart:      snap,
		})
	}
}
