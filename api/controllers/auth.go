package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-edge/api/responses"
	"github.com/angelmondragon/storefront-edge/api/validators"
	"github.com/angelmondragon/storefront-edge/internal/auth"
	"github.com/angelmondragon/storefront-edge/pkg/logger"
)

type providerParam struct {
	Provider string `json:"provider" validate:"required,alphanum,max=32"`
}

// AuthLogin signs the session in; the cart is merged before the response.
func AuthLogin(svc Storefronts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sf, err := storefrontFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := sf.Auth.Login(r.Context(), req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(sf))
	}
}

func AuthRegister(svc Storefronts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sf, err := storefrontFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := sf.Auth.Register(r.Context(), req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSessionResponse(sf))
	}
}

// AuthProviderLogin completes a federated login such as Google sign-in.
func AuthProviderLogin(svc Storefronts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		param := providerParam{Provider: strings.ToLower(chi.URLParam(r, "provider"))}
		if err := validators.Validate(param); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req auth.ProviderLoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sf, err := storefrontFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := sf.Auth.LoginWithProvider(r.Context(), param.Provider, req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(sf))
	}
}

// AuthLogout clears the session; the cart is emptied before the response.
func AuthLogout(svc Storefronts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sf, err := storefrontFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sf.Auth.Logout(r.Context())
		responses.WriteSuccess(w, newSessionResponse(sf))
	}
}

func AuthStatus(svc Storefronts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sf, err := storefrontFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sf.Auth.Status())
	}
}
