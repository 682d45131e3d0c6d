package remote

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-edge/pkg/errors"
)

// Credentials are the email/password pair for an interactive login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the payload for creating an account.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is what the backend hands back after a successful login.
type AuthResult struct {
	Token string `json:"token"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

// Register creates an account and returns its access token.
func (c *Client) Register(ctx context.Context, reg Registration) (AuthResult, error) {
	return c.authenticate(ctx, "/auth/register", reg)
}

// LoginWithProvider exchanges a federated identity credential (e.g. a Google
// id token) for an access token.
func (c *Client) LoginWithProvider(ctx context.Context, provider, credential string) (AuthResult, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return AuthResult{}, pkgerrors.New(pkgerrors.CodeValidation, "provider is required")
	}
	body := map[string]string{"credential": credential}
	return c.authenticate(ctx, "/auth/"+url.PathEscape(provider), body)
}

func (c *Client) authenticate(ctx context.Context, path string, in any) (AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, path, "", in, &out); err != nil {
		return AuthResult{}, err
	}
	if strings.TrimSpace(out.Token) == "" {
		return AuthResult{}, pkgerrors.New(pkgerrors.CodeDependency, "backend returned an empty token")
	}
	return out, nil
}
