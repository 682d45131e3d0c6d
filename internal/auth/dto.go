package auth

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the account creation payload.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// ProviderLoginRequest carries the credential issued by a federated identity
// provider (for example a Google id token).
type ProviderLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

// Status is the auth state exposed to the UI layer.
type Status struct {
	Authenticated bool   `json:"authenticated"`
	AccountID     string `json:"account_id,omitempty"`
}
