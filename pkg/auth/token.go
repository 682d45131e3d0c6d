package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// ErrTokenExpired is returned when a token parses but its exp is in the past.
var ErrTokenExpired = errors.New("access token expired")

// Verifier decodes backend access tokens. With an empty secret it only decodes
// the claims; the backend remains the authority on signatures.
type Verifier struct {
	Secret string
	Issuer string
	Now    func() time.Time
}

func (v Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Parse returns the token's claims, rejecting malformed or expired tokens and,
// when a secret is configured, tokens with an invalid signature or issuer.
func (v Verifier) Parse(tokenString string) (*AccessTokenClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, fmt.Errorf("access token is required")
	}

	claims := &AccessTokenClaims{}
	if v.Secret == "" {
		parser := jwt.NewParser(jwt.WithoutClaimsValidation())
		if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("decoding access token: %w", err)
		}
	} else {
		opts := []jwt.ParserOption{
			jwt.WithoutClaimsValidation(),
			jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		}
		if v.Issuer != "" {
			opts = append(opts, jwt.WithIssuer(v.Issuer))
		}
		_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(v.Secret), nil
		})
		if err != nil {
			return nil, fmt.Errorf("verifying access token: %w", err)
		}
	}

	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(v.now()) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

// MintAccessToken issues an HS256 token the way the backend does. The edge
// only uses it for local development and tests.
func MintAccessToken(secret, issuer string, now time.Time, ttl time.Duration, payload AccessTokenPayload) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("jwt ttl must be positive")
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := AccessTokenClaims{
		UserID: payload.UserID,
		Email:  payload.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   payload.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}
