package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-edge/pkg/logger"
)

const (
	sessionIDHeader  = "X-Session-Id"
	sessionMaxLen    = 128
	sessionCookieTTL = 365 * 24 * time.Hour
)

// SessionOptions configures how the browser session id is carried.
type SessionOptions struct {
	CookieName string
	Secure     bool
}

// Session resolves the browser session id from the cookie (or the
// X-Session-Id header for non-browser clients), minting and setting a new one
// when absent.
func Session(opts SessionOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	cookieName := opts.CookieName
	if cookieName == "" {
		cookieName = "sf_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if c, err := r.Cookie(cookieName); err == nil {
				sessionID = sanitizeSessionID(c.Value)
			}
			if sessionID == "" {
				sessionID = sanitizeSessionID(r.Header.Get(sessionIDHeader))
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sessionID,
					Path:     "/",
					Expires:  time.Now().Add(sessionCookieTTL),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(sessionIDHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sanitizeSessionID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > sessionMaxLen {
		return ""
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return ""
		}
	}
	return id
}
