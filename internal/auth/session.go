package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-edge/internal/localstore"
	"github.com/angelmondragon/storefront-edge/internal/remote"
	pkgauth "github.com/angelmondragon/storefront-edge/pkg/auth"
	pkgerrors "github.com/angelmondragon/storefront-edge/pkg/errors"
	"github.com/angelmondragon/storefront-edge/pkg/logger"
)

const (
	tokenKey        = "auth_token"
	justLoggedInKey = "just_logged_in"
)

// Backend is the subset of the remote client used to obtain access tokens.
type Backend interface {
	Login(ctx context.Context, creds remote.Credentials) (remote.AuthResult, error)
	Register(ctx context.Context, reg remote.Registration) (remote.AuthResult, error)
	LoginWithProvider(ctx context.Context, provider, credential string) (remote.AuthResult, error)
}

// Listener is invoked synchronously on auth transitions.
type Listener func(ctx context.Context)

type listenerEntry struct {
	fn Listener
}

// Session holds the auth state of one browser session. The access token and
// the one-shot just-logged-in marker are persisted in the session's key/value
// namespace so they survive a reload.
type Session struct {
	backend  Backend
	store    localstore.KV
	verifier pkgauth.Verifier
	logg     *logger.Logger

	mu       sync.RWMutex
	token    string
	claims   *pkgauth.AccessTokenClaims
	onAuth   []*listenerEntry
	onLogout []*listenerEntry

	// markerMu makes reading and clearing the login marker one step.
	markerMu sync.Mutex
}

// SessionParams bundles the dependencies required to build a session.
type SessionParams struct {
	Backend  Backend
	Store    localstore.KV
	Verifier pkgauth.Verifier
	Logger   *logger.Logger
}

// NewSession constructs an unauthenticated session. Call Restore to pick up a
// persisted token.
func NewSession(params SessionParams) (*Session, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("auth backend is required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Session{
		backend:  params.Backend,
		store:    params.Store,
		verifier: params.Verifier,
		logg:     logg,
	}, nil
}

// Login authenticates with email and password.
func (s *Session) Login(ctx context.Context, req LoginRequest) (Status, error) {
	res, err := s.backend.Login(ctx, remote.Credentials{
		Email:    strings.TrimSpace(strings.ToLower(req.Email)),
		Password: req.Password,
	})
	if err != nil {
		return Status{}, err
	}
	return s.establish(ctx, res.Token)
}

// Register creates an account and signs into it.
func (s *Session) Register(ctx context.Context, req RegisterRequest) (Status, error) {
	res, err := s.backend.Register(ctx, remote.Registration{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(strings.ToLower(req.Email)),
		Password: req.Password,
	})
	if err != nil {
		return Status{}, err
	}
	return s.establish(ctx, res.Token)
}

// LoginWithProvider signs in with a federated identity credential.
func (s *Session) LoginWithProvider(ctx context.Context, provider string, req ProviderLoginRequest) (Status, error) {
	res, err := s.backend.LoginWithProvider(ctx, provider, req.Credential)
	if err != nil {
		return Status{}, err
	}
	return s.establish(ctx, res.Token)
}

// establish persists a freshly issued token, raises the just-logged-in
// marker and notifies auth listeners.
func (s *Session) establish(ctx context.Context, token string) (Status, error) {
	claims, err := s.verifier.Parse(token)
	if err != nil {
		return Status{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "backend issued an unusable access token")
	}

	if err := s.store.Set(ctx, tokenKey, token); err != nil {
		return Status{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist access token")
	}
	s.markerMu.Lock()
	err = s.store.Set(ctx, justLoggedInKey, "1")
	s.markerMu.Unlock()
	if err != nil {
		return Status{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist login marker")
	}

	s.mu.Lock()
	s.token = token
	s.claims = claims
	listeners := snapshot(s.onAuth)
	s.mu.Unlock()

	ctx = s.logg.WithAccountID(ctx, claims.AccountID())
	s.logg.Info(ctx, "session authenticated")

	for _, fn := range listeners {
		fn(ctx)
	}
	return s.Status(), nil
}

// Restore reads the persisted token on page load. A missing, unreadable or
// expired token leaves the session unauthenticated; an expired token is
// discarded.
func (s *Session) Restore(ctx context.Context) Status {
	token, err := s.store.Get(ctx, tokenKey)
	if err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			s.logg.Error(ctx, "read persisted access token", err)
		}
		s.clearMemory()
		return Status{}
	}

	claims, err := s.verifier.Parse(token)
	if err != nil {
		if errors.Is(err, pkgauth.ErrTokenExpired) {
			s.logg.Info(ctx, "persisted access token expired")
		} else {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "discarding unreadable access token")
		}
		s.clearMemory()
		s.forget(ctx)
		return Status{}
	}

	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.mu.Unlock()
	return s.Status()
}

// ConsumeJustLoggedIn reports whether a login just happened and clears the
// marker, so it is observed at most once even by concurrent requests.
func (s *Session) ConsumeJustLoggedIn(ctx context.Context) bool {
	s.markerMu.Lock()
	defer s.markerMu.Unlock()

	if _, err := s.store.Get(ctx, justLoggedInKey); err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			s.logg.Error(ctx, "read login marker", err)
		}
		return false
	}
	if err := s.store.Delete(ctx, justLoggedInKey); err != nil {
		s.logg.Error(ctx, "clear login marker", err)
	}
	return true
}

// Logout drops the token and marker and notifies logout listeners before
// returning. It never waits on the network.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.claims = nil
	listeners := snapshot(s.onLogout)
	s.mu.Unlock()

	s.forget(ctx)
	s.logg.Info(ctx, "session logged out")

	for _, fn := range listeners {
		fn(ctx)
	}
}

// OnAuthenticated registers fn to run after every successful login. The
// returned function removes the subscription.
func (s *Session) OnAuthenticated(fn Listener) func() {
	return s.subscribe(&s.onAuth, fn)
}

// OnLogout registers fn to run on logout.
func (s *Session) OnLogout(fn Listener) func() {
	return s.subscribe(&s.onLogout, fn)
}

func (s *Session) subscribe(list *[]*listenerEntry, fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	entry := &listenerEntry{fn: fn}
	s.mu.Lock()
	*list = append(*list, entry)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, e := range *list {
			if e == entry {
				*list = append((*list)[:i:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

// Token returns the bearer token, or "" when not authenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return ""
	}
	return s.token
}

// Authenticated reports whether a non-expired token is held.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validLocked()
}

func (s *Session) AccountID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return ""
	}
	return s.claims.AccountID()
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return Status{}
	}
	return Status{Authenticated: true, AccountID: s.claims.AccountID()}
}

func (s *Session) validLocked() bool {
	if s.token == "" || s.claims == nil || s.claims.ExpiresAt == nil {
		return false
	}
	return s.claims.ExpiresAt.After(s.verifierNow())
}

func (s *Session) verifierNow() time.Time {
	if s.verifier.Now != nil {
		return s.verifier.Now()
	}
	return time.Now()
}

func (s *Session) clearMemory() {
	s.mu.Lock()
	s.token = ""
	s.claims = nil
	s.mu.Unlock()
}

func (s *Session) forget(ctx context.Context) {
	if err := s.store.Delete(ctx, tokenKey); err != nil {
		s.logg.Error(ctx, "delete persisted access token", err)
	}
	if err := s.store.Delete(ctx, justLoggedInKey); err != nil {
		s.logg.Error(ctx, "delete login marker", err)
	}
}

func snapshot(entries []*listenerEntry) []Listener {
	out := make([]Listener, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.fn)
	}
	return out
}
