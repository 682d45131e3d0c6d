package storefront

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-edge/internal/auth"
	"github.com/angelmondragon/storefront-edge/internal/cartsync"
	"github.com/angelmondragon/storefront-edge/internal/localstore"
	"github.com/angelmondragon/storefront-edge/internal/remote"
	pkgauth "github.com/angelmondragon/storefront-edge/pkg/auth"
	"github.com/angelmondragon/storefront-edge/pkg/debounce"
	pkgerrors "github.com/angelmondragon/storefront-edge/pkg/errors"
	"github.com/angelmondragon/storefront-edge/pkg/logger"
	"github.com/angelmondragon/storefront-edge/pkg/metrics"
)

// CartRemoteFactory binds the backend cart API to a session's token.
type CartRemoteFactory func(tokens remote.TokenSource) cartsync.Remote

// Options tune session lifecycle and sync timing.
type Options struct {
	SyncDebounce  time.Duration
	StorageKey    string
	IdleTTL       time.Duration
	SweepInterval time.Duration
	WriteTimeout  time.Duration
}

// RegistryParams bundles the dependencies required to build a Registry.
type RegistryParams struct {
	Store      localstore.KV
	AuthAPI    auth.Backend
	CartRemote CartRemoteFactory
	Verifier   pkgauth.Verifier
	Options    Options
	Logger     *logger.Logger
	Metrics    *metrics.CartSyncMetrics
	Clock      func() time.Time
}

type entry struct {
	once     sync.Once
	sf       *Storefront
	err      error
	lastSeen time.Time
	// closed is set under Registry.mu when the entry leaves the map.
	closed bool
}

// Registry creates storefronts lazily, one per browser session id, and evicts
// them after a period of inactivity.
type Registry struct {
	store      localstore.KV
	authAPI    auth.Backend
	cartRemote CartRemoteFactory
	verifier   pkgauth.Verifier
	opts       Options
	logg       *logger.Logger
	metrics    *metrics.CartSyncMetrics
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewRegistry validates dependencies and returns an empty registry.
func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("local store is required")
	}
	if params.AuthAPI == nil {
		return nil, fmt.Errorf("auth backend is required")
	}
	if params.CartRemote == nil {
		return nil, fmt.Errorf("cart remote factory is required")
	}
	if params.Options.SyncDebounce <= 0 {
		return nil, fmt.Errorf("sync debounce must be positive")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &Registry{
		store:      params.Store,
		authAPI:    params.AuthAPI,
		cartRemote: params.CartRemote,
		verifier:   params.Verifier,
		opts:       params.Options,
		logg:       logg,
		metrics:    params.Metrics,
		now:        now,
		sessions:   make(map[string]*entry),
	}, nil
}

// Get returns the storefront for sessionID, creating and initializing it on
// first use.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Storefront, error) {
	sf, _, err := r.get(ctx, sessionID)
	return sf, err
}

// Load handles a page load. A new session is initialized once; an existing
// one re-reads persisted state and reconciles again.
func (r *Registry) Load(ctx context.Context, sessionID string) (*Storefront, cartsync.Snapshot, error) {
	sf, created, err := r.get(ctx, sessionID)
	if err != nil {
		return nil, cartsync.Snapshot{}, err
	}
	if created {
		return sf, sf.Cart.Snapshot(), nil
	}
	return sf, sf.Reload(ctx), nil
}

func (r *Registry) get(ctx context.Context, sessionID string) (*Storefront, bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	if !ok {
		e = &entry{}
		r.sessions[sessionID] = e
	}
	e.lastSeen = r.now()
	r.mu.Unlock()

	created := false
	e.once.Do(func() {
		created = true
		e.sf, e.err = r.build(ctx, sessionID)
		if e.err != nil {
			r.mu.Lock()
			if r.sessions[sessionID] == e {
				delete(r.sessions, sessionID)
			}
			r.mu.Unlock()
			return
		}
		r.metrics.SessionOpened()
		e.sf.Reload(ctx)
	})
	if e.err != nil {
		return nil, false, e.err
	}

	r.mu.Lock()
	closed := e.closed
	r.mu.Unlock()
	if closed {
		// torn down while initializing, start over with a fresh entry
		return r.get(ctx, sessionID)
	}
	return e.sf, created, nil
}

func (r *Registry) build(ctx context.Context, sessionID string) (*Storefront, error) {
	kv := localstore.Namespace(r.store, sessionID)

	session, err := auth.NewSession(auth.SessionParams{
		Backend:  r.authAPI,
		Store:    kv,
		Verifier: r.verifier,
		Logger:   r.logg,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build auth session")
	}

	synchronizer, err := cartsync.New(cartsync.Params{
		SessionID:    sessionID,
		Remote:       r.cartRemote(session),
		Local:        localstore.NewCartStore(kv, r.opts.StorageKey),
		Scheduler:    debounce.New(r.opts.SyncDebounce),
		Logger:       r.logg,
		Metrics:      r.metrics,
		WriteTimeout: r.opts.WriteTimeout,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart synchronizer")
	}

	sf := &Storefront{ID: sessionID, Auth: session, Cart: synchronizer}
	sf.wire()
	r.logg.Debug(r.logg.WithSessionID(ctx, sessionID), "storefront session created")
	return sf, nil
}

// Close tears down one session. Persisted state is kept.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	if ok {
		e.closed = true
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()
	if ok {
		r.teardown(e, false)
	}
}

// Len reports how many sessions are held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle closes sessions not seen within the idle TTL and returns how many
// were evicted.
func (r *Registry) EvictIdle(ctx context.Context) int {
	if r.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.opts.IdleTTL)

	r.mu.Lock()
	var idle []*entry
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			e.closed = true
			idle = append(idle, e)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, e := range idle {
		r.teardown(e, true)
	}
	if len(idle) > 0 {
		r.logg.Info(r.logg.WithField(ctx, "evicted", len(idle)), "idle storefront sessions evicted")
	}
	return len(idle)
}

// RunSweeper evicts idle sessions every sweep interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context) error {
	interval := r.opts.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.EvictIdle(ctx)
		}
	}
}

// Shutdown flushes pending remote writes and closes every session.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	all := make([]*entry, 0, len(r.sessions))
	for id, e := range r.sessions {
		e.closed = true
		all = append(all, e)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, e := range all {
		r.teardown(e, true)
	}
	r.logg.Info(r.logg.WithField(ctx, "sessions", len(all)), "storefront sessions closed")
}

func (r *Registry) teardown(e *entry, flush bool) {
	// wait for a concurrent initialization to finish
	e.once.Do(func() {})
	if e.sf == nil {
		return
	}
	e.sf.close(flush)
	r.metrics.SessionClosed()
}
