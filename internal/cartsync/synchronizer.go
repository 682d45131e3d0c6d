// Package cartsync keeps one browser session's cart consistent across memory,
// the local store and the account-bound remote cart.
package cartsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-edge/internal/cart"
	"github.com/angelmondragon/storefront-edge/pkg/logger"
	"github.com/angelmondragon/storefront-edge/pkg/metrics"
	"github.com/shopspring/decimal"
)

const (
	ModeMerge   = "merge"
	ModeReplace = "replace"
)

// Remote is the account-bound cart held by the backend.
type Remote interface {
	Fetch(ctx context.Context) (cart.Lines, error)
	Replace(ctx context.Context, lines cart.Lines) error
}

// LocalStore is the session-scoped durable copy of the cart.
type LocalStore interface {
	Load(ctx context.Context) (cart.Lines, error)
	Save(ctx context.Context, lines cart.Lines) error
	Purge(ctx context.Context) error
}

// Scheduler runs at most one pending task after a quiet window.
// *debounce.Debouncer satisfies it.
type Scheduler interface {
	Trigger(fn func()) bool
	Cancel()
	Flush() bool
}

// AuthEvent describes the auth state the cart should reconcile against.
type AuthEvent struct {
	Authenticated bool
	// JustLoggedIn is the consumed one-shot marker: true only for the first
	// reconciliation after an interactive login.
	JustLoggedIn bool
}

// Snapshot is an immutable view of the cart handed to readers and subscribers.
type Snapshot struct {
	Lines cart.Lines      `json:"lines"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Params bundles the dependencies required to build a Synchronizer.
type Params struct {
	SessionID string
	Remote    Remote
	Local     LocalStore
	Scheduler Scheduler
	Logger    *logger.Logger
	Metrics   *metrics.CartSyncMetrics
	// WriteTimeout bounds a debounced remote write. Zero leaves it to the
	// remote client's own timeout.
	WriteTimeout time.Duration
}

type subscriber struct {
	fn func(Snapshot)
}

// Synchronizer owns the in-memory cart for one browser session.
type Synchronizer struct {
	remote       Remote
	local        LocalStore
	scheduler    Scheduler
	logg         *logger.Logger
	metrics      *metrics.CartSyncMetrics
	writeTimeout time.Duration

	mu                sync.Mutex
	lines             cart.Lines
	authenticated     bool
	syncingFromRemote bool
	initialLoadDone   bool
	// mergePending is set from a fresh login until a merge completes, so a
	// failed or superseded merge is retried as a merge.
	mergePending bool
	// staleRemote is set while the last reconciliation failed. The remote cart
	// is then unknown and must not be overwritten.
	staleRemote bool
	// authGen changes on every auth transition so a reconciliation that
	// finishes after a logout is discarded.
	authGen     uint64
	subscribers []*subscriber
	closed      bool
	// logCtx carries the session id into debounced writes, which run off the
	// request goroutine.
	logCtx context.Context
}

// New constructs a synchronizer with an empty cart. Call Load to hydrate it.
func New(params Params) (*Synchronizer, error) {
	if params.Remote == nil {
		return nil, fmt.Errorf("remote cart is required")
	}
	if params.Local == nil {
		return nil, fmt.Errorf("local store is required")
	}
	if params.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Synchronizer{
		remote:       params.Remote,
		local:        params.Local,
		scheduler:    params.Scheduler,
		logg:         logg,
		metrics:      params.Metrics,
		writeTimeout: params.WriteTimeout,
		lines:        cart.Lines{},
		logCtx:       logg.WithSessionID(context.Background(), params.SessionID),
	}, nil
}

// Load hydrates the in-memory cart from the local store. An unreadable or
// corrupt entry starts the session with an empty cart.
func (s *Synchronizer) Load(ctx context.Context) Snapshot {
	lines, err := s.local.Load(ctx)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "local cart unreadable, starting empty")
		lines = cart.Lines{}
	}

	s.mu.Lock()
	s.lines = lines.Clone()
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return snap
}

// HandleAuthChange runs the reconciliation protocol. A fresh login merges the
// remote cart with the guest cart; any other authenticated load replaces the
// in-memory cart with the remote one. Fetch failures leave the cart untouched
// and hold back remote writes until a later reconciliation succeeds; a failed
// merge is retried as a merge.
func (s *Synchronizer) HandleAuthChange(ctx context.Context, ev AuthEvent) Snapshot {
	if !ev.Authenticated {
		s.mu.Lock()
		s.authenticated = false
		s.initialLoadDone = true
		s.mergePending = false
		s.staleRemote = false
		snap := s.snapshotValueLocked()
		s.mu.Unlock()
		return snap
	}

	s.mu.Lock()
	mode := ModeReplace
	if ev.JustLoggedIn || s.mergePending {
		mode = ModeMerge
	}
	s.mergePending = mode == ModeMerge
	s.authenticated = true
	s.syncingFromRemote = true
	// a write queued before this reconciliation would carry stale state
	s.scheduler.Cancel()
	s.authGen++
	gen := s.authGen
	s.mu.Unlock()

	ctx = s.logg.WithField(ctx, "reconcile_mode", mode)
	started := time.Now()
	remoteLines, err := s.remote.Fetch(ctx)
	s.metrics.ObserveFetch(time.Since(started), err)

	s.mu.Lock()
	if gen != s.authGen {
		// logged out (or re-authenticated) while the fetch was in flight
		snap := s.snapshotValueLocked()
		s.mu.Unlock()
		return snap
	}
	s.syncingFromRemote = false
	s.initialLoadDone = true
	if err != nil {
		s.staleRemote = true
		snap := s.snapshotValueLocked()
		s.mu.Unlock()
		s.logg.Error(ctx, "remote cart fetch failed, keeping current cart", err)
		return snap
	}
	s.staleRemote = false
	s.mergePending = false

	if mode == ModeMerge {
		s.lines = cart.Merge(remoteLines, s.lines)
		// guest lines the backend has not seen yet
		if !cart.Equal(s.lines, remoteLines) {
			s.scheduleLocked()
		}
	} else {
		s.lines = remoteLines.Clone()
	}
	s.saveLocalLocked(ctx)
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.IncReconcile(mode)
	s.logg.Info(s.logg.WithField(ctx, "lines", len(snap.Lines)), "cart reconciled")
	notify(subs, snap)
	return snap
}

// HandleLogout empties the cart in memory and in the local store right away.
// Nothing is sent to the backend and any pending remote write is dropped.
func (s *Synchronizer) HandleLogout(ctx context.Context) Snapshot {
	s.mu.Lock()
	s.authGen++
	s.authenticated = false
	s.syncingFromRemote = false
	s.mergePending = false
	s.staleRemote = false
	s.scheduler.Cancel()
	s.lines = cart.Lines{}
	if err := s.local.Purge(ctx); err != nil {
		s.logg.Error(ctx, "purge local cart on logout", err)
	}
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return snap
}

// AddLine adds quantity units of product, merging into an existing line with
// the same product and variation.
func (s *Synchronizer) AddLine(ctx context.Context, product cart.Product, quantity int, variation *string) Snapshot {
	return s.mutate(ctx, func(lines cart.Lines) cart.Lines {
		return cart.Add(lines, product, quantity, variation)
	})
}

// RemoveLine drops the line identified by product and variation.
func (s *Synchronizer) RemoveLine(ctx context.Context, productID string, variation *string) Snapshot {
	return s.mutate(ctx, func(lines cart.Lines) cart.Lines {
		return cart.Remove(lines, productID, variation)
	})
}

// UpdateQuantity adjusts a line by delta, never below one unit.
func (s *Synchronizer) UpdateQuantity(ctx context.Context, productID string, variation *string, delta int) Snapshot {
	return s.mutate(ctx, func(lines cart.Lines) cart.Lines {
		return cart.UpdateQuantity(lines, productID, variation, delta)
	})
}

// Clear empties the cart. When authenticated the empty cart is mirrored to
// the backend like any other mutation.
func (s *Synchronizer) Clear(ctx context.Context) Snapshot {
	return s.mutate(ctx, func(cart.Lines) cart.Lines {
		return cart.Lines{}
	})
}

func (s *Synchronizer) mutate(ctx context.Context, apply func(cart.Lines) cart.Lines) Snapshot {
	s.mu.Lock()
	s.lines = apply(s.lines)
	s.saveLocalLocked(ctx)
	s.scheduleLocked()
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return snap
}

// Lines returns a copy of the current cart lines.
func (s *Synchronizer) Lines() cart.Lines {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Clone()
}

func (s *Synchronizer) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.Total(s.lines)
}

func (s *Synchronizer) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.Count(s.lines)
}

// Snapshot returns lines, total and count read atomically.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotValueLocked()
}

// Subscribe registers fn to receive a snapshot after every state change. The
// returned function removes the subscription.
func (s *Synchronizer) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	sub := &subscriber{fn: fn}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	s.subscribers = append(s.subscribers, sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.subscribers {
			if existing == sub {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Flush sends a pending remote write now instead of waiting for the window.
func (s *Synchronizer) Flush() bool {
	return s.scheduler.Flush()
}

// Close cancels any pending remote write and drops all subscribers.
func (s *Synchronizer) Close() {
	s.scheduler.Cancel()
	s.mu.Lock()
	s.closed = true
	s.subscribers = nil
	s.mu.Unlock()
}

func (s *Synchronizer) saveLocalLocked(ctx context.Context) {
	if err := s.local.Save(ctx, s.lines); err != nil {
		s.logg.Error(ctx, "persist local cart", err)
	}
}

// scheduleLocked arms the debounced remote write unless remote sync is
// suppressed.
func (s *Synchronizer) scheduleLocked() {
	if s.closed || !s.authenticated || s.syncingFromRemote || !s.initialLoadDone || s.staleRemote {
		return
	}
	if s.scheduler.Trigger(s.writeRemote) {
		s.metrics.IncCoalesced()
	}
}

// writeRemote pushes the cart as it is when the window elapses, so a burst of
// mutations produces one write carrying the final state.
func (s *Synchronizer) writeRemote() {
	s.mu.Lock()
	if s.closed || !s.authenticated || s.syncingFromRemote || s.staleRemote {
		s.mu.Unlock()
		return
	}
	lines := s.lines.Clone()
	ctx := s.logCtx
	s.mu.Unlock()

	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}

	started := time.Now()
	err := s.remote.Replace(ctx, lines)
	s.metrics.ObserveWrite(time.Since(started), err)
	if err != nil {
		s.logg.Error(ctx, "remote cart write failed", err)
		return
	}
	s.logg.Debug(s.logg.WithField(ctx, "lines", len(lines)), "remote cart updated")
}

func (s *Synchronizer) snapshotValueLocked() Snapshot {
	return Snapshot{
		Lines: s.lines.Clone(),
		Total: cart.Total(s.lines),
		Count: cart.Count(s.lines),
	}
}

func (s *Synchronizer) snapshotLocked() (Snapshot, []func(Snapshot)) {
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub.fn)
	}
	return s.snapshotValueLocked(), subs
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(Snapshot{Lines: snap.Lines.Clone(), Total: snap.Total, Count: snap.Count})
	}
}
