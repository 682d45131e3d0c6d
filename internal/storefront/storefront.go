// Package storefront owns the per-browser-session auth and cart objects.
package storefront

import (
	"context"
	"sync"

	"github.com/angelmondragon/storefront-edge/internal/auth"
	"github.com/angelmondragon/storefront-edge/internal/cartsync"
)

// Storefront is everything the edge holds for one browser session.
type Storefront struct {
	ID   string
	Auth *auth.Session
	Cart *cartsync.Synchronizer

	unsubscribe []func()
	closeOnce   sync.Once
}

// Reload replays a page load: hydrate the cart from the local store, restore
// the persisted token and reconcile with the backend when authenticated.
func (sf *Storefront) Reload(ctx context.Context) cartsync.Snapshot {
	sf.Cart.Load(ctx)
	status := sf.Auth.Restore(ctx)
	ev := cartsync.AuthEvent{Authenticated: status.Authenticated}
	if status.Authenticated {
		ev.JustLoggedIn = sf.Auth.ConsumeJustLoggedIn(ctx)
	}
	return sf.Cart.HandleAuthChange(ctx, ev)
}

// CompleteOrder empties the cart once the backend has accepted an order.
func (sf *Storefront) CompleteOrder(ctx context.Context) cartsync.Snapshot {
	return sf.Cart.Clear(ctx)
}

// wire subscribes the cart to auth transitions.
func (sf *Storefront) wire() {
	sf.unsubscribe = append(sf.unsubscribe,
		sf.Auth.OnAuthenticated(func(ctx context.Context) {
			sf.Cart.HandleAuthChange(ctx, cartsync.AuthEvent{
				Authenticated: true,
				JustLoggedIn:  sf.Auth.ConsumeJustLoggedIn(ctx),
			})
		}),
		sf.Auth.OnLogout(func(ctx context.Context) {
			sf.Cart.HandleLogout(ctx)
		}),
	)
}

func (sf *Storefront) close(flush bool) {
	sf.closeOnce.Do(func() {
		for _, fn := range sf.unsubscribe {
			fn()
		}
		if flush {
			sf.Cart.Flush()
		}
		sf.Cart.Close()
	})
}
