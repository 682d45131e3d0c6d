package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-edge/api/controllers"
	"github.com/angelmondragon/storefront-edge/api/middleware"
	"github.com/angelmondragon/storefront-edge/pkg/config"
	"github.com/angelmondragon/storefront-edge/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Storefronts controllers.Storefronts
	// Ready lists the dependencies probed by /health/ready, keyed by name.
	Ready map[string]controllers.Pinger
	// RateLimits backs the auth rate limiter; nil disables it.
	RateLimits middleware.RateLimitStore
	// Metrics serves /metrics; nil leaves the route unmounted.
	Metrics http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Session.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(middleware.SessionOptions{
			CookieName: cfg.Session.CookieName,
			Secure:     cfg.App.IsProd(),
		}, logg))

		r.Post("/session/load", controllers.SessionLoad(deps.Storefronts, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimits, logg)).Post("/login", controllers.AuthLogin(deps.Storefronts, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, deps.RateLimits, logg)).Post("/register", controllers.AuthRegister(deps.Storefronts, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Storefronts, logg))
			r.Get("/status", controllers.AuthStatus(deps.Storefronts, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimits, logg)).Post("/{provider}", controllers.AuthProviderLogin(deps.Storefronts, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Storefronts, logg))
			r.Delete("/", controllers.CartClear(deps.Storefronts, logg))
			r.Post("/complete", controllers.CartComplete(deps.Storefronts, logg))
			r.Route("/items", func(r chi.Router) {
				r.Post("/", controllers.CartAddItem(deps.Storefronts, logg))
				r.Patch("/", controllers.CartUpdateItem(deps.Storefronts, logg))
				r.Delete("/", controllers.CartRemoveItem(deps.Storefronts, logg))
			})
		})
	})

	return r
}
