package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/storefront-edge/api/controllers"
	"github.com/angelmondragon/storefront-edge/api/middleware"
	"github.com/angelmondragon/storefront-edge/api/routes"
	"github.com/angelmondragon/storefront-edge/internal/cartsync"
	"github.com/angelmondragon/storefront-edge/internal/localstore"
	"github.com/angelmondragon/storefront-edge/internal/remote"
	"github.com/angelmondragon/storefront-edge/internal/storefront"
	pkgauth "github.com/angelmondragon/storefront-edge/pkg/auth"
	"github.com/angelmondragon/storefront-edge/pkg/config"
	"github.com/angelmondragon/storefront-edge/pkg/db"
	"github.com/angelmondragon/storefront-edge/pkg/env"
	"github.com/angelmondragon/storefront-edge/pkg/instance"
	"github.com/angelmondragon/storefront-edge/pkg/logger"
	"github.com/angelmondragon/storefront-edge/pkg/metrics"
	"github.com/angelmondragon/storefront-edge/pkg/migrate"
	"github.com/angelmondragon/storefront-edge/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "storefront edge stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "storefront edge stopped")
}

// backing is the store selected by STOREFRONT_STORE_DRIVER plus its
// readiness probe, rate limit counter and close hook.
type backing struct {
	kv         localstore.KV
	ready      map[string]controllers.Pinger
	rateLimits middleware.RateLimitStore
	close      func() error
}

func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*backing, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		return &backing{
			kv:         localstore.NewRedis(client, cfg.Redis.EntryTTL),
			ready:      map[string]controllers.Pinger{"redis": client},
			rateLimits: client,
			close:      client.Close,
		}, nil

	case config.StoreDriverSQL:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
		if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("dev migrations: %w", err)
		}
		return &backing{
			kv:    localstore.NewSQL(client.DB()),
			ready: map[string]controllers.Pinger{"database": client},
			close: client.Close,
		}, nil

	default:
		mem := localstore.NewMemory()
		logg.Warn(ctx, "using in-memory store; carts are lost on restart")
		return &backing{
			kv:         mem,
			ready:      map[string]controllers.Pinger{"memory": mem},
			rateLimits: mem,
			close:      func() error { return nil },
		}, nil
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	store, err := openStore(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(); err != nil {
			logg.Error(context.Background(), "error closing store", err)
		}
	}()

	client, err := remote.NewClient(cfg.Backend.BaseURL, remote.WithTimeout(cfg.Backend.Timeout))
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}

	syncMetrics := metrics.NewCartSyncMetrics(prometheus.DefaultRegisterer)

	registry, err := storefront.NewRegistry(storefront.RegistryParams{
		Store:   store.kv,
		AuthAPI: client,
		CartRemote: func(tokens remote.TokenSource) cartsync.Remote {
			return client.Cart(tokens)
		},
		Verifier: pkgauth.Verifier{
			Secret: cfg.Backend.JWTSecret,
			Issuer: cfg.Backend.JWTIssuer,
		},
		Options: storefront.Options{
			SyncDebounce:  cfg.Cart.SyncDebounce,
			StorageKey:    cfg.Cart.StorageKey,
			IdleTTL:       cfg.Session.IdleTTL,
			SweepInterval: cfg.Session.SweepInterval,
			WriteTimeout:  cfg.Backend.Timeout,
		},
		Logger:  logg,
		Metrics: syncMetrics,
	})
	if err != nil {
		return fmt.Errorf("session registry: %w", err)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     instance.GetID(),
		"store_driver": cfg.Store.Driver,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			Storefronts: registry,
			Ready:       store.ready,
			RateLimits:  store.rateLimits,
			Metrics:     promhttp.Handler(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logg.Info(logCtx, "starting storefront edge server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logg.Info(logCtx, "shutting down storefront edge server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		registry.Shutdown(shutdownCtx)
		return err
	})

	g.Go(func() error {
		return registry.RunSweeper(gCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
