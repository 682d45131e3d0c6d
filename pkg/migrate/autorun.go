package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-edge/pkg/config"
	"github.com/angelmondragon/storefront-edge/pkg/db"
	"github.com/angelmondragon/storefront-edge/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot when running in dev
// with STOREFRONT_DB_AUTO_MIGRATE enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.DB.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "db_driver": cfg.DB.Driver})
	logg.Info(ctx, "running goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, Source{Driver: cfg.DB.Driver}, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
