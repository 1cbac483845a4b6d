package migrate

import (
	"context"
	"fmt"

	"github.com/luhive/luhive-backend/pkg/config"
	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations at boot in dev when
// LUHIVE_AUTO_MIGRATE is on. Other environments run cmd/migrate explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	migrator, err := New(sqlDB, logg)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "migrate.autorun")
	return migrator.Up(ctx)
}
