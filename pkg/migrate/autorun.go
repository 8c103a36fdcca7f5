package migrate

import (
	"context"
	"fmt"

	"github.com/campusbite/orderflow/pkg/config"
	"github.com/campusbite/orderflow/pkg/db"
	"github.com/campusbite/orderflow/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot in dev when
// ORDERFLOW_AUTO_MIGRATE is set, so the tracker mirror exists before hydration.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.App.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	migrator, err := New(sqlDB, Embedded(), logg)
	if err != nil {
		return err
	}
	ctx = logg.WithField(ctx, "source", "embedded")
	logg.Info(ctx, "auto-migrating dev database")
	return migrator.Up(ctx)
}
