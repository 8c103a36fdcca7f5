package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/campusbite/orderflow/internal/cron"
	"github.com/campusbite/orderflow/internal/notifications"
	"github.com/campusbite/orderflow/internal/tracker"
	"github.com/campusbite/orderflow/pkg/config"
	"github.com/campusbite/orderflow/pkg/db"
	"github.com/campusbite/orderflow/pkg/instance"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/metrics"
	"github.com/campusbite/orderflow/pkg/migrate"
	"github.com/campusbite/orderflow/pkg/redis"
)

const serviceName = "housekeeper"

func main() {
	once := flag.Bool("once", false, "run a single housekeeping cycle and exit")
	only := flag.String("job", "", "comma separated job names to run; empty runs all")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Static:      map[string]string{"instance": instance.GetID()},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if err := run(ctx, cfg, logg, *once, splitNames(*only)); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "housekeeper stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "housekeeper shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, once bool, only []string) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	lock, err := redisClient.NewLease(redisClient.HousekeepingLockKey(), cfg.Housekeep.LockTTL)
	if err != nil {
		return err
	}

	notificationJob, err := cron.NewNotificationRetentionJob(
		notifications.NewRepository(dbClient.DB()), cfg.Housekeep.NotificationRetention, logg)
	if err != nil {
		return err
	}
	mirrorJob, err := cron.NewMirrorRetentionJob(
		tracker.NewRepository(dbClient.DB()), cfg.Housekeep.MirrorRetention, logg)
	if err != nil {
		return err
	}

	registry, err := cron.NewRegistry(notificationJob, mirrorJob)
	if err != nil {
		return err
	}
	registry, err = registry.Only(only...)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewHousekeepingMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Housekeep.Interval,
	})
	if err != nil {
		return err
	}

	if once {
		logg.Info(ctx, "running single housekeeping cycle")
		return service.RunOnce(ctx)
	}
	logg.Info(ctx, "starting housekeeper")
	return service.Run(ctx)
}

func splitNames(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
