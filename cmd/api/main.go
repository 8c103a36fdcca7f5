package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/campusbite/orderflow/api/routes"
	"github.com/campusbite/orderflow/internal/checkout"
	"github.com/campusbite/orderflow/internal/notifications"
	"github.com/campusbite/orderflow/internal/payment"
	"github.com/campusbite/orderflow/internal/promo"
	"github.com/campusbite/orderflow/internal/session"
	"github.com/campusbite/orderflow/internal/tracker"
	"github.com/campusbite/orderflow/pkg/auth"
	"github.com/campusbite/orderflow/pkg/config"
	"github.com/campusbite/orderflow/pkg/db"
	"github.com/campusbite/orderflow/pkg/env"
	"github.com/campusbite/orderflow/pkg/instance"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/metrics"
	"github.com/campusbite/orderflow/pkg/migrate"
	"github.com/campusbite/orderflow/pkg/pricing"
	"github.com/campusbite/orderflow/pkg/pubsub"
	"github.com/campusbite/orderflow/pkg/redis"
	"github.com/campusbite/orderflow/pkg/storefront"
	"github.com/campusbite/orderflow/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Static:      map[string]string{"instance": instance.GetID()},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
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

	threshold, err := cfg.Pricing.Threshold()
	if err != nil {
		return err
	}
	fee, err := cfg.Pricing.Fee()
	if err != nil {
		return err
	}
	calc := pricing.NewCalculator(threshold, fee)

	verifier, err := auth.NewVerifier(cfg.JWT)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	trackerMetrics := metrics.NewTrackerMetrics(registry)

	sf, err := storefront.NewClient(cfg.Storefront, logg)
	if err != nil {
		return err
	}

	sessions, err := session.NewStore(redisClient, cfg.Session, logg)
	if err != nil {
		return err
	}

	checker, err := promo.NewStorefrontChecker(sf)
	if err != nil {
		return err
	}
	promos, err := promo.NewValidator(checker, logg)
	if err != nil {
		return err
	}

	gateway, err := newGateway(ctx, cfg, sf, logg)
	if err != nil {
		return err
	}
	dispatcher, err := payment.NewDispatcher(gateway, logg)
	if err != nil {
		return err
	}
	orders, err := checkout.NewStorefrontOrders(sf)
	if err != nil {
		return err
	}
	flows, err := checkout.NewService(orders, dispatcher, calc, checkoutMetrics, logg)
	if err != nil {
		return err
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return err
	}

	trackerCtx, stopTrackers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopTrackers()

	managerDeps := tracker.ManagerDeps{
		Orders:   sf,
		Repo:     tracker.NewRepository(dbClient.DB()),
		Notifier: notificationsService,
		Metrics:  trackerMetrics,
		Logger:   logg,
	}
	var broker *pubsub.Client
	switch cfg.Feed.Kind {
	case "pubsub":
		broker, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, broker.Close()) }()
	default:
		managerDeps.Feed = tracker.NewWebsocketFactory(cfg.Feed, trackerMetrics, logg)
	}

	trackers, err := tracker.NewManager(trackerCtx, managerDeps)
	if err != nil {
		return err
	}
	defer trackers.Shutdown()

	if broker != nil {
		source, err := tracker.NewPubSubSource(broker.StatusSubscription(), logg)
		if err != nil {
			return err
		}
		go func() {
			if err := source.Run(trackerCtx, trackers); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(trackerCtx, "status subscription stopped", err)
			}
		}()
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"feed":    cfg.Feed.Kind,
		"gateway": cfg.Payment.Gateway,
	})

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			Verifier:      verifier,
			Redis:         redisClient,
			DB:            dbClient,
			Storefront:    sf,
			Sessions:      sessions,
			Promos:        promos,
			Checkout:      flows,
			Trackers:      trackers,
			Notifications: notificationsService,
			Calculator:    calc,
			Gatherer:      registry,
			HTTPMetrics:   metrics.NewHTTPMetrics(registry),
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	stopTrackers()
	return nil
}

func newGateway(ctx context.Context, cfg *config.Config, sf *storefront.Client, logg *logger.Logger) (payment.Gateway, error) {
	if cfg.Payment.Gateway == "stripe" {
		client, err := stripe.NewClient(ctx, cfg.Stripe, cfg.Payment, logg)
		if err != nil {
			return nil, err
		}
		return payment.NewStripeGateway(client)
	}
	return payment.NewStorefrontGateway(sf)
}
