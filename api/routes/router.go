package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusbite/orderflow/api/controllers"
	cartcontrollers "github.com/campusbite/orderflow/api/controllers/cart"
	checkoutcontrollers "github.com/campusbite/orderflow/api/controllers/checkout"
	ordercontrollers "github.com/campusbite/orderflow/api/controllers/orders"
	"github.com/campusbite/orderflow/api/middleware"
	"github.com/campusbite/orderflow/internal/notifications"
	"github.com/campusbite/orderflow/internal/tracker"
	"github.com/campusbite/orderflow/pkg/auth"
	"github.com/campusbite/orderflow/pkg/config"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/metrics"
	"github.com/campusbite/orderflow/pkg/pricing"
	"github.com/campusbite/orderflow/pkg/redis"
)

// Trackers is the per-session order tracker registry.
type Trackers interface {
	ordercontrollers.Trackers
	checkoutcontrollers.OrderAdopter
	controllers.TrackerStopper
}

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Verifier      *auth.Verifier
	Redis         *redis.Client
	DB            controllers.Pinger
	Storefront    controllers.Pinger
	Sessions      cartcontrollers.SessionStore
	Promos        cartcontrollers.PromoApplier
	Checkout      checkoutcontrollers.Flows
	Trackers      Trackers
	Notifications notifications.Service
	Calculator    pricing.Calculator
	Gatherer      prometheus.Gatherer
	HTTPMetrics   *metrics.HTTPMetrics
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	readiness := map[string]controllers.Pinger{
		"db":         deps.DB,
		"storefront": deps.Storefront,
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	promoPolicy := middleware.NewRateLimitPolicy("promo", cfg.RateLimit.PromoWindow, cfg.RateLimit.PromoAttempts)
	checkoutDeps := checkoutcontrollers.Deps{
		Store:   deps.Sessions,
		Flows:   deps.Checkout,
		Tracker: deps.Trackers,
		Calc:    deps.Calculator,
		Logger:  logg,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Verifier, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(deps.Sessions, deps.Calculator, logg))
			r.Delete("/", cartcontrollers.CartClear(deps.Sessions, deps.Calculator, logg))
			r.Post("/items", cartcontrollers.CartAddItem(deps.Sessions, deps.Calculator, logg))
			r.Patch("/items/{productId}", cartcontrollers.CartSetQuantity(deps.Sessions, deps.Calculator, logg))
			r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(deps.Sessions, deps.Calculator, logg))
			r.With(rateLimit(promoPolicy, deps.Redis, logg)).Post("/promo", cartcontrollers.PromoApply(deps.Sessions, deps.Promos, deps.Calculator, logg))
			r.Delete("/promo", cartcontrollers.PromoRemove(deps.Sessions, deps.Calculator, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkoutcontrollers.CheckoutEnter(checkoutDeps))
			r.Post("/details", checkoutcontrollers.CheckoutDetails(checkoutDeps))
			r.Post("/back", checkoutcontrollers.CheckoutBack(checkoutDeps))
			r.With(idempotency(deps.Redis, cfg.Session.IdempotencyTTL, logg)).Post("/submit", checkoutcontrollers.CheckoutSubmit(checkoutDeps))
			r.Post("/retry", checkoutcontrollers.CheckoutRetry(checkoutDeps))
			r.Get("/success", checkoutcontrollers.CheckoutSuccess(checkoutDeps))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Trackers, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Trackers, logg))
			r.Post("/{orderId}/review", ordercontrollers.Review(deps.Trackers, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})

		r.Delete("/tracking", controllers.StopTracking(deps.Trackers, logg))
	})

	return r
}

func rateLimit(policy middleware.RateLimitPolicy, client *redis.Client, logg *logger.Logger) func(http.Handler) http.Handler {
	if client == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.SessionRateLimit(policy, client, logg)
}

func idempotency(client *redis.Client, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if client == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.Idempotency(client, ttl, logg)
}

var _ Trackers = (*tracker.Manager)(nil)
