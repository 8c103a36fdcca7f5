package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Session    SessionConfig
	Pricing    PricingConfig
	Storefront StorefrontConfig
	Payment    PaymentConfig
	Stripe     StripeConfig
	Feed       FeedConfig
	GCP        GCPConfig
	PubSub     PubSubConfig
	RateLimit  RateLimitConfig
	Housekeep  HousekeepingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Payment.Gateway {
	case GatewayStorefront:
	case GatewayStripe:
		if strings.TrimSpace(c.Stripe.APIKey) == "" {
			return fmt.Errorf("%s is required when payment gateway is %q", EnvStripeAPIKey, GatewayStripe)
		}
		if c.App.IsProd() && c.Stripe.Environment() != "live" {
			return fmt.Errorf("%s must be live in prod", EnvStripeEnv)
		}
	default:
		return fmt.Errorf("unknown payment gateway %q", c.Payment.Gateway)
	}
	switch c.Feed.Kind {
	case FeedWebsocket:
		if strings.TrimSpace(c.Feed.URL) == "" {
			return fmt.Errorf("%s is required when feed kind is %q", EnvFeedURL, FeedWebsocket)
		}
	case FeedPubSub:
		if strings.TrimSpace(c.GCP.ProjectID) == "" || strings.TrimSpace(c.PubSub.StatusSubscription) == "" {
			return fmt.Errorf("gcp project and status subscription are required when feed kind is %q", FeedPubSub)
		}
	default:
		return fmt.Errorf("unknown feed kind %q", c.Feed.Kind)
	}
	if _, err := c.Pricing.Threshold(); err != nil {
		return err
	}
	if _, err := c.Pricing.Fee(); err != nil {
		return err
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORDERFLOW_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"ORDERFLOW_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"ORDERFLOW_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"ORDERFLOW_AUTO_MIGRATE" default:"false"`

	CORSOrigins []string `envconfig:"ORDERFLOW_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"ORDERFLOW_DB_DSN"`

	LegacyHost     string `envconfig:"ORDERFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERFLOW_DB_USER"`
	LegacyPassword string `envconfig:"ORDERFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERFLOW_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"ORDERFLOW_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"ORDERFLOW_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORDERFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"ORDERFLOW_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"ORDERFLOW_JWT_ISSUER" required:"true"`
	// ExpirationMinutes only applies to tokens minted locally (dev tooling and tests).
	ExpirationMinutes int `envconfig:"ORDERFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
	// Leeway tolerates clock skew between this service and the identity service.
	Leeway time.Duration `envconfig:"ORDERFLOW_JWT_LEEWAY" default:"30s"`
}

type SessionConfig struct {
	TTL            time.Duration `envconfig:"ORDERFLOW_SESSION_TTL" default:"72h"`
	LockTTL        time.Duration `envconfig:"ORDERFLOW_SESSION_LOCK_TTL" default:"30s"`
	IdempotencyTTL time.Duration `envconfig:"ORDERFLOW_SESSION_IDEMPOTENCY_TTL" default:"24h"`
}

type RateLimitConfig struct {
	PromoAttempts int           `envconfig:"ORDERFLOW_RATE_LIMIT_PROMO_ATTEMPTS" default:"10"`
	PromoWindow   time.Duration `envconfig:"ORDERFLOW_RATE_LIMIT_PROMO_WINDOW" default:"1m"`
}

type HousekeepingConfig struct {
	Interval              time.Duration `envconfig:"ORDERFLOW_HOUSEKEEPING_INTERVAL" default:"6h"`
	LockTTL               time.Duration `envconfig:"ORDERFLOW_HOUSEKEEPING_LOCK_TTL" default:"30m"`
	NotificationRetention time.Duration `envconfig:"ORDERFLOW_HOUSEKEEPING_NOTIFICATION_RETENTION" default:"720h"`
	MirrorRetention       time.Duration `envconfig:"ORDERFLOW_HOUSEKEEPING_MIRROR_RETENTION" default:"2160h"`
}

type PricingConfig struct {
	FreeDeliveryThreshold string `envconfig:"ORDERFLOW_PRICING_FREE_DELIVERY_THRESHOLD" default:"200"`
	FlatDeliveryFee       string `envconfig:"ORDERFLOW_PRICING_FLAT_DELIVERY_FEE" default:"30"`
}

// Threshold parses the free-delivery threshold.
func (p PricingConfig) Threshold() (decimal.Decimal, error) {
	return parseAmount(EnvFreeDeliveryThreshold, p.FreeDeliveryThreshold)
}

// Fee parses the flat delivery fee.
func (p PricingConfig) Fee() (decimal.Decimal, error) {
	return parseAmount(EnvFlatDeliveryFee, p.FlatDeliveryFee)
}

func parseAmount(name, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", name, err)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must be non-negative", name)
	}
	return value, nil
}

type StorefrontConfig struct {
	BaseURL          string        `envconfig:"ORDERFLOW_STOREFRONT_BASE_URL" required:"true"`
	Timeout          time.Duration `envconfig:"ORDERFLOW_STOREFRONT_TIMEOUT" default:"10s"`
	BreakerFailures  uint32        `envconfig:"ORDERFLOW_STOREFRONT_BREAKER_FAILURES" default:"5"`
	BreakerOpenDelay time.Duration `envconfig:"ORDERFLOW_STOREFRONT_BREAKER_OPEN_DELAY" default:"30s"`
}

type PaymentConfig struct {
	Gateway    string `envconfig:"ORDERFLOW_PAYMENT_GATEWAY" default:"storefront"`
	Currency   string `envconfig:"ORDERFLOW_PAYMENT_CURRENCY" default:"bdt"`
	SuccessURL string `envconfig:"ORDERFLOW_PAYMENT_SUCCESS_URL" default:"http://localhost:3000/order-success"`
	CancelURL  string `envconfig:"ORDERFLOW_PAYMENT_CANCEL_URL" default:"http://localhost:3000/checkout"`
}

type StripeConfig struct {
	APIKey string `envconfig:"ORDERFLOW_STRIPE_API_KEY"`
	Env    string `envconfig:"ORDERFLOW_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type FeedConfig struct {
	Kind        string        `envconfig:"ORDERFLOW_FEED_KIND" default:"websocket"`
	URL         string        `envconfig:"ORDERFLOW_FEED_URL"`
	MaxRetries  uint64        `envconfig:"ORDERFLOW_FEED_MAX_RETRIES" default:"5"`
	BaseBackoff time.Duration `envconfig:"ORDERFLOW_FEED_BASE_BACKOFF" default:"1s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ORDERFLOW_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	StatusSubscription string        `envconfig:"ORDERFLOW_PUBSUB_STATUS_SUBSCRIPTION"`
	MaxOutstanding     int           `envconfig:"ORDERFLOW_PUBSUB_MAX_OUTSTANDING" default:"100"`
	Goroutines         int           `envconfig:"ORDERFLOW_PUBSUB_GOROUTINES" default:"2"`
	MaxExtension       time.Duration `envconfig:"ORDERFLOW_PUBSUB_MAX_EXTENSION" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
