package config

// EnvPrefix is handed to envconfig; every field carries an explicit envconfig tag.
const EnvPrefix = "ORDERFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	GatewayStorefront = "storefront"
	GatewayStripe     = "stripe"

	FeedWebsocket = "websocket"
	FeedPubSub    = "pubsub"
)

const (
	EnvAppEnv                = "ORDERFLOW_APP_ENV"
	EnvPort                  = "ORDERFLOW_APP_PORT"
	EnvDBDSN                 = "ORDERFLOW_DB_DSN"
	EnvDBHost                = "ORDERFLOW_DB_HOST"
	EnvDBUser                = "ORDERFLOW_DB_USER"
	EnvDBName                = "ORDERFLOW_DB_NAME"
	EnvRedisURL              = "ORDERFLOW_REDIS_URL"
	EnvJWTSecret             = "ORDERFLOW_JWT_SECRET"
	EnvJWTIssuer             = "ORDERFLOW_JWT_ISSUER"
	EnvStorefrontBaseURL     = "ORDERFLOW_STOREFRONT_BASE_URL"
	EnvPaymentGateway        = "ORDERFLOW_PAYMENT_GATEWAY"
	EnvStripeAPIKey          = "ORDERFLOW_STRIPE_API_KEY"
	EnvStripeEnv             = "ORDERFLOW_STRIPE_ENV"
	EnvFeedKind              = "ORDERFLOW_FEED_KIND"
	EnvFeedURL               = "ORDERFLOW_FEED_URL"
	EnvGCPProjectID          = "ORDERFLOW_GCP_PROJECT_ID"
	EnvPubSubStatusSub       = "ORDERFLOW_PUBSUB_STATUS_SUBSCRIPTION"
	EnvFreeDeliveryThreshold = "ORDERFLOW_PRICING_FREE_DELIVERY_THRESHOLD"
	EnvFlatDeliveryFee       = "ORDERFLOW_PRICING_FLAT_DELIVERY_FEE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
