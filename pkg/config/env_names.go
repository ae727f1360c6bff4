package config

// EnvPrefix is passed to envconfig; individual fields carry fully qualified
// names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "VENDOMARKET_APP_ENV"
	EnvPort     = "VENDOMARKET_APP_PORT"
	EnvLogLevel = "VENDOMARKET_LOG_LEVEL"

	EnvDBDSN  = "VENDOMARKET_DB_DSN"
	EnvDBHost = "VENDOMARKET_DB_HOST"
	EnvDBUser = "VENDOMARKET_DB_USER"
	EnvDBName = "VENDOMARKET_DB_NAME"

	EnvRedisURL = "VENDOMARKET_REDIS_URL"

	EnvJWTSecret  = "VENDOMARKET_JWT_SECRET"
	EnvJWTIssuer  = "VENDOMARKET_JWT_ISSUER"
	EnvJWTExpMins = "VENDOMARKET_JWT_EXPIRATION_MINUTES"

	EnvStripeAPIKey        = "VENDOMARKET_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "VENDOMARKET_STRIPE_WEBHOOK_SECRET"
	EnvStripeEnv           = "VENDOMARKET_STRIPE_ENV"
	EnvStripeSkipWebhook   = "VENDOMARKET_STRIPE_SKIP_WEBHOOK_CONFIRMATION"
	EnvFrontendBaseURL     = "VENDOMARKET_FRONTEND_BASE_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
