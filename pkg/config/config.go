package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Settlement   SettlementConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Stripe.validate(cfg.App); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENDOMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDOMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENDOMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDOMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VENDOMARKET_DB_DSN"`
	Driver string `envconfig:"VENDOMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDOMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDOMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDOMARKET_DB_USER"`
	LegacyPassword string `envconfig:"VENDOMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDOMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDOMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDOMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDOMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDOMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDOMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDOMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDOMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"VENDOMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDOMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDOMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDOMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDOMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDOMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDOMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VENDOMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VENDOMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VENDOMARKET_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"VENDOMARKET_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"VENDOMARKET_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"VENDOMARKET_STRIPE_ENV" default:"test"`

	// FrontendBaseURL anchors the success/cancel redirects for hosted
	// checkout sessions.
	FrontendBaseURL string `envconfig:"VENDOMARKET_FRONTEND_BASE_URL" default:"http://localhost:3000"`

	// SkipWebhookConfirmation materializes orders synchronously after session
	// creation instead of waiting for the webhook. Development-only; Load
	// rejects it outside dev.
	SkipWebhookConfirmation bool `envconfig:"VENDOMARKET_STRIPE_SKIP_WEBHOOK_CONFIRMATION" default:"false"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

func (s StripeConfig) validate(app AppConfig) error {
	if s.SkipWebhookConfirmation && !app.IsDev() {
		return fmt.Errorf("%s is only allowed when %s=%s", EnvStripeSkipWebhook, EnvAppEnv, AppEnvDev)
	}
	return nil
}

type SettlementConfig struct {
	Interval time.Duration `envconfig:"VENDOMARKET_SETTLEMENT_INTERVAL" default:"168h"`
	LockTTL  time.Duration `envconfig:"VENDOMARKET_SETTLEMENT_LOCK_TTL" default:"2h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VENDOMARKET_AUTO_MIGRATE" default:"false"`
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
