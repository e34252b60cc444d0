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
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	RateLimit    RateLimitConfig
	Deposit      DepositConfig
	Reservations ReservationsConfig
	Cron         CronConfig
	Alerting     AlertingConfig
	Stripe       StripeConfig
	PayPal       PayPalConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GOLDENLEAF_APP_ENV" required:"true"`
	Port         string `envconfig:"GOLDENLEAF_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GOLDENLEAF_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GOLDENLEAF_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GOLDENLEAF_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GOLDENLEAF_DB_DSN"`
	Driver string `envconfig:"GOLDENLEAF_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GOLDENLEAF_DB_HOST"`
	LegacyPort     int    `envconfig:"GOLDENLEAF_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GOLDENLEAF_DB_USER"`
	LegacyPassword string `envconfig:"GOLDENLEAF_DB_PASSWORD"`
	LegacyName     string `envconfig:"GOLDENLEAF_DB_NAME"`
	LegacySSLMode  string `envconfig:"GOLDENLEAF_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GOLDENLEAF_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GOLDENLEAF_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GOLDENLEAF_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GOLDENLEAF_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GOLDENLEAF_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GOLDENLEAF_REDIS_ADDR"`
	Password     string        `envconfig:"GOLDENLEAF_REDIS_PASSWORD"`
	DB           int           `envconfig:"GOLDENLEAF_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GOLDENLEAF_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GOLDENLEAF_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GOLDENLEAF_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GOLDENLEAF_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GOLDENLEAF_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// RateLimitConfig throttles inquiry/reservation creation per email and per
// origin address.
type RateLimitConfig struct {
	Window     time.Duration `envconfig:"GOLDENLEAF_RATE_LIMIT_WINDOW" default:"15m"`
	EmailLimit int           `envconfig:"GOLDENLEAF_RATE_LIMIT_EMAIL_LIMIT" default:"3"`
	IPLimit    int           `envconfig:"GOLDENLEAF_RATE_LIMIT_IP_LIMIT" default:"5"`
}

// DepositConfig drives the deposit calculator policy.
type DepositConfig struct {
	Mode        string          `envconfig:"GOLDENLEAF_DEPOSIT_MODE" default:"fixed"`
	FixedAmount decimal.Decimal `envconfig:"GOLDENLEAF_DEPOSIT_FIXED_AMOUNT" default:"300"`
	Percent     decimal.Decimal `envconfig:"GOLDENLEAF_DEPOSIT_PERCENT" default:"0"`
	Cap         decimal.Decimal `envconfig:"GOLDENLEAF_DEPOSIT_CAP" default:"0"`
	Min         decimal.Decimal `envconfig:"GOLDENLEAF_DEPOSIT_MIN" default:"0"`
}

type ReservationsConfig struct {
	HoldTTL time.Duration `envconfig:"GOLDENLEAF_RESERVATION_HOLD_TTL" default:"72h"`
}

type CronConfig struct {
	Secret   string        `envconfig:"GOLDENLEAF_CRON_SECRET"`
	Interval time.Duration `envconfig:"GOLDENLEAF_CRON_INTERVAL" default:"15m"`
}

type AlertingConfig struct {
	ThrottleWindow  time.Duration `envconfig:"GOLDENLEAF_ALERT_THROTTLE_WINDOW" default:"15m"`
	SlackWebhookURL string        `envconfig:"GOLDENLEAF_ALERT_SLACK_WEBHOOK_URL"`
	Timeout         time.Duration `envconfig:"GOLDENLEAF_ALERT_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	SigningSecret string `envconfig:"GOLDENLEAF_STRIPE_SIGNING_SECRET"`
	Env           string `envconfig:"GOLDENLEAF_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PayPalConfig struct {
	WebhookID string `envconfig:"GOLDENLEAF_PAYPAL_WEBHOOK_ID"`
	ClientID  string `envconfig:"GOLDENLEAF_PAYPAL_CLIENT_ID"`
	Secret    string `envconfig:"GOLDENLEAF_PAYPAL_SECRET"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GOLDENLEAF_AUTO_MIGRATE" default:"false"`
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
