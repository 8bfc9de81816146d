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
	FeatureFlags FeatureFlagsConfig
	DeliveryOTP  DeliveryOTPConfig
	ActionCodes  ActionCodesConfig
	Payouts      PayoutsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.DeliveryOTP.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SUPPLYHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"SUPPLYHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SUPPLYHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUPPLYHUB_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"SUPPLYHUB_CORS_ORIGINS"`
	// MetricsAddr is the worker-side /metrics listener; empty disables it.
	MetricsAddr string `envconfig:"SUPPLYHUB_METRICS_ADDR"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

type DBConfig struct {
	DSN    string `envconfig:"SUPPLYHUB_DB_DSN"`
	Driver string `envconfig:"SUPPLYHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SUPPLYHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"SUPPLYHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUPPLYHUB_DB_USER"`
	LegacyPassword string `envconfig:"SUPPLYHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUPPLYHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUPPLYHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUPPLYHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUPPLYHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUPPLYHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUPPLYHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SUPPLYHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SUPPLYHUB_REDIS_ADDR"`
	Password     string        `envconfig:"SUPPLYHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUPPLYHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUPPLYHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUPPLYHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUPPLYHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUPPLYHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUPPLYHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SUPPLYHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SUPPLYHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SUPPLYHUB_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SUPPLYHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SUPPLYHUB_AUTO_MIGRATE" default:"false"`
}

// DeliveryOTPConfig tunes the delivery confirmation code lifecycle.
type DeliveryOTPConfig struct {
	HashKey            string        `envconfig:"SUPPLYHUB_DELIVERY_OTP_HASH_KEY" required:"true"`
	TTL                time.Duration `envconfig:"SUPPLYHUB_DELIVERY_OTP_TTL" default:"10m"`
	MaxAttempts        int           `envconfig:"SUPPLYHUB_DELIVERY_OTP_MAX_ATTEMPTS" default:"5"`
	LockoutDuration    time.Duration `envconfig:"SUPPLYHUB_DELIVERY_OTP_LOCKOUT" default:"10m"`
	RequestWindow      time.Duration `envconfig:"SUPPLYHUB_DELIVERY_OTP_REQUEST_WINDOW" default:"15m"`
	RequestLimit       int           `envconfig:"SUPPLYHUB_DELIVERY_OTP_REQUEST_LIMIT" default:"5"`
	DefaultPhoneRegion string        `envconfig:"SUPPLYHUB_DELIVERY_OTP_PHONE_REGION" default:"US"`
}

func (d DeliveryOTPConfig) validate() error {
	if len(d.HashKey) < minHashKeyLength {
		return fmt.Errorf("%s must be at least %d characters", EnvDeliveryOTPHashKey, minHashKeyLength)
	}
	return nil
}

// ActionCodesConfig tunes single-use authorization codes for sensitive actions.
type ActionCodesConfig struct {
	TTL time.Duration `envconfig:"SUPPLYHUB_ACTION_CODE_TTL" default:"10m"`
}

// PayoutsConfig holds supplier payout policy knobs.
type PayoutsConfig struct {
	// SupportedCountries lists ISO country codes a supplier bank profile must match.
	// An empty list disables the country requirement.
	SupportedCountries []string `envconfig:"SUPPLYHUB_PAYOUT_SUPPORTED_COUNTRIES"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SUPPLYHUB_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic       string `envconfig:"SUPPLYHUB_PUBSUB_DOMAIN_TOPIC" default:"supplyhub-domain-events"`
	NotificationTopic string `envconfig:"SUPPLYHUB_PUBSUB_NOTIFICATION_TOPIC" default:"supplyhub-notification-deliveries"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"SUPPLYHUB_CRON_INTERVAL" default:"24h"`
	OutboxRetention       time.Duration `envconfig:"SUPPLYHUB_CRON_OUTBOX_RETENTION" default:"720h"`
	NotificationRetention time.Duration `envconfig:"SUPPLYHUB_CRON_NOTIFICATION_RETENTION" default:"720h"`
	DeliveryCodeRetention time.Duration `envconfig:"SUPPLYHUB_CRON_DELIVERY_CODE_RETENTION" default:"168h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SUPPLYHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SUPPLYHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SUPPLYHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
