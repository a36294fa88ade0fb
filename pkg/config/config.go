package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "shopsite"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SHOPSITE_DB_DSN"
	EnvDBHost = "SHOPSITE_DB_HOST"
	EnvDBUser = "SHOPSITE_DB_USER"
	EnvDBName = "SHOPSITE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"SHOPSITE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPSITE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHOPSITE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPSITE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPSITE_DB_DSN"`
	Driver string `envconfig:"SHOPSITE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOPSITE_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPSITE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPSITE_DB_USER"`
	LegacyPassword string `envconfig:"SHOPSITE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPSITE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPSITE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPSITE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPSITE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPSITE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPSITE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPSITE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPSITE_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPSITE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPSITE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPSITE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPSITE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPSITE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPSITE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPSITE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"SHOPSITE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"SHOPSITE_JWT_ISSUER" required:"true"`
}

// CheckoutConfig bounds the reservation and idempotency windows used by
// the checkout engine.
type CheckoutConfig struct {
	ReservationTTL    time.Duration `envconfig:"SHOPSITE_CHECKOUT_RESERVATION_TTL" default:"15m"`
	IdempotencyTTL    time.Duration `envconfig:"SHOPSITE_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
	LowStockThreshold int           `envconfig:"SHOPSITE_LOW_STOCK_THRESHOLD" default:"5"`
}

type CronConfig struct {
	Tick time.Duration `envconfig:"SHOPSITE_CRON_TICK" default:"1m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHOPSITE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHOPSITE_AUTO_MIGRATE" default:"false"`
}

type PubSubConfig struct {
	ProjectID         string `envconfig:"SHOPSITE_GCP_PROJECT_ID"`
	OrdersTopic       string `envconfig:"SHOPSITE_PUBSUB_ORDERS_TOPIC" default:"shopsite-order-events"`
	InventoryTopic    string `envconfig:"SHOPSITE_PUBSUB_INVENTORY_TOPIC" default:"shopsite-inventory-events"`
	PublishTimeoutSec int    `envconfig:"SHOPSITE_PUBSUB_PUBLISH_TIMEOUT_SEC" default:"10"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SHOPSITE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SHOPSITE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SHOPSITE_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
