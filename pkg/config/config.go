package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Shipping     ShippingConfig
	Square       SquareConfig
	Webhooks     WebhooksConfig
	Cron         CronConfig
	GCP          GCPConfig
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
	if err := cfg.Shipping.validate(); err != nil {
		return nil, err
	}
	if cfg.Checkout.PendingTimeout <= 0 {
		return nil, fmt.Errorf("%s must be positive", EnvCheckoutPendingTimeout)
	}
	if cfg.App.IsProd() {
		if err := cfg.validateProd(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func (c *Config) validateProd() error {
	if c.DB.IsSQLite() {
		return fmt.Errorf("%s=%s is not allowed in %s", EnvDBDriver, DBDriverSQLite, AppEnvProd)
	}
	missing := []string{}
	if strings.TrimSpace(c.Square.AccessToken) == "" {
		missing = append(missing, EnvSquareAccessToken)
	}
	if strings.TrimSpace(c.Square.LocationID) == "" {
		missing = append(missing, EnvSquareLocationID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required in %s", strings.Join(missing, ", "), AppEnvProd)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"FRESATERRA_APP_ENV" required:"true"`
	Port         string `envconfig:"FRESATERRA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FRESATERRA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FRESATERRA_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"FRESATERRA_CORS_ORIGINS"`
	InstanceID   string `envconfig:"FRESATERRA_INSTANCE_ID"`
}

// Instance names this process in logs and cron leases: the configured id,
// else the host name.
func (a AppConfig) Instance() string {
	if id := strings.TrimSpace(a.InstanceID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FRESATERRA_DB_DSN"`
	Driver string `envconfig:"FRESATERRA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FRESATERRA_DB_HOST"`
	LegacyPort     int    `envconfig:"FRESATERRA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FRESATERRA_DB_USER"`
	LegacyPassword string `envconfig:"FRESATERRA_DB_PASSWORD"`
	LegacyName     string `envconfig:"FRESATERRA_DB_NAME"`
	LegacySSLMode  string `envconfig:"FRESATERRA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FRESATERRA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FRESATERRA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FRESATERRA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FRESATERRA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"FRESATERRA_REDIS_URL"`
	Address      string        `envconfig:"FRESATERRA_REDIS_ADDR"`
	Password     string        `envconfig:"FRESATERRA_REDIS_PASSWORD"`
	DB           int           `envconfig:"FRESATERRA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FRESATERRA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FRESATERRA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FRESATERRA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FRESATERRA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FRESATERRA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FRESATERRA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FRESATERRA_JWT_ISSUER" default:"fresaterra"`
	ExpirationMinutes int    `envconfig:"FRESATERRA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FRESATERRA_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	PendingTimeout time.Duration `envconfig:"FRESATERRA_ORDER_PENDING_TIMEOUT" default:"2h"`
	SweepBatchSize int           `envconfig:"FRESATERRA_CHECKOUT_SWEEP_BATCH_SIZE" default:"200"`
	SuccessURL     string        `envconfig:"FRESATERRA_CHECKOUT_SUCCESS_URL"`
	FailureURL     string        `envconfig:"FRESATERRA_CHECKOUT_FAILURE_URL"`
	PendingURL     string        `envconfig:"FRESATERRA_CHECKOUT_PENDING_URL"`

	RateLimitWindow  time.Duration `envconfig:"FRESATERRA_CHECKOUT_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerIP   int           `envconfig:"FRESATERRA_CHECKOUT_RATE_LIMIT_PER_IP" default:"30"`
	RateLimitPerUser int           `envconfig:"FRESATERRA_CHECKOUT_RATE_LIMIT_PER_USER" default:"10"`
}

type ShippingConfig struct {
	FreeThreshold     string `envconfig:"FRESATERRA_SHIPPING_FREE_THRESHOLD" default:"100.00"`
	FlatFee           string `envconfig:"FRESATERRA_SHIPPING_FLAT_FEE" default:"10.00"`
	FallbackCarrierID string `envconfig:"FRESATERRA_SHIPPING_FALLBACK_CARRIER_ID" default:"00000000-0000-0000-0000-000000000001"`
}

// Threshold returns the order total at or above which shipping is free.
func (s ShippingConfig) Threshold() decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(s.FreeThreshold))
	if err != nil {
		return decimal.Zero
	}
	return v
}

// Fee returns the flat shipping fee charged below the threshold.
func (s ShippingConfig) Fee() decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(s.FlatFee))
	if err != nil {
		return decimal.Zero
	}
	return v
}

// FallbackCarrier returns the carrier id used when no active carrier exists.
func (s ShippingConfig) FallbackCarrier() uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(s.FallbackCarrierID))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (s ShippingConfig) validate() error {
	threshold, err := decimal.NewFromString(strings.TrimSpace(s.FreeThreshold))
	if err != nil {
		return fmt.Errorf("%s: %w", EnvShippingFreeThreshold, err)
	}
	fee, err := decimal.NewFromString(strings.TrimSpace(s.FlatFee))
	if err != nil {
		return fmt.Errorf("%s: %w", EnvShippingFlatFee, err)
	}
	if threshold.IsNegative() || fee.IsNegative() {
		return fmt.Errorf("shipping amounts must not be negative")
	}
	if _, err := uuid.Parse(strings.TrimSpace(s.FallbackCarrierID)); err != nil {
		return fmt.Errorf("%s: %w", EnvShippingFallbackCarrier, err)
	}
	return nil
}

type SquareConfig struct {
	Env                    string `envconfig:"FRESATERRA_SQUARE_ENV" default:"sandbox"`
	AccessToken            string `envconfig:"FRESATERRA_SQUARE_ACCESS_TOKEN"`
	LocationID             string `envconfig:"FRESATERRA_SQUARE_LOCATION_ID"`
	WebhookSignatureKey    string `envconfig:"FRESATERRA_SQUARE_WEBHOOK_SIGNATURE_KEY"`
	WebhookNotificationURL string `envconfig:"FRESATERRA_SQUARE_WEBHOOK_NOTIFICATION_URL"`
	Currency               string `envconfig:"FRESATERRA_SQUARE_CURRENCY" default:"USD"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"FRESATERRA_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type CronConfig struct {
	LockTTL               time.Duration `envconfig:"FRESATERRA_CRON_LOCK_TTL" default:"15m"`
	Jobs                  []string      `envconfig:"FRESATERRA_CRON_JOBS"`
	NotificationRetention time.Duration `envconfig:"FRESATERRA_CRON_NOTIFICATION_RETENTION" default:"720h"`
	OutboxRetention       time.Duration `envconfig:"FRESATERRA_CRON_OUTBOX_RETENTION" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FRESATERRA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FRESATERRA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FRESATERRA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"FRESATERRA_PUBSUB_DOMAIN_TOPIC" default:"fresaterra-domain-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FRESATERRA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FRESATERRA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FRESATERRA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
