package config

const (
	EnvPrefix = "FRESATERRA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv   = "FRESATERRA_APP_ENV"
	EnvPort     = "FRESATERRA_APP_PORT"
	EnvLogLevel = "FRESATERRA_LOG_LEVEL"

	EnvDBDSN    = "FRESATERRA_DB_DSN"
	EnvDBDriver = "FRESATERRA_DB_DRIVER"
	EnvDBHost   = "FRESATERRA_DB_HOST"
	EnvDBUser   = "FRESATERRA_DB_USER"
	EnvDBName   = "FRESATERRA_DB_NAME"

	EnvRedisURL  = "FRESATERRA_REDIS_URL"
	EnvJWTSecret = "FRESATERRA_JWT_SECRET"

	EnvCheckoutPendingTimeout  = "FRESATERRA_ORDER_PENDING_TIMEOUT"
	EnvShippingFreeThreshold   = "FRESATERRA_SHIPPING_FREE_THRESHOLD"
	EnvShippingFlatFee         = "FRESATERRA_SHIPPING_FLAT_FEE"
	EnvShippingFallbackCarrier = "FRESATERRA_SHIPPING_FALLBACK_CARRIER_ID"

	EnvSquareAccessToken = "FRESATERRA_SQUARE_ACCESS_TOKEN"
	EnvSquareLocationID  = "FRESATERRA_SQUARE_LOCATION_ID"

	EnvPubSubDomainTopic = "FRESATERRA_PUBSUB_DOMAIN_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
