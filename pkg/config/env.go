package config

// EnvPrefix is passed to envconfig; every field declares its full variable name.
const EnvPrefix = "SUPPLYHUB"

const AppEnvDev = "dev"

const minHashKeyLength = 16

const (
	EnvAppEnv             = "SUPPLYHUB_APP_ENV"
	EnvPort               = "SUPPLYHUB_APP_PORT"
	EnvDBDSN              = "SUPPLYHUB_DB_DSN"
	EnvDBHost             = "SUPPLYHUB_DB_HOST"
	EnvDBUser             = "SUPPLYHUB_DB_USER"
	EnvDBName             = "SUPPLYHUB_DB_NAME"
	EnvRedisURL           = "SUPPLYHUB_REDIS_URL"
	EnvJWTSecret          = "SUPPLYHUB_JWT_SECRET"
	EnvJWTIssuer          = "SUPPLYHUB_JWT_ISSUER"
	EnvJWTExpMins         = "SUPPLYHUB_JWT_EXPIRATION_MINUTES"
	EnvDeliveryOTPHashKey = "SUPPLYHUB_DELIVERY_OTP_HASH_KEY"
	EnvPayoutCountries    = "SUPPLYHUB_PAYOUT_SUPPORTED_COUNTRIES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
