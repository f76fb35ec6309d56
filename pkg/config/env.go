package config

const (
	EnvPrefix = "VENTECH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv          = "VENTECH_APP_ENV"
	EnvPort            = "VENTECH_APP_PORT"
	EnvDBDSN           = "VENTECH_DB_DSN"
	EnvDBHost          = "VENTECH_DB_HOST"
	EnvDBUser          = "VENTECH_DB_USER"
	EnvDBName          = "VENTECH_DB_NAME"
	EnvRedisURL        = "VENTECH_REDIS_URL"
	EnvJWTSecret       = "VENTECH_JWT_SECRET"
	EnvJWTIssuer       = "VENTECH_JWT_ISSUER"
	EnvAuditWhitelist  = "VENTECH_AUDIT_WHITELIST"
	EnvFallbackEmail   = "VENTECH_ADMIN_FALLBACK_EMAIL"
	EnvUseSQLite       = "VENTECH_USE_SQLITE"
	EnvCurrencyPrefix  = "VENTECH_CURRENCY_PREFIX"
	EnvOperationsEmail = "VENTECH_OPERATIONS_EMAIL"
)

var partialDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
