package config

// EnvPrefix is handed to envconfig. Struct tags are fully qualified and are
// resolved through envconfig's alt-key lookup.
const EnvPrefix = "POS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	TaxPolicyPerProduct = "per_product"
	TaxPolicyInclusive  = "inclusive"
	TaxPolicyExclusive  = "exclusive"
)

const (
	EnvAppEnv         = "POS_APP_ENV"
	EnvPort           = "POS_APP_PORT"
	EnvLogLevel       = "POS_LOG_LEVEL"
	EnvLogFormat      = "POS_LOG_FORMAT"
	EnvDBDSN          = "POS_DB_DSN"
	EnvDBDriver       = "POS_DB_DRIVER"
	EnvDBHost         = "POS_DB_HOST"
	EnvDBUser         = "POS_DB_USER"
	EnvDBName         = "POS_DB_NAME"
	EnvDBTxTimeout    = "POS_DB_TX_TIMEOUT"
	EnvRedisURL       = "POS_REDIS_URL"
	EnvSalesTaxPolicy = "POS_SALES_TAX_POLICY"
	EnvSalesPrefix    = "POS_SALES_SALE_PREFIX"
	EnvQuotePrefix    = "POS_SALES_QUOTE_PREFIX"
	EnvElevatedRoles  = "POS_SALES_ELEVATED_ROLES"
	EnvCORSOrigins    = "POS_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
