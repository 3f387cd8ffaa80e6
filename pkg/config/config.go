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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Sales        SalesConfig
	Cache        CacheConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Sales.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"POS_APP_ENV" required:"true"`
	Port         string `envconfig:"POS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"POS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"POS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"POS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"POS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"POS_DB_DSN"`
	Driver string `envconfig:"POS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"POS_DB_HOST"`
	LegacyPort     int    `envconfig:"POS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"POS_DB_USER"`
	LegacyPassword string `envconfig:"POS_DB_PASSWORD"`
	LegacyName     string `envconfig:"POS_DB_NAME"`
	LegacySSLMode  string `envconfig:"POS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"POS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"POS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	TxTimeout       time.Duration `envconfig:"POS_DB_TX_TIMEOUT" default:"10s"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite engine.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"POS_REDIS_URL"`
	Address      string        `envconfig:"POS_REDIS_ADDR"`
	Password     string        `envconfig:"POS_REDIS_PASSWORD"`
	DB           int           `envconfig:"POS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint has been configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate  bool `envconfig:"POS_AUTO_MIGRATE" default:"false"`
	CacheEnabled bool `envconfig:"POS_CACHE_ENABLED" default:"false"`
}

type SalesConfig struct {
	TaxPolicy      string   `envconfig:"POS_SALES_TAX_POLICY" default:"per_product"`
	SalePrefix     string   `envconfig:"POS_SALES_SALE_PREFIX" default:"VTA"`
	QuotePrefix    string   `envconfig:"POS_SALES_QUOTE_PREFIX" default:"COT"`
	ReturnPrefix   string   `envconfig:"POS_SALES_RETURN_PREFIX" default:"DEV"`
	ElevatedRoles  []string `envconfig:"POS_SALES_ELEVATED_ROLES" default:"admin,manager"`
	NumberTimezone string   `envconfig:"POS_SALES_NUMBER_TIMEZONE" default:"UTC"`
}

// Location resolves the timezone used to pick the document-number year.
func (s SalesConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(s.NumberTimezone))
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s SalesConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.TaxPolicy)) {
	case TaxPolicyPerProduct, TaxPolicyInclusive, TaxPolicyExclusive:
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvSalesTaxPolicy, TaxPolicyPerProduct, TaxPolicyInclusive, TaxPolicyExclusive)
	}
	if s.SalePrefix == "" || s.QuotePrefix == "" || s.ReturnPrefix == "" {
		return fmt.Errorf("document prefixes must not be empty")
	}
	if s.SalePrefix == s.QuotePrefix {
		return fmt.Errorf("sale and quote prefixes must differ")
	}
	return nil
}

type CacheConfig struct {
	TTL time.Duration `envconfig:"POS_CACHE_TTL" default:"30s"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"POS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"POS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"POS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	ChannelPrefix  string `envconfig:"POS_OUTBOX_CHANNEL_PREFIX" default:"pos:events"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"POS_CRON_INTERVAL" default:"1h"`
	OutboxRetentionDays int           `envconfig:"POS_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"POS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DriverSQLite)
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
