package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "immofind"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "IMMOFIND_DB_DSN"
	EnvDBHost = "IMMOFIND_DB_HOST"
	EnvDBUser = "IMMOFIND_DB_USER"
	EnvDBName = "IMMOFIND_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Stripe       StripeConfig
	Webhook      WebhookConfig
	CPC          CPCConfig
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
	Env          string `envconfig:"IMMOFIND_APP_ENV" required:"true"`
	Port         string `envconfig:"IMMOFIND_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"IMMOFIND_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"IMMOFIND_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"IMMOFIND_DB_DSN"`
	Driver string `envconfig:"IMMOFIND_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"IMMOFIND_DB_HOST"`
	LegacyPort     int    `envconfig:"IMMOFIND_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"IMMOFIND_DB_USER"`
	LegacyPassword string `envconfig:"IMMOFIND_DB_PASSWORD"`
	LegacyName     string `envconfig:"IMMOFIND_DB_NAME"`
	LegacySSLMode  string `envconfig:"IMMOFIND_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"IMMOFIND_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"IMMOFIND_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"IMMOFIND_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"IMMOFIND_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"IMMOFIND_REDIS_URL" required:"true"`
	Address      string        `envconfig:"IMMOFIND_REDIS_ADDR"`
	Password     string        `envconfig:"IMMOFIND_REDIS_PASSWORD"`
	DB           int           `envconfig:"IMMOFIND_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"IMMOFIND_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"IMMOFIND_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"IMMOFIND_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"IMMOFIND_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"IMMOFIND_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey     string `envconfig:"IMMOFIND_STRIPE_API_KEY"`
	Secret     string `envconfig:"IMMOFIND_STRIPE_SECRET"`
	Env        string `envconfig:"IMMOFIND_STRIPE_ENV" default:"test"`
	SuccessURL string `envconfig:"IMMOFIND_STRIPE_SUCCESS_URL"`
	CancelURL  string `envconfig:"IMMOFIND_STRIPE_CANCEL_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type WebhookConfig struct {
	// IdempotencyTTL bounds how long a gateway event id is remembered.
	// Stripe retries for up to 3 days; 30 days leaves plenty of slack.
	IdempotencyTTL time.Duration `envconfig:"IMMOFIND_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type CPCConfig struct {
	// BaseCostPerClick is the platform default before the pack discount,
	// used when an agency has no explicit rate.
	BaseCostPerClick string `envconfig:"IMMOFIND_CPC_BASE_COST_PER_CLICK" default:"0.50"`
	Currency         string `envconfig:"IMMOFIND_CPC_CURRENCY" default:"EUR"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"IMMOFIND_AUTO_MIGRATE" default:"false"`
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
