package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Billing     BillingConfig
	Providers   ProvidersConfig
	Withdrawals WithdrawalsConfig
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
	Env          string `envconfig:"IMMOFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"IMMOFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"IMMOFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"IMMOFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"IMMOFLOW_DB_DSN"`
	Driver string `envconfig:"IMMOFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"IMMOFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"IMMOFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"IMMOFLOW_DB_USER"`
	LegacyPassword string `envconfig:"IMMOFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"IMMOFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"IMMOFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"IMMOFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"IMMOFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"IMMOFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"IMMOFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"IMMOFLOW_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"IMMOFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"IMMOFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"IMMOFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"IMMOFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"IMMOFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"IMMOFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"IMMOFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"IMMOFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"IMMOFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"IMMOFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"IMMOFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"IMMOFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

type BillingConfig struct {
	Currency              string        `envconfig:"IMMOFLOW_BILLING_CURRENCY" default:"XOF"`
	ReturnURL             string        `envconfig:"IMMOFLOW_BILLING_RETURN_URL" required:"true"`
	WebhookIdempotencyTTL time.Duration `envconfig:"IMMOFLOW_BILLING_WEBHOOK_IDEMPOTENCY_TTL" default:"168h"`
	StalePendingCutoff    time.Duration `envconfig:"IMMOFLOW_BILLING_STALE_PENDING_CUTOFF" default:"24h"`
}

// ProvidersConfig carries the per-provider credentials and endpoints. The
// payload shapes each provider expects live in internal/providers; only the
// externally dictated connection material is configuration.
type ProvidersConfig struct {
	Fedapay FedapayConfig
	WaveCI  WaveCIConfig
	Pawapay PawapayConfig
	Kkiapay KkiapayConfig
}

type FedapayConfig struct {
	BaseURL   string `envconfig:"IMMOFLOW_FEDAPAY_BASE_URL" default:"https://api.fedapay.com/v1"`
	SecretKey string `envconfig:"IMMOFLOW_FEDAPAY_SECRET_KEY"`
}

type WaveCIConfig struct {
	BaseURL string `envconfig:"IMMOFLOW_WAVE_BASE_URL" default:"https://api.wave.com/v1"`
	APIKey  string `envconfig:"IMMOFLOW_WAVE_API_KEY"`
}

type PawapayConfig struct {
	BaseURL     string `envconfig:"IMMOFLOW_PAWAPAY_BASE_URL" default:"https://api.pawapay.cloud"`
	APIToken    string `envconfig:"IMMOFLOW_PAWAPAY_API_TOKEN"`
	CountryCode string `envconfig:"IMMOFLOW_PAWAPAY_COUNTRY_CODE" default:"CIV"`
}

type KkiapayConfig struct {
	BaseURL    string `envconfig:"IMMOFLOW_KKIAPAY_BASE_URL" default:"https://api.kkiapay.me"`
	PublicKey  string `envconfig:"IMMOFLOW_KKIAPAY_PUBLIC_KEY"`
	PrivateKey string `envconfig:"IMMOFLOW_KKIAPAY_PRIVATE_KEY"`
	Sandbox    bool   `envconfig:"IMMOFLOW_KKIAPAY_SANDBOX" default:"false"`
}

type WithdrawalsConfig struct {
	BatchSize     int           `envconfig:"IMMOFLOW_WITHDRAWALS_BATCH_SIZE" default:"50"`
	BatchInterval time.Duration `envconfig:"IMMOFLOW_WITHDRAWALS_BATCH_INTERVAL" default:"10m"`
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
