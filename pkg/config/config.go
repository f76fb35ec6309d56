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
	SMTP         SMTPConfig
	Mail         MailConfig
	Store        StoreConfig
	Audit        AuditConfig
	RateLimit    RateLimitConfig
	Reminders    RemindersConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENTECH_APP_ENV" required:"true"`
	Port         string `envconfig:"VENTECH_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"VENTECH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENTECH_LOG_WARN_STACK" default:"false"`
	FrontendURL  string `envconfig:"VENTECH_FRONTEND_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VENTECH_DB_DSN"`
	Driver string `envconfig:"VENTECH_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"VENTECH_DB_HOST"`
	Port     int    `envconfig:"VENTECH_DB_PORT" default:"5432"`
	User     string `envconfig:"VENTECH_DB_USER"`
	Password string `envconfig:"VENTECH_DB_PASSWORD"`
	Name     string `envconfig:"VENTECH_DB_NAME"`
	SSLMode  string `envconfig:"VENTECH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENTECH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENTECH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENTECH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENTECH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENTECH_REDIS_URL"`
	Address      string        `envconfig:"VENTECH_REDIS_ADDR"`
	Password     string        `envconfig:"VENTECH_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENTECH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENTECH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENTECH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENTECH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENTECH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENTECH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret string `envconfig:"VENTECH_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"VENTECH_JWT_ISSUER" required:"true"`
	// ExpirationMinutes bounds tokens minted by MintAccessToken.
	ExpirationMinutes int `envconfig:"VENTECH_JWT_EXPIRATION_MINUTES" default:"60"`
	// RequireSession enforces that the token's jti is registered in Redis.
	RequireSession bool `envconfig:"VENTECH_JWT_REQUIRE_SESSION" default:"false"`
}

type SMTPConfig struct {
	Host     string `envconfig:"VENTECH_SMTP_HOST" default:"smtp.gmail.com"`
	Port     int    `envconfig:"VENTECH_SMTP_PORT" default:"587"`
	Username string `envconfig:"VENTECH_SMTP_USER"`
	Password string `envconfig:"VENTECH_SMTP_PASS"`
	// ImplicitTLS switches from STARTTLS to TLS-on-connect (port 465).
	ImplicitTLS bool   `envconfig:"VENTECH_SMTP_IMPLICIT_TLS" default:"false"`
	FromName    string `envconfig:"VENTECH_SMTP_FROM_NAME" default:"VENTECH Gadgets"`
	FromAddress string `envconfig:"VENTECH_SMTP_FROM_ADDRESS"`
}

// Sender returns the configured envelope sender, defaulting to the SMTP user.
func (s SMTPConfig) Sender() string {
	if addr := strings.TrimSpace(s.FromAddress); addr != "" {
		return addr
	}
	return strings.TrimSpace(s.Username)
}

type MailConfig struct {
	OperationsMailbox string `envconfig:"VENTECH_OPERATIONS_EMAIL" default:"ventechgadgets@gmail.com"`
	FallbackEmail     string `envconfig:"VENTECH_ADMIN_FALLBACK_EMAIL" default:"support@ventechgadgets.com"`
	TemplateDir       string `envconfig:"VENTECH_EMAIL_TEMPLATE_DIR"`
}

type StoreConfig struct {
	BrandName      string `envconfig:"VENTECH_BRAND_NAME" default:"VENTECH"`
	Tagline        string `envconfig:"VENTECH_BRAND_TAGLINE" default:"Gadgets & Electronics"`
	CurrencyPrefix string `envconfig:"VENTECH_CURRENCY_PREFIX" default:"GHS"`
	SupportEmail   string `envconfig:"VENTECH_SUPPORT_EMAIL" default:"support@ventechgadgets.com"`
	SupportPhone   string `envconfig:"VENTECH_SUPPORT_PHONE" default:"+233 55 134 4310"`
	Website        string `envconfig:"VENTECH_WEBSITE" default:"www.ventechgadgets.com"`
}

type RateLimitConfig struct {
	PublicFormLimit  int64         `envconfig:"VENTECH_PUBLIC_FORM_LIMIT" default:"5"`
	PublicFormWindow time.Duration `envconfig:"VENTECH_PUBLIC_FORM_WINDOW" default:"10m"`
}

type AuditConfig struct {
	WhitelistedEmails []string `envconfig:"VENTECH_AUDIT_WHITELIST"`
}

type RemindersConfig struct {
	CartIdleThreshold time.Duration `envconfig:"VENTECH_CART_IDLE_THRESHOLD" default:"24h"`
	FanOutConcurrency int           `envconfig:"VENTECH_REMINDER_CONCURRENCY" default:"4"`
}

// CronConfig drives the scheduled sweeps run by cmd/cron-worker.
type CronConfig struct {
	Interval       time.Duration `envconfig:"VENTECH_CRON_INTERVAL" default:"6h"`
	LockTTL        time.Duration `envconfig:"VENTECH_CRON_LOCK_TTL" default:"1h"`
	InboxRetention time.Duration `envconfig:"VENTECH_INBOX_RETENTION" default:"720h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VENTECH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VENTECH_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = "file:ventech.db?_foreign_keys=on"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range partialDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
