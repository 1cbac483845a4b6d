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
	JWT          JWTConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	SMTP         SMTPConfig
	Registration RegistrationConfig
	Reminders    RemindersConfig
	Broadcast    BroadcastConfig
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
	Env           string `envconfig:"LUHIVE_APP_ENV" required:"true"`
	Port          string `envconfig:"LUHIVE_APP_PORT" required:"true"`
	PublicBaseURL string `envconfig:"LUHIVE_PUBLIC_BASE_URL" default:"http://localhost:5173"`
	LogLevel      string `envconfig:"LUHIVE_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"LUHIVE_LOG_WARN_STACK" default:"false"`
	LogFormat     string `envconfig:"LUHIVE_LOG_FORMAT" default:"json"`
	// CORSOrigins extends the public site origin with extra allowed origins.
	CORSOrigins []string `envconfig:"LUHIVE_CORS_ORIGINS"`
	// ShutdownTimeout bounds draining requests and background broadcasts on exit.
	ShutdownTimeout time.Duration `envconfig:"LUHIVE_SHUTDOWN_TIMEOUT" default:"30s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins returns the public site origin plus any configured extras.
func (a AppConfig) AllowedOrigins() []string {
	origins := make([]string, 0, len(a.CORSOrigins)+1)
	if base := a.BaseURL(); base != "" {
		origins = append(origins, base)
	}
	for _, origin := range a.CORSOrigins {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// BaseURL returns the public site URL without a trailing slash.
func (a AppConfig) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(a.PublicBaseURL), "/")
}

type ServiceConfig struct {
	Kind string `envconfig:"LUHIVE_SERVICE_KIND" default:"api"`
	// MetricsAddr is where background workers expose /metrics. The API
	// serves metrics on its own router.
	MetricsAddr string `envconfig:"LUHIVE_METRICS_ADDR" default:":9091"`
}

type DBConfig struct {
	DSN string `envconfig:"LUHIVE_DB_DSN"`

	LegacyHost     string `envconfig:"LUHIVE_DB_HOST"`
	LegacyPort     int    `envconfig:"LUHIVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LUHIVE_DB_USER"`
	LegacyPassword string `envconfig:"LUHIVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"LUHIVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"LUHIVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LUHIVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LUHIVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LUHIVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LUHIVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the duration above which a statement is logged at warn.
	SlowQuery time.Duration `envconfig:"LUHIVE_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LUHIVE_REDIS_URL"`
	Address      string        `envconfig:"LUHIVE_REDIS_ADDR"`
	Password     string        `envconfig:"LUHIVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUHIVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LUHIVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUHIVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUHIVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUHIVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUHIVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LUHIVE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LUHIVE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"LUHIVE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"LUHIVE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LUHIVE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LUHIVE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LUHIVE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LUHIVE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LUHIVE_ARGON_KEY_LEN" default:"32"`
}

// RateLimitConfig holds fixed-window limits for the unauthenticated write
// surfaces. A zero limit disables that dimension.
type RateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"LUHIVE_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"LUHIVE_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"LUHIVE_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow       time.Duration `envconfig:"LUHIVE_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit   int           `envconfig:"LUHIVE_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit      int           `envconfig:"LUHIVE_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"LUHIVE_RATE_LIMIT_EVENT_REGISTER_WINDOW" default:"10m"`
	RegisterEmailLimit int           `envconfig:"LUHIVE_RATE_LIMIT_EVENT_REGISTER_EMAIL_LIMIT" default:"5"`
	RegisterIPLimit    int           `envconfig:"LUHIVE_RATE_LIMIT_EVENT_REGISTER_IP_LIMIT" default:"30"`
	WaitlistWindow     time.Duration `envconfig:"LUHIVE_RATE_LIMIT_WAITLIST_WINDOW" default:"1h"`
	WaitlistEmailLimit int           `envconfig:"LUHIVE_RATE_LIMIT_WAITLIST_EMAIL_LIMIT" default:"3"`
	WaitlistIPLimit    int           `envconfig:"LUHIVE_RATE_LIMIT_WAITLIST_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LUHIVE_AUTO_MIGRATE" default:"false"`
}

type SMTPConfig struct {
	Host     string `envconfig:"LUHIVE_SMTP_HOST"`
	Port     int    `envconfig:"LUHIVE_SMTP_PORT" default:"587"`
	Username string `envconfig:"LUHIVE_SMTP_USERNAME"`
	Password string `envconfig:"LUHIVE_SMTP_PASSWORD"`
	From     string `envconfig:"LUHIVE_SMTP_FROM" default:"no-reply@luhive.com"`
	FromName string `envconfig:"LUHIVE_SMTP_FROM_NAME" default:"Luhive"`
}

// Enabled reports whether outbound email has a relay to talk to.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type RegistrationConfig struct {
	VerificationTokenTTL time.Duration `envconfig:"LUHIVE_VERIFICATION_TOKEN_TTL" default:"24h"`
	// Unverified anonymous registrations are purged this long after their
	// token expired.
	VerificationRetention time.Duration `envconfig:"LUHIVE_VERIFICATION_RETENTION" default:"168h"`
	CleanupInterval       time.Duration `envconfig:"LUHIVE_VERIFICATION_CLEANUP_INTERVAL" default:"1h"`
}

type RemindersConfig struct {
	DispatchSecret string        `envconfig:"LUHIVE_REMINDERS_DISPATCH_SECRET" required:"true"`
	BatchSize      int           `envconfig:"LUHIVE_REMINDERS_BATCH_SIZE" default:"500"`
	SendRate       float64       `envconfig:"LUHIVE_REMINDERS_SEND_RATE" default:"2"`
	SendBurst      int           `envconfig:"LUHIVE_REMINDERS_SEND_BURST" default:"1"`
	Workers        int           `envconfig:"LUHIVE_REMINDERS_WORKERS" default:"4"`
	CronInterval   time.Duration `envconfig:"LUHIVE_CRON_INTERVAL" default:"5m"`
}

type BroadcastConfig struct {
	SendInterval time.Duration `envconfig:"LUHIVE_BROADCAST_SEND_INTERVAL" default:"600ms"`
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
