package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment key read by Load.
const EnvPrefix = "DEMO_"

// PlaceholderSecret is the value shipped in example .env files. It is never accepted.
const PlaceholderSecret = "TODO_GENERATE_KEY"

var (
	ErrSecretMissing     = errors.New("SECRET_KEY must be set")
	ErrSecretPlaceholder = errors.New("SECRET_KEY must not be the placeholder value")
	ErrDatabaseSettings  = errors.New("incomplete database settings")
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// Env is "dev" (default) or "prod". When "prod", cookies must be marked Secure.
	Env string `env:"ENV" envDefault:"dev"`

	SecretKey string `env:"SECRET_KEY"`

	DBHost    string `env:"DATABASE_HOST" envDefault:"localhost"`
	DBPort    string `env:"DATABASE_PORT" envDefault:"5432"`
	DBName    string `env:"DATABASE_NAME" envDefault:"flaskdemo"`
	DBUser    string `env:"DATABASE_USER" envDefault:"postgres"`
	DBPass    string `env:"DATABASE_PASSWORD"`
	DBSSLMode string `env:"DATABASE_SSLMODE" envDefault:"disable"`

	// DBMaxOpenConns is the maximum number of open connections to the database (default 25).
	DBMaxOpenConns int `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"25"`
	// DBMaxIdleConns is the maximum number of idle connections (default 5).
	DBMaxIdleConns int `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`

	// MigrateOnStart applies pending migrations before the server starts listening.
	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"true"`

	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	RememberTTL  time.Duration `env:"REMEMBER_TTL" envDefault:"8760h"`
	CookieSecure bool          `env:"COOKIE_SECURE"`

	// SessionStore is "memory" (default) or "redis".
	SessionStore string `env:"SESSION_STORE" envDefault:"memory"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	// SessionSweep is the cron spec for purging expired sessions from the memory store.
	SessionSweep string `env:"SESSION_SWEEP" envDefault:"@every 5m"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`

	// LogFormat is "text" (default) or "json" for structured logging.
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env (if present) and then the DEMO_-prefixed environment.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("loading .env: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings the application cannot run without.
func (c Config) Validate() error {
	if c.SecretKey == "" {
		return ErrSecretMissing
	}
	if c.SecretKey == PlaceholderSecret {
		return ErrSecretPlaceholder
	}
	if c.Env == "prod" && !c.CookieSecure {
		return errors.New("COOKIE_SECURE must be true when ENV=prod")
	}
	if c.SessionStore != "memory" && c.SessionStore != "redis" {
		return fmt.Errorf("SESSION_STORE must be memory or redis, got %q", c.SessionStore)
	}
	return c.ValidateDatabase()
}

// ValidateDatabase checks the connection settings. An empty password is
// accepted for trust and peer authentication.
func (c Config) ValidateDatabase() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DATABASE_HOST must be set", ErrDatabaseSettings)
	}
	if port, err := strconv.Atoi(c.DBPort); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: DATABASE_PORT must be a port number, got %q", ErrDatabaseSettings, c.DBPort)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DATABASE_NAME must be set", ErrDatabaseSettings)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DATABASE_USER must be set", ErrDatabaseSettings)
	}
	return nil
}

// DSN returns the lib/pq key=value connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		dsnValue(c.DBHost), dsnValue(c.DBPort), dsnValue(c.DBName),
		dsnValue(c.DBUser), dsnValue(c.DBPass), dsnValue(c.DBSSLMode),
	)
}

// dsnValue quotes v for the key=value format when needed.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// DatabaseURL returns the postgres URL form used by golang-migrate.
func (c Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPass),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}
