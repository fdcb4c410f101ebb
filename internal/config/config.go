package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	_ "github.com/joho/godotenv/autoload"
)

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

type Config struct {
	Env      string `env:"ENV" env-default:"local"`
	HTTP     HTTPConfig
	Postgres PostgresConfig
	Session  SessionConfig
	Tasks    TasksConfig
}

type HTTPConfig struct {
	Port            int           `env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"1m"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"https://*,http://*"`
}

// PostgresConfig keeps the BLUEPRINT_DB_* names used by existing deployments.
type PostgresConfig struct {
	Host            string        `env:"BLUEPRINT_DB_HOST" env-default:"localhost"`
	Port            int           `env:"BLUEPRINT_DB_PORT" env-default:"5432"`
	Username        string        `env:"BLUEPRINT_DB_USERNAME" env-required:"true"`
	Password        string        `env:"BLUEPRINT_DB_PASSWORD" env-required:"true"`
	Database        string        `env:"BLUEPRINT_DB_DATABASE" env-required:"true"`
	SSLMode         string        `env:"BLUEPRINT_DB_SSL_MODE" env-default:"disable"`
	MaxIdleConns    int           `env:"BLUEPRINT_DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int           `env:"BLUEPRINT_DB_MAX_OPEN_CONNS" env-default:"100"`
	ConnMaxLifetime time.Duration `env:"BLUEPRINT_DB_CONN_MAX_LIFETIME" env-default:"1h"`
	SlowThreshold   time.Duration `env:"BLUEPRINT_DB_SLOW_THRESHOLD" env-default:"1s"`
	AutoMigrate     bool          `env:"BLUEPRINT_DB_AUTOMIGRATE" env-default:"true"`
}

type SessionConfig struct {
	SigningKey   string        `env:"SESSION_SIGNING_KEY" env-required:"true"`
	Issuer       string        `env:"SESSION_ISSUER" env-default:"task-tracker"`
	TTL          time.Duration `env:"SESSION_TTL" env-default:"336h"`
	CookieName   string        `env:"SESSION_COOKIE_NAME" env-default:"session"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE" env-default:"false"`
}

type TasksConfig struct {
	// AllowGetComplete re-enables link-based completion. Off by default since
	// a GET can be triggered from another site.
	AllowGetComplete bool `env:"TASK_COMPLETE_ALLOW_GET" env-default:"false"`
}

// Read loads the configuration from the process environment.
func Read() (*Config, error) {
	cfg := new(Config)
	err := cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
