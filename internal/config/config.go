package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	LogLevel  string   `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool     `env:"LOG_PRETTY" envDefault:"true"`
	Server    Server   `envPrefix:"SERVER_"`
	Database  Database `envPrefix:"DATABASE_"`
	Redis     Redis    `envPrefix:"REDIS_"`
	JWT       JWT      `envPrefix:"JWT_"`
	Cache     Cache    `envPrefix:"CACHE_"`
	Password  Password `envPrefix:"PASSWORD_"`
	Reset     Reset    `envPrefix:"RESET_"`
	SMTP      SMTP     `envPrefix:"SMTP_"`
	Hunter    Hunter   `envPrefix:"HUNTER_"`
}

// Server contains HTTP server parameters.
type Server struct {
	Port              int           `env:"PORT" envDefault:"8080"`
	AllowedOrigins    []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	BackgroundTimeout time.Duration `env:"BACKGROUND_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Database contains database connection parameters.
// Driver is either "sqlite" or "pgx".
type Database struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"file:referral.db?_pragma=foreign_keys(1)&_time_format=sqlite"`
}

// Redis contains cache server parameters.
type Redis struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// JWT contains token signing parameters.
type JWT struct {
	PrivateKeyPath string        `env:"PRIVATE_KEY_PATH" envDefault:"certs/jwt-private.key"`
	PublicKeyPath  string        `env:"PUBLIC_KEY_PATH" envDefault:"certs/jwt-public.key"`
	AccessTTL      time.Duration `env:"ACCESS_TTL" envDefault:"30m"`
}

// Cache contains cache entry lifetimes.
type Cache struct {
	UserTTL time.Duration `env:"USER_TTL" envDefault:"600s"`
}

// Password contains hashing parameters. Algorithm is "bcrypt" or "argon2id".
type Password struct {
	Algorithm     string `env:"ALGORITHM" envDefault:"bcrypt"`
	BcryptCost    int    `env:"BCRYPT_COST" envDefault:"10"`
	Argon2Memory  uint32 `env:"ARGON2_MEMORY" envDefault:"65536"`
	Argon2Time    uint32 `env:"ARGON2_TIME" envDefault:"1"`
	Argon2Threads uint8  `env:"ARGON2_THREADS" envDefault:"4"`
}

// Reset contains password reset parameters.
type Reset struct {
	KeyTTL        time.Duration `env:"KEY_TTL" envDefault:"24h"`
	SweepSchedule string        `env:"SWEEP_SCHEDULE" envDefault:"@every 1h"`
}

// SMTP contains outgoing mail parameters. An empty Host disables delivery.
type SMTP struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

// Hunter contains email-verifier API parameters. An empty APIKey disables it.
type Hunter struct {
	APIKey  string `env:"API_KEY"`
	BaseURL string `env:"BASE_URL" envDefault:"https://api.hunter.io/v2/email-verifier"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	switch cfg.Database.Driver {
	case "sqlite", "pgx":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	return &cfg, nil
}
