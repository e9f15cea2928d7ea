package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	LogFile  string `env:"LOG_FILE"`

	Auth  AuthConfig
	Store StoreConfig
	Mongo MongoConfig
	SQL   SQLConfig
	Redis RedisConfig
	Audit AuditConfig

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

type AuthConfig struct {
	JWTSecret         string        `env:"JWT_SECRET"`
	TokenTTL          time.Duration `env:"TOKEN_TTL,           default=24h"`
	AuthFailureStatus int           `env:"AUTH_FAILURE_STATUS, default=500"`
	PasswordAlgo      string        `env:"PASSWORD_ALGO,       default=bcrypt"`
	BcryptCost        int           `env:"BCRYPT_COST,         default=10"`
	LoginMaxFailures  int           `env:"LOGIN_MAX_FAILURES,  default=5"`
	LoginWindow       time.Duration `env:"LOGIN_WINDOW,        default=15m"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=mongo"`
}

type MongoConfig struct {
	URI           string `env:"MONGO_URI,      default=mongodb://localhost:27017"`
	Database      string `env:"MONGO_DB,       default=user_management"`
	SnowflakeNode int64  `env:"SNOWFLAKE_NODE, default=1"`
	MaxPoolSize   uint64 `env:"MONGO_MAX_POOL_SIZE"`
}

type SQLConfig struct {
	DSN string `env:"DATABASE_URL"`
}

// RedisConfig is optional; an empty address disables login throttling.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	DB       int    `env:"REDIS_DB,        default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if s := c.Auth.AuthFailureStatus; s < 400 || s > 599 || http.StatusText(s) == "" {
		errs = append(errs, fmt.Errorf("AUTH_FAILURE_STATUS %d is not an error status", s))
	}

	switch c.Store.Driver {
	case DriverMongo, DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.SQL.DSN == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}

	if c.Mongo.SnowflakeNode < 0 || c.Mongo.SnowflakeNode > 1023 {
		errs = append(errs, fmt.Errorf("SNOWFLAKE_NODE %d out of range 0-1023", c.Mongo.SnowflakeNode))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}
