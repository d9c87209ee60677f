package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Business  BusinessConfig  `mapstructure:"business"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Events    EventsConfig    `mapstructure:"events"`
	Health    HealthConfig    `mapstructure:"health"`
}

type ServerConfig struct {
	Port            string `mapstructure:"SERVER_PORT"`
	Host            string `mapstructure:"SERVER_HOST"`
	Env             string `mapstructure:"ENV"`
	ReadTimeout     string `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout    string `mapstructure:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout string `mapstructure:"SERVER_SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime string `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	CacheTTL string `mapstructure:"BALANCE_CACHE_TTL"`
}

type SchedulerConfig struct {
	// SweepSpec is a six-field cron expression (seconds first).
	SweepSpec  string `mapstructure:"SWEEP_CRON"`
	Timezone   string `mapstructure:"SCHEDULER_TIMEZONE"`
	JobTimeout string `mapstructure:"SCHEDULER_JOB_TIMEOUT"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	LateFeePercentage string `mapstructure:"LATE_FEE_PERCENTAGE"`
	DefaultPageSize   int    `mapstructure:"DEFAULT_PAGE_SIZE"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"AUTH_ENABLED"`
	JWTSecret string `mapstructure:"JWT_SECRET"`
}

type EventsConfig struct {
	AMQPURL  string `mapstructure:"AMQP_URL"`
	Exchange string `mapstructure:"AMQP_EXCHANGE"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

var defaults = map[string]any{
	"SERVER_PORT":             "8080",
	"SERVER_HOST":             "0.0.0.0",
	"ENV":                     "development",
	"SERVER_READ_TIMEOUT":     "15s",
	"SERVER_WRITE_TIMEOUT":    "15s",
	"SERVER_SHUTDOWN_TIMEOUT": "30s",

	"DATABASE_URL":               "",
	"DATABASE_MAX_OPEN_CONNS":    25,
	"DATABASE_MAX_IDLE_CONNS":    5,
	"DATABASE_CONN_MAX_LIFETIME": "5m",

	"REDIS_HOST":        "localhost",
	"REDIS_PORT":        "6379",
	"REDIS_PASSWORD":    "",
	"REDIS_DB":          0,
	"BALANCE_CACHE_TTL": "10m",

	"SWEEP_CRON":            "0 5 0 * * *",
	"SCHEDULER_TIMEZONE":    "Asia/Jakarta",
	"SCHEDULER_JOB_TIMEOUT": "10m",

	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "json",

	"LATE_FEE_PERCENTAGE": "0.5",
	"DEFAULT_PAGE_SIZE":   100,

	"AUTH_ENABLED": false,
	"JWT_SECRET":   "",

	"AMQP_URL":      "",
	"AMQP_EXCHANGE": "microloan.ledger",

	"HEALTH_CHECK_TIMEOUT": "5s",
}

// Load reads configuration from environment variables, after merging any
// .env file found in the working directory or ./deployments.
func Load() (*Config, error) {
	for _, path := range []string{".env", "deployments/.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return nil, fmt.Errorf("unable to read %s: %w", path, err)
			}
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var config Config
	groups := []any{
		&config.Server, &config.Database, &config.Redis, &config.Scheduler, &config.Logging,
		&config.Business, &config.Auth, &config.Events, &config.Health,
	}
	for _, group := range groups {
		if err := v.Unmarshal(group); err != nil {
			return nil, fmt.Errorf("unable to decode config: %w", err)
		}
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}

	durations := map[string]string{
		"SERVER_READ_TIMEOUT":        c.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":       c.Server.WriteTimeout,
		"SERVER_SHUTDOWN_TIMEOUT":    c.Server.ShutdownTimeout,
		"DATABASE_CONN_MAX_LIFETIME": c.Database.ConnMaxLifetime,
		"BALANCE_CACHE_TTL":          c.Redis.CacheTTL,
		"SCHEDULER_JOB_TIMEOUT":      c.Scheduler.JobTimeout,
		"HEALTH_CHECK_TIMEOUT":       c.Health.Timeout,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", name, err)
		}
	}

	pct, err := decimal.NewFromString(c.Business.LateFeePercentage)
	if err != nil {
		return fmt.Errorf("LATE_FEE_PERCENTAGE must be a valid decimal: %w", err)
	}
	if pct.IsNegative() {
		return errors.New("LATE_FEE_PERCENTAGE must not be negative")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid IANA zone: %w", err)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Scheduler.SweepSpec); err != nil {
		return fmt.Errorf("SWEEP_CRON must be a valid cron expression: %w", err)
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when AUTH_ENABLED is true")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

func (c *Config) GetLateFeePercentage() decimal.Decimal {
	pct, _ := decimal.NewFromString(c.Business.LateFeePercentage)
	return pct
}

func (c *Config) GetReadTimeout() time.Duration {
	return mustDuration(c.Server.ReadTimeout)
}

func (c *Config) GetWriteTimeout() time.Duration {
	return mustDuration(c.Server.WriteTimeout)
}

func (c *Config) GetShutdownTimeout() time.Duration {
	return mustDuration(c.Server.ShutdownTimeout)
}

func (c *Config) GetConnMaxLifetime() time.Duration {
	return mustDuration(c.Database.ConnMaxLifetime)
}

func (c *Config) GetCacheTTL() time.Duration {
	return mustDuration(c.Redis.CacheTTL)
}

func (c *Config) GetJobTimeout() time.Duration {
	return mustDuration(c.Scheduler.JobTimeout)
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	return mustDuration(c.Health.Timeout)
}

// GetLocation returns the scheduler timezone, falling back to UTC.
func (c *Config) GetLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

func mustDuration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
