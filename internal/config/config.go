package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

type Config struct {
	Addr       string          `yaml:"addr"`
	Env        string          `yaml:"env"`
	APITimeout time.Duration   `yaml:"timeout"`
	Database   DatabaseConfig  `yaml:"database"`
	Auth       AuthConfig      `yaml:"auth"`
	Reports    ReportsConfig   `yaml:"reports"`
	Cache      CacheConfig     `yaml:"cache"`
	Notify     NotifyConfig    `yaml:"notify"`
	Scheduler  SchedulerConfig `yaml:"scheduler"`
	Ollama     OllamaConfig    `yaml:"ollama"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver          string        `yaml:"driver"`
	Path            string        `yaml:"path"`
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"`
	Seed            bool          `yaml:"seed"`
}

type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
}

type ReportsConfig struct {
	QueryTimeout   time.Duration `yaml:"query_timeout"`
	Timezone       string        `yaml:"timezone"`
	ValidateSchema bool          `yaml:"validate_schema"`

	location *time.Location
}

// Location returns the parsed reporting timezone, UTC until Validate runs.
func (r ReportsConfig) Location() *time.Location {
	if r.location == nil {
		return time.UTC
	}
	return r.location
}

type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend  string `yaml:"backend"`
	RedisURL string `yaml:"redis_url"`
}

type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
	Workers        int    `yaml:"workers"`
	MaxAttempts    int    `yaml:"max_attempts"`
}

type SchedulerConfig struct {
	RefreshSpec string `yaml:"refresh_spec"`
	DigestSpec  string `yaml:"digest_spec"`
}

type OllamaConfig struct {
	Enabled                 bool          `yaml:"enabled"`
	BaseURL                 string        `yaml:"base_url"`
	Model                   string        `yaml:"model"`
	Timeout                 time.Duration `yaml:"timeout"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// LoadConfig builds the configuration from a .env file (if present), the
// process environment and then the optional YAML file at path.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Addr:       getEnv("ATS_ADDR", ":8080"),
		Env:        getEnv("ATS_ENV", "development"),
		APITimeout: 15 * time.Second,
		Database: DatabaseConfig{
			Driver:         getEnv("ATS_DB_DRIVER", "sqlite"),
			Path:           getEnv("ATS_DATABASE_PATH", "ats.db"),
			URL:            os.Getenv("DATABASE_URL"),
			MigrateOnStart: getEnvBool("ATS_MIGRATE_ON_START", true),
		},
		Auth: AuthConfig{
			Enabled:   getEnvBool("ATS_AUTH_ENABLED", false),
			JWTSecret: getEnv("ATS_JWT_SECRET", insecureJWTSecret),
		},
		Reports: ReportsConfig{
			QueryTimeout: 30 * time.Second,
			Timezone:     getEnv("ATS_TIMEZONE", "UTC"),
		},
		Cache: CacheConfig{
			Backend:  getEnv("ATS_CACHE_BACKEND", "memory"),
			RedisURL: os.Getenv("REDIS_URL"),
		},
		Notify: NotifyConfig{
			TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
			TelegramChatID: getEnvInt64("TELEGRAM_CHAT_ID", 0),
		},
		Scheduler: SchedulerConfig{
			RefreshSpec: getEnv("ATS_REFRESH_SPEC", "@every 5m"),
			DigestSpec:  os.Getenv("ATS_DIGEST_SPEC"),
		},
		Ollama: OllamaConfig{
			Enabled: getEnvBool("ATS_OLLAMA_ENABLED", false),
			BaseURL: getEnv("OLLAMA_HOST", "http://localhost:11434"),
			Model:   os.Getenv("ATS_OLLAMA_MODEL"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "ats-reports"),
		},
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsProduction reports whether error details must be withheld from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c *Config) isDevelopment() bool {
	return c.Env == "" || strings.EqualFold(c.Env, "development")
}

// Validate fills defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}

	switch c.Database.Driver {
	case "", "sqlite":
		c.Database.Driver = "sqlite"
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}

	if c.Auth.Enabled {
		if c.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is required when auth is enabled")
		}
		if c.Auth.JWTSecret == insecureJWTSecret && !c.isDevelopment() {
			return errors.New("auth.jwt_secret uses the insecure default outside development")
		}
	}

	if c.Reports.QueryTimeout <= 0 {
		c.Reports.QueryTimeout = 30 * time.Second
	}
	if c.Reports.Timezone == "" {
		c.Reports.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(c.Reports.Timezone)
	if err != nil {
		return fmt.Errorf("reports.timezone: %w", err)
	}
	c.Reports.location = loc

	switch c.Cache.Backend {
	case "", "memory":
		c.Cache.Backend = "memory"
	case "redis":
		if c.Cache.RedisURL == "" {
			return errors.New("cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}

	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == 0 {
		return errors.New("notify.telegram_chat_id is required with a telegram token")
	}
	if c.Notify.Workers <= 0 {
		c.Notify.Workers = 2
	}
	if c.Notify.MaxAttempts <= 0 {
		c.Notify.MaxAttempts = 5
	}

	for name, spec := range map[string]string{"refresh_spec": c.Scheduler.RefreshSpec, "digest_spec": c.Scheduler.DigestSpec} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("scheduler.%s: %w", name, err)
		}
	}

	if c.Ollama.Enabled {
		if c.Ollama.Model == "" {
			return errors.New("ollama.model is required when narration is enabled")
		}
		if c.Ollama.BaseURL == "" {
			c.Ollama.BaseURL = "http://localhost:11434"
		}
		if c.Ollama.Timeout <= 0 {
			c.Ollama.Timeout = 30 * time.Second
		}
		if c.Ollama.Retries < 0 {
			c.Ollama.Retries = 0
		}
		if c.Ollama.Backoff <= 0 {
			c.Ollama.Backoff = 500 * time.Millisecond
		}
		if c.Ollama.CircuitFailureThreshold <= 0 {
			c.Ollama.CircuitFailureThreshold = 5
		}
		if c.Ollama.CircuitReset <= 0 {
			c.Ollama.CircuitReset = 30 * time.Second
		}
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "ats-reports"
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
