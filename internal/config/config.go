package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	RenderJSON = "json"
	RenderHTML = "html"

	StoreCosmos   = "cosmos"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config groups everything the process needs to start.
type Config struct {
	Port       string
	LogLevel   string
	RenderMode string

	StoreDriver     string
	CosmosEndpoint  string
	CosmosDatabase  string
	CosmosContainer string
	DatabaseURL     string
	SQLitePath      string

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	RequestTimeout     time.Duration

	AuthMode    string
	APIKey      string
	BearerToken string
	JWTSecret   string

	TracingExporter string
}

// Load reads an optional .env file, then the environment. Store-level
// problems (missing Cosmos endpoint, bad credentials) are not errors here:
// the server still starts and reports the store as unavailable.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:            strings.TrimPrefix(envOr("PORT", "8080"), ":"),
		LogLevel:        strings.ToLower(envOr("LOG_LEVEL", "info")),
		RenderMode:      strings.ToLower(envOr("RENDER_MODE", RenderJSON)),
		StoreDriver:     strings.ToLower(envOr("STORE_DRIVER", StoreCosmos)),
		CosmosEndpoint:  env("COSMOS_DB_ENDPOINT"),
		CosmosDatabase:  envOr("COSMOS_DB_DATABASE", "todo-db"),
		CosmosContainer: envOr("COSMOS_DB_CONTAINER", "todo-container"),
		DatabaseURL:     env("DATABASE_URL"),
		SQLitePath:      envOr("SQLITE_PATH", "data/todos.db"),
		AuthMode:        strings.ToLower(envOr("AUTH_MODE", "none")),
		APIKey:          env("API_KEY"),
		BearerToken:     env("BEARER_TOKEN"),
		JWTSecret:       env("JWT_SECRET"),
		TracingExporter: strings.ToLower(envOr("TRACING_EXPORTER", "none")),
	}

	for _, o := range strings.Split(envOr("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	var err error
	if cfg.RateLimitRPS, err = strconv.ParseFloat(envOr("RATE_LIMIT_RPS", "0"), 64); err != nil || cfg.RateLimitRPS < 0 {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_RPS: %q", env("RATE_LIMIT_RPS"))
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(envOr("RATE_LIMIT_BURST", "10")); err != nil || cfg.RateLimitBurst < 1 {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_BURST: %q", env("RATE_LIMIT_BURST"))
	}
	if cfg.RequestTimeout, err = time.ParseDuration(envOr("REQUEST_TIMEOUT", "15s")); err != nil || cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid REQUEST_TIMEOUT: %q", env("REQUEST_TIMEOUT"))
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.RenderMode {
	case RenderJSON, RenderHTML:
	default:
		return fmt.Errorf("invalid RENDER_MODE: %q", c.RenderMode)
	}

	switch c.StoreDriver {
	case StoreCosmos, StoreSQLite, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing required env var: DATABASE_URL")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER: %q", c.StoreDriver)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: %q", c.LogLevel)
	}

	switch c.TracingExporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("invalid TRACING_EXPORTER: %q", c.TracingExporter)
	}

	switch c.AuthMode {
	case "none":
	case "apikey":
		if c.APIKey == "" {
			return fmt.Errorf("missing required env var: API_KEY")
		}
	case "bearer":
		if c.BearerToken == "" {
			return fmt.Errorf("missing required env var: BEARER_TOKEN")
		}
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("missing required env var: JWT_SECRET")
		}
	default:
		return fmt.Errorf("invalid AUTH_MODE: %q", c.AuthMode)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envOr(key, def string) string {
	if v := env(key); v != "" {
		return v
	}
	return def
}
