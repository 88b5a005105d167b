package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (FITSTOCK_ prefix), flags, or YAML config files.
type Config struct {
	Addr              string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL       string `usage:"PostgreSQL connection URL (FITSTOCK_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper      string `usage:"HMAC pepper for API key hashing (FITSTOCK_API_KEY_PEPPER)" flag:"api-key-pepper"`
	LowStockThreshold int    `default:"5" usage:"Products with less stock are reported as low stock" flag:"low-stock-threshold"`
	Session           SessionConfig
	RateLimit         RateLimitConfig
	CORS              CORSConfig
	Graceful          GracefulConfig
}

// SessionConfig controls sale-entry sessions.
type SessionConfig struct {
	IdleTimeout time.Duration `default:"30m" usage:"Discard sale sessions idle for longer" flag:"session-idle-timeout"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from a .env file (when present),
// environment variables and YAML config files, and applies platform
// defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "FITSTOCK",
		Files:     []string{"config.yaml", "/etc/fitstock/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set FITSTOCK_DATABASE_URL or DATABASE_URL")
	}
	if cfg.APIKeyPepper == "" {
		return nil, errors.New("API key pepper is required: set FITSTOCK_API_KEY_PEPPER")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps the standard DATABASE_URL and PORT variables
// of hosting platforms onto the configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
