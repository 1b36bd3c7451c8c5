package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/maltehedderich/steam-api-go/internal/cache"
	"github.com/maltehedderich/steam-api-go/internal/circuitbreaker"
	"github.com/maltehedderich/steam-api-go/internal/middleware"
	"github.com/maltehedderich/steam-api-go/internal/ratelimit"
	"github.com/maltehedderich/steam-api-go/internal/tracing"
)

// EnvPrefix prefixes every environment override, e.g. STEAMGW_STEAM_API_KEY.
const EnvPrefix = "STEAMGW_"

// Config represents the complete service configuration
type Config struct {
	Steam         SteamConfig         `yaml:"steam" json:"steam" envPrefix:"STEAM_"`
	Cache         CacheConfig         `yaml:"cache" json:"cache" envPrefix:"CACHE_"`
	Server        ServerConfig        `yaml:"server" json:"server" envPrefix:"SERVER_"`
	Auth          AuthConfig          `yaml:"auth" json:"auth" envPrefix:"AUTH_"`
	ClientLimit   ClientLimitConfig   `yaml:"client_limit" json:"client_limit" envPrefix:"CLIENT_LIMIT_"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging" envPrefix:"LOG_"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability" envPrefix:"OBSERVABILITY_"`
}

// SteamConfig configures the Steam Web API client
type SteamConfig struct {
	APIKey      string        `yaml:"api_key" json:"api_key" env:"API_KEY"`
	BaseURL     string        `yaml:"base_url" json:"base_url" env:"BASE_URL"`
	StoreURL    string        `yaml:"store_url" json:"store_url" env:"STORE_URL"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
	CacheTTL    time.Duration `yaml:"cache_ttl" json:"cache_ttl" env:"CACHE_TTL"`
	RetryWindow time.Duration `yaml:"retry_window" json:"retry_window" env:"RETRY_WINDOW"`
	// RequestsPerSecond paces outgoing calls; 0 disables pacing.
	RequestsPerSecond float64              `yaml:"requests_per_second" json:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	Burst             int                  `yaml:"burst" json:"burst" env:"BURST"`
	CircuitBreaker    CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker" envPrefix:"CIRCUIT_BREAKER_"`
}

// CircuitBreakerConfig enables the per-host upstream circuit breaker
type CircuitBreakerConfig struct {
	Enabled               bool `yaml:"enabled" json:"enabled" env:"ENABLED"`
	circuitbreaker.Config `yaml:",inline" json:",inline"`
}

// CacheConfig selects the response cache backend
type CacheConfig struct {
	Backend        string `yaml:"backend" json:"backend" env:"BACKEND"` // none, memory, redis, dynamodb, sqlite
	RedisAddr      string `yaml:"redis_addr" json:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword  string `yaml:"redis_password" json:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB        int    `yaml:"redis_db" json:"redis_db" env:"REDIS_DB"`
	DynamoDBTable  string `yaml:"dynamodb_table" json:"dynamodb_table" env:"DYNAMODB_TABLE"`
	DynamoDBRegion string `yaml:"dynamodb_region" json:"dynamodb_region" env:"DYNAMODB_REGION"`
	SQLitePath     string `yaml:"sqlite_path" json:"sqlite_path" env:"SQLITE_PATH"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host" env:"HOST"`
	HTTPPort        int           `yaml:"http_port" json:"http_port" env:"HTTP_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout" env:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" json:"max_header_bytes" env:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	Security middleware.SecurityConfig `yaml:"security" json:"security" envPrefix:"SECURITY_"`
}

// AuthConfig protects the /v1 API with bearer JWTs
type AuthConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Algorithm     string        `yaml:"algorithm" json:"algorithm" env:"ALGORITHM"`
	SharedSecret  string        `yaml:"shared_secret" json:"shared_secret" env:"SHARED_SECRET"`
	PublicKeyFile string        `yaml:"public_key_file" json:"public_key_file" env:"PUBLIC_KEY_FILE"`
	Issuer        string        `yaml:"issuer" json:"issuer" env:"ISSUER"`
	Audience      string        `yaml:"audience" json:"audience" env:"AUDIENCE"`
	ClockSkew     time.Duration `yaml:"clock_skew" json:"clock_skew" env:"CLOCK_SKEW"`
	// RequiredScope must appear in the token's space separated scope claim.
	RequiredScope string `yaml:"required_scope" json:"required_scope" env:"REQUIRED_SCOPE"`
}

// ClientLimitConfig limits how fast a single API caller may spend the
// shared Steam quota
type ClientLimitConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Key         string        `yaml:"key" json:"key" env:"KEY"` // ip, subject, route or a composite like ip:route
	Requests    int           `yaml:"requests" json:"requests" env:"REQUESTS"`
	Window      time.Duration `yaml:"window" json:"window" env:"WINDOW"`
	Burst       int           `yaml:"burst" json:"burst" env:"BURST"`
	FailureMode string        `yaml:"failure_mode" json:"failure_mode" env:"FAILURE_MODE"` // fail-open or fail-closed
	Store       CacheConfig   `yaml:"store" json:"store" envPrefix:"STORE_"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level            string            `yaml:"level" json:"level" env:"LEVEL"`
	Format           string            `yaml:"format" json:"format" env:"FORMAT"` // json or text
	Output           string            `yaml:"output" json:"output" env:"OUTPUT"` // stdout, stderr, or file path
	SanitizePatterns []string          `yaml:"sanitize_patterns" json:"sanitize_patterns" env:"SANITIZE_PATTERNS"`
	ComponentLevels  map[string]string `yaml:"component_levels" json:"component_levels" env:"COMPONENT_LEVELS"`
}

// ObservabilityConfig contains observability configuration
type ObservabilityConfig struct {
	MetricsEnabled bool           `yaml:"metrics_enabled" json:"metrics_enabled" env:"METRICS_ENABLED"`
	MetricsPath    string         `yaml:"metrics_path" json:"metrics_path" env:"METRICS_PATH"`
	HealthPath     string         `yaml:"health_path" json:"health_path" env:"HEALTH_PATH"`
	ReadinessPath  string         `yaml:"readiness_path" json:"readiness_path" env:"READINESS_PATH"`
	LivenessPath   string         `yaml:"liveness_path" json:"liveness_path" env:"LIVENESS_PATH"`
	Tracing        tracing.Config `yaml:"tracing" json:"tracing" envPrefix:"TRACING_"`
}

// Load loads configuration from file with environment variable overrides
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := loadFromFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	// Steam defaults
	c.Steam.BaseURL = "http://api.steampowered.com/"
	c.Steam.StoreURL = "http://store.steampowered.com/"
	c.Steam.Timeout = 5 * time.Second
	c.Steam.CacheTTL = 60 * time.Second
	c.Steam.RetryWindow = 60 * time.Minute
	c.Steam.CircuitBreaker.Enabled = true
	c.Steam.CircuitBreaker.Config = *circuitbreaker.DefaultConfig()

	c.Cache.Backend = "memory"

	// Server defaults
	c.Server.HTTPPort = 8080
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.Server.IdleTimeout = 120 * time.Second
	c.Server.MaxHeaderBytes = 1 << 20 // 1 MB
	c.Server.ShutdownTimeout = 30 * time.Second
	c.Server.Security.EnableHSTS = true
	c.Server.Security.HSTSMaxAge = 31536000 // 1 year
	c.Server.Security.HSTSIncludeSubdomains = true
	c.Server.Security.ContentTypeNosniff = true
	c.Server.Security.FrameOptions = "DENY"
	c.Server.Security.ReferrerPolicy = "no-referrer"
	c.Server.Security.AllowedMethods = []string{"GET", "HEAD"}
	c.Server.Security.MaxURLPathLength = 2048

	c.Auth.Algorithm = "HS256"
	c.Auth.ClockSkew = 5 * time.Second

	c.ClientLimit.Key = "ip"
	c.ClientLimit.Requests = 60
	c.ClientLimit.Window = time.Minute
	c.ClientLimit.FailureMode = "fail-open"
	c.ClientLimit.Store.Backend = "memory"

	// Logging defaults
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"

	// Observability defaults
	c.Observability.MetricsEnabled = true
	c.Observability.MetricsPath = "/metrics"
	c.Observability.HealthPath = "/_health"
	c.Observability.ReadinessPath = "/_health/ready"
	c.Observability.LivenessPath = "/_health/live"
	c.Observability.Tracing.ServiceName = "steam-api-go"
	c.Observability.Tracing.SampleRate = 1.0
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Steam.APIKey) == "" {
		return fmt.Errorf("steam API key is required")
	}
	for name, raw := range map[string]string{"base URL": c.Steam.BaseURL, "store URL": c.Steam.StoreURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid steam %s: %q", name, raw)
		}
	}
	if c.Steam.Timeout <= 0 {
		return fmt.Errorf("steam timeout must be positive")
	}
	if c.Steam.RetryWindow <= 0 {
		return fmt.Errorf("steam retry window must be positive")
	}
	if c.Steam.RequestsPerSecond < 0 {
		return fmt.Errorf("steam requests per second must not be negative")
	}
	if cb := c.Steam.CircuitBreaker; cb.Enabled {
		if cb.FailureThreshold <= 0 || cb.SuccessThreshold <= 0 || cb.MaxRequests <= 0 || cb.Timeout <= 0 {
			return fmt.Errorf("circuit breaker thresholds and timeout must be positive")
		}
	}

	if err := c.Cache.validate("cache"); err != nil {
		return err
	}

	// Validate server config
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}

	if c.Auth.Enabled {
		switch c.Auth.Algorithm {
		case "HS256", "HS384", "HS512":
			if c.Auth.SharedSecret == "" {
				return fmt.Errorf("auth algorithm %s requires a shared secret", c.Auth.Algorithm)
			}
		case "RS256", "RS384", "RS512":
			if c.Auth.PublicKeyFile == "" {
				return fmt.Errorf("auth algorithm %s requires a public key file", c.Auth.Algorithm)
			}
		default:
			return fmt.Errorf("invalid JWT signing algorithm: %s", c.Auth.Algorithm)
		}
	}

	if c.ClientLimit.Enabled {
		if c.ClientLimit.Requests <= 0 || c.ClientLimit.Window <= 0 {
			return fmt.Errorf("client limit requests and window must be positive")
		}
		if c.ClientLimit.FailureMode != "fail-open" && c.ClientLimit.FailureMode != "fail-closed" {
			return fmt.Errorf("invalid failure mode: %s (must be 'fail-open' or 'fail-closed')", c.ClientLimit.FailureMode)
		}
		if !ratelimit.ValidTemplate(c.ClientLimit.Key) {
			return fmt.Errorf("invalid client limit key: %s", c.ClientLimit.Key)
		}
		if slices.Contains(strings.Split(c.ClientLimit.Key, ":"), "subject") && !c.Auth.Enabled {
			return fmt.Errorf("client limit key %q requires auth to be enabled", c.ClientLimit.Key)
		}
		if c.ClientLimit.Store.Backend == "" || c.ClientLimit.Store.Backend == "none" {
			return fmt.Errorf("client limit requires a store backend")
		}
		if err := c.ClientLimit.Store.validate("client limit store"); err != nil {
			return err
		}
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be 'json' or 'text')", c.Logging.Format)
	}

	if t := c.Observability.Tracing; t.Enabled {
		if t.Endpoint == "" {
			return fmt.Errorf("tracing enabled but endpoint not specified")
		}
		if t.SampleRate < 0 || t.SampleRate > 1 {
			return fmt.Errorf("tracing sample rate must be between 0 and 1")
		}
	}

	return nil
}

// StoreConfig converts the section into a cache store configuration.
func (c CacheConfig) StoreConfig() cache.Config {
	return cache.Config{
		Backend:        c.Backend,
		RedisAddr:      c.RedisAddr,
		RedisPassword:  c.RedisPassword,
		RedisDB:        c.RedisDB,
		DynamoDBTable:  c.DynamoDBTable,
		DynamoDBRegion: c.DynamoDBRegion,
		SQLitePath:     c.SQLitePath,
	}
}

func (c CacheConfig) validate(section string) error {
	switch c.Backend {
	case "", "none", "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("%s backend is redis but redis address not specified", section)
		}
	case "dynamodb":
		if c.DynamoDBTable == "" {
			return fmt.Errorf("%s backend is dynamodb but table not specified", section)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("%s backend is sqlite but path not specified", section)
		}
	default:
		return fmt.Errorf("invalid %s backend: %s", section, c.Backend)
	}
	return nil
}

// loadFromFile loads configuration from a file (YAML or JSON)
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Determine format by extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	return nil
}

// applyEnvOverrides applies STEAMGW_* environment variables on top of
// the file values. Unset variables leave the field untouched.
func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
