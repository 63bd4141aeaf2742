package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"shopping-assistant-api/internal/validation"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Catalog   CatalogConfig   `json:"catalog" yaml:"catalog"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Security  SecurityConfig  `json:"security" yaml:"security"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing"`
	Events    EventsConfig    `json:"events" yaml:"events"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port     string `json:"port" yaml:"port"`
	Host     string `json:"host" yaml:"host"`
	CertFile string `json:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file"`
}

// StorageConfig selects the profile store backing.
type StorageConfig struct {
	Type       string `json:"type" yaml:"type"` // memory, file, sqlite or redis
	FilePath   string `json:"file_path" yaml:"file_path"`
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`
}

// RedisConfig is shared by the Redis store and the Redis cache.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// CacheConfig configures the profile cache.
type CacheConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Backend string `json:"backend" yaml:"backend"` // memory or redis
	TTL     int    `json:"ttl" yaml:"ttl"`         // in seconds
}

// CatalogConfig configures the product catalog.
type CatalogConfig struct {
	// Path to a JSON product list; the built-in dataset is used when empty.
	Path             string `json:"path" yaml:"path"`
	MaxSearchResults int    `json:"max_search_results" yaml:"max_search_results"`
}

// LLMConfig configures the chat completion collaborator.
type LLMConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	APIKey  string `json:"api_key" yaml:"api_key"`
	BaseURL string `json:"base_url" yaml:"base_url"`
	Model   string `json:"model" yaml:"model"`
	Timeout int    `json:"timeout" yaml:"timeout"` // in seconds
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// Max request body size in bytes (default: 1MB)
	MaxRequestBodySize int64 `json:"max_request_body_size" yaml:"max_request_body_size"`
	// Allowed CORS origins (comma-separated)
	AllowedOrigins string `json:"allowed_origins" yaml:"allowed_origins"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Rate    int  `json:"rate" yaml:"rate"`
	Window  int  `json:"window" yaml:"window"` // in seconds
	// CostlyRate additionally limits purchase and analyze requests per window.
	CostlyRate int `json:"costly_rate" yaml:"costly_rate"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Endpoint    string `json:"endpoint" yaml:"endpoint"`
	ServiceName string `json:"service_name" yaml:"service_name"`
	Environment string `json:"environment" yaml:"environment"`
}

// EventsConfig toggles event hooks.
type EventsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

// LLMTimeout returns the collaborator timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.Timeout) * time.Second
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Storage: StorageConfig{
			Type:       "file",
			FilePath:   "buyer_history.json",
			SQLitePath: "./shopping_assistant.db",
		},
		Cache: CacheConfig{
			Enabled: false,
			Backend: "memory",
			TTL:     300,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Catalog: CatalogConfig{
			MaxSearchResults: 3,
		},
		LLM: LLMConfig{
			Enabled: false,
			BaseURL: "https://api.deepseek.com",
			Model:   "deepseek-chat",
			Timeout: 30,
		},
		Security: SecurityConfig{
			MaxRequestBodySize: 1 << 20,
			AllowedOrigins:     "*",
		},
		RateLimit: RateLimitConfig{
			Enabled:    true,
			Rate:       100,
			Window:     60,
			CostlyRate: 20,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Endpoint:    "http://localhost:14268/api/traces",
			ServiceName: "shopping-assistant-api",
			Environment: "development",
		},
		Events: EventsConfig{
			Enabled: true,
		},
	}
}

// LoadConfig loads configuration from defaults, an optional JSON or YAML
// file, and environment variables. Environment variables take precedence.
func LoadConfig(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	overrideFromEnv(cfg)

	return cfg, nil
}

// loadFromFile loads configuration from a JSON or YAML file, chosen by extension.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".json":
		return json.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
}

// overrideFromEnv overrides configuration with environment variables.
func overrideFromEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Server.Host, "SERVER_HOST")
	setString(&cfg.Server.CertFile, "SERVER_CERT_FILE")
	setString(&cfg.Server.KeyFile, "SERVER_KEY_FILE")

	setString(&cfg.Storage.Type, "STORAGE_TYPE")
	setString(&cfg.Storage.FilePath, "STORAGE_FILE_PATH")
	setString(&cfg.Storage.SQLitePath, "STORAGE_SQLITE_PATH")

	setBool(&cfg.Cache.Enabled, "CACHE_ENABLED")
	setString(&cfg.Cache.Backend, "CACHE_BACKEND")
	setInt(&cfg.Cache.TTL, "CACHE_TTL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.Catalog.Path, "CATALOG_PATH")
	setInt(&cfg.Catalog.MaxSearchResults, "MAX_SEARCH_RESULTS")

	setBool(&cfg.LLM.Enabled, "LLM_ENABLED")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setInt(&cfg.LLM.Timeout, "LLM_TIMEOUT")

	if value := os.Getenv("MAX_REQUEST_BODY_SIZE"); value != "" {
		if size, err := strconv.ParseInt(value, 10, 64); err == nil {
			cfg.Security.MaxRequestBodySize = size
		}
	}
	setString(&cfg.Security.AllowedOrigins, "ALLOWED_ORIGINS")

	setBool(&cfg.RateLimit.Enabled, "RATE_LIMIT_ENABLED")
	setInt(&cfg.RateLimit.Rate, "RATE_LIMIT_RATE")
	setInt(&cfg.RateLimit.Window, "RATE_LIMIT_WINDOW")
	setInt(&cfg.RateLimit.CostlyRate, "RATE_LIMIT_COSTLY_RATE")

	setBool(&cfg.Tracing.Enabled, "TRACING_ENABLED")
	setString(&cfg.Tracing.Endpoint, "TRACING_ENDPOINT")
	setString(&cfg.Tracing.ServiceName, "TRACING_SERVICE_NAME")
	setString(&cfg.Tracing.Environment, "TRACING_ENVIRONMENT")

	setBool(&cfg.Events.Enabled, "EVENTS_ENABLED")
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setBool(dst *bool, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = strings.ToLower(value) == "true" || value == "1"
	}
}

func setInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			*dst = i
		}
	}
}

// AllowedOriginList splits the comma-separated CORS origins.
func (c *Config) AllowedOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.Security.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return fmt.Errorf("both cert file and key file are required for TLS")
	}

	switch c.Storage.Type {
	case "memory":
	case "file":
		if c.Storage.FilePath == "" {
			return fmt.Errorf("storage file path is required")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage sqlite path is required")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required")
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	if c.Cache.Enabled {
		if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
			return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache ttl must be positive")
		}
	}

	if c.Catalog.MaxSearchResults <= 0 {
		return fmt.Errorf("max search results must be positive")
	}
	if c.Catalog.MaxSearchResults > validation.MaxSearchResults {
		return fmt.Errorf("max search results cannot exceed %d", validation.MaxSearchResults)
	}

	if c.LLM.Enabled && c.LLM.BaseURL == "" {
		return fmt.Errorf("llm base url is required when llm is enabled")
	}

	if c.Security.MaxRequestBodySize <= 0 {
		return fmt.Errorf("max request body size must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
		if c.RateLimit.CostlyRate < 0 {
			return fmt.Errorf("rate limit costly rate must not be negative")
		}
	}
	return nil
}
