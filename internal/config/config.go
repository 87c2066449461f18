package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the retriever API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Search    SearchConfig    `yaml:"search"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Cache     CacheConfig     `yaml:"cache"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds orchestrator budgets, backend timeouts and fusion defaults.
type SearchConfig struct {
	TotalBudgetMs    int     `yaml:"total_budget_ms"`    // overall per-query budget (default 200)
	VectorTimeoutMs  int     `yaml:"vector_timeout_ms"`  // per-call vector backend deadline (default 150)
	KeywordTimeoutMs int     `yaml:"keyword_timeout_ms"` // per-call keyword backend deadline (default 100)
	DefaultK         int     `yaml:"default_k"`
	MaxK             int     `yaml:"max_k"`
	VectorWeight     float64 `yaml:"vector_weight"`  // default fusion weight (default 0.5)
	KeywordWeight    float64 `yaml:"keyword_weight"` // default fusion weight (default 0.5)
}

// BreakerConfig holds circuit breaker thresholds. Tunable, never hard-coded.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"` // consecutive failures before opening (default 5)
	WindowSec        int `yaml:"window_sec"`        // rolling window for the failure count (default 30)
	CooldownSec      int `yaml:"cooldown_sec"`      // OPEN -> HALF_OPEN after this (default 15)
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled     *bool `yaml:"enabled"` // default true
	TTLSec      int   `yaml:"ttl_sec"` // logical freshness window (default 60)
	StaleFactor int   `yaml:"stale_factor"`
}

// IndexConfig holds HNSW index settings for tenant partitions.
type IndexConfig struct {
	VectorDim       int `yaml:"vector_dim"`
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// RateLimitConfig holds per-tenant request limits. Zero RPS disables limiting.
type RateLimitConfig struct {
	PerTenantRPS float64 `yaml:"per_tenant_rps"`
	Burst        int     `yaml:"burst"`
}

// EmbeddingConfig holds the optional query embedder. When Provider is empty
// the engine requires callers to send query embeddings (or falls back to
// keyword-only search).
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "openai" or compatible
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Search.TotalBudgetMs <= 0 {
		c.Search.TotalBudgetMs = 200
	}
	if c.Search.VectorTimeoutMs <= 0 {
		c.Search.VectorTimeoutMs = 150
	}
	if c.Search.KeywordTimeoutMs <= 0 {
		c.Search.KeywordTimeoutMs = 100
	}
	if c.Search.DefaultK <= 0 {
		c.Search.DefaultK = 10
	}
	if c.Search.MaxK <= 0 {
		c.Search.MaxK = 100
	}
	if c.Search.VectorWeight <= 0 {
		c.Search.VectorWeight = 0.5
	}
	if c.Search.KeywordWeight <= 0 {
		c.Search.KeywordWeight = 0.5
	}
	if c.Breaker.FailureThreshold <= 0 {
		c.Breaker.FailureThreshold = 5
	}
	if c.Breaker.WindowSec <= 0 {
		c.Breaker.WindowSec = 30
	}
	if c.Breaker.CooldownSec <= 0 {
		c.Breaker.CooldownSec = 15
	}
	if c.Cache.Enabled == nil {
		enabled := true
		c.Cache.Enabled = &enabled
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 60
	}
	if c.Cache.StaleFactor <= 0 {
		c.Cache.StaleFactor = 10
	}
	if c.Index.VectorDim <= 0 {
		c.Index.VectorDim = 1024
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 32
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 400
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "retriever:"
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Search.VectorWeight > 1 || c.Search.KeywordWeight > 1 {
		return fmt.Errorf("search weights must be in (0,1]")
	}
	if c.Search.VectorTimeoutMs > c.Search.TotalBudgetMs || c.Search.KeywordTimeoutMs > c.Search.TotalBudgetMs {
		return fmt.Errorf("backend timeouts must not exceed search.total_budget_ms")
	}
	if c.Embedding.Provider != "" && c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required when embedding.provider is set")
	}
	if c.RateLimit.PerTenantRPS < 0 {
		return fmt.Errorf("ratelimit.per_tenant_rps must be non-negative")
	}
	return nil
}

// CacheEnabled reports whether the result cache is on.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled == nil || *c.Cache.Enabled
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
