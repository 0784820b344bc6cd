package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the pagevec API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	AI        AIConfig        `yaml:"ai"`
	Browser   BrowserConfig   `yaml:"browser"`
	Search    SearchConfig    `yaml:"search"`
	Library   LibraryConfig   `yaml:"library"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig maps bearer tokens to the owner they act for.
// An empty map disables authentication and every request acts as AnonymousOwner.
type AuthConfig struct {
	Tokens         map[string]string `yaml:"tokens"`
	AnonymousOwner string            `yaml:"anonymous_owner"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds the embedding model settings.
type EmbeddingConfig struct {
	Provider       string      `yaml:"provider"`
	APIKey         string      `yaml:"api_key"`
	BaseURL        string      `yaml:"base_url"`
	Model          string      `yaml:"model"`
	Dimensions     int         `yaml:"dimensions"`
	SendDimensions bool        `yaml:"send_dimensions"`
	Warmup         bool        `yaml:"warmup"`
	Concurrency    int         `yaml:"concurrency"`
	LoadTimeoutSec int         `yaml:"load_timeout_sec"`
	Cache          CacheConfig `yaml:"cache"`
	// Instruction prefixes for asymmetric models (E5 "passage: " / "query: ").
	// Empty for symmetric models such as MiniLM.
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// CacheConfig holds the embedding cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
}

// AIConfig holds the generative AI service settings.
type AIConfig struct {
	Provider      string  `yaml:"provider"` // openai, googleai
	APIKey        string  `yaml:"api_key"`
	BaseURL       string  `yaml:"base_url"`
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	TimeoutSec    int     `yaml:"timeout_sec"`
	MaxInputChars int     `yaml:"max_input_chars"`
}

// BrowserConfig holds browser pool settings.
type BrowserConfig struct {
	MaxSessions          int    `yaml:"max_sessions"`
	MaxWaiting           int    `yaml:"max_waiting"`
	NavigationTimeoutSec int    `yaml:"navigation_timeout_sec"`
	Headless             *bool  `yaml:"headless"`
	UserAgent            string `yaml:"user_agent"`
	ExecPath             string `yaml:"exec_path"`
}

// SearchConfig holds ranking settings.
type SearchConfig struct {
	DefaultLimit        int     `yaml:"default_limit"`
	MaxLimit            int     `yaml:"max_limit"`
	MinScore            float64 `yaml:"min_score"`
	NativeKNN           bool    `yaml:"native_knn"`
	CandidateMultiplier int     `yaml:"candidate_multiplier"`
}

// LibraryConfig holds listing pagination settings.
type LibraryConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expands ${VAR:-default} references,
// applies defaults and validates the result.
func Parse(data []byte) (Config, error) {
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
	// Ingestion renders a page and calls two models inside one request.
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "pagevec:"
	}
	if c.Auth.AnonymousOwner == "" {
		c.Auth.AnonymousOwner = "anonymous"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.Concurrency <= 0 {
		c.Embedding.Concurrency = 4
	}
	if c.Embedding.LoadTimeoutSec <= 0 {
		c.Embedding.LoadTimeoutSec = 60
	}

	if c.AI.Provider == "" {
		c.AI.Provider = "googleai"
	}
	if c.AI.TimeoutSec <= 0 {
		c.AI.TimeoutSec = 60
	}
	if c.AI.MaxInputChars <= 0 {
		c.AI.MaxInputChars = 30000
	}

	if c.Browser.MaxSessions <= 0 {
		c.Browser.MaxSessions = 2
	}
	if c.Browser.NavigationTimeoutSec <= 0 {
		c.Browser.NavigationTimeoutSec = 30
	}
	if c.Browser.Headless == nil {
		headless := true
		c.Browser.Headless = &headless
	}

	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.CandidateMultiplier <= 0 {
		c.Search.CandidateMultiplier = 4
	}

	if c.Library.DefaultPageSize <= 0 {
		c.Library.DefaultPageSize = 10
	}
	if c.Library.MaxPageSize <= 0 {
		c.Library.MaxPageSize = 100
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
	if c.Database.DB < 0 {
		return fmt.Errorf("database.db must be >= 0, got %d", c.Database.DB)
	}
	if c.Embedding.Provider != "openai" {
		return fmt.Errorf("embedding.provider must be \"openai\", got %q", c.Embedding.Provider)
	}
	switch c.AI.Provider {
	case "openai", "googleai":
	default:
		return fmt.Errorf("ai.provider must be \"openai\" or \"googleai\", got %q", c.AI.Provider)
	}
	if c.Browser.MaxWaiting < 0 {
		return fmt.Errorf("browser.max_waiting must not be negative, got %d", c.Browser.MaxWaiting)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Search.MinScore < -1 || c.Search.MinScore > 1 {
		return fmt.Errorf("search.min_score must be within [-1, 1], got %v", c.Search.MinScore)
	}
	for token, owner := range c.Auth.Tokens {
		if token == "" || owner == "" {
			return fmt.Errorf("auth.tokens entries need a token and an owner")
		}
	}
	return nil
}

// AITimeout returns the per-call AI timeout.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSec) * time.Second
}

// EmbeddingLoadTimeout bounds one embedding model load.
func (c *Config) EmbeddingLoadTimeout() time.Duration {
	return time.Duration(c.Embedding.LoadTimeoutSec) * time.Second
}

// NavigationTimeout returns the page load timeout.
func (c *Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Browser.NavigationTimeoutSec) * time.Second
}

// CacheTTL returns the embedding cache TTL, 0 for no expiry.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Embedding.Cache.TTLSec) * time.Second
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
