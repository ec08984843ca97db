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

// Config holds the dory routing core configuration.
type Config struct {
	HTTP      HTTPConfig                `yaml:"http"`
	Cache     CacheConfig               `yaml:"cache"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Domains   []DomainConfig            `yaml:"domains"`
	Router    RouterConfig              `yaml:"router"`
	FAQ       FAQConfig                 `yaml:"faq"`
	Corpus    CorpusConfig              `yaml:"corpus"`
	Auth      AuthConfig                `yaml:"auth"`
	Logging   LoggingConfig             `yaml:"logging"`
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

// CacheConfig holds the optional embedding cache store settings.
type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	// KeyPrefix namespaces cache keys (default "dory:").
	KeyPrefix string `yaml:"key_prefix"`
	// TTLSec expires cached embeddings after this many seconds
	// (default 24h). Negative disables expiry.
	TTLSec int `yaml:"ttl_sec"`
}

// ProviderConfig holds embedding provider settings.
// Kind selects the backend: "openai" covers the hosted API and any
// OpenAI-compatible server via base_url; "ollama" is a locally-resident model.
type ProviderConfig struct {
	Kind       string `yaml:"kind"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Host       string `yaml:"host"` // ollama only
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
	MaxRetries int    `yaml:"max_retries"`
}

// DomainConfig holds one knowledge domain's retrieval policy.
type DomainConfig struct {
	ID              string   `yaml:"id"`
	Provider        string   `yaml:"provider"`
	DocumentPrefix  string   `yaml:"document_prefix"`
	QueryPrefix     string   `yaml:"query_prefix"`
	BatchSize       int      `yaml:"batch_size"`
	TopK            int      `yaml:"top_k"`
	ConfidenceFloor float64  `yaml:"confidence_floor"`
	TriggerTerms    []string `yaml:"trigger_terms"`
}

// RouterConfig holds the router's rule data.
type RouterConfig struct {
	// GeneralMarkers force no-retrieval when present in a query.
	GeneralMarkers []string `yaml:"general_markers"`
}

// FAQConfig holds the fuzzy FAQ matcher settings.
type FAQConfig struct {
	Path string `yaml:"path"`
	// Threshold is the acceptance score on a 0-100 scale.
	Threshold int `yaml:"threshold"`
	// Watch enables hot reload of the FAQ table on file change.
	Watch bool `yaml:"watch"`
}

// CorpusConfig holds the ingested-passage snapshot location.
type CorpusConfig struct {
	// Snapshot is a JSONL file of already-embedded passages produced by
	// the external ingestion pipeline. Empty = start with empty corpora.
	Snapshot string `yaml:"snapshot"`
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
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "dory:"
	}
	if c.Cache.TTLSec == 0 {
		c.Cache.TTLSec = 86400
	}
	if c.FAQ.Threshold <= 0 {
		c.FAQ.Threshold = 90
	}
	for name, p := range c.Providers {
		if p.Kind == "" {
			p.Kind = "openai"
		}
		if p.TimeoutSec <= 0 {
			p.TimeoutSec = 25
		}
		if p.MaxRetries < 0 {
			p.MaxRetries = 0
		}
		c.Providers[name] = p
	}
	for i := range c.Domains {
		d := &c.Domains[i]
		if d.BatchSize <= 0 {
			d.BatchSize = 64
		}
		if d.TopK <= 0 {
			d.TopK = 5
		}
		if d.ConfidenceFloor <= 0 {
			d.ConfidenceFloor = 0.25
		}
	}
	if len(c.Router.GeneralMarkers) == 0 {
		c.Router.GeneralMarkers = []string{"in general", "generally speaking", "generally"}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Domains) == 0 {
		return fmt.Errorf("at least one domain is required")
	}
	seen := make(map[string]struct{}, len(c.Domains))
	for _, d := range c.Domains {
		if d.ID == "" {
			return fmt.Errorf("domain id is required")
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("duplicate domain id %q", d.ID)
		}
		seen[d.ID] = struct{}{}

		p, ok := c.Providers[d.Provider]
		if !ok {
			return fmt.Errorf("domain %q references unknown provider %q", d.ID, d.Provider)
		}
		switch p.Kind {
		case "openai":
			// Hosted API needs a key; a self-hosted base_url may run keyless.
			if p.APIKey == "" && p.BaseURL == "" {
				return fmt.Errorf("provider %q: api_key is required for the hosted API", d.Provider)
			}
		case "ollama":
			if p.Host == "" {
				return fmt.Errorf("provider %q: host is required for ollama", d.Provider)
			}
		default:
			return fmt.Errorf("provider %q: unknown kind %q", d.Provider, p.Kind)
		}
		if p.Model == "" {
			return fmt.Errorf("provider %q: model is required", d.Provider)
		}
		if d.ConfidenceFloor < -1 || d.ConfidenceFloor > 1 {
			return fmt.Errorf("domain %q: confidence_floor must be in [-1, 1]", d.ID)
		}
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache is enabled")
	}
	if c.FAQ.Threshold < 0 || c.FAQ.Threshold > 100 {
		return fmt.Errorf("faq.threshold must be between 0 and 100, got %d", c.FAQ.Threshold)
	}
	return nil
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
