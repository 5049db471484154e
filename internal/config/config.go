// Package config loads partscout configuration from YAML with environment
// variable overrides for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all partscout configuration.
type Config struct {
	// DataDir is the root for the catalog database, logs, and run archives.
	DataDir string `yaml:"data_dir"`

	// Store configures the persistent catalog.
	Store StoreConfig `yaml:"store"`

	// Embedding configures the embedding engine.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// LLM configures the generative model used for recommendations.
	LLM LLMConfig `yaml:"llm"`

	// Sources configures the marketplace extractors.
	Sources SourcesConfig `yaml:"sources"`

	// Fetch configures the rendered-page fetcher.
	Fetch FetchConfig `yaml:"fetch"`

	// Retrieval configures query-time lookup.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Logging configures categorized debug logging.
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the catalog store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	Collection   string `yaml:"collection"`
}

// EmbeddingConfig configures the embedding engine backend.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // ollama or genai
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"genai_api_key"`
	GenAIModel     string `yaml:"genai_model"`
}

// LLMConfig configures the recommendation model.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// SourcesConfig configures the marketplace extractors.
type SourcesConfig struct {
	Amazon    AmazonConfig    `yaml:"amazon"`
	Ebay      EbayConfig      `yaml:"ebay"`
	IndiaMart IndiaMartConfig `yaml:"indiamart"`
}

// AmazonConfig configures the Amazon.in DOM extractor.
type AmazonConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

// EbayConfig configures the eBay Browse API extractor.
type EbayConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Sandbox      bool   `yaml:"sandbox"`
	Timeout      string `yaml:"timeout"`
}

// IndiaMartConfig configures the IndiaMART DOM extractor.
type IndiaMartConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	SearchURL string `yaml:"search_url"` // web search engine for the site-scoped fallback
}

// FetchConfig configures the rendered-page fetcher.
type FetchConfig struct {
	Headless          bool   `yaml:"headless"`
	ViewportWidth     int    `yaml:"viewport_width"`
	ViewportHeight    int    `yaml:"viewport_height"`
	UserAgent         string `yaml:"user_agent"`
	NavigationTimeout string `yaml:"navigation_timeout"`
	SettleDelay       string `yaml:"settle_delay"`
	// RequestsPerSecond bounds courtesy pacing per host.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// RetrievalConfig configures query-time lookup.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// LoggingConfig configures categorized debug logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: ".partscout",

		Store: StoreConfig{
			DatabasePath: ".partscout/parts.db",
			Collection:   "trailer_parts",
		},

		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
		},

		LLM: LLMConfig{
			Model:   "gemini-2.5-flash",
			Timeout: "60s",
		},

		Sources: SourcesConfig{
			Amazon: AmazonConfig{
				Enabled: true,
				BaseURL: "https://www.amazon.in",
			},
			Ebay: EbayConfig{
				Enabled: true,
				Timeout: "15s",
			},
			IndiaMart: IndiaMartConfig{
				Enabled:   true,
				BaseURL:   "https://www.indiamart.com",
				SearchURL: "https://www.google.com/search",
			},
		},

		Fetch: FetchConfig{
			Headless:          true,
			ViewportWidth:     1920,
			ViewportHeight:    1080,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			NavigationTimeout: "30s",
			SettleDelay:       "3s",
			RequestsPerSecond: 0.5,
		},

		Retrieval: RetrievalConfig{
			TopK: 6,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. Credentials are
// always preferred from the environment so they never need to live in YAML.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.Embedding.GenAIAPIKey == "" {
			c.Embedding.GenAIAPIKey = key
		}
	}
	if key := os.Getenv("PARTSCOUT_EMBED_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
	}
	if id := os.Getenv("EBAY_CLIENT_ID"); id != "" {
		c.Sources.Ebay.ClientID = id
	}
	if secret := os.Getenv("EBAY_CLIENT_SECRET"); secret != "" {
		c.Sources.Ebay.ClientSecret = secret
	}
	if path := os.Getenv("PARTSCOUT_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// LLMTimeout returns the generative call timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// NavigationTimeout returns the page navigation timeout as a duration.
func (c *FetchConfig) NavigationTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.NavigationTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// SettleDelayDuration returns the post-navigation settle delay.
func (c *FetchConfig) SettleDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.SettleDelay)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// EbayTimeout returns the eBay API call timeout as a duration.
func (c *EbayConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}
