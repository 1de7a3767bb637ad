// Package config provides YAML configuration loading for the monitor, API,
// and indexer binaries.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the pipeline.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Providers ProvidersConfig `yaml:"providers"`
	Storage   StorageConfig   `yaml:"storage"`
	NATS      NATSConfig      `yaml:"nats"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Profile   ProfileConfig   `yaml:"profile"`
}

// ProfileConfig describes the business that fetched updates are scored for.
type ProfileConfig struct {
	Industry             string   `yaml:"industry"`
	Jurisdictions        []string `yaml:"jurisdictions"`
	BusinessSize         string   `yaml:"business_size"`
	RegisteredActivities []string `yaml:"registered_activities"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	CORSOrigin  string `yaml:"cors_origin"`
}

// MonitorConfig holds polling cycle settings.
type MonitorConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Sources     []string      `yaml:"sources"`
	BackoffBase time.Duration `yaml:"backoff_base"`
	BackoffMax  time.Duration `yaml:"backoff_max"`
	FetchLimit  int           `yaml:"fetch_limit"` // max concurrent source fetches
}

// ScoringConfig holds relevance scoring weights and thresholds.
type ScoringConfig struct {
	JurisdictionWeight int           `yaml:"jurisdiction_weight"`
	IndustryWeight     int           `yaml:"industry_weight"`
	KeywordWeight      int           `yaml:"keyword_weight"`
	RecencyWeight      int           `yaml:"recency_weight"`
	RecencyHorizon     time.Duration `yaml:"recency_horizon"`
	HighThreshold      int           `yaml:"high_threshold"`
	MediumThreshold    int           `yaml:"medium_threshold"`
}

// RetrievalConfig holds answer-engine retrieval settings.
type RetrievalConfig struct {
	TopK                int     `yaml:"top_k"`
	ContextBudget       int     `yaml:"context_budget"` // characters of retrieved context
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	JurisdictionBoost   float64 `yaml:"jurisdiction_boost"`
}

// ProvidersConfig holds model provider settings.
type ProvidersConfig struct {
	Embed      EmbedConfig      `yaml:"embed"`
	Completion CompletionConfig `yaml:"completion"`
	Search     SearchConfig     `yaml:"search"`
}

// EmbedConfig selects the embedding backend.
type EmbedConfig struct {
	OllamaURL string `yaml:"ollama_url"`
	Model     string `yaml:"model"`
	CacheSize int    `yaml:"cache_size"`
}

// CompletionConfig selects the completion backend. Provider is "openai" or
// "anthropic"; API keys come from the usual environment variables.
type CompletionConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// SearchConfig holds live web search fallback settings.
type SearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// StorageConfig holds the SQLite database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// NATSConfig holds messaging settings for scored update fan-out.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// QdrantConfig holds vector store settings.
type QdrantConfig struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
	VectorSize uint64 `yaml:"vector_size"`
}

// Load reads and parses the config file at path and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config with all defaults applied and no file loaded.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// ApplyDefaults fills in zero-valued fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9090
	}
	if cfg.Server.CORSOrigin == "" {
		cfg.Server.CORSOrigin = "*"
	}

	if cfg.Monitor.Interval == 0 {
		cfg.Monitor.Interval = time.Hour
	}
	if len(cfg.Monitor.Sources) == 0 {
		cfg.Monitor.Sources = []string{"sec", "federal_register", "eu_official_journal"}
	}
	if cfg.Monitor.BackoffBase == 0 {
		cfg.Monitor.BackoffBase = time.Minute
	}
	if cfg.Monitor.BackoffMax == 0 {
		cfg.Monitor.BackoffMax = time.Hour
	}
	if cfg.Monitor.FetchLimit == 0 {
		cfg.Monitor.FetchLimit = 4
	}

	if cfg.Scoring.JurisdictionWeight == 0 {
		cfg.Scoring.JurisdictionWeight = 30
	}
	if cfg.Scoring.IndustryWeight == 0 {
		cfg.Scoring.IndustryWeight = 25
	}
	if cfg.Scoring.KeywordWeight == 0 {
		cfg.Scoring.KeywordWeight = 25
	}
	if cfg.Scoring.RecencyWeight == 0 {
		cfg.Scoring.RecencyWeight = 20
	}
	if cfg.Scoring.RecencyHorizon == 0 {
		cfg.Scoring.RecencyHorizon = 30 * 24 * time.Hour
	}
	if cfg.Scoring.HighThreshold == 0 {
		cfg.Scoring.HighThreshold = 70
	}
	if cfg.Scoring.MediumThreshold == 0 {
		cfg.Scoring.MediumThreshold = 40
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.ContextBudget == 0 {
		cfg.Retrieval.ContextBudget = 8000
	}
	if cfg.Retrieval.ConfidenceThreshold == 0 {
		cfg.Retrieval.ConfidenceThreshold = 0.35
	}
	if cfg.Retrieval.JurisdictionBoost == 0 {
		cfg.Retrieval.JurisdictionBoost = 1.15
	}

	if cfg.Providers.Embed.OllamaURL == "" {
		cfg.Providers.Embed.OllamaURL = "http://localhost:11434"
	}
	if cfg.Providers.Embed.Model == "" {
		cfg.Providers.Embed.Model = "nomic-embed-text"
	}
	if cfg.Providers.Embed.CacheSize == 0 {
		cfg.Providers.Embed.CacheSize = 1024
	}
	if cfg.Providers.Completion.Provider == "" {
		cfg.Providers.Completion.Provider = "openai"
	}

	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "regpulse.db"
	}

	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = "regpulse.updates.scored"
	}

	if cfg.Qdrant.Addr == "" {
		cfg.Qdrant.Addr = "localhost:6334"
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "regulatory_docs"
	}
	if cfg.Qdrant.VectorSize == 0 {
		cfg.Qdrant.VectorSize = 768
	}
}
