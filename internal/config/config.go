package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the atabot service.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	VectorDB  VectorDBConfig  `json:"vectordb" yaml:"vectordb"`
	RAG       RAGConfig       `json:"rag" yaml:"rag"`
	Ingest    IngestConfig    `json:"ingest" yaml:"ingest"`
	// Cache holds optional post-pipeline answer caching. Nil disables caching.
	Cache *CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
	// HTTP sets defaults for outbound provider HTTP calls.
	HTTP *HTTPClientConfig `json:"http,omitempty" yaml:"http,omitempty"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Addr            string `json:"addr,omitempty" yaml:"addr,omitempty"`
	ShutdownSeconds int    `json:"shutdown_seconds,omitempty" yaml:"shutdown_seconds,omitempty"`
	// MaxSessions caps the in-memory session history; older sessions are evicted.
	MaxSessions int `json:"max_sessions,omitempty" yaml:"max_sessions,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`   // debug, info, warn, error
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // json, console
}

// DatabaseConfig configures the relational source used for data sync.
type DatabaseConfig struct {
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	MaxConns int    `json:"max_conns,omitempty" yaml:"max_conns,omitempty"`
	MinConns int    `json:"min_conns,omitempty" yaml:"min_conns,omitempty"`
}

// LLMConfig defines configuration for the language-model provider.
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider"` // Available options: openai
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// EmbeddingConfig defines configuration for the embedding provider.
type EmbeddingConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: openai
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	BatchSize  int    `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
}

// VectorDBConfig defines configuration for the vector index.
type VectorDBConfig struct {
	Provider string `json:"provider" yaml:"provider"` // Available options: milvus, memory
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// RAGConfig contains the query pipeline defaults.
type RAGConfig struct {
	// TopK is the default number of evidence items retrieved per sub-question.
	TopK int `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	// MinScore is the relevance floor; evidence scoring below it never
	// reaches the language model.
	MinScore float64 `json:"min_score,omitempty" yaml:"min_score,omitempty"`
	// MaxAnswerTokens bounds per-sub-question generation.
	MaxAnswerTokens int `json:"max_answer_tokens,omitempty" yaml:"max_answer_tokens,omitempty"`
	// LearnedCues caps the runtime cue cache used by the complexity
	// classifier; 0 disables learning entirely.
	LearnedCues int `json:"learned_cues,omitempty" yaml:"learned_cues,omitempty"`
}

// IngestConfig configures table-to-vector synchronization.
type IngestConfig struct {
	BatchSize     int `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	RetryAttempts int `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty"`
	RowLimit      int `json:"row_limit,omitempty" yaml:"row_limit,omitempty"`
}

// CacheConfig controls the optional answer cache.
type CacheConfig struct {
	Enable     bool `json:"enable,omitempty" yaml:"enable,omitempty"`
	MaxEntries int  `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
	TTLSeconds int  `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
}

// HTTPClientConfig holds defaults for outbound provider HTTP calls.
// Retry stays zero for provider calls: the pipeline surfaces provider
// failures to the caller instead of retrying them.
type HTTPClientConfig struct {
	TimeoutMs              int      `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	Retry                  int      `json:"retry,omitempty" yaml:"retry,omitempty"`
	BackoffMinMs           int      `json:"backoff_min_ms,omitempty" yaml:"backoff_min_ms,omitempty"`
	BackoffMaxMs           int      `json:"backoff_max_ms,omitempty" yaml:"backoff_max_ms,omitempty"`
	HostAllowlist          []string `json:"host_allowlist,omitempty" yaml:"host_allowlist,omitempty"`
	MaxConsecutiveFailures int      `json:"max_consecutive_failures,omitempty" yaml:"max_consecutive_failures,omitempty"`
	CircuitOpenSeconds     int      `json:"circuit_open_seconds,omitempty" yaml:"circuit_open_seconds,omitempty"`
}

// Default returns a configuration with the service defaults applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownSeconds: 30,
			MaxSessions:     1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			MaxConns: 10,
			MinConns: 2,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.1,
			MaxTokens:   500,
		},
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			BatchSize:  64,
		},
		VectorDB: VectorDBConfig{
			Provider: "milvus",
			Host:     "localhost",
			Port:     19530,
		},
		RAG: RAGConfig{
			TopK:            3,
			MinScore:        0.3,
			MaxAnswerTokens: 500,
			LearnedCues:     64,
		},
		Ingest: IngestConfig{
			BatchSize:     64,
			RetryAttempts: 3,
		},
	}
}

// Load reads a yaml config file, overlays it on the defaults and validates
// the result. ${VAR} references in the file are expanded from the process
// environment before parsing. An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		data = []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
