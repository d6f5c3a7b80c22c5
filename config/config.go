// Package config loads the service configuration from a YAML file.
//
// Secrets are never stored in the file. Sections that need one name the
// environment variable that holds it; main loads a .env file before
// configuration is resolved.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
)

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"`
	Host              string  `yaml:"host"`
	Model             string  `yaml:"model"`
	Dimensions        int     `yaml:"dimensions"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Project           string  `yaml:"project"`
	Location          string  `yaml:"location"`
	CredentialsFile   string  `yaml:"credentials_file"`
	TokenURL          string  `yaml:"token_url"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	FallbackSeed      uint64  `yaml:"fallback_seed"`
}

// StorageConfig locates the datastore.
type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// SearchConfig tunes the search orchestrator.
type SearchConfig struct {
	PoolSize     int `yaml:"pool_size"`
	DefaultLimit int `yaml:"default_limit"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr                string `yaml:"addr"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs"`
}

// AssistantConfig configures the customer help chat.
type AssistantConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"`
	Model        string `yaml:"model"`
	HistoryTurns int    `yaml:"history_turns"`
	MaxSessions  int    `yaml:"max_sessions"`
	SystemPrompt string `yaml:"system_prompt"`
}

// MapsConfig configures the Azure Maps client.
type MapsConfig struct {
	KeyEnv            string  `yaml:"key_env"`
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
	Assistant AssistantConfig `yaml:"assistant"`
	Maps      MapsConfig      `yaml:"maps"`
}

// Load reads a config from path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// Decode reads YAML from r, rejecting unknown keys, and fills unset values
// with defaults. An empty document yields the defaults.
func Decode(r io.Reader) (*AppConfig, error) {
	var cfg AppConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration used when no file exists: offline
// hashing embeddings, a local datastore and no assistant.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	defaults := ai.DefaultConfig()

	e := &cfg.Embedding
	if e.Provider == "" {
		e.Provider = string(defaults.Provider)
	}
	if e.Host == "" {
		e.Host = defaults.EmbeddingHost
	}
	if e.Model == "" {
		e.Model = defaults.EmbeddingModel
	}
	if e.Dimensions == 0 {
		e.Dimensions = defaults.Dimensions
	}
	if e.APIKeyEnv == "" {
		e.APIKeyEnv = "OPENAI_API_KEY"
	}
	if e.Location == "" {
		e.Location = defaults.Location
	}
	if e.TimeoutSecs == 0 {
		e.TimeoutSecs = int(defaults.Timeout / time.Second)
	}
	if e.MaxRetries == 0 {
		e.MaxRetries = defaults.MaxRetries
	}
	if e.RequestsPerSecond == 0 {
		e.RequestsPerSecond = defaults.RequestsPerSecond
	}

	if cfg.Storage.Path == "" && !cfg.Storage.InMemory {
		cfg.Storage.Path = "servicelink-data"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeoutSecs == 0 {
		cfg.Server.ShutdownTimeoutSecs = 10
	}

	a := &cfg.Assistant
	if a.Host == "" {
		a.Host = defaults.ChatHost
	}
	if a.Model == "" {
		a.Model = defaults.ChatModel
	}

	if cfg.Maps.KeyEnv == "" {
		cfg.Maps.KeyEnv = "AZURE_MAPS_KEY"
	}
}

// AIConfig builds the provider configuration, resolving secrets from the
// environment.
func (c *AppConfig) AIConfig() *ai.Config {
	e := c.Embedding
	opts := []ai.ConfigOption{
		ai.WithProvider(ai.Provider(e.Provider)),
		ai.WithEmbeddingHost(e.Host),
		ai.WithEmbeddingModel(e.Model),
		ai.WithDimensions(e.Dimensions),
		ai.WithVertexProject(e.Project, e.Location),
		ai.WithCredentialsFile(e.CredentialsFile),
		ai.WithTokenURL(e.TokenURL),
		ai.WithChat(c.Assistant.Host, c.Assistant.Model),
		ai.WithTimeout(time.Duration(e.TimeoutSecs) * time.Second),
		ai.WithRateLimit(e.RequestsPerSecond),
		ai.WithFallbackSeed(e.FallbackSeed),
	}
	if key := os.Getenv(e.APIKeyEnv); key != "" {
		opts = append(opts, ai.WithAPIKey(key))
	}
	cfg := ai.NewConfig(opts...)
	cfg.MaxRetries = e.MaxRetries
	return cfg
}

// MapsKey returns the Azure Maps subscription key from the environment.
func (c *AppConfig) MapsKey() string {
	return os.Getenv(c.Maps.KeyEnv)
}

// ShutdownTimeout is how long the server waits for in-flight requests.
func (c *AppConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSecs) * time.Second
}

// Validate checks the embedding section and the server address.
func (c *AppConfig) Validate() error {
	if err := c.AIConfig().Validate(); err != nil {
		return err
	}
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	return nil
}
