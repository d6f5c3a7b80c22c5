// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider selects which embedding backend is used.
type Provider string

const (
	// ProviderVertex uses Google Vertex AI text embeddings.
	ProviderVertex Provider = "vertex"
	// ProviderOpenAI uses an OpenAI-compatible embeddings endpoint.
	ProviderOpenAI Provider = "openai"
	// ProviderHashing uses the offline feature-hashing embedder.
	ProviderHashing Provider = "hashing"
)

// DefaultDimensions is the embedding length used when none is configured.
const DefaultDimensions = 512

// ErrInvalidConfig is wrapped by every error returned from Validate.
var ErrInvalidConfig = errors.New("ai config")

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the embedding backend. Default: ProviderHashing
	Provider Provider

	// EmbeddingHost is the base URL for an OpenAI-compatible embedding API.
	// Example: "http://localhost:11434/v1"
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "textembedding-gecko", "text-embedding-3-small"
	EmbeddingModel string

	// Dimensions is D, the length of every stored and query vector.
	Dimensions int

	// APIKey authenticates against OpenAI-compatible hosts. Local servers accept "none".
	APIKey string

	// ProjectID and Location address the Vertex AI model.
	ProjectID string
	Location  string

	// CredentialsFile is a Google service-account JSON key used for the
	// JWT-bearer token exchange. Ignored when TokenURL is set.
	CredentialsFile string

	// TokenURL is a token broker that returns {"access_token": "..."}.
	TokenURL string

	// ChatHost and ChatModel configure the customer assistant.
	ChatHost  string
	ChatModel string

	// Timeout bounds a single embedding request.
	Timeout time.Duration

	// MaxRetries is the number of attempts per embedding request.
	MaxRetries int

	// RetryDelay is the base backoff delay between attempts.
	RetryDelay time.Duration

	// RequestsPerSecond limits outbound embedding calls. Zero disables limiting.
	RequestsPerSecond float64

	// FallbackSeed seeds the fallback vector source. Zero seeds from the clock.
	FallbackSeed uint64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the embedding backend.
func WithProvider(p Provider) ConfigOption {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithDimensions sets the embedding length.
func WithDimensions(d int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = d
	}
}

// WithAPIKey sets the key for OpenAI-compatible hosts.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithVertexProject sets the Vertex AI project and region.
func WithVertexProject(projectID, location string) ConfigOption {
	return func(c *Config) {
		c.ProjectID = projectID
		c.Location = location
	}
}

// WithCredentialsFile sets the service-account key file.
func WithCredentialsFile(path string) ConfigOption {
	return func(c *Config) {
		c.CredentialsFile = path
	}
}

// WithTokenURL sets the token broker URL.
func WithTokenURL(url string) ConfigOption {
	return func(c *Config) {
		c.TokenURL = url
	}
}

// WithChat sets the assistant host and model.
func WithChat(host, model string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
		c.ChatModel = model
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRetries sets the attempt count and base delay.
func WithRetries(maxRetries int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithRateLimit caps outbound embedding requests per second.
func WithRateLimit(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// WithFallbackSeed makes fallback vectors reproducible.
func WithFallbackSeed(seed uint64) ConfigOption {
	return func(c *Config) {
		c.FallbackSeed = seed
	}
}

// DefaultConfig returns a Config that works without network access.
// The hashing provider is selected; the remaining fields carry the defaults
// used once another provider is chosen.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		Provider:          ProviderHashing,
		EmbeddingHost:     defaultHost,
		EmbeddingModel:    "textembedding-gecko",
		Dimensions:        DefaultDimensions,
		APIKey:            "none",
		Location:          "us-central1",
		ChatHost:          defaultHost,
		ChatModel:         "qwen2.5:3b",
		Timeout:           10 * time.Second,
		MaxRetries:        3,
		RetryDelay:        500 * time.Millisecond,
		RequestsPerSecond: 10,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOpenAI),
//	    WithEmbeddingHost("http://localhost:11434"),
//	    WithEmbeddingModel("nomic-embed-text"),
//	    WithDimensions(768),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix and the provider name is lowercased.
func (c *Config) Normalize() {
	c.Provider = Provider(strings.ToLower(strings.TrimSpace(string(c.Provider))))
	c.EmbeddingHost = withV1Suffix(c.EmbeddingHost)
	c.ChatHost = withV1Suffix(c.ChatHost)
	c.TokenURL = strings.TrimSpace(c.TokenURL)
}

func withV1Suffix(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Dimensions <= 0 {
		return fmt.Errorf("%w: Dimensions must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("%w: MaxRetries must be at least 1", ErrInvalidConfig)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: RequestsPerSecond cannot be negative", ErrInvalidConfig)
	}

	switch c.Provider {
	case ProviderHashing:
	case ProviderOpenAI:
		if c.EmbeddingHost == "" {
			return fmt.Errorf("%w: EmbeddingHost is required", ErrInvalidConfig)
		}
		if c.EmbeddingModel == "" {
			return fmt.Errorf("%w: EmbeddingModel is required", ErrInvalidConfig)
		}
	case ProviderVertex:
		if c.ProjectID == "" {
			return fmt.Errorf("%w: ProjectID is required", ErrInvalidConfig)
		}
		if c.Location == "" {
			return fmt.Errorf("%w: Location is required", ErrInvalidConfig)
		}
		if c.EmbeddingModel == "" {
			return fmt.Errorf("%w: EmbeddingModel is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	return nil
}

// ModelID names the embedding space this configuration produces. It is mixed
// into each technician's EmbeddingHash, so changing provider, model or
// dimensions marks every stored embedding as stale.
func (c *Config) ModelID() string {
	if c.Provider == ProviderHashing {
		return fmt.Sprintf("%s/%d", c.Provider, c.Dimensions)
	}
	return fmt.Sprintf("%s/%s/%d", c.Provider, c.EmbeddingModel, c.Dimensions)
}
