package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
)

// ErrEmbeddingCount is returned when the service answers a batch with a
// different number of vectors than texts. It wraps langchaingo's
// openai.ErrUnexpectedResponseLength.
var ErrEmbeddingCount = errors.New("embedding count mismatch")

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	dims     int
	model    string
	logger   *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible services accept any token; DefaultConfig uses "none".
	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.EmbeddingModel),
		openai.WithHTTPClient(httpClient(config)),
	)
	if err != nil {
		return nil, err
	}

	// Profiles contain line breaks from free-text descriptions.
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		dims:     config.Dimensions,
		model:    config.EmbeddingModel,
		logger:   slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText embeds one technician profile or search query.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds a batch in one request. The result has one vector per
// text, in order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if errors.Is(err, openai.ErrUnexpectedResponseLength) {
		e.logger.Error("embedding count mismatch", "count", len(texts), "returned", len(vectors))
		return nil, fmt.Errorf("%w: %s answered a batch of %d: %w", ErrEmbeddingCount, e.model, len(texts), err)
	}
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	for i, v := range vectors {
		if len(v) != e.dims {
			e.logger.Warn("unexpected embedding length", "index", i, "got", len(v), "want", e.dims)
		}
	}
	return vectors, nil
}

// Dimensions returns the vector length the configured model is expected to produce.
// Vectors of any other length are rejected downstream by the fallback wrapper.
func (e *Embedder) Dimensions() int {
	return e.dims
}
