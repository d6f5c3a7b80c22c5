package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/retry"
	"github.com/MohanGuptaKoduru/ServiceLink/storage"
)

// BatchProcessor handles embedding generation for batches of technicians.
type BatchProcessor struct {
	writer         storage.EmbeddingWriter
	embedder       ai.Embedder
	model          string
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor.
// model: identity hashed into each technician's EmbeddingHash
// maxRetries: maximum number of attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(writer storage.EmbeddingWriter, embedder ai.Embedder, model string, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &BatchProcessor{
		writer:         writer,
		embedder:       embedder,
		model:          model,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         slog.Default().With("component", "reembed"),
	}
}

// Process embeds a batch of technicians and writes the normalized vectors back.
// It returns how many technicians were updated. A technician whose vector is
// unusable is logged and left unchanged without failing the batch; a failed
// embedding request or datastore write fails the batch.
func (bp *BatchProcessor) Process(ctx context.Context, technicians []*core.Technician) (int, error) {
	if len(technicians) == 0 {
		return 0, nil
	}

	texts := make([]string, len(technicians))
	for i, t := range technicians {
		texts[i] = core.EmbeddingInput(t)
	}

	var embeddings [][]float32
	err := retry.WithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		if err == nil && len(embeddings) != len(texts) {
			return retry.Permanent(fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCount, len(texts), len(embeddings)))
		}
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	dims := bp.embedder.Dimensions()
	updated := 0
	for i, t := range technicians {
		vec := embeddings[i]
		if len(vec) != dims || !core.IsFinite(vec) {
			bp.logger.Warn("skipping unusable embedding",
				"technician", t.ID,
				"dimensions", len(vec),
				"err", ErrInvalidVector)
			continue
		}

		if err := bp.writer.UpdateEmbedding(ctx, t.ID, NormalizeVector(vec), core.EmbeddingHashFor(t, bp.model)); err != nil {
			return updated, fmt.Errorf("failed to update technician %s: %w", t.ID, err)
		}
		updated++
	}

	return updated, nil
}
