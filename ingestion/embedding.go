package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/storage"
)

// embeddingProcessor generates embeddings for technician profiles.
type embeddingProcessor struct {
	repository storage.TechnicianRepository
	embedder   ai.Embedder
	model      string
	logger     *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(repository storage.TechnicianRepository, embedder ai.Embedder, model string, logger *slog.Logger) (*embeddingProcessor, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		repository: repository,
		embedder:   embedder,
		model:      model,
		logger:     logger.With("processor", "embeddings"),
	}, nil
}

// process generates embeddings for the specified technicians.
// Records deleted since ingestion are skipped.
func (ep *embeddingProcessor) process(ctx context.Context, ids ...string) (int, error) {
	ep.logger.Info("processing technicians for embeddings", "records", len(ids))

	slices.Sort(ids)

	technicians := make([]*core.Technician, 0, len(ids))
	for _, id := range ids {
		t, err := ep.repository.GetTechnician(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			ep.logger.Debug("technician removed before embedding", "technician", id)
			continue
		}
		if err != nil {
			ep.logger.Error("error retrieving technician", "technician", id, "err", err)
			return 0, err
		}
		technicians = append(technicians, t)
	}
	if len(technicians) == 0 {
		return 0, nil
	}

	texts := make([]string, len(technicians))
	for i, t := range technicians {
		texts[i] = core.EmbeddingInput(t)
	}

	ep.logger.Debug("generating embeddings for technicians", "records", len(texts))
	embeddings, err := ep.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return 0, err
	}

	if len(embeddings) != len(technicians) {
		return 0, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(technicians), len(embeddings))
	}

	dims := ep.embedder.Dimensions()
	updated := 0
	for i, t := range technicians {
		vec := embeddings[i]
		if len(vec) != dims || !core.IsFinite(vec) {
			ep.logger.Warn("skipping unusable embedding", "technician", t.ID, "dimensions", len(vec))
			continue
		}
		if err := ep.repository.UpdateEmbedding(ctx, t.ID, vec, core.EmbeddingHashFor(t, ep.model)); err != nil {
			return updated, err
		}
		updated++
	}

	return updated, nil
}
