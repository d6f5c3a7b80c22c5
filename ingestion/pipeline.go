package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/storage"
)

// Pipeline orchestrates the ingestion of technician profiles.
// Records are stored synchronously; embeddings are computed by a worker pool.
type Pipeline struct {
	repository    storage.TechnicianRepository
	embeddingPool *ants.Pool
	embeddingProc processor
	model         string
	logger        *slog.Logger

	pending  sync.WaitGroup
	embedded atomic.Int64
	failed   atomic.Int64
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.embeddingPool = embeddingPool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithModel sets the model identity recorded in each embedding hash.
// It must match the one the search cache uses, see ai.Config.ModelID.
func WithModel(model string) Option {
	return func(p *Pipeline) error {
		p.model = model
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repository storage.TechnicianRepository, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repository:    repository,
		embeddingPool: embeddingPool,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Processors are created after options so they see the final config.
	embeddingProc, err := newEmbeddingProcessor(repository, embedder, p.model, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.embeddingProc = embeddingProc

	return p, nil
}

// Ingest validates and stores technicians, then embeds them asynchronously.
// It returns the stored records with their assigned IDs. Embedding errors
// are logged but do not fail the ingestion; call Wait to let them finish.
func (p *Pipeline) Ingest(ctx context.Context, technicians ...*core.Technician) ([]*core.Technician, error) {
	for i, t := range technicians {
		if err := core.ValidateTechnician(t); err != nil {
			return nil, fmt.Errorf("technician %d: %w", i, err)
		}
	}

	added, err := p.repository.AddTechnicians(ctx, technicians...)
	if err != nil {
		return nil, err
	}

	if len(added) == 0 {
		return added, nil
	}

	ids := make([]string, len(added))
	for i, t := range added {
		ids[i] = t.ID
	}

	p.pending.Add(1)
	task := func() {
		defer p.pending.Done()
		n, err := p.embeddingProc.process(context.WithoutCancel(ctx), ids...)
		p.embedded.Add(int64(n))
		if err != nil {
			p.failed.Add(int64(len(ids) - n))
			p.logger.Error("error processing embeddings", "err", err)
		}
	}
	if err := p.embeddingPool.Submit(task); err != nil {
		p.logger.Warn("embedding pool unavailable, running inline", "err", err)
		task()
	}

	return added, nil
}

// Wait blocks until every submitted embedding job has finished.
func (p *Pipeline) Wait() {
	p.pending.Wait()
}

// Stats returns how many technicians were embedded and how many embedding
// jobs failed so far.
func (p *Pipeline) Stats() (embedded, failed int) {
	return int(p.embedded.Load()), int(p.failed.Load())
}

// Release waits for pending jobs and releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.pending.Wait()
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
