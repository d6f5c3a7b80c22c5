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


package reembed

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/storage"
)

// Store is the datastore surface a reembedding run needs.
type Store interface {
	storage.TechnicianReader
	storage.EmbeddingWriter
}

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of technicians embedded per request
	BatchSize int

	// ReportInterval is how often to report progress (number of technicians)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for failed embedding requests
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Workers is the number of batches embedded concurrently
	Workers int

	// Model identifies the embedding space; see ai.Config.ModelID
	Model string

	// Force re-embeds every technician, even those that are up to date
	Force bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 25,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Workers:        1,
	}
}

// Report summarizes a reembedding run.
type Report struct {
	// Total is the number of technicians in the datastore.
	Total int
	// Embedded is the number of technicians whose embedding was rewritten.
	Embedded int
	// Skipped is the number already up to date.
	Skipped int
	// Failed is the number that needed an embedding but did not get one.
	Failed  int
	Elapsed time.Duration
}

// Reembedder orchestrates the reembedding of every technician in a datastore.
//
// The embedder should be the primary backend, not a fallback wrapper:
// placeholder vectors must never be written as real embeddings.
type Reembedder struct {
	store     Store
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(store Store, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		store:     store,
		embedder:  embedder,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(store, embedder, config.Model, config.MaxRetries, config.RetryDelay),
	}
}

// Pending returns the technicians whose embeddings are missing or stale.
func (r *Reembedder) Pending(technicians []*core.Technician) []*core.Technician {
	if r.config.Force {
		return technicians
	}
	dims := r.embedder.Dimensions()
	pending := make([]*core.Technician, 0, len(technicians))
	for _, t := range technicians {
		if NeedsEmbedding(t, dims, r.config.Model) {
			pending = append(pending, t)
		}
	}
	return pending
}

// Run executes the reembedding operation.
// Technicians that are up to date are skipped unless Force is set.
// Progress is reported to the configured writer. The first batch failure stops
// the run; the returned report covers the work done until then.
func (r *Reembedder) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	technicians, err := r.store.ListTechnicians(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list technicians: %w", err)
	}

	pending := r.Pending(technicians)
	report := &Report{
		Total:   len(technicians),
		Skipped: len(technicians) - len(pending),
	}

	if len(pending) == 0 {
		fmt.Fprintf(r.progress, "All %d technicians are up to date\n", len(technicians))
		report.Elapsed = time.Since(start)
		return report, nil
	}

	fmt.Fprintf(r.progress, "Reembedding %d of %d technicians (batch size: %d, skipped: %d)\n",
		len(pending), len(technicians), r.config.BatchSize, report.Skipped)

	workers := max(r.config.Workers, 1)
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	progress := NewProgress(r.progress, len(pending), r.config.ReportInterval)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		embedded atomic.Int64
		failed   atomic.Int64
		errMu    sync.Mutex
		firstErr error
	)

	iterErr := ForEachBatch(runCtx, pending, r.config.BatchSize, func(batch []*core.Technician) error {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			n, err := r.processor.Process(runCtx, batch)
			embedded.Add(int64(n))
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				cancel()
				return
			}
			failed.Add(int64(len(batch) - n))
			progress.Record(n, len(batch)-n)
		}
		if err := pool.Submit(task); err != nil {
			task()
		}
		return nil
	})
	wg.Wait()

	report.Embedded = int(embedded.Load())
	report.Failed = int(failed.Load())
	report.Elapsed = time.Since(start)

	if firstErr != nil {
		report.Failed = len(pending) - report.Embedded
		return report, firstErr
	}
	if iterErr != nil {
		report.Failed = len(pending) - report.Embedded
		return report, iterErr
	}

	progress.Finish()
	fmt.Fprintf(r.progress, "Reembedding complete. Embedded %d technicians in %v (%d skipped, %d failed)\n",
		report.Embedded, report.Elapsed.Round(time.Millisecond), report.Skipped, report.Failed)

	return report, nil
}
