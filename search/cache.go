package search

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/MohanGuptaKoduru/ServiceLink/ai/fallback"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/storage"
)

const instrumentationName = "github.com/MohanGuptaKoduru/ServiceLink/search"

// WriteBack reports what happened to one record's embedding during a lookup.
// It is separate from the search result so a failed write never fails a search.
type WriteBack struct {
	TechnicianID string
	// Computed is true when the vector came from the embedder instead of the record.
	Computed bool
	// Fallback is true when the embedder substituted a placeholder vector.
	Fallback bool
	// Skipped is true when nothing was persisted, because the vector was a
	// fallback or the record has no ID.
	Skipped bool
	// Err is the persistence error, if any.
	Err error
}

// Persisted reports whether the computed vector reached the datastore.
func (w WriteBack) Persisted() bool {
	return w.Computed && !w.Skipped && w.Err == nil
}

type memoEntry struct {
	hash   uint64
	vector []float32
}

// VectorCache supplies a technician's embedding, computing and persisting it
// on a miss. Snapshot records are never modified; vectors computed for them
// are remembered here until the record's profile changes.
type VectorCache struct {
	embedder *fallback.Embedder
	writer   storage.EmbeddingWriter
	model    string
	logger   *slog.Logger

	writeFailures metric.Int64Counter
	computed      metric.Int64Counter

	group singleflight.Group
	mu    sync.RWMutex
	memo  map[string]memoEntry
}

// CacheOption configures a VectorCache.
type CacheOption func(*VectorCache)

// WithCacheLogger sets the cache logger.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *VectorCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCacheModel sets the model identity hashed into EmbeddingHash.
func WithCacheModel(model string) CacheOption {
	return func(c *VectorCache) {
		c.model = model
	}
}

// WithCacheMeterProvider sets where write-back metrics are recorded.
func WithCacheMeterProvider(mp metric.MeterProvider) CacheOption {
	return func(c *VectorCache) {
		c.initMetrics(mp)
	}
}

// NewVectorCache creates a cache that embeds through embedder and persists through writer.
func NewVectorCache(embedder *fallback.Embedder, writer storage.EmbeddingWriter, opts ...CacheOption) (*VectorCache, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if writer == nil {
		return nil, ErrRepositoryRequired
	}

	c := &VectorCache{
		embedder: embedder,
		writer:   writer,
		logger:   slog.Default(),
		memo:     make(map[string]memoEntry),
	}
	c.initMetrics(otel.GetMeterProvider())
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "vector-cache")
	return c, nil
}

func (c *VectorCache) initMetrics(mp metric.MeterProvider) {
	meter := mp.Meter(instrumentationName)
	c.writeFailures, _ = meter.Int64Counter("servicelink.embedding.writeback_failures",
		metric.WithDescription("Embeddings that could not be persisted"))
	c.computed, _ = meter.Int64Counter("servicelink.embedding.cache_misses",
		metric.WithDescription("Technician embeddings computed on demand"))
}

// Dimensions returns D.
func (c *VectorCache) Dimensions() int {
	return c.embedder.Dimensions()
}

// Model returns the model identity used for embedding hashes.
func (c *VectorCache) Model() string {
	return c.model
}

// Fresh reports whether v can be used as-is: length D and finite.
func (c *VectorCache) Fresh(v []float32) bool {
	return len(v) == c.Dimensions() && core.IsFinite(v)
}

// GetOrCompute returns t's embedding. A stored vector of length D is returned
// unchanged with no I/O. Anything else is treated as absent: the profile is
// embedded and the result is written back to the datastore once.
//
// A placeholder vector from the fallback embedder is returned but neither
// persisted nor remembered, so the stored embedding equals the returned vector
// only for real embeddings; the next lookup asks the provider again.
//
// Embedding and write-back run detached from ctx cancellation so work started
// by an abandoned search still completes and persists. Concurrent misses for
// the same record share one computation.
func (c *VectorCache) GetOrCompute(ctx context.Context, t *core.Technician) ([]float32, WriteBack) {
	wb := WriteBack{TechnicianID: t.ID}
	if c.Fresh(t.Embedding) {
		return t.Embedding, wb
	}

	hash := core.EmbeddingHashFor(t, c.model)
	if vec, ok := c.lookup(t.ID, hash); ok {
		return vec, wb
	}

	ctx = context.WithoutCancel(ctx)
	key := t.ID + "/" + strconv.FormatUint(hash, 16)
	v, _, _ := c.group.Do(key, func() (any, error) {
		// A flight that finished between lookup and Do has already stored its result.
		if vec, ok := c.lookup(t.ID, hash); ok {
			return computed{vector: vec, writeBack: wb}, nil
		}
		vec, res := c.compute(ctx, t, hash)
		return computed{vector: vec, writeBack: res}, nil
	})
	res := v.(computed)
	return res.vector, res.writeBack
}

type computed struct {
	vector    []float32
	writeBack WriteBack
}

func (c *VectorCache) compute(ctx context.Context, t *core.Technician, hash uint64) ([]float32, WriteBack) {
	wb := WriteBack{TechnicianID: t.ID, Computed: true}
	c.computed.Add(ctx, 1)

	vec, outcome := c.embedder.EmbedTextOutcome(ctx, core.EmbeddingInput(t))
	if outcome.Fallback {
		wb.Fallback = true
		wb.Skipped = true
		c.logger.Debug("not persisting fallback embedding", "technician", t.ID, "reason", outcome.Reason)
		return vec, wb
	}
	if t.ID == "" {
		wb.Skipped = true
		return vec, wb
	}

	if err := c.writer.UpdateEmbedding(ctx, t.ID, vec, hash); err != nil {
		c.logger.Warn("embedding write-back failed", "technician", t.ID, "err", err)
		c.writeFailures.Add(ctx, 1)
		wb.Err = err
		return vec, wb
	}

	c.mu.Lock()
	c.memo[t.ID] = memoEntry{hash: hash, vector: vec}
	c.mu.Unlock()
	return vec, wb
}

func (c *VectorCache) lookup(id string, hash uint64) ([]float32, bool) {
	if id == "" {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.memo[id]
	if !ok || entry.hash != hash {
		return nil, false
	}
	return entry.vector, true
}

// Forget drops remembered vectors. With no ids it drops everything.
func (c *VectorCache) Forget(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(ids) == 0 {
		clear(c.memo)
		return
	}
	for _, id := range ids {
		delete(c.memo, id)
	}
}
