package search

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
	"github.com/MohanGuptaKoduru/ServiceLink/ai/fallback"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/storage"
)

// Store is the datastore surface the searcher needs: a full listing for the
// snapshot and single-field embedding writes for the cache.
type Store interface {
	storage.TechnicianReader
	storage.EmbeddingWriter
}

// Response is the outcome of one search call.
type Response struct {
	Query string
	// Results holds one entry per technician in the snapshot, best first.
	Results []*core.SearchResult
	// Generation identifies the snapshot that was ranked. Callers that issue
	// overlapping searches can discard responses from older generations.
	Generation uint64
	// QueryFallback is true when the query vector is a placeholder.
	QueryFallback bool
	// WriteBacks lists every technician embedding computed during the call.
	WriteBacks []WriteBack
}

// Searcher ranks technicians against free-text queries.
type Searcher struct {
	store    Store
	embedder *fallback.Embedder
	snapshot *Snapshot
	cache    *VectorCache
	ranker   *Ranker
	pool     *ants.Pool
	monitor  SearchMonitor
	model    string
	logger   *slog.Logger

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	duration       metric.Float64Histogram
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMonitor sets hooks that observe every search.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// WithPoolSize sets the worker pool size for per-record embedding lookups.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Searcher) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithSnapshot shares an existing snapshot, e.g. one also refreshed by an admin endpoint.
func WithSnapshot(snapshot *Snapshot) Option {
	return func(s *Searcher) error {
		s.snapshot = snapshot
		return nil
	}
}

// WithModel sets the model identity hashed into persisted embeddings.
// See ai.Config.ModelID.
func WithModel(model string) Option {
	return func(s *Searcher) error {
		s.model = model
		return nil
	}
}

// WithMeterProvider sets where search metrics are recorded.
// Default is the global otel provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Searcher) error {
		s.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the provider for search spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Searcher) error {
		s.tracerProvider = tp
		return nil
	}
}

// NewSearcher creates a new searcher. An embedder that is not already a
// *fallback.Embedder is wrapped in one, so embedding failures never abort a search.
func NewSearcher(store Store, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:   store,
		monitor: &noopMonitor{},
		logger:  slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Close()
			return nil, err
		}
	}

	if s.pool == nil {
		size := runtime.NumCPU() / 2
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return nil, err
		}
		s.pool = pool
	}
	if s.meterProvider == nil {
		s.meterProvider = otel.GetMeterProvider()
	}
	if s.tracerProvider == nil {
		s.tracerProvider = otel.GetTracerProvider()
	}

	if fb, ok := embedder.(*fallback.Embedder); ok {
		s.embedder = fb
	} else {
		s.embedder = fallback.New(embedder,
			fallback.WithLogger(s.logger),
			fallback.WithMeterProvider(s.meterProvider),
			fallback.WithTracerProvider(s.tracerProvider))
	}

	if s.snapshot == nil {
		s.snapshot = NewSnapshot(store,
			WithSnapshotLogger(s.logger),
			WithSnapshotMeterProvider(s.meterProvider))
	}

	cache, err := NewVectorCache(s.embedder, store,
		WithCacheLogger(s.logger),
		WithCacheModel(s.model),
		WithCacheMeterProvider(s.meterProvider))
	if err != nil {
		s.Close()
		return nil, err
	}
	s.cache = cache
	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	s.ranker = NewRanker(cache, s.pool)
	s.ranker.tracer = s.tracer
	s.duration, _ = s.meterProvider.Meter(instrumentationName).Float64Histogram("servicelink.search.duration",
		metric.WithDescription("Search latency"),
		metric.WithUnit("s"))
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Search embeds query, ranks every technician in the snapshot against it and
// returns them best first.
//
// Only a snapshot load failure fails the call (wrapped in ErrSearchFailed).
// Embedding failures for the query or for individual records degrade scores
// but never abort the search.
func (s *Searcher) Search(ctx context.Context, query string) (*Response, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "search.Search")
	defer span.End()

	s.monitor.Start(query)

	var (
		queryVec    []float32
		outcome     fallback.Outcome
		technicians []*core.Technician
		generation  uint64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		queryVec, outcome = s.embedder.EmbedTextOutcome(gctx, query)
		return nil
	})
	g.Go(func() error {
		var err error
		technicians, generation, err = s.snapshot.Technicians(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("error loading technicians", "query", query, "err", err)
		return nil, s.fail(ctx, span, start, err)
	}

	if outcome.Fallback {
		s.logger.Warn("query embedded with fallback vector", "query", query, "reason", outcome.Reason)
	}
	s.monitor.AfterQueryEmbedding(outcome.Fallback)
	s.monitor.AfterSnapshotLoad(len(technicians), generation)

	results, writeBacks, err := s.ranker.Rank(ctx, queryVec, technicians)
	if err != nil {
		s.logger.Error("error ranking technicians", "query", query, "err", err)
		return nil, s.fail(ctx, span, start, err)
	}
	s.monitor.AfterRanking(writeBacks)

	span.SetAttributes(
		attribute.Int("results", len(results)),
		attribute.Bool("query_fallback", outcome.Fallback))
	s.duration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("status", "ok")))
	s.monitor.Finish(results)

	return &Response{
		Query:         query,
		Results:       results,
		Generation:    generation,
		QueryFallback: outcome.Fallback,
		WriteBacks:    writeBacks,
	}, nil
}

func (s *Searcher) fail(ctx context.Context, span trace.Span, start time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.duration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("status", "error")))
	return fmt.Errorf("%w: %w", ErrSearchFailed, err)
}

// Refresh reloads the technician snapshot.
func (s *Searcher) Refresh(ctx context.Context) error {
	return s.snapshot.Refresh(ctx)
}

// Invalidate drops the technician snapshot and any remembered vectors.
func (s *Searcher) Invalidate() {
	s.snapshot.Invalidate()
	s.cache.Forget()
}

// Snapshot returns the snapshot the searcher reads from.
func (s *Searcher) Snapshot() *Snapshot {
	return s.snapshot
}

// Cache returns the searcher's vector cache.
func (s *Searcher) Cache() *VectorCache {
	return s.cache
}

// Close releases the worker pool.
func (s *Searcher) Close() {
	if s.pool != nil {
		s.pool.Release()
		s.pool = nil
	}
}
