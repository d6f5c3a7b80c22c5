package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MohanGuptaKoduru/ServiceLink/core"
)

// Ranker scores technicians against a query vector.
type Ranker struct {
	cache  *VectorCache
	pool   *ants.Pool
	tracer trace.Tracer
}

// NewRanker creates a ranker. Per-record lookups are fanned out on pool;
// a nil pool runs them sequentially.
func NewRanker(cache *VectorCache, pool *ants.Pool) *Ranker {
	return &Ranker{
		cache:  cache,
		pool:   pool,
		tracer: otel.GetTracerProvider().Tracer(instrumentationName),
	}
}

// Rank returns one result per non-nil technician, sorted by descending score.
// Equal scores keep their input order. Vector lookups may run concurrently but
// are reassembled by input position before sorting, so the ordering does not
// depend on completion order.
//
// The returned write-backs cover every record whose vector was computed.
func (r *Ranker) Rank(ctx context.Context, query []float32, technicians []*core.Technician) ([]*core.SearchResult, []WriteBack, error) {
	if dims := r.cache.Dimensions(); len(query) != dims {
		return nil, nil, fmt.Errorf("%w: query has %d components, want %d", ErrDimensionMismatch, len(query), dims)
	}
	if !core.IsFinite(query) {
		return nil, nil, fmt.Errorf("%w: query", ErrNonFiniteVector)
	}

	ctx, span := r.tracer.Start(ctx, "search.Rank")
	defer span.End()

	technicians = slices.DeleteFunc(slices.Clone(technicians), func(t *core.Technician) bool { return t == nil })
	span.SetAttributes(attribute.Int("technicians", len(technicians)))

	vectors := make([][]float32, len(technicians))
	writeBacks := make([]WriteBack, len(technicians))

	var wg sync.WaitGroup
	for i, t := range technicians {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			vectors[i], writeBacks[i] = r.cache.GetOrCompute(ctx, t)
		}
		if r.pool == nil || r.pool.Submit(task) != nil {
			task()
		}
	}
	wg.Wait()

	results := make([]*core.SearchResult, len(technicians))
	for i, t := range technicians {
		score, err := Cosine(query, vectors[i])
		if err != nil {
			return nil, nil, fmt.Errorf("scoring technician %s: %w", t.ID, err)
		}
		results[i] = &core.SearchResult{Technician: t, Score: score}
	}
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})

	computed := make([]WriteBack, 0, len(writeBacks))
	for _, wb := range writeBacks {
		if wb.Computed {
			computed = append(computed, wb)
		}
	}
	return results, computed, nil
}
