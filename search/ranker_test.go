package search

import (
	"context"
	"hash/fnv"
	"math"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohanGuptaKoduru/ServiceLink/ai/fallback"
	"github.com/MohanGuptaKoduru/ServiceLink/ai/mock"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
)

func newTestRanker(t *testing.T, embedder *mock.MockEmbedder, store *memoryStore, poolSize int) *Ranker {
	t.Helper()
	cache, err := NewVectorCache(fallback.New(embedder, fallback.WithSeed(3)), store, WithCacheModel(testModel))
	require.NoError(t, err)
	if poolSize == 0 {
		return NewRanker(cache, nil)
	}
	pool, err := ants.NewPool(poolSize)
	require.NoError(t, err)
	t.Cleanup(pool.Release)
	return NewRanker(cache, pool)
}

func withVector(id string, vec ...float32) *core.Technician {
	return &core.Technician{ID: id, Name: id, Service: "Test", Embedding: vec}
}

func names(results []*core.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Technician.ID
	}
	return out
}

func TestRank_OrdersByScoreKeepingTies(t *testing.T) {
	ranker := newTestRanker(t, mock.NewMockEmbedder().WithDimensions(2), newMemoryStore(), 2)
	technicians := []*core.Technician{
		withVector("orthogonal", 0, 1),
		withVector("exact-1", 1, 0),
		withVector("diagonal", 1, 1),
		withVector("exact-2", 2, 0),
		withVector("opposite", -1, 0),
		withVector("zero", 0, 0),
	}

	results, writeBacks, err := ranker.Rank(context.Background(), []float32{1, 0}, technicians)
	require.NoError(t, err)
	assert.Empty(t, writeBacks)

	assert.Equal(t, []string{"exact-1", "exact-2", "diagonal", "orthogonal", "zero", "opposite"}, names(results))
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, math.Sqrt2/2, results[2].Score, 1e-6)
	assert.Equal(t, 0.0, results[4].Score)
	assert.InDelta(t, -1.0, results[5].Score, 1e-9)
}

func TestRank_Deterministic(t *testing.T) {
	ranker := newTestRanker(t, mock.NewMockEmbedder().WithDimensions(8), newMemoryStore(), 4)
	technicians := make([]*core.Technician, 0, 10)
	for _, word := range []string{"pump", "wiring", "cabinet", "cooling", "fridge", "motor", "leak", "fan", "tank", "door"} {
		technicians = append(technicians, withVector(word, mock.DeterministicVector(word, 8)...))
	}
	query := mock.DeterministicVector("water pump", 8)

	first, _, err := ranker.Rank(context.Background(), query, technicians)
	require.NoError(t, err)
	second, _, err := ranker.Rank(context.Background(), query, technicians)
	require.NoError(t, err)

	require.Len(t, first, len(technicians))
	assert.Equal(t, names(first), names(second))
	for i := range first {
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}

func TestRank_OrderIndependentOfCompletionOrder(t *testing.T) {
	// Every profile embeds to the same vector, so all scores tie, but each
	// lookup sleeps a different amount and completions arrive out of order.
	embedder := mock.NewMockEmbedder().WithDimensions(4).WithEmbedTextFunc(
		func(ctx context.Context, text string) ([]float32, error) {
			h := fnv.New32a()
			h.Write([]byte(text))
			time.Sleep(time.Duration(h.Sum32()%5) * time.Millisecond)
			return []float32{1, 1, 0, 0}, nil
		})
	ranker := newTestRanker(t, embedder, newMemoryStore(), 8)

	var technicians []*core.Technician
	for i := range 16 {
		id := string(rune('a' + i))
		technicians = append(technicians, &core.Technician{ID: id, Name: "Tech " + id, Service: "Plumbing"})
	}

	results, writeBacks, err := ranker.Rank(context.Background(), []float32{1, 0, 0, 0}, technicians)
	require.NoError(t, err)
	require.Len(t, results, 16)

	want := make([]string, len(technicians))
	for i, tech := range technicians {
		want[i] = tech.ID
	}
	assert.Equal(t, want, names(results))
	assert.Len(t, writeBacks, 16)
}

func TestRank_ComputesMissingVectors(t *testing.T) {
	store := newMemoryStore()
	ranker := newTestRanker(t, mock.NewMockEmbedder().WithDimensions(8), store, 2)
	technicians := []*core.Technician{
		{ID: "a", Name: "Aakash", Service: "Water Systems"},
		withVector("b", mock.DeterministicVector("b", 8)...),
		nil,
	}

	results, writeBacks, err := ranker.Rank(context.Background(), mock.DeterministicVector("q", 8), technicians)
	require.NoError(t, err)
	assert.Len(t, results, 2, "nil records are skipped")
	require.Len(t, writeBacks, 1)
	assert.Equal(t, "a", writeBacks[0].TechnicianID)
	assert.NotNil(t, store.stored("a"))

	for _, r := range results {
		assert.False(t, math.IsNaN(r.Score))
		assert.GreaterOrEqual(t, r.Score, -1.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestRank_ContractErrors(t *testing.T) {
	ranker := newTestRanker(t, mock.NewMockEmbedder().WithDimensions(4), newMemoryStore(), 0)
	technicians := []*core.Technician{withVector("a", 1, 0, 0, 0)}

	_, _, err := ranker.Rank(context.Background(), []float32{1, 0}, technicians)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, _, err = ranker.Rank(context.Background(), []float32{1, 0, float32(math.Inf(1)), 0}, technicians)
	assert.ErrorIs(t, err, ErrNonFiniteVector)
}

func TestRank_EmptyInput(t *testing.T) {
	ranker := newTestRanker(t, mock.NewMockEmbedder().WithDimensions(4), newMemoryStore(), 0)
	results, writeBacks, err := ranker.Rank(context.Background(), []float32{1, 0, 0, 0}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, writeBacks)
}
