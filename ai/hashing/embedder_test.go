package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestNewEmbedder_InvalidDimensions(t *testing.T) {
	_, err := NewEmbedder(0)
	assert.ErrorIs(t, err, ai.ErrInvalidConfig)
}

func TestEmbedText_UnitLengthAndDeterministic(t *testing.T) {
	e, err := NewEmbedder(64)
	require.NoError(t, err)
	assert.Equal(t, 64, e.Dimensions())

	a, err := e.EmbedText(context.Background(), "Water pump not working")
	require.NoError(t, err)
	b, err := e.EmbedText(context.Background(), "water PUMP not working!")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b, "case and punctuation must not matter")

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestEmbedText_EmptyTextIsZeroVector(t *testing.T) {
	e, err := NewEmbedder(16)
	require.NoError(t, err)

	vec, err := e.EmbedText(context.Background(), "  ,, ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), vec)
}

func TestEmbedText_SharedVocabularyScoresHigher(t *testing.T) {
	e, err := NewEmbedder(512)
	require.NoError(t, err)
	ctx := context.Background()

	query, _ := e.EmbedText(ctx, "water pump not working")
	pumps, _ := e.EmbedText(ctx, "Water systems expert specializing in water pumps and tanks")
	doors, _ := e.EmbedText(ctx, "Skilled carpenter with experience in furniture and cabinet making")

	assert.Greater(t, cosine(query, pumps), cosine(query, doors))
}

func TestEmbedText_CancelledContext(t *testing.T) {
	e, err := NewEmbedder(8)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.EmbedText(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbedTexts_PreservesOrder(t *testing.T) {
	e, err := NewEmbedder(32)
	require.NoError(t, err)
	ctx := context.Background()

	batch, err := e.EmbedTexts(ctx, []string{"wiring", "leak"})
	require.NoError(t, err)
	require.Len(t, batch, 2)

	one, _ := e.EmbedText(ctx, "wiring")
	two, _ := e.EmbedText(ctx, "leak")
	assert.Equal(t, one, batch[0])
	assert.Equal(t, two, batch[1])
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"washer", "dryer", "fix", "24x7"}, Tokenize("Washer/Dryer Fix, 24x7!"))
	assert.Empty(t, Tokenize(""))
}
