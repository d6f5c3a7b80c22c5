package fallback

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MohanGuptaKoduru/ServiceLink/ai/mock"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
)

func failing(err error) *mock.MockEmbedder {
	return mock.NewMockEmbedder().WithDimensions(8).WithEmbedTextFunc(
		func(ctx context.Context, text string) ([]float32, error) {
			return nil, err
		})
}

func TestEmbedText_PassesThroughValidVectors(t *testing.T) {
	primary := mock.NewMockEmbedder().WithDimensions(8)
	e := New(primary)

	vec, outcome := e.EmbedTextOutcome(context.Background(), "leaking tap")
	assert.False(t, outcome.Fallback)
	assert.Equal(t, mock.DeterministicVector("leaking tap", 8), vec)
	assert.Equal(t, 8, e.Dimensions())
}

func TestEmbedText_NeverErrors(t *testing.T) {
	tests := []struct {
		name       string
		primary    *mock.MockEmbedder
		wantReason Reason
	}{
		{
			name:       "backend error",
			primary:    failing(errors.New("unreachable")),
			wantReason: ReasonError,
		},
		{
			name:       "timeout",
			primary:    failing(context.DeadlineExceeded),
			wantReason: ReasonTimeout,
		},
		{
			name:       "canceled",
			primary:    failing(context.Canceled),
			wantReason: ReasonCanceled,
		},
		{
			name: "wrong dimension",
			primary: mock.NewMockEmbedder().WithDimensions(8).WithEmbedTextFunc(
				func(ctx context.Context, text string) ([]float32, error) {
					return make([]float32, 768), nil
				}),
			wantReason: ReasonDimension,
		},
		{
			name: "non-finite output",
			primary: mock.NewMockEmbedder().WithDimensions(2).WithEmbedTextFunc(
				func(ctx context.Context, text string) ([]float32, error) {
					return []float32{1, float32(math.NaN())}, nil
				}),
			wantReason: ReasonNonFinite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.primary, WithSeed(7))
			vec, err := e.EmbedText(context.Background(), "anything")
			require.NoError(t, err)
			assert.Len(t, vec, tt.primary.Dimensions())
			assert.True(t, core.IsFinite(vec))

			_, outcome := e.EmbedTextOutcome(context.Background(), "anything")
			assert.True(t, outcome.Fallback)
			assert.Equal(t, tt.wantReason, outcome.Reason)
		})
	}
}

func TestEmbedText_EmptyTextIsEmbedded(t *testing.T) {
	primary := mock.NewMockEmbedder().WithDimensions(4)
	e := New(primary)

	vec, outcome := e.EmbedTextOutcome(context.Background(), "")
	assert.False(t, outcome.Fallback)
	assert.Len(t, vec, 4)
	assert.Equal(t, []string{""}, primary.Texts())
}

func TestEmbedText_TimeoutOption(t *testing.T) {
	primary := mock.NewMockEmbedder().WithDimensions(4).WithEmbedTextFunc(
		func(ctx context.Context, text string) ([]float32, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	e := New(primary, WithTimeout(10*time.Millisecond))

	vec, outcome := e.EmbedTextOutcome(context.Background(), "slow")
	assert.Len(t, vec, 4)
	assert.Equal(t, ReasonTimeout, outcome.Reason)
}

func TestWithSeed_Reproducible(t *testing.T) {
	a := New(failing(errors.New("down")), WithSeed(42))
	b := New(failing(errors.New("down")), WithSeed(42))
	c := New(failing(errors.New("down")), WithSeed(43))

	va, _ := a.EmbedText(context.Background(), "x")
	vb, _ := b.EmbedText(context.Background(), "x")
	vc, _ := c.EmbedText(context.Background(), "x")

	assert.Equal(t, va, vb)
	assert.NotEqual(t, va, vc)
	for _, v := range va {
		assert.GreaterOrEqual(t, v, float32(-0.5))
		assert.Less(t, v, float32(0.5))
	}
}

func TestNew_NilPrimary(t *testing.T) {
	e := New(nil, WithDimensions(16))

	vec, outcome := e.EmbedTextOutcome(context.Background(), "x")
	assert.Len(t, vec, 16)
	assert.ErrorIs(t, outcome.Err, ErrNoPrimary)
}

func TestEmbedTexts(t *testing.T) {
	t.Run("batch failure falls back for every text", func(t *testing.T) {
		primary := mock.NewMockEmbedder().WithDimensions(4)
		primary.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("down")
		}
		e := New(primary, WithSeed(1))

		vecs, err := e.EmbedTexts(context.Background(), []string{"a", "b", "c"})
		require.NoError(t, err)
		require.Len(t, vecs, 3)
		for _, v := range vecs {
			assert.Len(t, v, 4)
		}
	})

	t.Run("only the bad vector is replaced", func(t *testing.T) {
		primary := mock.NewMockEmbedder().WithDimensions(2)
		primary.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1, 0}, {1, 2, 3}}, nil
		}
		e := New(primary, WithSeed(1))

		vecs, err := e.EmbedTexts(context.Background(), []string{"good", "bad"})
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0}, vecs[0])
		assert.Len(t, vecs[1], 2)
	})

	t.Run("wrong batch size", func(t *testing.T) {
		primary := mock.NewMockEmbedder().WithDimensions(2)
		primary.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil
		}
		e := New(primary)

		vecs, err := e.EmbedTexts(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Len(t, vecs, 2)
	})
}

func TestFallbackCounter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	e := New(failing(errors.New("down")), WithMeterProvider(mp))

	for i := 0; i < 3; i++ {
		_, _ = e.EmbedText(context.Background(), "x")
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "servicelink.embedding.fallbacks" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(3), total)
}
