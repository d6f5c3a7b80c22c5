// Package fallback wraps an ai.Embedder so that embedding never fails.
//
// When the primary backend errors, times out, or returns a vector of the wrong
// length or with non-finite components, the wrapper substitutes a random
// vector of the configured dimension. Search quality degrades but ranking
// always completes. Every substitution is logged, counted, and reported
// through Outcome so callers can tell real vectors from placeholders.
package fallback

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
)

const instrumentationName = "github.com/MohanGuptaKoduru/ServiceLink/ai/fallback"

var (
	// ErrNoPrimary is reported when the wrapper was built without a primary embedder.
	ErrNoPrimary = errors.New("no primary embedder")
	// ErrBatchSize is reported when a batch returns a different number of vectors than texts.
	ErrBatchSize = errors.New("embedder returned wrong number of vectors")
)

// Reason explains why a fallback vector was used.
type Reason string

const (
	ReasonError     Reason = "error"
	ReasonTimeout   Reason = "timeout"
	ReasonCanceled  Reason = "canceled"
	ReasonDimension Reason = "dimension"
	ReasonNonFinite Reason = "non_finite"
)

// Outcome describes how a vector was produced.
type Outcome struct {
	Fallback bool
	Reason   Reason
	// Err is the primary's error, if any.
	Err error
}

// Embedder is an ai.Embedder whose EmbedText never returns an error.
type Embedder struct {
	primary ai.Embedder
	dims    int
	timeout time.Duration
	seed    uint64
	logger  *slog.Logger

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	requests       metric.Int64Counter
	fallbacks      metric.Int64Counter

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithSeed makes the fallback vector sequence reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Embedder) {
		e.seed = seed
	}
}

// WithDimensions overrides the vector length. Defaults to primary.Dimensions().
func WithDimensions(d int) Option {
	return func(e *Embedder) {
		e.dims = d
	}
}

// WithTimeout bounds each call to the primary. Zero means no extra bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Embedder) {
		e.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) {
		e.logger = logger
	}
}

// WithMeterProvider sets where the request and fallback counters are recorded.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Embedder) {
		e.meterProvider = mp
	}
}

// WithTracerProvider sets the provider for embedding spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Embedder) {
		e.tracerProvider = tp
	}
}

// New wraps primary.
func New(primary ai.Embedder, opts ...Option) *Embedder {
	e := &Embedder{
		primary: primary,
		logger:  slog.Default(),
	}
	if primary != nil {
		e.dims = primary.Dimensions()
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.dims <= 0 {
		e.dims = ai.DefaultDimensions
	}
	if e.seed == 0 {
		e.seed = uint64(time.Now().UnixNano())
	}
	e.rng = rand.New(rand.NewPCG(e.seed, e.seed^0x9e3779b97f4a7c15))
	e.logger = e.logger.With("component", "fallback-embedder")

	if e.meterProvider == nil {
		e.meterProvider = otel.GetMeterProvider()
	}
	if e.tracerProvider == nil {
		e.tracerProvider = otel.GetTracerProvider()
	}
	meter := e.meterProvider.Meter(instrumentationName)
	e.requests, _ = meter.Int64Counter("servicelink.embedding.requests",
		metric.WithDescription("Embedding requests by outcome"))
	e.fallbacks, _ = meter.Int64Counter("servicelink.embedding.fallbacks",
		metric.WithDescription("Fallback vectors substituted for failed embeddings"))
	e.tracer = e.tracerProvider.Tracer(instrumentationName)
	return e
}

// Dimensions returns D.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// EmbedText returns the primary's vector or a fallback vector. The error is always nil.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec, _ := e.EmbedTextOutcome(ctx, text)
	return vec, nil
}

// EmbedTextOutcome embeds text and reports whether a fallback was used.
// The returned vector always has length Dimensions() and finite components.
func (e *Embedder) EmbedTextOutcome(ctx context.Context, text string) ([]float32, Outcome) {
	ctx, span := e.tracer.Start(ctx, "fallback.EmbedText")
	defer span.End()

	if e.primary == nil {
		outcome := Outcome{Fallback: true, Reason: ReasonError, Err: ErrNoPrimary}
		return e.substitute(ctx, outcome), outcome
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	vec, err := e.primary.EmbedText(callCtx, text)
	if outcome := e.check(vec, err); outcome.Fallback {
		span.SetAttributes(attribute.String("fallback.reason", string(outcome.Reason)))
		return e.substitute(ctx, outcome), outcome
	}
	e.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ok")))
	return vec, Outcome{}
}

// EmbedTexts embeds texts in one primary batch. A failed batch falls back for
// every text; an invalid individual vector falls back only for that text.
// The error is always nil.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	var batch [][]float32
	var err error
	if e.primary == nil {
		err = ErrNoPrimary
	} else {
		batch, err = e.primary.EmbedTexts(ctx, texts)
		if err == nil && len(batch) != len(texts) {
			err = ErrBatchSize
		}
	}

	for i := range texts {
		var vec []float32
		if err == nil {
			vec = batch[i]
		}
		outcome := e.check(vec, err)
		if outcome.Fallback {
			out[i] = e.substitute(ctx, outcome)
			continue
		}
		e.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ok")))
		out[i] = vec
	}
	return out, nil
}

func (e *Embedder) check(vec []float32, err error) Outcome {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Outcome{Fallback: true, Reason: ReasonTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return Outcome{Fallback: true, Reason: ReasonCanceled, Err: err}
	case err != nil:
		return Outcome{Fallback: true, Reason: ReasonError, Err: err}
	case len(vec) != e.dims:
		return Outcome{Fallback: true, Reason: ReasonDimension}
	case !core.IsFinite(vec):
		return Outcome{Fallback: true, Reason: ReasonNonFinite}
	}
	return Outcome{}
}

func (e *Embedder) substitute(ctx context.Context, outcome Outcome) []float32 {
	e.logger.Warn("embedding failed, using fallback vector",
		"reason", outcome.Reason,
		"dimensions", e.dims,
		"err", outcome.Err)
	reason := attribute.String("reason", string(outcome.Reason))
	e.fallbacks.Add(ctx, 1, metric.WithAttributes(reason))
	e.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "fallback")))
	return e.Vector()
}

// Vector draws a fallback vector with components uniform in [-0.5, 0.5).
func (e *Embedder) Vector() []float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	vec := make([]float32, e.dims)
	for i := range vec {
		vec[i] = float32(e.rng.Float64() - 0.5)
	}
	return vec
}
