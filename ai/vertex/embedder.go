// Package vertex implements ai.Embedder against the Google Vertex AI
// text-embedding prediction API.
package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/retry"
)

// maxInstancesPerRequest is the largest batch sent in one :predict call.
const maxInstancesPerRequest = 5

// Embedder calls the Vertex AI :predict endpoint.
type Embedder struct {
	client     *http.Client
	endpoint   string
	dims       int
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

type options struct {
	httpClient  *http.Client
	endpoint    string
	tokenSource oauth2.TokenSource
	logger      *slog.Logger
}

// Option customizes the embedder.
type Option func(*options)

// WithHTTPClient sets the base client. Its transport is wrapped with OAuth2 credentials.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithEndpoint overrides the prediction URL.
func WithEndpoint(url string) Option {
	return func(o *options) {
		o.endpoint = url
	}
}

// WithTokenSource supplies credentials directly instead of deriving them from the config.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(o *options) {
		o.tokenSource = ts
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Endpoint builds the :predict URL for a publisher model.
func Endpoint(projectID, location, model string) string {
	return fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		location, projectID, location, model)
}

func newEmbedder(ctx context.Context, config *ai.Config, opts ...Option) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	base := o.httpClient
	if base == nil {
		base = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if o.endpoint == "" {
		o.endpoint = Endpoint(config.ProjectID, config.Location, config.EmbeddingModel)
	}
	if o.tokenSource == nil {
		ts, err := NewTokenSource(ctx, config, base)
		if err != nil {
			return nil, err
		}
		o.tokenSource = ts
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	return &Embedder{
		client: &http.Client{
			Transport: &oauth2.Transport{Source: o.tokenSource, Base: base.Transport},
			Timeout:   config.Timeout,
		},
		endpoint:   o.endpoint,
		dims:       config.Dimensions,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
		logger:     o.logger.With("component", "vertex-embedder"),
	}, nil
}

// NewEmbedder creates a Vertex AI embedder from the configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(ctx context.Context, config *ai.Config, opts ...Option) (ai.Embedder, error) {
	return newEmbedder(ctx, config, opts...)
}

type instance struct {
	Content string `json:"content"`
}

type predictRequest struct {
	Instances []instance `json:"instances"`
}

type predictResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.predict(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts generates embeddings for texts, splitting them into requests of
// at most maxInstancesPerRequest instances.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxInstancesPerRequest {
		end := min(start+maxInstancesPerRequest, len(texts))
		vecs, err := e.predict(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Dimensions returns the configured vector length.
func (e *Embedder) Dimensions() int {
	return e.dims
}

func (e *Embedder) predict(ctx context.Context, texts []string) ([][]float32, error) {
	body := predictRequest{Instances: make([]instance, len(texts))}
	for i, text := range texts {
		body.Instances[i] = instance{Content: text}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("requesting embeddings", "count", len(texts))

	var vecs [][]float32
	err = retry.WithBackoff(ctx, func() error {
		if err := e.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		var callErr error
		vecs, callErr = e.call(ctx, payload, len(texts))
		return callErr
	}, e.maxRetries, e.retryDelay)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	return vecs, nil
}

func (e *Embedder) call(ctx context.Context, payload []byte, want int) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, bytes.TrimSpace(snippet))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, statusErr
		}
		return nil, retry.Permanent(statusErr)
	}

	var decoded predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: %w", ErrMalformedResponse, err))
	}
	if len(decoded.Predictions) != want {
		return nil, retry.Permanent(fmt.Errorf("%w: got %d predictions, want %d",
			ErrMalformedResponse, len(decoded.Predictions), want))
	}

	vecs := make([][]float32, want)
	for i, p := range decoded.Predictions {
		values := p.Embeddings.Values
		if len(values) != e.dims {
			return nil, retry.Permanent(fmt.Errorf("%w: prediction %d has %d values, want %d",
				ErrMalformedResponse, i, len(values), e.dims))
		}
		if !core.IsFinite(values) {
			return nil, retry.Permanent(fmt.Errorf("%w: prediction %d has non-finite values", ErrMalformedResponse, i))
		}
		vecs[i] = values
	}
	return vecs, nil
}
