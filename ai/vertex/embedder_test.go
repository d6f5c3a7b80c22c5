package vertex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
)

func testConfig(dims int) *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(ai.ProviderVertex),
		ai.WithVertexProject("servicelink-test", "us-central1"),
		ai.WithDimensions(dims),
		ai.WithRetries(3, time.Millisecond),
		ai.WithRateLimit(0),
	)
}

func staticToken() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"})
}

// predictHandler answers every instance with a vector of dims copies of its index+1.
func predictHandler(t *testing.T, dims int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req predictRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type values struct {
			Values []float32 `json:"values"`
		}
		type prediction struct {
			Embeddings values `json:"embeddings"`
		}
		resp := struct {
			Predictions []prediction `json:"predictions"`
		}{}
		for i := range req.Instances {
			vec := make([]float32, dims)
			for j := range vec {
				vec[j] = float32(i + 1)
			}
			resp.Predictions = append(resp.Predictions, prediction{Embeddings: values{Values: vec}})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func newTestEmbedder(t *testing.T, url string, dims int) ai.Embedder {
	t.Helper()
	e, err := NewEmbedder(context.Background(), testConfig(dims),
		WithEndpoint(url), WithTokenSource(staticToken()))
	require.NoError(t, err)
	return e
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t,
		"https://us-central1-aiplatform.googleapis.com/v1/projects/p1/locations/us-central1/publishers/google/models/textembedding-gecko:predict",
		Endpoint("p1", "us-central1", "textembedding-gecko"))
}

func TestEmbedText(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		body = string(raw)
		_, _ = w.Write([]byte(`{"predictions":[{"embeddings":{"values":[0.1,0.2,0.3]}}]}`))
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, 3)
	vec, err := e.EmbedText(context.Background(), "water pump not working")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.JSONEq(t, `{"instances":[{"content":"water pump not working"}]}`, body)
	assert.Equal(t, 3, e.Dimensions())
}

func TestEmbedTexts_Batches(t *testing.T) {
	var calls atomic.Int32
	handler := predictHandler(t, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, 2)
	texts := []string{"a", "b", "c", "d", "e", "f", "g"}
	vecs, err := e.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, vecs, 7)
	assert.Equal(t, int32(2), calls.Load(), "seven texts need two requests of at most five")
	assert.Equal(t, []float32{1, 1}, vecs[0])
	assert.Equal(t, []float32{5, 5}, vecs[4])
	assert.Equal(t, []float32{1, 1}, vecs[5], "second batch restarts numbering")
}

func TestEmbedText_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	handler := predictHandler(t, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		handler(w, r)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, 2)
	vec, err := e.EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, vec, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedText_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		wantCalls int32
	}{
		{
			name:      "unauthorized is not retried",
			status:    http.StatusUnauthorized,
			body:      `{"error":"bad token"}`,
			wantErr:   ErrUnexpectedStatus,
			wantCalls: 1,
		},
		{
			name:      "server error exhausts retries",
			status:    http.StatusInternalServerError,
			body:      `oops`,
			wantErr:   ErrUnexpectedStatus,
			wantCalls: 3,
		},
		{
			name:      "missing predictions",
			status:    http.StatusOK,
			body:      `{}`,
			wantErr:   ErrMalformedResponse,
			wantCalls: 1,
		},
		{
			name:      "wrong vector length",
			status:    http.StatusOK,
			body:      `{"predictions":[{"embeddings":{"values":[1,2,3,4]}}]}`,
			wantErr:   ErrMalformedResponse,
			wantCalls: 1,
		},
		{
			name:      "not json",
			status:    http.StatusOK,
			body:      `<html>`,
			wantErr:   ErrMalformedResponse,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			e := newTestEmbedder(t, srv.URL, 2)
			_, err := e.EmbedText(context.Background(), "x")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestNewEmbedder_InvalidConfig(t *testing.T) {
	cfg := ai.NewConfig(ai.WithProvider(ai.ProviderVertex))
	_, err := NewEmbedder(context.Background(), cfg, WithTokenSource(staticToken()))
	assert.ErrorIs(t, err, ai.ErrInvalidConfig)
}
