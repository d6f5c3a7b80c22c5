package vertex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
)

func TestNewBrokerTokenSource_EmptyURL(t *testing.T) {
	_, err := NewBrokerTokenSource("", nil)
	assert.ErrorIs(t, err, ErrTokenEndpointMissing)
}

func TestBrokerTokenSource(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"access_token":"abc","expires_in":3600}`))
	}))
	defer srv.Close()

	ts, err := NewBrokerTokenSource(srv.URL, srv.Client())
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)

	_, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "valid token should be reused")
}

func TestBrokerTokenSource_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"Failed to generate access token"}`},
		{name: "empty token", status: http.StatusOK, body: `{"access_token":""}`},
		{name: "not json", status: http.StatusOK, body: `nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ts, err := NewBrokerTokenSource(srv.URL, srv.Client())
			require.NoError(t, err)
			_, err = ts.Token()
			assert.ErrorIs(t, err, ErrTokenExchange)
		})
	}
}

func TestNewTokenSource_PrefersBroker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"from-broker"}`))
	}))
	defer srv.Close()

	cfg := ai.NewConfig(ai.WithTokenURL(srv.URL), ai.WithCredentialsFile("/does/not/exist.json"))
	ts, err := NewTokenSource(context.Background(), cfg, srv.Client())
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "from-broker", tok.AccessToken)
}

func TestNewTokenSource_MissingCredentialsFile(t *testing.T) {
	cfg := ai.NewConfig(ai.WithCredentialsFile("/does/not/exist.json"))
	_, err := NewTokenSource(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewServiceAccountTokenSource_BadKey(t *testing.T) {
	_, err := NewServiceAccountTokenSource(context.Background(), []byte(`{"type":"service_account"`))
	assert.Error(t, err)
}

func TestEmbedder_UsesBrokerToken(t *testing.T) {
	broker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"test-token"}`))
	}))
	defer broker.Close()
	predict := httptest.NewServer(predictHandler(t, 2))
	defer predict.Close()

	cfg := testConfig(2)
	cfg.TokenURL = broker.URL
	e, err := NewEmbedder(context.Background(), cfg, WithEndpoint(predict.URL))
	require.NoError(t, err)

	vec, err := e.EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1}, vec)
}
