package observe

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestProvider_ServesMetrics(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, Config{ServiceName: "servicelink-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	counter, err := p.MeterProvider().Meter("test").Int64Counter("servicelink.test.requests",
		metric.WithDescription("test counter"))
	require.NoError(t, err)
	counter.Add(ctx, 3)

	srv := httptest.NewServer(p.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "servicelink_test_requests")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestProvider_RecordsSpans(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	p, err := New(ctx, Config{TraceExporter: exporter})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	_, span := p.TracerProvider().Tracer("test").Start(ctx, "search.Search")
	span.End()

	require.NoError(t, p.tracerProvider.ForceFlush(ctx))
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "search.Search", spans[0].Name)
}

func TestLogger(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	Logger(ctx, base).Info("no span")
	assert.NotContains(t, buf.String(), "trace_id")
	assert.Empty(t, CorrelationID(ctx))

	spanCtx, span := p.TracerProvider().Tracer("test").Start(ctx, "op")
	defer span.End()

	buf.Reset()
	Logger(spanCtx, base).Info("with span")
	assert.Contains(t, buf.String(), "trace_id="+CorrelationID(spanCtx))
	assert.Len(t, CorrelationID(spanCtx), 32)
}
