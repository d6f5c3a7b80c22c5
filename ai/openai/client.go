package openai

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
)

// httpClient returns the traced client shared by the embedder and chat model.
// A zero Timeout leaves requests bounded only by their context.
func httpClient(config *ai.Config) *http.Client {
	return &http.Client{
		Timeout:   config.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
