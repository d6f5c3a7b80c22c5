// Package ai provides abstractions for the AI services used by ServiceLink.
//
// The package defines two interfaces:
//
//   - Embedder: turns technician profiles and search queries into vectors
//   - Responder: answers customer chat messages
//
// # Implementation Packages
//
//   - ai/vertex: Google Vertex AI text embeddings over HTTPS with OAuth2 credentials
//   - ai/openai: OpenAI-compatible embeddings and chat through langchaingo
//   - ai/hashing: offline feature-hashing embedder, no network access
//   - ai/fallback: wraps any Embedder and substitutes a random vector on failure
//   - ai/mock: test doubles for unit testing without external dependencies
//
// Public constructors return interface types. Test utility constructors
// (mock.NewMockEmbedder) return concrete types so tests can inject behaviour
// and assert on call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(
//	    ai.WithProvider(ai.ProviderVertex),
//	    ai.WithVertexProject("my-project", "us-central1"),
//	    ai.WithCredentialsFile("service-account.json"),
//	)
//	primary, err := vertex.NewEmbedder(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	embedder := fallback.New(primary)
//	vec, _ := embedder.EmbedText(ctx, "leaking kitchen tap")
package ai
