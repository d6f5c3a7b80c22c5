// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder implements ai.Embedder and MockResponder implements ai.Responder.
// Both are safe to call from multiple goroutines, which matters because the
// search ranker embeds technicians concurrently.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	embedder := mock.NewMockEmbedder().WithDimensions(8)
//	vec, err := embedder.EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	failing := mock.NewMockEmbedder().
//	    WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	        return nil, errors.New("backend down")
//	    })
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: unit-length vectors derived from an FNV hash of the text
//   - MockResponder: replies "echo: <message>"
package mock
