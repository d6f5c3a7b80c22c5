package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the length of every vector this embedder produces.
	Dimensions() int
}

// Responder produces conversational replies for the customer help chat.
// Implementations must be thread-safe for concurrent use.
type Responder interface {
	// Reply answers message in the conversation identified by sessionID.
	// Replies within one session see the earlier turns of that session.
	Reply(ctx context.Context, sessionID, message string) (string, error)
}
