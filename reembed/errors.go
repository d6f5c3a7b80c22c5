package reembed

import "errors"

var (
	// ErrEmbeddingCount is returned when a batch yields a different number of vectors than texts.
	ErrEmbeddingCount = errors.New("embedding count mismatch")

	// ErrInvalidVector marks a vector with the wrong length or non-finite components.
	ErrInvalidVector = errors.New("embedder returned an unusable vector")
)
