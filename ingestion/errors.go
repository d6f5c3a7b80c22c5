package ingestion

import "errors"

var (
	// ErrRepositoryRequired is returned when a technician repository is not provided.
	ErrRepositoryRequired = errors.New("technician repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
