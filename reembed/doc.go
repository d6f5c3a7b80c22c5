// Package reembed brings stored technician embeddings up to date with the
// configured embedding model.
//
// A technician is re-embedded when its stored vector is missing, has the wrong
// dimension, or was produced from a different profile or model (its
// EmbeddingHash no longer matches). Work is done in batches with retry and
// exponential backoff, vectors are normalized before they are written, and
// progress is reported to an io.Writer.
package reembed
