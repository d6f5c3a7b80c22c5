// Package ingestion adds technician profiles to the datastore and embeds them
// in the background.
//
// Ingest stores the records synchronously and hands their IDs to a worker pool
// that computes and writes back each profile's embedding. Failures in that
// background step are logged and counted but never fail the ingestion: a
// technician without a stored vector is embedded on demand by the search
// cache or by the reembed command.
package ingestion
