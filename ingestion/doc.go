// Package ingestion provides pipeline orchestration for indexing source documents.
//
// The Pipeline type manages the ingestion workflow for a batch of sources, including:
//   - Fetching and extracting text from each source
//   - Splitting text into chunks
//   - Generating embeddings in batches with retry
//   - Upserting the embedded chunks into a vector collection
//
// Sources are processed concurrently on a bounded worker pool. A failure in one
// source is recorded in the Report and never aborts the others; only a
// dimension mismatch, which would corrupt the collection, is returned as an error.
package ingestion
