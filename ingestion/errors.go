// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrFetcherRequired is returned when a document fetcher is not provided.
	ErrFetcherRequired = errors.New("document fetcher required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmbedding is returned when a source's chunks cannot be embedded.
	ErrEmbedding = errors.New("embedding failed")

	// ErrNoChunks is returned when a source produces no chunks.
	ErrNoChunks = errors.New("source produced no chunks")

	// ErrInvalidOption is returned when a pipeline option has an invalid value.
	ErrInvalidOption = errors.New("invalid pipeline option")
)
