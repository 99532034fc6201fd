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


// Package storage provides the vector store abstraction for ragchat.
//
// A VectorStore keeps named collections of (id, text, vector) records and
// answers nearest-neighbour queries by cosine similarity. Three backends
// implement it:
//
//   - memory: volatile, process-local maps
//   - badger: durable BadgerDB files
//   - sqlite: durable SQLite database
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the storage.VectorStore interface:
//
//	store, err := badger.NewStore(path)  // returns storage.VectorStore
//
// # Collections
//
// A collection's dimension is fixed by the first vector written to it.
// Later writes and queries with a different length fail with
// core.ErrDimensionMismatch. Upserting into a missing collection creates it.
//
// # Search Ordering
//
// Results are ordered by descending score. Records with equal scores keep
// their insertion order; replacing a record does not move it.
//
// # Thread Safety
//
// All implementations are safe for concurrent use. A record written by
// Upsert is either fully visible to Search or not visible at all.
//
// # Conformance
//
// The storetest package holds the behavioural suite every backend runs.
package storage
