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


// Package search provides semantic search over vector collections.
//
// The Searcher type embeds a natural-language query and ranks the records of a
// collection by cosine similarity to it. Results below a minimum score are
// dropped and at most limit results are returned, best first.
//
// Compare scores a set of example sentences against one input without
// touching a store, which is useful for inspecting an embedding model.
package search
