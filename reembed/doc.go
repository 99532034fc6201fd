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


// Package reembed copies a vector collection into a new collection using a
// different embedding model.
//
// Records are read from the source collection in insertion order, embedded in
// batches with retry and exponential backoff, normalized to unit length, and
// written to the target collection under their original IDs. Progress is
// reported to a writer as the copy proceeds.
package reembed
