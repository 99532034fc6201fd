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


// Package conversation runs retrieval-augmented chat turns.
//
// A Conversation is an append-only log of committed messages. Each turn, the
// Manager retrieves context for the user's message, builds a fresh view of the
// log with that context placed just before the user message, and streams the
// model's reply over the view. Only the user message and a non-empty reply
// are committed, so retrieved context never enters the log and a failed turn
// leaves the log unchanged.
//
// A Registry maps tool names to retrieval-style functions that the chat
// front end can call directly.
package conversation
