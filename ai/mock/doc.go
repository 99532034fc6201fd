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


// Package mock provides test doubles for the ai package interfaces.
//
// # Usage
//
//	// Deterministic vectors derived from a hash of the text
//	mockEmbedder := mock.NewMockEmbedder().
//	    WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	        return []float32{0.1, 0.2, 0.3}, nil
//	    })
//
//	// Bag-of-words vectors so texts sharing words score higher
//	keywords := mock.NewKeywordEmbedder(256, "turtle", "reptile")
//
//	// Scripted streaming replies
//	chat := mock.NewMockChat("Hello", ", world")
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - KeywordEmbedder: Counts content words, ignoring common stop words
//   - MockChat: Streams its scripted fragments and records every history it saw
//   - MockProvider: Aggregates a MockEmbedder and a MockChat
//
// All doubles are safe for concurrent use.
package mock
