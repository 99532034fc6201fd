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


// Package chunker splits document text into bounded, embeddable chunks.
//
// Text is processed in two passes. Each line is first packed into segments
// of at most MaxTokensPerLine tokens. Segments are then merged greedily into
// paragraphs of at most MaxTokensPerParagraph tokens, optionally seeding
// each paragraph with the trailing tokens of the previous one.
//
// Token counts come from a Counter. The default counts whitespace-separated
// words; NewTiktokenCounter counts BPE tokens the way embedding models do.
// A single token that exceeds a limit on its own is never split and is
// emitted as its own chunk.
package chunker
