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

import (
	"context"
	"fmt"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/core"
)

// embedChunks generates embeddings for chunks in batches of at most batchSize.
// Either every chunk gets a vector or an error is returned; vectors are
// checked for a consistent dimension before anything reaches the store.
func embedChunks(ctx context.Context, embedder ai.Embedder, chunks []core.Chunk, batchSize int) ([][]float32, error) {
	if batchSize < 1 {
		batchSize = len(chunks)
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))

		texts := make([]string, end-start)
		for i, chunk := range chunks[start:end] {
			texts[i] = chunk.Text
		}

		batch, err := embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("%w: sent %d texts, got %d embeddings", ai.ErrEmbeddingCount, len(texts), len(batch))
		}
		vectors = append(vectors, batch...)
	}

	for i, vector := range vectors {
		if len(vector) == 0 {
			return nil, fmt.Errorf("chunk %d: %w", i, core.ErrEmptyVector)
		}
		if len(vector) != len(vectors[0]) {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, chunk 0 has %d",
				core.ErrDimensionMismatch, i, len(vector), len(vectors[0]))
		}
	}

	return vectors, nil
}
