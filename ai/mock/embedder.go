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


package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/poiesic/ragchat/ai"
)

// DefaultDimension is the vector length produced by MockEmbedder.
const DefaultDimension = 384

// MockEmbedder is a test double for ai.Embedder.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, embeds each text with EmbedTextFunc or the default behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu        sync.Mutex
	callCount int
}

var _ ai.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// WithEmbedTextFunc sets EmbedTextFunc and returns the embedder.
func (m *MockEmbedder) WithEmbedTextFunc(fn func(ctx context.Context, text string) ([]float32, error)) *MockEmbedder {
	m.EmbedTextFunc = fn
	return m
}

// WithEmbedTextsFunc sets EmbedTextsFunc and returns the embedder.
func (m *MockEmbedder) WithEmbedTextsFunc(fn func(ctx context.Context, texts []string) ([][]float32, error)) *MockEmbedder {
	m.EmbedTextsFunc = fn
	return m
}

func (m *MockEmbedder) count() {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()
}

// EmbedText generates a deterministic embedding based on text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.count()
	return m.embed(ctx, text)
}

func (m *MockEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return generateDeterministicVector(text, DefaultDimension), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.count()

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = v
	}
	return embeddings, nil
}

// CallCount returns the number of times any method was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// generateDeterministicVector creates a deterministic unit vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func generateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	var sumSquares float64
	for i := range vector {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 - 0.5
		sumSquares += float64(vector[i]) * float64(vector[i])
	}

	if sumSquares > 0 {
		norm := math.Sqrt(sumSquares)
		for i := range vector {
			vector[i] = float32(float64(vector[i]) / norm)
		}
	}
	return vector
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// Keywords splits text into words, lowercases, trims punctuation, and removes stop words.
func Keywords(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}
	return filtered
}

// KeywordEmbedder embeds text as a bag of content words.
//
// Words in the vocabulary passed to NewKeywordEmbedder get a dimension of
// their own. Other words are hashed into the remaining dimensions, where
// unrelated words may collide.
type KeywordEmbedder struct {
	dim   int
	vocab map[string]int

	mu        sync.Mutex
	callCount int
}

var _ ai.Embedder = (*KeywordEmbedder)(nil)

// NewKeywordEmbedder creates a KeywordEmbedder producing vectors of length dim.
// dim is raised if it leaves fewer than 16 hashed dimensions.
func NewKeywordEmbedder(dim int, vocabulary ...string) *KeywordEmbedder {
	vocab := make(map[string]int, len(vocabulary))
	for _, word := range vocabulary {
		word = strings.ToLower(word)
		if _, ok := vocab[word]; !ok {
			vocab[word] = len(vocab)
		}
	}
	if dim < len(vocab)+16 {
		dim = len(vocab) + 16
	}
	return &KeywordEmbedder{dim: dim, vocab: vocab}
}

// Dimension returns the vector length.
func (k *KeywordEmbedder) Dimension() int {
	return k.dim
}

func (k *KeywordEmbedder) vector(text string) []float32 {
	v := make([]float32, k.dim)
	hashed := k.dim - len(k.vocab)
	for _, word := range Keywords(text) {
		if i, ok := k.vocab[word]; ok {
			v[i]++
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		v[len(k.vocab)+int(h.Sum32()%uint32(hashed))]++
	}
	return v
}

// EmbedText returns the keyword vector of text.
func (k *KeywordEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	k.mu.Lock()
	k.callCount++
	k.mu.Unlock()
	return k.vector(text), nil
}

// EmbedTexts returns the keyword vector of each text.
func (k *KeywordEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	k.mu.Lock()
	k.callCount++
	k.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = k.vector(text)
	}
	return vectors, nil
}

// CallCount returns the number of times any method was called.
func (k *KeywordEmbedder) CallCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.callCount
}
