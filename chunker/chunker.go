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


package chunker

import (
	"iter"
	"strings"

	"github.com/poiesic/ragchat/core"
)

const (
	// DefaultMaxTokensPerLine bounds a single line segment.
	DefaultMaxTokensPerLine = 64
	// DefaultMaxTokensPerParagraph bounds an emitted chunk.
	DefaultMaxTokensPerParagraph = 512
)

// Chunker splits text into chunks. A Chunker holds only configuration and is
// safe for concurrent use.
type Chunker struct {
	maxLineTokens      int
	maxParagraphTokens int
	overlap            int
	counter            Counter
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxTokensPerLine sets the segment limit used in the line pass.
func WithMaxTokensPerLine(n int) Option {
	return func(c *Chunker) {
		c.maxLineTokens = n
	}
}

// WithMaxTokensPerParagraph sets the chunk limit used in the paragraph pass.
func WithMaxTokensPerParagraph(n int) Option {
	return func(c *Chunker) {
		c.maxParagraphTokens = n
	}
}

// WithOverlap sets how many trailing tokens of a chunk are repeated at the
// start of the next one. The repeated tokens are trimmed when the next
// chunk would otherwise exceed its limit.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		c.overlap = n
	}
}

// WithCounter replaces the token counting policy.
func WithCounter(counter Counter) Option {
	return func(c *Chunker) {
		c.counter = counter
	}
}

// New creates a Chunker. Limits below 1 are raised to 1 and the line limit
// never exceeds the paragraph limit.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxLineTokens:      DefaultMaxTokensPerLine,
		maxParagraphTokens: DefaultMaxTokensPerParagraph,
		counter:            WordCounter,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.maxParagraphTokens < 1 {
		c.maxParagraphTokens = 1
	}
	if c.maxLineTokens < 1 {
		c.maxLineTokens = 1
	}
	if c.maxLineTokens > c.maxParagraphTokens {
		c.maxLineTokens = c.maxParagraphTokens
	}
	if c.overlap < 0 {
		c.overlap = 0
	}
	if c.counter == nil {
		c.counter = WordCounter
	}
	return c
}

// Chunk splits text with the word counter and the given limits.
func Chunk(text string, maxTokensPerLine, maxTokensPerParagraph, overlap int) []core.Chunk {
	c := New(
		WithMaxTokensPerLine(maxTokensPerLine),
		WithMaxTokensPerParagraph(maxTokensPerParagraph),
		WithOverlap(overlap),
	)
	return c.Split("", text)
}

// Split returns every chunk of text. Empty or whitespace-only text yields no chunks.
func (c *Chunker) Split(source, text string) []core.Chunk {
	var chunks []core.Chunk
	for chunk := range c.All(source, text) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// All returns a lazy sequence of the chunks of text. The sequence can be
// ranged over more than once.
func (c *Chunker) All(source, text string) iter.Seq[core.Chunk] {
	return func(yield func(core.Chunk) bool) {
		var (
			current [][]string
			ordinal int
		)

		emit := func() bool {
			body := render(current)
			chunk := core.Chunk{
				Source:  source,
				Ordinal: ordinal,
				Text:    body,
				Tokens:  c.counter.Count(body),
			}
			ordinal++
			return yield(chunk)
		}

		for _, seg := range c.lineSegments(text) {
			if len(current) == 0 {
				current = [][]string{seg}
				continue
			}
			if c.fits(current, seg) {
				current = append(current, seg)
				continue
			}
			if !emit() {
				return
			}

			seed := c.overlapSeed(current, seg)
			current = nil
			if len(seed) > 0 {
				current = append(current, seed)
			}
			current = append(current, seg)
		}

		if len(current) > 0 {
			emit()
		}
	}
}

// lineSegments packs the words of each line into segments within the line limit.
func (c *Chunker) lineSegments(text string) [][]string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var segments [][]string
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		var cur []string
		for _, w := range words {
			if len(cur) == 0 {
				cur = []string{w}
				continue
			}
			if c.counter.Count(strings.Join(cur, " ")+" "+w) <= c.maxLineTokens {
				cur = append(cur, w)
				continue
			}
			segments = append(segments, cur)
			cur = []string{w}
		}
		segments = append(segments, cur)
	}
	return segments
}

func (c *Chunker) fits(paragraph [][]string, seg []string) bool {
	return c.counter.Count(render(paragraph)+"\n"+strings.Join(seg, " ")) <= c.maxParagraphTokens
}

// overlapSeed returns the trailing words of paragraph that can precede seg
// without breaking the paragraph limit.
func (c *Chunker) overlapSeed(paragraph [][]string, seg []string) []string {
	if c.overlap == 0 {
		return nil
	}

	var words []string
	for _, s := range paragraph {
		words = append(words, s...)
	}
	seed := words[max(0, len(words)-c.overlap):]
	for len(seed) > 0 && !c.fits([][]string{seed}, seg) {
		seed = seed[1:]
	}
	return seed
}

func render(segments [][]string) string {
	lines := make([]string, len(segments))
	for i, seg := range segments {
		lines[i] = strings.Join(seg, " ")
	}
	return strings.Join(lines, "\n")
}
