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


package search

import (
	"fmt"
	"io"

	"github.com/poiesic/ragchat/core"
)

// SearchMonitor receives callbacks at each stage of a search.
type SearchMonitor interface {
	Start(collection, query string)
	AfterEmbedding(vector []float32)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)             {}
func (n *noopMonitor) AfterEmbedding(_ []float32)    {}
func (n *noopMonitor) Finish(_ []*core.SearchResult) {}

// WriterMonitor prints search progress to a writer.
type WriterMonitor struct {
	w io.Writer
}

var _ SearchMonitor = (*WriterMonitor)(nil)

// NewWriterMonitor creates a monitor that reports to w.
func NewWriterMonitor(w io.Writer) *WriterMonitor {
	return &WriterMonitor{w: w}
}

func (m *WriterMonitor) Start(collection, query string) {
	fmt.Fprintf(m.w, "searching %q for %q\n", collection, query)
}

func (m *WriterMonitor) AfterEmbedding(vector []float32) {
	fmt.Fprintf(m.w, "query embedded (%d dimensions)\n", len(vector))
}

func (m *WriterMonitor) Finish(results []*core.SearchResult) {
	fmt.Fprintf(m.w, "%d results\n", len(results))
	for i, r := range results {
		fmt.Fprintf(m.w, "%2d. %.4f  %s\n", i+1, r.Score, r.Record.Text)
	}
}
