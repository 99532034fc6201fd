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


package conversation

import (
	"fmt"
	"io"
	"sync"

	"github.com/poiesic/ragchat/core"
)

// Phase is a step of a turn.
type Phase int

// Turn phases, in the order a successful turn visits them.
const (
	PhaseIdle Phase = iota
	PhaseQueryReceived
	PhaseContextSearched
	PhaseContextInjected
	PhaseReplyAwaited
	PhaseReplyAppended
	PhaseContextRemoved
)

var phaseNames = [...]string{
	PhaseIdle:            "idle",
	PhaseQueryReceived:   "query-received",
	PhaseContextSearched: "context-searched",
	PhaseContextInjected: "context-injected",
	PhaseReplyAwaited:    "reply-awaited",
	PhaseReplyAppended:   "reply-appended",
	PhaseContextRemoved:  "context-removed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// TurnMonitor receives callbacks as a turn progresses.
// Every turn that starts ends with PhaseIdle, whether or not it succeeded.
type TurnMonitor interface {
	Phase(conversationID string, phase Phase)
	Retrieved(conversationID string, results []*core.SearchResult)
	Injected(conversationID string, context core.Message)
}

// noopMonitor is a no-op implementation of TurnMonitor
type noopMonitor struct{}

var _ TurnMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Phase(_ string, _ Phase)                    {}
func (n *noopMonitor) Retrieved(_ string, _ []*core.SearchResult) {}
func (n *noopMonitor) Injected(_ string, _ core.Message)          {}

// WriterMonitor prints turn progress to a writer, one line per event.
type WriterMonitor struct {
	mu sync.Mutex
	w  io.Writer
}

var _ TurnMonitor = (*WriterMonitor)(nil)

// NewWriterMonitor creates a monitor that reports to w.
func NewWriterMonitor(w io.Writer) *WriterMonitor {
	return &WriterMonitor{w: w}
}

func (m *WriterMonitor) printf(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.w, format, args...)
}

func (m *WriterMonitor) Phase(id string, phase Phase) {
	m.printf("[%s] %s\n", shortID(id), phase)
}

func (m *WriterMonitor) Retrieved(id string, results []*core.SearchResult) {
	m.printf("[%s] retrieved %d records\n", shortID(id), len(results))
}

func (m *WriterMonitor) Injected(id string, msg core.Message) {
	m.printf("[%s] injected %s context (%d bytes)\n", shortID(id), msg.Role, len(msg.Content))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
