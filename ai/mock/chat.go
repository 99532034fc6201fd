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
	"iter"
	"slices"
	"sync"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/core"
)

// MockChat is a test double for ai.ChatModel.
type MockChat struct {
	// ReplyFunc scripts the reply to a history. The returned fragments are
	// streamed first; a non-nil error is delivered after them.
	// If nil, the fragments passed to NewMockChat are streamed.
	ReplyFunc func(ctx context.Context, history []core.Message) ([]string, error)

	fragments []string

	mu        sync.Mutex
	histories [][]core.Message
}

var _ ai.ChatModel = (*MockChat)(nil)

// NewMockChat creates a chat double that replies with fragments.
// With no fragments it replies "ok".
func NewMockChat(fragments ...string) *MockChat {
	if len(fragments) == 0 {
		fragments = []string{"ok"}
	}
	return &MockChat{fragments: fragments}
}

// WithReplyFunc sets ReplyFunc and returns the chat.
func (m *MockChat) WithReplyFunc(fn func(ctx context.Context, history []core.Message) ([]string, error)) *MockChat {
	m.ReplyFunc = fn
	return m
}

// StreamReply records history and streams the scripted reply.
func (m *MockChat) StreamReply(ctx context.Context, history []core.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		m.mu.Lock()
		m.histories = append(m.histories, slices.Clone(history))
		m.mu.Unlock()

		fragments, err := m.fragments, error(nil)
		if m.ReplyFunc != nil {
			fragments, err = m.ReplyFunc(ctx, history)
		}

		for _, fragment := range fragments {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield("", ctxErr)
				return
			}
			if !yield(fragment, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}

// CallCount returns the number of replies requested.
func (m *MockChat) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.histories)
}

// Histories returns a copy of every history the chat was asked to answer.
func (m *MockChat) Histories() [][]core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.histories)
}

// LastHistory returns the most recent history, or nil.
func (m *MockChat) LastHistory() []core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.histories) == 0 {
		return nil
	}
	return m.histories[len(m.histories)-1]
}
