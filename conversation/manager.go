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
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/search"
)

// errStopped is returned internally when the consumer of a streamed turn stops early.
var errStopped = errors.New("turn stopped by consumer")

// Retrieval selects the context searched for each turn.
// An empty Collection disables retrieval.
type Retrieval struct {
	Collection string
	Limit      int
	MinScore   float32
}

// Reply is the outcome of a completed turn.
type Reply struct {
	// Content is the assistant's full reply.
	Content string
	// Context holds the search results the reply was grounded on.
	Context []*core.SearchResult
	// Committed reports whether the turn was added to the conversation.
	// A reply with no content is not committed, and the user's input is
	// dropped with it, so the conversation does not grow.
	Committed bool
}

// Manager runs retrieval-augmented turns against conversations.
// A Manager is safe for concurrent use across different conversations.
type Manager struct {
	searcher      *search.Searcher
	chat          ai.ChatModel
	limit         int
	minScore      float32
	contextRole   core.Role
	contextPrefix string
	monitor       TurnMonitor
	searchMonitor search.SearchMonitor
	logger        *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager) error

// WithLimit sets the default number of context records per turn.
// Default is search.DefaultLimit.
func WithLimit(limit int) Option {
	return func(m *Manager) error {
		if limit < 0 {
			return fmt.Errorf("%w: negative limit", ErrInvalidOption)
		}
		m.limit = limit
		return nil
	}
}

// WithMinScore sets the default relevance threshold.
// Default is search.DefaultMinScore.
func WithMinScore(score float32) Option {
	return func(m *Manager) error {
		m.minScore = score
		return nil
	}
}

// WithContextRole sets the role of the injected context message.
// Only core.RoleSystem and core.RoleUser are accepted. Default is core.RoleSystem.
func WithContextRole(role core.Role) Option {
	return func(m *Manager) error {
		if role != core.RoleSystem && role != core.RoleUser {
			return fmt.Errorf("%w: context role %q", ErrInvalidOption, role)
		}
		m.contextRole = role
		return nil
	}
}

// WithContextPrefix sets text placed before the retrieved context,
// such as "Here's some additional information: ".
func WithContextPrefix(prefix string) Option {
	return func(m *Manager) error {
		m.contextPrefix = prefix
		return nil
	}
}

// WithMonitor sets a monitor that observes every turn.
func WithMonitor(monitor TurnMonitor) Option {
	return func(m *Manager) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		m.monitor = monitor
		return nil
	}
}

// WithSearchMonitor sets a monitor that observes the retrieval search of
// every turn.
func WithSearchMonitor(monitor search.SearchMonitor) Option {
	return func(m *Manager) error {
		m.searchMonitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewManager creates a turn manager.
func NewManager(searcher *search.Searcher, chat ai.ChatModel, opts ...Option) (*Manager, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if chat == nil {
		return nil, ErrChatRequired
	}

	m := &Manager{
		searcher:    searcher,
		chat:        chat,
		limit:       search.DefaultLimit,
		minScore:    search.DefaultMinScore,
		contextRole: core.RoleSystem,
		monitor:     &noopMonitor{},
		logger:      slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	m.logger = m.logger.With("component", "turns")
	return m, nil
}

// Retrieval returns the manager's default retrieval settings for collection.
func (m *Manager) Retrieval(collection string) Retrieval {
	return Retrieval{
		Collection: collection,
		Limit:      m.limit,
		MinScore:   m.minScore,
	}
}

// RunTurn answers userText within conv and returns the full reply.
//
// On success the user message and the reply are appended to conv. If
// retrieval or the chat model fails, conv is left exactly as it was.
func (m *Manager) RunTurn(ctx context.Context, conv *Conversation, userText string, r Retrieval) (*Reply, error) {
	return m.runTurn(ctx, conv, userText, r, func(string) bool { return true })
}

// StreamTurn is RunTurn with the reply delivered fragment by fragment.
// A failure is delivered as the final element. Breaking out of the loop
// cancels the chat request and leaves conv unchanged.
func (m *Manager) StreamTurn(ctx context.Context, conv *Conversation, userText string, r Retrieval) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		_, err := m.runTurn(ctx, conv, userText, r, func(fragment string) bool {
			return yield(fragment, nil)
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield("", err)
		}
	}
}

func (m *Manager) runTurn(
	ctx context.Context,
	conv *Conversation,
	userText string,
	r Retrieval,
	onFragment func(string) bool,
) (*Reply, error) {
	if err := conv.acquire(); err != nil {
		return nil, err
	}
	defer conv.release()

	id := conv.ID()
	injected := false
	defer func() {
		if injected {
			m.monitor.Phase(id, PhaseContextRemoved)
		}
		m.monitor.Phase(id, PhaseIdle)
	}()

	m.monitor.Phase(id, PhaseQueryReceived)
	if strings.TrimSpace(userText) == "" {
		return nil, core.ErrEmptyContent
	}

	var results []*core.SearchResult
	if r.Collection != "" {
		var err error
		results, err = m.searcher.FindSimilarWithMonitor(ctx, r.Collection, userText, r.Limit, r.MinScore, m.searchMonitor)
		if err != nil {
			m.logger.Error("error retrieving context", "conversation", id, "collection", r.Collection, "err", err)
			return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
		}
	}
	m.monitor.Phase(id, PhaseContextSearched)
	m.monitor.Retrieved(id, results)

	user := core.UserMessage(userText)
	view := NewView(conv.Messages())
	if msg, ok := m.contextMessage(results); ok {
		view.WithContext(msg)
		injected = true
		m.logger.Debug("injecting context", "conversation", id, "records", len(results), "context", msg.Content)
		m.monitor.Phase(id, PhaseContextInjected)
		m.monitor.Injected(id, msg)
	}
	view.WithUser(user)

	m.monitor.Phase(id, PhaseReplyAwaited)

	chatCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var reply strings.Builder
	for fragment, err := range m.chat.StreamReply(chatCtx, view.Build()) {
		if err != nil {
			m.logger.Error("error streaming reply", "conversation", id, "err", err)
			return nil, fmt.Errorf("%w: %w", ErrChat, err)
		}
		reply.WriteString(fragment)
		if !onFragment(fragment) {
			return nil, errStopped
		}
	}

	content := reply.String()
	if strings.TrimSpace(content) == "" {
		m.logger.Warn("chat model produced no content", "conversation", id)
		return &Reply{Context: results}, nil
	}

	conv.commit(user, core.AssistantMessage(content))
	m.monitor.Phase(id, PhaseReplyAppended)
	return &Reply{Content: content, Context: results, Committed: true}, nil
}

// contextMessage joins the retrieved texts, one per line, into a single message.
func (m *Manager) contextMessage(results []*core.SearchResult) (core.Message, bool) {
	if len(results) == 0 {
		return core.Message{}, false
	}

	var b strings.Builder
	b.WriteString(m.contextPrefix)
	for i, result := range results {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(result.Record.Text)
	}
	return core.Message{Role: m.contextRole, Content: b.String()}, true
}
