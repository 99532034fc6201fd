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
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/poiesic/ragchat/core"
)

// Conversation is the committed message log of one chat session.
// Messages are only ever appended, and only by a completed turn.
type Conversation struct {
	id string

	mu     sync.Mutex
	log    []core.Message
	active bool
}

// New creates a conversation. A non-empty systemPrompt becomes the first message.
func New(systemPrompt string) *Conversation {
	c := &Conversation{id: uuid.NewString()}
	if systemPrompt != "" {
		c.log = append(c.log, core.SystemMessage(systemPrompt))
	}
	return c
}

// ID returns the conversation's unique identifier.
func (c *Conversation) ID() string {
	return c.id
}

// Messages returns a copy of the committed log.
func (c *Conversation) Messages() []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.log)
}

// Len returns the number of committed messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.log)
}

// acquire marks a turn as running, failing if one already is.
func (c *Conversation) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return ErrTurnInProgress
	}
	c.active = true
	return nil
}

func (c *Conversation) release() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

// commit appends the messages of a completed turn.
func (c *Conversation) commit(msgs ...core.Message) {
	c.mu.Lock()
	c.log = append(c.log, msgs...)
	c.mu.Unlock()
}
