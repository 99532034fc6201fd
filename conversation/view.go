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

	"github.com/poiesic/ragchat/core"
)

// View builds the message list sent to the chat model for one call.
// The committed history is never modified; each Build returns a new slice.
type View struct {
	history []core.Message
	context *core.Message
	user    *core.Message
}

// NewView starts a view over history.
func NewView(history []core.Message) *View {
	return &View{history: history}
}

// WithContext places msg immediately before the user message.
func (v *View) WithContext(msg core.Message) *View {
	v.context = &msg
	return v
}

// WithUser sets the user message that ends the view.
func (v *View) WithUser(msg core.Message) *View {
	v.user = &msg
	return v
}

// Build returns history followed by the context and user messages, if set.
func (v *View) Build() []core.Message {
	msgs := make([]core.Message, 0, len(v.history)+2)
	msgs = append(msgs, v.history...)
	if v.context != nil {
		msgs = append(msgs, *v.context)
	}
	if v.user != nil {
		msgs = append(msgs, *v.user)
	}
	return slices.Clip(msgs)
}
