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

import "errors"

var (
	// ErrSearcherRequired is returned when a searcher is not provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrChatRequired is returned when a chat model is not provided.
	ErrChatRequired = errors.New("chat model required")

	// ErrTurnInProgress is returned when a turn is started on a conversation
	// that is already running one.
	ErrTurnInProgress = errors.New("turn already in progress")

	// ErrRetrieval is returned when context retrieval for a turn fails.
	ErrRetrieval = errors.New("context retrieval failed")

	// ErrChat is returned when the chat model fails to produce a reply.
	ErrChat = errors.New("chat failed")

	// ErrInvalidOption is returned when a manager option has an invalid value.
	ErrInvalidOption = errors.New("invalid manager option")

	// ErrInvalidTool is returned when a tool has no name or function.
	ErrInvalidTool = errors.New("invalid tool")

	// ErrDuplicateTool is returned when a tool name is registered twice.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrUnknownTool is returned when calling a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
)
