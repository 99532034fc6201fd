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
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/ragchat/search"
)

// ToolFunc answers a query with text.
type ToolFunc func(ctx context.Context, query string) (string, error)

// Tool is a named capability the chat front end can invoke.
type Tool struct {
	Name        string
	Description string
	Func        ToolFunc
}

// Registry is a lookup table of tools keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry holding tools.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds tool to the registry. Names are case-insensitive.
func (r *Registry) Register(tool Tool) error {
	name := strings.ToLower(strings.TrimSpace(tool.Name))
	if name == "" || strings.ContainsAny(name, " \t\n") || tool.Func == nil {
		return fmt.Errorf("%w: %q", ErrInvalidTool, tool.Name)
	}
	tool.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, name)
	}
	r.tools[name] = tool
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[strings.ToLower(name)]
	return tool, ok
}

// Call invokes the named tool with query.
func (r *Registry) Call(ctx context.Context, name, query string) (string, error) {
	tool, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return tool.Func(ctx, query)
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	slices.SortFunc(tools, func(a, b Tool) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return tools
}

// ParseInvocation splits a line of the form "/name args" into the tool name
// and its argument. ok is false when line is not a tool invocation.
func ParseInvocation(line string) (name, args string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", "", false
	}
	name, args, _ = strings.Cut(line[1:], " ")
	if name == "" {
		return "", "", false
	}
	return strings.ToLower(name), strings.TrimSpace(args), true
}

// NoResults is returned by the retrieval tool when nothing relevant is found.
const NoResults = "No relevant information found."

// NewRetrievalTool creates the "retrieve" tool, which searches r.Collection
// and returns the matching texts one per line.
func NewRetrievalTool(searcher *search.Searcher, r Retrieval) Tool {
	return Tool{
		Name:        "retrieve",
		Description: fmt.Sprintf("search %q for information related to the query", r.Collection),
		Func: func(ctx context.Context, query string) (string, error) {
			results, err := searcher.FindSimilar(ctx, r.Collection, query, r.Limit, r.MinScore)
			if err != nil {
				return "", fmt.Errorf("%w: %w", ErrRetrieval, err)
			}
			if len(results) == 0 {
				return NoResults, nil
			}
			texts := make([]string, len(results))
			for i, result := range results {
				texts[i] = result.Record.Text
			}
			return strings.Join(texts, "\n"), nil
		},
	}
}

// NewNowTool creates the "now" tool, which reports the current UTC time in
// RFC 1123 format. A nil clock uses time.Now.
func NewNowTool(clock func() time.Time) Tool {
	if clock == nil {
		clock = time.Now
	}
	return Tool{
		Name:        "now",
		Description: "report the current date and time (UTC)",
		Func: func(ctx context.Context, _ string) (string, error) {
			return clock().UTC().Format(time.RFC1123), nil
		},
	}
}
