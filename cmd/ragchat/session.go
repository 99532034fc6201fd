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


package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/poiesic/ragchat/conversation"
)

var (
	meLabel    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Render("Me:")
	aiLabel    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")).Render("AI:")
	toolLabel  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render("Tool:")
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// session is the interactive prompt/response loop over one conversation.
type session struct {
	manager   *conversation.Manager
	conv      *conversation.Conversation
	tools     *conversation.Registry
	retrieval conversation.Retrieval
	in        io.Reader
	out       io.Writer
}

// run reads lines until "exit" or end of input. A failed turn is reported
// and the loop keeps going.
func (s *session) run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprintf(s.out, "%s ", meLabel)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "exit"):
			return nil
		case line == "/tools":
			s.listTools()
		default:
			// Lines that merely start with a slash, like paths, go to the model.
			if name, args, ok := conversation.ParseInvocation(line); ok {
				if _, found := s.tools.Lookup(name); found {
					s.callTool(ctx, name, args)
					continue
				}
			}
			s.turn(ctx, line)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (s *session) turn(ctx context.Context, text string) {
	fmt.Fprintf(s.out, "%s ", aiLabel)
	for fragment, err := range s.manager.StreamTurn(ctx, s.conv, text, s.retrieval) {
		if err != nil {
			fmt.Fprintln(s.out)
			s.printError(err)
			return
		}
		fmt.Fprint(s.out, fragment)
	}
	fmt.Fprintln(s.out)
}

func (s *session) listTools() {
	tools := s.tools.Tools()
	if len(tools) == 0 {
		fmt.Fprintln(s.out, mutedStyle.Render("no tools registered"))
		return
	}
	for _, tool := range tools {
		fmt.Fprintf(s.out, "  /%-10s %s\n", tool.Name, mutedStyle.Render(tool.Description))
	}
}

func (s *session) callTool(ctx context.Context, name, args string) {
	result, err := s.tools.Call(ctx, name, args)
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintf(s.out, "%s %s\n", toolLabel, result)
}

func (s *session) printError(err error) {
	fmt.Fprintln(s.out, errorStyle.Render("error: "+err.Error()))
}
