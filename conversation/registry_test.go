package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) Tool {
	return Tool{
		Name: name,
		Func: func(ctx context.Context, query string) (string, error) {
			return name + ":" + query, nil
		},
	}
}

func TestRegistry_RegisterAndCall(t *testing.T) {
	registry, err := NewRegistry(echoTool("echo"), echoTool("Shout"))
	require.NoError(t, err)

	out, err := registry.Call(context.Background(), "echo", "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", out)

	tool, ok := registry.Lookup("SHOUT")
	require.True(t, ok)
	assert.Equal(t, "shout", tool.Name)

	names := []string{}
	for _, tool := range registry.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"echo", "shout"}, names)
}

func TestRegistry_Errors(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	assert.ErrorIs(t, registry.Register(Tool{Name: "", Func: echoTool("x").Func}), ErrInvalidTool)
	assert.ErrorIs(t, registry.Register(Tool{Name: "two words", Func: echoTool("x").Func}), ErrInvalidTool)
	assert.ErrorIs(t, registry.Register(Tool{Name: "nofunc"}), ErrInvalidTool)

	require.NoError(t, registry.Register(echoTool("echo")))
	assert.ErrorIs(t, registry.Register(echoTool("ECHO")), ErrDuplicateTool)

	_, err = registry.Call(context.Background(), "missing", "q")
	assert.ErrorIs(t, err, ErrUnknownTool)

	_, err = NewRegistry(echoTool("a"), echoTool("a"))
	assert.ErrorIs(t, err, ErrDuplicateTool)
}

func TestRegistry_ToolErrorPassesThrough(t *testing.T) {
	failure := errors.New("tool failed")
	registry, err := NewRegistry(Tool{
		Name: "fail",
		Func: func(ctx context.Context, query string) (string, error) { return "", failure },
	})
	require.NoError(t, err)

	_, err = registry.Call(context.Background(), "fail", "")
	assert.ErrorIs(t, err, failure)
}

func TestParseInvocation(t *testing.T) {
	tests := []struct {
		line string
		name string
		args string
		ok   bool
	}{
		{"/retrieve what is a reptile", "retrieve", "what is a reptile", true},
		{"  /NOW  ", "now", "", true},
		{"/tools", "tools", "", true},
		{"hello there", "", "", false},
		{"/", "", "", false},
		{"/ spaced", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			name, args, ok := ParseInvocation(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestRetrievalTool(t *testing.T) {
	searcher := newTestSearcher(t, newKeywordEmbedder())
	tool := NewRetrievalTool(searcher, Retrieval{Collection: "facts", Limit: 3, MinScore: 0.4})
	assert.Equal(t, "retrieve", tool.Name)

	out, err := tool.Func(context.Background(), "What is a reptile?")
	require.NoError(t, err)
	assert.Equal(t, reptileFact, out)

	out, err = tool.Func(context.Background(), "rockets")
	require.NoError(t, err)
	assert.Equal(t, NoResults, out)
}

func TestNowTool(t *testing.T) {
	clock := func() time.Time {
		return time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("EST", -5*3600))
	}
	tool := NewNowTool(clock)
	assert.Equal(t, "now", tool.Name)

	out, err := tool.Func(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Tue, 02 Jan 2024 08:04:05 UTC", out)

	out, err = NewNowTool(nil).Func(context.Background(), "")
	require.NoError(t, err)
	_, err = time.Parse(time.RFC1123, out)
	assert.NoError(t, err)
}
