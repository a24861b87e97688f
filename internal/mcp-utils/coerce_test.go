package mcputils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for BindArguments:
// - Native JSON types bind directly
// - Stringified numbers, booleans and JSON arrays are coerced
// - Comma-separated strings bind to slices
// - Missing arguments leave zero values
// - Nil argument maps bind nothing and do not fail
// - Uncoercible values fail

type staticArgs map[string]any

func (s staticArgs) GetArguments() map[string]any {
	return s
}

type queryArgs struct {
	GraphPath  string   `json:"graph_path"`
	Target     string   `json:"target"`
	Depth      int      `json:"depth,omitempty"`
	Write      bool     `json:"write,omitempty"`
	Ignore     []string `json:"ignore,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
}

func TestBindArguments(t *testing.T) {
	t.Parallel()

	t.Run("native types", func(t *testing.T) {
		var got queryArgs
		err := BindArguments(staticArgs{
			"graph_path": "out/vault_call_graph.json",
			"target":     "src/lib.rs:10:deposit",
			"depth":      float64(3),
			"write":      true,
			"ignore":     []any{"tests/**", "*.t.sol"},
		}, &got)
		require.NoError(t, err)

		assert.Equal(t, queryArgs{
			GraphPath: "out/vault_call_graph.json",
			Target:    "src/lib.rs:10:deposit",
			Depth:     3,
			Write:     true,
			Ignore:    []string{"tests/**", "*.t.sol"},
		}, got)
	})

	t.Run("stringified values", func(t *testing.T) {
		var got queryArgs
		err := BindArguments(staticArgs{
			"depth":       "2",
			"max_results": "50",
			"write":       "true",
			"ignore":      `["tests/**", "mocks/*"]`,
		}, &got)
		require.NoError(t, err)

		assert.Equal(t, 2, got.Depth)
		assert.Equal(t, 50, got.MaxResults)
		assert.True(t, got.Write)
		assert.Equal(t, []string{"tests/**", "mocks/*"}, got.Ignore)
	})

	t.Run("comma separated slice", func(t *testing.T) {
		var got queryArgs
		require.NoError(t, BindArguments(staticArgs{"ignore": "tests/**,mocks/*"}, &got))
		assert.Equal(t, []string{"tests/**", "mocks/*"}, got.Ignore)
	})

	t.Run("missing arguments", func(t *testing.T) {
		var got queryArgs
		require.NoError(t, BindArguments(staticArgs{"target": "a.rs:1:a"}, &got))
		assert.Equal(t, "a.rs:1:a", got.Target)
		assert.Zero(t, got.Depth)
		assert.Nil(t, got.Ignore)
	})

	t.Run("nil arguments", func(t *testing.T) {
		var got queryArgs
		require.NoError(t, BindArguments(staticArgs(nil), &got))
		assert.Equal(t, queryArgs{}, got)
	})

	t.Run("uncoercible value", func(t *testing.T) {
		var got queryArgs
		err := BindArguments(staticArgs{"depth": "deep"}, &got)
		assert.Error(t, err)
	})
}
