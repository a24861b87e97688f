package mcp

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Target string `json:"target"`
	Depth  int    `json:"depth,omitempty"`
}

func TestBindRequest(t *testing.T) {
	t.Parallel()

	t.Run("object arguments", func(t *testing.T) {
		var req sampleRequest
		errResult := bindRequest(mcp.CallToolRequest{
			Params: mcp.CallToolParams{Arguments: map[string]interface{}{"target": "a.rs:1:a", "depth": "4"}},
		}, &req)
		require.Nil(t, errResult)
		assert.Equal(t, sampleRequest{Target: "a.rs:1:a", Depth: 4}, req)
	})

	t.Run("no arguments", func(t *testing.T) {
		var req sampleRequest
		assert.Nil(t, bindRequest(mcp.CallToolRequest{}, &req))
		assert.Empty(t, req.Target)
	})

	t.Run("non-object arguments", func(t *testing.T) {
		var req sampleRequest
		errResult := bindRequest(mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: "nope"}}, &req)
		require.NotNil(t, errResult)
		assert.True(t, errResult.IsError)
	})

	t.Run("uncoercible value", func(t *testing.T) {
		var req sampleRequest
		errResult := bindRequest(mcp.CallToolRequest{
			Params: mcp.CallToolParams{Arguments: map[string]interface{}{"depth": "deep"}},
		}, &req)
		require.NotNil(t, errResult)
		assert.True(t, errResult.IsError)
	})
}

func TestRequireArgs(t *testing.T) {
	t.Parallel()

	assert.Nil(t, requireArgs("graph_path", "x.json", "target", "a.rs:1:a"))

	errResult := requireArgs("graph_path", "x.json", "target", "", "operation", "")
	require.NotNil(t, errResult)
	assert.True(t, errResult.IsError)
	assert.Equal(t, "target parameter is required", errResult.Content[0].(mcp.TextContent).Text)
}

func TestClampInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, clampInt(0, 1, 1, 10))
	assert.Equal(t, 10, clampInt(50, 1, 1, 10))
	assert.Equal(t, 1, clampInt(-2, 1, 1, 10))
	assert.Equal(t, 5, clampInt(5, 1, 1, 10))
}
