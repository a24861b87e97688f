package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	mcputils "github.com/mvp-joe/solana-fcg/internal/mcp-utils"
)

// bindRequest decodes a tool request into target. The returned result is a
// ready-made tool error when the arguments cannot be bound.
func bindRequest[T any](request mcp.CallToolRequest, target *T) *mcp.CallToolResult {
	if request.Params.Arguments != nil && request.GetArguments() == nil {
		return mcp.NewToolResultError(mcputils.ErrInvalidArguments.Error())
	}
	if err := mcputils.BindArguments(request, target); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

// requireArgs takes name/value pairs and reports the first empty one as a tool error.
func requireArgs(pairs ...string) *mcp.CallToolResult {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return mcp.NewToolResultError(fmt.Sprintf("%s parameter is required", pairs[i]))
		}
	}
	return nil
}

// clampInt applies defaultVal to zero values and clamps the result to [lo, hi].
func clampInt(v, defaultVal, lo, hi int) int {
	if v == 0 {
		v = defaultVal
	}
	return min(max(v, lo), hi)
}

// jsonResult marshals a response into a text tool result. Symbol names keep
// their &, < and > unescaped.
func jsonResult(response interface{}) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(response); err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(strings.TrimRight(buf.String(), "\n")), nil
}
