package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/solana-fcg/internal/graph"
)

// AddGraphQueryTool registers the fcg_graph_query tool.
func AddGraphQueryTool(s *server.MCPServer, cache *graphCache) {
	tool := mcp.NewTool(
		"fcg_graph_query",
		mcp.WithDescription("Query a compiled call graph file. Operations: callers (who calls this function), callees (what this function calls), path (shortest call chain from target to another function). Function ids use the file_path:line:name form."),
		mcp.WithString("graph_path",
			mcp.Required(),
			mcp.Description("Path to a <project>_call_graph.json file or a SQLite export (.db)")),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("Type of query: 'callers', 'callees', or 'path'")),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Function id, e.g. 'programs/vault/src/lib.rs:12:deposit'")),
		mcp.WithString("to",
			mcp.Description("Destination function id (required for 'path')")),
		mcp.WithNumber("depth",
			mcp.Description("Traversal depth for callers/callees (default: 1, max: 10)")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to return (default: 100, max: 500)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, graphQueryHandler(cache))
}

// GraphQueryRequest holds fcg_graph_query arguments.
type GraphQueryRequest struct {
	GraphPath  string `json:"graph_path"`
	Operation  string `json:"operation"`
	Target     string `json:"target"`
	To         string `json:"to,omitempty"`
	Depth      int    `json:"depth,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

var validOps = map[string]graph.QueryOperation{
	"callers": graph.OperationCallers,
	"callees": graph.OperationCallees,
	"path":    graph.OperationPath,
}

func graphQueryHandler(cache *graphCache) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req GraphQueryRequest
		if errResult := bindRequest(request, &req); errResult != nil {
			return errResult, nil
		}
		if errResult := requireArgs("graph_path", req.GraphPath, "operation", req.Operation, "target", req.Target); errResult != nil {
			return errResult, nil
		}

		op, ok := validOps[req.Operation]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid operation: %s (must be one of: callers, callees, path)", req.Operation)), nil
		}
		if op == graph.OperationPath {
			if errResult := requireArgs("to", req.To); errResult != nil {
				return errResult, nil
			}
		}

		searcher, err := cache.searcher(req.GraphPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		resp, err := searcher.Query(ctx, &graph.QueryRequest{
			Operation:  op,
			Target:     req.Target,
			To:         req.To,
			Depth:      clampInt(req.Depth, graph.DefaultDepth, 1, graph.MaxDepth),
			MaxResults: clampInt(req.MaxResults, graph.DefaultMaxResults, 1, graph.MaxResults),
		})
		if errors.Is(err, graph.ErrNotFound) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err != nil {
			return nil, fmt.Errorf("graph query failed: %w", err)
		}

		return jsonResult(resp)
	}
}
