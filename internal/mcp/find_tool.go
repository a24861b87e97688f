package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/solana-fcg/internal/graph"
)

// AddGraphFindTool registers the fcg_graph_find tool.
func AddGraphFindTool(s *server.MCPServer, cache *graphCache) {
	tool := mcp.NewTool(
		"fcg_graph_find",
		mcp.WithDescription("Find function ids in a compiled call graph by partial function name or file path. Exact name matches rank first. Use the returned ids as targets for fcg_graph_query."),
		mcp.WithString("graph_path",
			mcp.Required(),
			mcp.Description("Path to a <project>_call_graph.json file or a SQLite export (.db)")),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Name or path fragment, e.g. 'deposit' or 'token.rs'. '*' and '?' act as wildcards.")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of matches (default: 20, max: 200)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, graphFindHandler(cache))
}

// GraphFindRequest holds fcg_graph_find arguments.
type GraphFindRequest struct {
	GraphPath string `json:"graph_path"`
	Query     string `json:"query"`
	Limit     int    `json:"limit,omitempty"`
}

// GraphFindResponse lists the matched functions.
type GraphFindResponse struct {
	Matches    []graph.FindResult `json:"matches"`
	TotalFound int                `json:"total_found"`
}

func graphFindHandler(cache *graphCache) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req GraphFindRequest
		if errResult := bindRequest(request, &req); errResult != nil {
			return errResult, nil
		}
		if errResult := requireArgs("graph_path", req.GraphPath, "query", req.Query); errResult != nil {
			return errResult, nil
		}

		matches, err := cache.find(ctx, req.GraphPath, req.Query, clampInt(req.Limit, graph.DefaultFindLimit, 1, graph.MaxFindLimit))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(GraphFindResponse{Matches: matches, TotalFound: len(matches)})
	}
}
