package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/solana-fcg/internal/analysis"
	"github.com/mvp-joe/solana-fcg/internal/config"
	"github.com/mvp-joe/solana-fcg/internal/graph"
)

// callGraphResponse is returned when the graph is also written to disk.
type callGraphResponse struct {
	Functions  int             `json:"total_functions"`
	Calls      int             `json:"total_calls"`
	Skipped    int             `json:"skipped_lines"`
	JSONPath   string          `json:"json_path,omitempty"`
	SQLitePath string          `json:"sqlite_path,omitempty"`
	CallGraph  json.RawMessage `json:"call_graph"`
}

// AddCallGraphTool registers the fcg_call_graph tool.
func AddCallGraphTool(s *server.MCPServer, cfg *config.Config, logger *slog.Logger) {
	tool := mcp.NewTool(
		"fcg_call_graph",
		mcp.WithDescription("Compile a call-hierarchy trace file (lines of the form 'caller -> callee (call at L:C)') into a function call graph. Returns the call graph JSON keyed by file_path:line:name. When write is true the graph is also saved as <project>_call_graph.json in the configured output directory."),
		mcp.WithString("trace_path",
			mcp.Required(),
			mcp.Description("Path to the call-hierarchy trace file")),
		mcp.WithArray("ignore",
			mcp.Description("Glob patterns for file paths to leave out of the graph (added to the configured ones)")),
		mcp.WithBoolean("write",
			mcp.Description("Also write the graph to the output directory (default: false)")),
		mcp.WithString("project",
			mcp.Description("Project name for the output file (default: derived from the trace file name)")),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, callGraphHandler(cfg, logger))
}

// CallGraphRequest holds fcg_call_graph arguments.
type CallGraphRequest struct {
	TracePath string   `json:"trace_path"`
	Ignore    []string `json:"ignore,omitempty"`
	Write     bool     `json:"write,omitempty"`
	Project   string   `json:"project,omitempty"`
}

func callGraphHandler(cfg *config.Config, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req CallGraphRequest
		if errResult := bindRequest(request, &req); errResult != nil {
			return errResult, nil
		}
		if errResult := requireArgs("trace_path", req.TracePath); errResult != nil {
			return errResult, nil
		}

		f, err := os.Open(req.TracePath)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cannot open trace: %v", err)), nil
		}
		defer f.Close()

		res, err := analysis.Run(ctx, &analysis.Request{
			Kind:           analysis.KindCallGraph,
			Input:          f,
			IgnorePatterns: append(append([]string{}, cfg.CallGraph.Ignore...), req.Ignore...),
			Logger:         logger,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := graph.Marshal(res.CallGraph)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal call graph: %w", err)
		}
		if !req.Write {
			return mcp.NewToolResultText(string(data)), nil
		}

		project := req.Project
		if project == "" {
			project = analysis.ProjectName(req.TracePath)
		}
		written, err := analysis.WriteCallGraph(res.CallGraph, analysis.Output{
			Dir:     cfg.Output.Dir,
			Project: project,
			SQLite:  cfg.Output.SQLite,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(callGraphResponse{
			Functions:  res.CallGraph.Len(),
			Calls:      res.CallGraph.EdgeCount(),
			Skipped:    res.Stats.Skipped,
			JSONPath:   written.JSONPath,
			SQLitePath: written.SQLitePath,
			CallGraph:  data,
		})
	}
}
