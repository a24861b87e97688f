package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/solana-fcg/internal/analysis"
	"github.com/mvp-joe/solana-fcg/internal/config"
	"github.com/mvp-joe/solana-fcg/internal/source"
)

// AddSourceTool registers the fcg_source tool.
func AddSourceTool(s *server.MCPServer, cfg *config.Config, logger *slog.Logger) {
	tool := mcp.NewTool(
		"fcg_source",
		mcp.WithDescription("Turn a symbol report (File Path:/Start Line:/End Line:/Source Code:/Function Calls: block) into a symbol record with the canonical signature, parameters, callees and the definition's real line span in the source file. Pass the report text inline or a path to it."),
		mcp.WithString("report",
			mcp.Description("Symbol report text")),
		mcp.WithString("report_path",
			mcp.Description("Path to a symbol report file (used when report is empty)")),
		mcp.WithString("root",
			mcp.Description("Directory that relative File Path values are resolved against (default: configured source root)")),
		mcp.WithString("fallback",
			mcp.Description("Line span used when the snippet cannot be found in the file: 'snippet' (1..N, default) or 'header' (declared Start/End Line)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, sourceHandler(cfg, logger))
}

// SourceRequest holds fcg_source arguments.
type SourceRequest struct {
	Report     string `json:"report,omitempty"`
	ReportPath string `json:"report_path,omitempty"`
	Root       string `json:"root,omitempty"`
	Fallback   string `json:"fallback,omitempty"`
}

func sourceHandler(cfg *config.Config, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req SourceRequest
		if errResult := bindRequest(request, &req); errResult != nil {
			return errResult, nil
		}

		report := req.Report
		if report == "" {
			if req.ReportPath == "" {
				return mcp.NewToolResultError("one of report or report_path is required"), nil
			}
			data, err := os.ReadFile(req.ReportPath)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("cannot read report: %v", err)), nil
			}
			report = string(data)
		}

		root := req.Root
		if root == "" {
			root = cfg.Source.Root
		}
		fallbackName := req.Fallback
		if fallbackName == "" {
			fallbackName = cfg.Source.LocationFallback
		}
		fallback, err := source.ParseFallback(fallbackName)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := analysis.Run(ctx, &analysis.Request{
			Kind:       analysis.KindSourceFinder,
			Input:      strings.NewReader(report),
			Reconciler: &source.Reconciler{Root: root, Fallback: fallback},
			Logger:     logger,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var sb strings.Builder
		if err := source.Encode(&sb, res.Symbol, false); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(strings.TrimSpace(sb.String())), nil
	}
}
