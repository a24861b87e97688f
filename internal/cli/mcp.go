package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/solana-fcg/internal/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server so coding assistants can
compile traces, parse symbol reports and query call graphs.

Tools:
  fcg_call_graph   compile a call-hierarchy trace file
  fcg_source       turn a symbol report into a symbol record
  fcg_graph_query  callers/callees/path over a call graph file
  fcg_graph_find   function ids by partial name or file path
  fcg_status       call graph load statistics

The server communicates over stdio; logs go to stderr.

Example:
  fcg mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := mcp.NewServer(a.resolvedConfig(),
				mcp.WithLogger(a.logger),
				mcp.WithVersion(Version),
			)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			if err := server.Serve(cmd.Context()); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}
}
