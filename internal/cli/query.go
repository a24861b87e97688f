package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/solana-fcg/internal/analysis"
	"github.com/mvp-joe/solana-fcg/internal/graph"
)

type queryOptions struct {
	op         string
	target     string
	to         string
	depth      int
	maxResults int
}

func newQueryCmd(a *app) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query <call-graph.json|export.db>",
		Short: "Query a compiled call graph",
		Long: `query answers structural questions about a call graph written by call-graph,
either the JSON file or a --sqlite export.

Operations:
  callers  functions that call the target, up to --depth hops away
  callees  functions the target calls, up to --depth hops away
  path     the shortest call chain from the target to --to

Examples:
  fcg query output/vault_call_graph.json --target programs/vault/src/token.rs:40:transfer
  fcg query output/vault_call_graph.json --op callees --depth 3 --target src/lib.rs:10:deposit
  fcg query output/vault_call_graph.json --op path --target src/lib.rs:10:deposit --to src/math.rs:3:checked_add
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.op, "op", string(graph.OperationCallers), "Operation: callers, callees or path")
	cmd.Flags().StringVar(&opts.target, "target", "", "Function id (file_path:line:name)")
	cmd.Flags().StringVar(&opts.to, "to", "", "Destination function id for path")
	cmd.Flags().IntVar(&opts.depth, "depth", graph.DefaultDepth, "Traversal depth for callers/callees (max 10)")
	cmd.Flags().IntVar(&opts.maxResults, "max-results", graph.DefaultMaxResults, "Maximum number of results (max 500)")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func (a *app) runQuery(cmd *cobra.Command, graphPath string, opts *queryOptions) error {
	op := graph.QueryOperation(opts.op)
	switch op {
	case graph.OperationCallers, graph.OperationCallees:
	case graph.OperationPath:
		if opts.to == "" {
			return fmt.Errorf("--to is required for the path operation")
		}
	default:
		return fmt.Errorf("invalid operation %q (must be one of: callers, callees, path)", opts.op)
	}

	reg, err := analysis.LoadCallGraph(graphPath)
	if err != nil {
		return err
	}
	searcher, err := graph.NewSearcher(reg)
	if err != nil {
		return fmt.Errorf("failed to index call graph: %w", err)
	}

	resp, err := searcher.Query(cmd.Context(), &graph.QueryRequest{
		Operation:  op,
		Target:     opts.target,
		To:         opts.to,
		Depth:      opts.depth,
		MaxResults: opts.maxResults,
	})
	if err != nil {
		return err
	}
	a.logger.Debug("query complete", "operation", op, "found", resp.TotalFound, "took_ms", resp.TookMs)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
