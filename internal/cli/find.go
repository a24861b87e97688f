package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/solana-fcg/internal/analysis"
	"github.com/mvp-joe/solana-fcg/internal/graph"
)

type findOptions struct {
	limit   int
	jsonOut bool
}

func newFindCmd(a *app) *cobra.Command {
	opts := &findOptions{}

	cmd := &cobra.Command{
		Use:   "find <call-graph.json|export.db> <text>",
		Short: "Find function ids by name or file path",
		Long: `find searches a call graph for functions whose name or file path contains
the given text. Exact name matches are listed first. The printed ids can be
passed to query --target.

Examples:
  fcg find output/vault_call_graph.json deposit
  fcg find output/vault_call_graph.json token.rs --limit 5
  fcg find output/vault.db transfer
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFind(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().IntVar(&opts.limit, "limit", graph.DefaultFindLimit, "Maximum number of matches (max 200)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print matches as JSON")

	return cmd
}

func (a *app) runFind(cmd *cobra.Command, graphPath, text string, opts *findOptions) error {
	reg, err := analysis.LoadCallGraph(graphPath)
	if err != nil {
		return err
	}
	finder, err := graph.NewFinder(cmd.Context(), reg)
	if err != nil {
		return err
	}
	defer finder.Close()

	matches, err := finder.Find(cmd.Context(), text, opts.limit)
	if err != nil {
		return err
	}
	a.logger.Debug("find complete", "text", text, "found", len(matches))

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}

	if len(matches) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "No functions match %q\n", text)
		return nil
	}
	for _, m := range matches {
		fmt.Fprintf(out, "%s  (calls: %d)\n", m.ID, m.CallCount)
	}
	return nil
}
