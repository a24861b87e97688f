package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/solana-fcg/internal/analysis"
	"github.com/mvp-joe/solana-fcg/internal/graph"
	"github.com/mvp-joe/solana-fcg/internal/source"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <kind> <input>",
		Short: "Run one analysis and print its JSON result",
		Long: fmt.Sprintf(`analyze runs a single analysis over a trace or symbol report and prints the
result to stdout without writing any files. Options come from the config file.

Kinds: %s (hyphenated spellings are accepted)

Examples:
  fcg analyze call_graph vault.txt
  analyzer --symbol deposit | fcg analyze source-finder -
`, kindList()),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args[0], args[1])
		},
	}
}

func kindList() string {
	kinds := analysis.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func (a *app) runAnalyze(cmd *cobra.Command, kindName, input string) error {
	kind, err := analysis.ParseKind(kindName)
	if err != nil {
		if errors.Is(err, analysis.ErrUnknownKind) {
			return fmt.Errorf("%w (must be one of: %s)", err, kindList())
		}
		return err
	}

	fallback, err := source.ParseFallback(a.cfg.Source.LocationFallback)
	if err != nil {
		return err
	}

	r, closeInput, err := openInput(cmd.InOrStdin(), input, "input")
	if err != nil {
		return err
	}
	defer closeInput()

	res, err := analysis.Run(cmd.Context(), &analysis.Request{
		Kind:           kind,
		Input:          r,
		IgnorePatterns: a.cfg.CallGraph.Ignore,
		Reconciler:     &source.Reconciler{Root: a.path(a.cfg.Source.Root), Fallback: fallback},
		Logger:         a.logger,
	})
	if err != nil {
		return fmt.Errorf("%s analysis failed: %w", kind, err)
	}
	a.logger.Debug("analysis complete", "kind", kind, "duration", res.Duration)

	if kind == analysis.KindCallGraph {
		return graph.Encode(cmd.OutOrStdout(), res.CallGraph)
	}
	return source.Encode(cmd.OutOrStdout(), res.Symbol, true)
}
