package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/solana-fcg/internal/analysis"
	"github.com/mvp-joe/solana-fcg/internal/source"
)

type sourceFinderOptions struct {
	root     string
	fallback string
	compact  bool
}

func newSourceFinderCmd(a *app) *cobra.Command {
	opts := &sourceFinderOptions{}

	cmd := &cobra.Command{
		Use:   "source-finder <report-file>",
		Short: "Turn a symbol report into a symbol record",
		Long: `source-finder reads a symbol report (File Path:, Start Line:, End Line:,
Source Code: and Function Calls: sections) and prints a JSON symbol record with
the canonical signature, parameters, callees, and the line span the snippet
actually occupies in its source file. Only the first block is used.

Examples:
  fcg source-finder deposit.report --root ./programs
  analyzer --symbol deposit | fcg source-finder - --compact
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSourceFinder(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "", "Directory that relative File Path values are resolved against")
	cmd.Flags().StringVar(&opts.fallback, "fallback", "", "Span used when the snippet is not found: snippet or header (default from config)")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "Print the record on a single line")

	return cmd
}

func (a *app) runSourceFinder(cmd *cobra.Command, input string, opts *sourceFinderOptions) error {
	root := opts.root
	if root == "" {
		root = a.path(a.cfg.Source.Root)
	}

	name := opts.fallback
	if name == "" {
		name = a.cfg.Source.LocationFallback
	}
	fallback, err := source.ParseFallback(name)
	if err != nil {
		return err
	}

	r, closeInput, err := openInput(cmd.InOrStdin(), input, "symbol report")
	if err != nil {
		return err
	}
	defer closeInput()

	res, err := analysis.Run(cmd.Context(), &analysis.Request{
		Kind:       analysis.KindSourceFinder,
		Input:      r,
		Reconciler: &source.Reconciler{Root: root, Fallback: fallback},
		Logger:     a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to parse symbol report: %w", err)
	}

	return source.Encode(cmd.OutOrStdout(), res.Symbol, !opts.compact)
}
