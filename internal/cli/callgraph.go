package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/solana-fcg/internal/analysis"
	"github.com/mvp-joe/solana-fcg/internal/watcher"
)

type callGraphOptions struct {
	outputDir string
	project   string
	sqlite    string
	ignore    []string
	watch     bool
	quiet     bool
}

func newCallGraphCmd(a *app) *cobra.Command {
	opts := &callGraphOptions{}

	cmd := &cobra.Command{
		Use:   "call-graph <trace-file>",
		Short: "Compile a call-hierarchy trace into a call graph",
		Long: `call-graph reads a call-hierarchy trace, one edge per line:

  <caller-file>:<line>:<caller> -> <callee-file>:<line>:<callee> (call at <L>:<C>)

and writes <project>_call_graph.json to the output directory. Lines that do not
match are skipped. The project name defaults to the trace file name without its
extension.

Examples:
  # Compile a trace into output/vault_call_graph.json
  fcg call-graph vault.txt

  # Read the trace from stdin and also export to SQLite
  analyzer --calls | fcg call-graph - --project vault --sqlite vault.db

  # Rebuild whenever the trace file changes
  fcg call-graph vault.txt --watch
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCallGraph(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Output directory (default from config: output)")
	cmd.Flags().StringVar(&opts.project, "project", "", "Project name used for the output file")
	cmd.Flags().StringVar(&opts.sqlite, "sqlite", "", "Also export the call graph to this SQLite database")
	cmd.Flags().StringSliceVar(&opts.ignore, "ignore", nil, "Glob pattern for file paths to leave out (repeatable)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Rebuild the call graph whenever the trace file changes")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Disable progress bars and non-error output")

	return cmd
}

func (a *app) runCallGraph(cmd *cobra.Command, input string, opts *callGraphOptions) error {
	if opts.watch && input == "-" {
		return fmt.Errorf("--watch needs a trace file, not stdin")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out := analysis.Output{
		Dir:     opts.outputDir,
		Project: opts.project,
		SQLite:  opts.sqlite,
	}
	if out.Dir == "" {
		out.Dir = a.path(a.cfg.Output.Dir)
	}
	if out.SQLite == "" {
		out.SQLite = a.path(a.cfg.Output.SQLite)
	}
	if out.Project == "" {
		out.Project = analysis.ProjectName(input)
	}

	logger := a.logger
	if opts.quiet && !a.verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	}

	if err := a.compileTrace(ctx, cmd, input, out, opts, logger, !opts.quiet); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	return a.watchTrace(ctx, cmd, input, out, opts, logger)
}

// compileTrace runs one independent trace-to-graph compilation.
func (a *app) compileTrace(ctx context.Context, cmd *cobra.Command, input string, out analysis.Output, opts *callGraphOptions, logger *slog.Logger, progress bool) error {
	r, closeInput, err := openInput(cmd.InOrStdin(), input, "trace file")
	if err != nil {
		return err
	}
	defer closeInput()

	if progress {
		tracked, bar := trackedInput(r, input, cmd.ErrOrStderr(), "Reading trace")
		if bar != nil {
			defer bar.Finish()
		}
		r = tracked
	}

	ignore := append(append([]string{}, a.cfg.CallGraph.Ignore...), opts.ignore...)
	res, err := analysis.Run(ctx, &analysis.Request{
		Kind:           analysis.KindCallGraph,
		Input:          r,
		IgnorePatterns: ignore,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build call graph: %w", err)
	}

	written, err := analysis.WriteCallGraph(res.CallGraph, out)
	if err != nil {
		return err
	}

	if !opts.quiet {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✓ Call graph written to %s\n", written.JSONPath)
		if written.SQLitePath != "" {
			fmt.Fprintf(w, "  SQLite export: %s\n", written.SQLitePath)
		}
		fmt.Fprintf(w, "Total functions: %d\n", res.CallGraph.Len())
		fmt.Fprintf(w, "Total calls: %d\n", res.CallGraph.EdgeCount())
	}
	return nil
}

// watchTrace rebuilds the call graph on every settled change to the trace file
// until ctx is cancelled. Each rebuild starts from a fresh registry.
func (a *app) watchTrace(ctx context.Context, cmd *cobra.Command, input string, out analysis.Output, opts *callGraphOptions, logger *slog.Logger) error {
	tw, err := watcher.NewTraceWatcher([]string{input},
		watcher.WithDebounce(time.Duration(a.cfg.Watch.DebounceMs)*time.Millisecond),
		watcher.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to watch trace: %w", err)
	}
	defer tw.Stop()

	// Changes that land mid-rebuild are held until Resume and then flushed
	// as one more rebuild.
	var (
		rebuilds  sync.WaitGroup
		compileMu sync.Mutex // one rebuild writes the outputs at a time
		stateMu   sync.Mutex
		stopped   bool
	)
	err = tw.Start(ctx, func(files []string) {
		stateMu.Lock()
		if stopped {
			stateMu.Unlock()
			return
		}
		rebuilds.Add(1)
		stateMu.Unlock()

		logger.Info("trace changed, rebuilding call graph", "files", files)
		tw.Pause()
		go func() {
			defer rebuilds.Done()
			defer tw.Resume()
			compileMu.Lock()
			defer compileMu.Unlock()
			if err := a.compileTrace(ctx, cmd, input, out, opts, logger, false); err != nil {
				logger.Error("rebuild failed", "error", err)
			}
		}()
	})
	if err != nil {
		return fmt.Errorf("failed to start trace watcher: %w", err)
	}

	logger.Info("watching trace for changes", "file", input)
	<-ctx.Done()
	stateMu.Lock()
	stopped = true
	stateMu.Unlock()
	rebuilds.Wait()
	logger.Info("watch mode stopped")
	return nil
}
