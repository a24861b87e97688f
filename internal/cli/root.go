package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/solana-fcg/internal/config"
)

// app holds the state shared by every subcommand: global flags, the loaded
// configuration and the logger.
type app struct {
	cfgFile    string
	projectDir string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the fcg command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "fcg",
		Short: "fcg - function call graphs for Solana programs",
		Long: `fcg turns the output of an external code analyzer into JSON artifacts.

  call-graph     compiles a call-hierarchy trace into <project>_call_graph.json
  source-finder  turns a symbol report into a symbol record
  analyze        runs either analysis by kind and prints the result
  query          answers callers/callees/path questions about a call graph
  find           looks up functions in a call graph by name or path fragment
  mcp            serves the same operations as MCP tools over stdio`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.init,
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is <project-dir>/.fcg/config.yml)")
	cmd.PersistentFlags().StringVar(&a.projectDir, "project-dir", "", "directory holding .fcg/ and .env (default is the working directory)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(
		newCallGraphCmd(a),
		newSourceFinderCmd(a),
		newAnalyzeCmd(a),
		newQueryCmd(a),
		newFindCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)

	return cmd
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// init sets up logging and loads configuration before any subcommand runs.
func (a *app) init(cmd *cobra.Command, args []string) error {
	a.logger = newLogger(cmd.ErrOrStderr(), a.verbose)

	if a.projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		a.projectDir = wd
	}

	var loader config.Loader
	if a.cfgFile != "" {
		loader = config.NewFileLoader(a.projectDir, a.cfgFile)
	} else {
		loader = config.NewLoader(a.projectDir)
	}

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	a.logger.Debug("configuration loaded",
		"project_dir", a.projectDir,
		"config", a.cfgFile,
		"output_dir", cfg.Output.Dir)
	return nil
}

// path resolves a configured path against the project directory.
func (a *app) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.projectDir, p)
}

// resolvedConfig returns a copy of the configuration with paths resolved against the project directory.
func (a *app) resolvedConfig() *config.Config {
	cfg := *a.cfg
	cfg.Output.Dir = a.path(cfg.Output.Dir)
	cfg.Output.SQLite = a.path(cfg.Output.SQLite)
	cfg.Source.Root = a.path(cfg.Source.Root)
	return &cfg
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
