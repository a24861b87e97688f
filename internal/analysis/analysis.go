// Package analysis dispatches one analysis run over a fixed set of kinds.
//
// Every Run owns the registry or record it builds, so separate inputs can be
// analyzed concurrently without coordination.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mvp-joe/solana-fcg/internal/graph"
	"github.com/mvp-joe/solana-fcg/internal/source"
)

// ErrUnknownKind is returned for an analysis kind outside the supported set.
var ErrUnknownKind = errors.New("unknown analysis kind")

// Kind selects which parser handles the input.
type Kind string

const (
	// KindCallGraph compiles a call-hierarchy trace into a call graph.
	KindCallGraph Kind = "call_graph"
	// KindSourceFinder turns a symbol report into a symbol record.
	KindSourceFinder Kind = "source_finder"
)

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindCallGraph, KindSourceFinder}
}

// ParseKind validates a kind name. Hyphenated spellings are accepted.
func ParseKind(s string) (Kind, error) {
	switch s {
	case string(KindCallGraph), "call-graph":
		return KindCallGraph, nil
	case string(KindSourceFinder), "source-finder":
		return KindSourceFinder, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Request describes one analysis invocation.
type Request struct {
	Kind  Kind
	Input io.Reader

	// Call graph options
	IgnorePatterns []string

	// Source finder options
	Reconciler *source.Reconciler

	Logger *slog.Logger
}

// Result carries exactly one of CallGraph or Symbol, depending on the request kind.
type Result struct {
	Kind      Kind
	CallGraph *graph.Registry
	Stats     *graph.TraceStats
	Symbol    *source.Record
	Duration  time.Duration
}

// Run executes the analysis selected by req.Kind.
func Run(ctx context.Context, req *Request) (*Result, error) {
	if req.Input == nil {
		return nil, fmt.Errorf("analysis input is required")
	}
	logger := req.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{Kind: req.Kind}

	switch req.Kind {
	case KindCallGraph:
		parser, err := graph.NewTraceParser(
			graph.WithIgnorePatterns(req.IgnorePatterns),
			graph.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		reg, stats, err := parser.Parse(req.Input)
		if err != nil {
			return nil, err
		}
		res.CallGraph = reg
		res.Stats = stats
		logger.Info("call graph built",
			"functions", reg.Len(),
			"edges", stats.Edges,
			"skipped", stats.Skipped,
			"ignored", stats.Ignored)

	case KindSourceFinder:
		data, err := io.ReadAll(req.Input)
		if err != nil {
			return nil, fmt.Errorf("failed to read symbol report: %w", err)
		}
		res.Symbol = source.ParseReport(string(data),
			source.WithReconciler(req.Reconciler),
			source.WithReportLogger(logger))
		logger.Info("symbol report parsed", "function", res.Symbol.Function, "calls", len(res.Symbol.Calls))

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}

	res.Duration = time.Since(start)
	return res, nil
}
