package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/solana-fcg/internal/graph"
	"github.com/mvp-joe/solana-fcg/internal/source"
	"github.com/mvp-joe/solana-fcg/internal/storage"
)

// Test Plan for Analysis Dispatch:
// - ParseKind accepts both kinds and rejects others with ErrUnknownKind
// - call_graph requests produce a registry and stats
// - source_finder requests produce a symbol record
// - Unknown kinds fail without touching the input
// - Concurrent runs over distinct inputs do not interfere
// - WriteCallGraph writes <project>_call_graph.json and the optional SQLite export
// - LoadCallGraph reads both the JSON file and the SQLite export
// - ProjectName derives names from trace paths

func TestParseKind(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Kind{
		"call_graph":    KindCallGraph,
		"call-graph":    KindCallGraph,
		"source_finder": KindSourceFinder,
		"source-finder": KindSourceFinder,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("struct_analyzer")
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestRun_CallGraph(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), &Request{
		Kind:  KindCallGraph,
		Input: strings.NewReader("a.rs:10:foo -> b.rs:20:bar (call at 20:5)\ngarbage\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, KindCallGraph, res.Kind)
	require.NotNil(t, res.CallGraph)
	assert.Nil(t, res.Symbol)
	assert.Equal(t, 2, res.CallGraph.Len())
	assert.Equal(t, 1, res.Stats.Skipped)
}

func TestRun_SourceFinder(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), &Request{
		Kind: KindSourceFinder,
		Input: strings.NewReader("File Path: src/lib.rs\nSource Code:\n" +
			"pub fn transfer(&self, amount: u64, to: Pubkey) {\n}\nFunction Calls: None\n"),
		Reconciler: &source.Reconciler{Fallback: source.FallbackSnippet},
	})
	require.NoError(t, err)

	require.NotNil(t, res.Symbol)
	assert.Nil(t, res.CallGraph)
	assert.Equal(t, "transfer(u64,Pubkey)", res.Symbol.Function)
	assert.Equal(t, "lib", res.Symbol.Contract)
}

func TestRun_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), &Request{Kind: "struct_analyzer", Input: strings.NewReader("")})
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, &Request{Kind: KindCallGraph, Input: strings.NewReader("")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ConcurrentIndependent(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			trace := strings.Repeat("a.rs:1:a -> b.rs:2:b (call at 1:1)\n", i+1)
			results[i], errs[i] = Run(context.Background(), &Request{Kind: KindCallGraph, Input: strings.NewReader(trace)})
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		require.NoError(t, errs[i])
		fn, ok := res.CallGraph.Function("a.rs:1:a")
		require.True(t, ok)
		assert.Equal(t, i+1, fn.CallCount)
	}
}

func TestWriteCallGraph(t *testing.T) {
	t.Parallel()

	r, _, err := graph.ParseTrace(strings.NewReader("a.rs:10:foo -> b.rs:20:bar (call at 20:5)\n"))
	require.NoError(t, err)

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "export.db")
	written, err := WriteCallGraph(r, Output{Dir: dir, Project: "vault", SQLite: dbPath})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "vault_call_graph.json"), written.JSONPath)
	assert.Equal(t, dbPath, written.SQLitePath)
	_, err = os.Stat(written.JSONPath)
	require.NoError(t, err)

	db, err := storage.OpenExport(dbPath)
	require.NoError(t, err)
	defer db.Close()
	counts, err := storage.CallCounts(db)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["a.rs:10:foo"])
}

func TestWriteCallGraph_RequiresProject(t *testing.T) {
	t.Parallel()

	_, err := WriteCallGraph(graph.NewRegistry(), Output{Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestLoadCallGraph(t *testing.T) {
	t.Parallel()

	r, _, err := graph.ParseTrace(strings.NewReader("a.rs:10:foo -> b.rs:20:bar (call at 20:5)\na.rs:10:foo -> b.rs:20:bar (call at 21:5)\n"))
	require.NoError(t, err)

	dir := t.TempDir()
	written, err := WriteCallGraph(r, Output{Dir: dir, Project: "vault", SQLite: filepath.Join(dir, "vault.sqlite")})
	require.NoError(t, err)

	for _, path := range []string{written.JSONPath, written.SQLitePath} {
		loaded, err := LoadCallGraph(path)
		require.NoError(t, err, path)
		assert.Equal(t, 2, loaded.Len(), path)
		assert.Equal(t, 2, loaded.EdgeCount(), path)
	}

	_, err = LoadCallGraph(filepath.Join(dir, "missing.db"))
	assert.Error(t, err)
}

func TestProjectName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "mango_trace", ProjectName("/tmp/traces/mango_trace.txt"))
	assert.Equal(t, "vault", ProjectName("vault.trace"))
	assert.Equal(t, "raydium", ProjectName("raydium"))
	assert.Equal(t, "stdin", ProjectName("-"))
}
