package analysis

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/solana-fcg/internal/graph"
	"github.com/mvp-joe/solana-fcg/internal/storage"
)

// Output says where a call graph should be persisted.
type Output struct {
	Dir     string // directory for <project>_call_graph.json
	Project string
	SQLite  string // optional export database path
}

// Written reports the files produced by WriteCallGraph.
type Written struct {
	JSONPath   string
	SQLitePath string
}

// WriteCallGraph saves the registry as JSON (atomically) and, when configured,
// mirrors it into the SQLite export.
func WriteCallGraph(r *graph.Registry, out Output) (*Written, error) {
	if out.Project == "" {
		return nil, fmt.Errorf("project name is required")
	}

	store, err := graph.NewStorage(out.Dir)
	if err != nil {
		return nil, err
	}
	jsonPath, err := store.Save(out.Project, r)
	if err != nil {
		return nil, err
	}
	written := &Written{JSONPath: jsonPath}

	if out.SQLite != "" {
		w, err := storage.NewCallGraphWriter(out.SQLite)
		if err != nil {
			return written, fmt.Errorf("failed to open SQLite export: %w", err)
		}
		defer w.Close()

		if err := w.Write(r); err != nil {
			return written, fmt.Errorf("failed to export call graph to SQLite: %w", err)
		}
		written.SQLitePath = out.SQLite
	}

	return written, nil
}

// LoadCallGraph reads a call graph from a JSON file written by WriteCallGraph
// or from a SQLite export (.db, .sqlite, .sqlite3).
func LoadCallGraph(path string) (*graph.Registry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return storage.ReadExport(path)
	default:
		return graph.LoadFile(path)
	}
}

// ProjectName derives a project name from an input path: the base name without
// its extension.
func ProjectName(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		return base
	}
	return name
}
