package storage

import (
	"database/sql"
	"fmt"
	"path"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/solana-fcg/internal/graph"
)

// OpenExport opens (or creates) an export database with foreign keys enabled
// and the schema in place.
func OpenExport(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if version == "0" {
		if err := CreateSchema(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// CallGraphWriter writes a call graph registry to SQLite.
type CallGraphWriter struct {
	db     *sql.DB
	ownsDB bool // true if we opened the connection, false if shared
}

// NewCallGraphWriter opens dbPath via OpenExport and owns the connection.
func NewCallGraphWriter(dbPath string) (*CallGraphWriter, error) {
	db, err := OpenExport(dbPath)
	if err != nil {
		return nil, err
	}
	return &CallGraphWriter{db: db, ownsDB: true}, nil
}

// Close closes the database connection if owned by this writer.
func (w *CallGraphWriter) Close() error {
	if !w.ownsDB {
		return nil
	}
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}

// Write replaces the stored call graph with r in a single transaction.
// Calls whose callee is not a known function are skipped.
func (w *CallGraphWriter) Write(r *graph.Registry) error {
	if r == nil {
		return fmt.Errorf("registry cannot be nil")
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Children first to satisfy foreign keys
	for _, table := range []string{"function_calls", "functions"} {
		if _, err := sq.Delete(table).RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("failed to clear existing data (%s): %w", table, err)
		}
	}

	functions := r.Functions()
	if err := writeFunctions(tx, functions); err != nil {
		return fmt.Errorf("failed to write functions: %w", err)
	}
	if err := writeCalls(tx, r, functions); err != nil {
		return fmt.Errorf("failed to write calls: %w", err)
	}
	if err := touchMetadata(tx, "last_written", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func writeFunctions(tx *sql.Tx, functions []*graph.Function) error {
	for i, fn := range functions {
		_, err := sq.Insert("functions").
			Columns("function_id", "file_path", "module", "name", "line", "call_count", "position").
			Values(fn.String(), fn.FilePath, moduleName(fn.FilePath), fn.Name, fn.Line, fn.CallCount, i).
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to insert function %s: %w", fn.String(), err)
		}
	}
	return nil
}

func writeCalls(tx *sql.Tx, r *graph.Registry, functions []*graph.Function) error {
	for _, fn := range functions {
		caller := fn.String()
		for pos, callee := range fn.Calls {
			if _, ok := r.Function(callee); !ok {
				continue
			}
			_, err := sq.Insert("function_calls").
				Columns("call_id", "caller_function_id", "callee_function_id", "position").
				Values(uuid.NewString(), caller, callee, pos).
				RunWith(tx).
				Exec()
			if err != nil {
				return fmt.Errorf("failed to insert call %s -> %s: %w", caller, callee, err)
			}
		}
	}
	return nil
}

func touchMetadata(tx *sql.Tx, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := sq.Insert("export_metadata").
		Columns("key", "value", "updated_at").
		Values(key, value, now).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to update export metadata %s: %w", key, err)
	}
	return nil
}

// moduleName is the file stem with forward-slash semantics, matching how
// the analyzer reports paths.
func moduleName(filePath string) string {
	base := path.Base(strings.ReplaceAll(filePath, `\`, "/"))
	if stem := strings.TrimSuffix(base, path.Ext(base)); stem != "" {
		return stem
	}
	return base
}
