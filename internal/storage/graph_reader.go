package storage

import (
	"database/sql"
	"fmt"
	"os"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/solana-fcg/internal/graph"
)

// FunctionRow is one row of the functions table.
type FunctionRow struct {
	ID        string
	FilePath  string
	Module    string
	Name      string
	Line      int
	CallCount int
}

// CallRow is one row of the function_calls table.
type CallRow struct {
	ID       string
	CallerID string
	CalleeID string
	Position int
}

// CallGraphReader reads an exported call graph back from SQLite.
type CallGraphReader struct {
	db *sql.DB
}

// NewCallGraphReader creates a reader on an existing connection.
func NewCallGraphReader(db *sql.DB) *CallGraphReader {
	return &CallGraphReader{db: db}
}

// ReadFunctions loads all functions in first-seen order.
func (r *CallGraphReader) ReadFunctions() ([]*FunctionRow, error) {
	rows, err := sq.Select("function_id", "file_path", "module", "name", "line", "call_count").
		From("functions").
		OrderBy("position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query functions: %w", err)
	}
	defer rows.Close()

	var functions []*FunctionRow
	for rows.Next() {
		fn := &FunctionRow{}
		if err := rows.Scan(&fn.ID, &fn.FilePath, &fn.Module, &fn.Name, &fn.Line, &fn.CallCount); err != nil {
			return nil, fmt.Errorf("failed to scan function: %w", err)
		}
		functions = append(functions, fn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating functions: %w", err)
	}

	return functions, nil
}

// ReadCalls loads all calls ordered by caller first-seen order, then call order.
func (r *CallGraphReader) ReadCalls() ([]*CallRow, error) {
	rows, err := sq.Select("c.call_id", "c.caller_function_id", "c.callee_function_id", "c.position").
		From("function_calls c").
		Join("functions f ON f.function_id = c.caller_function_id").
		OrderBy("f.position", "c.position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query function calls: %w", err)
	}
	defer rows.Close()

	var calls []*CallRow
	for rows.Next() {
		call := &CallRow{}
		if err := rows.Scan(&call.ID, &call.CallerID, &call.CalleeID, &call.Position); err != nil {
			return nil, fmt.Errorf("failed to scan function call: %w", err)
		}
		calls = append(calls, call)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating function calls: %w", err)
	}

	return calls, nil
}

// ReadRegistry rebuilds the registry that was written, preserving order.
func (r *CallGraphReader) ReadRegistry() (*graph.Registry, error) {
	functions, err := r.ReadFunctions()
	if err != nil {
		return nil, err
	}
	calls, err := r.ReadCalls()
	if err != nil {
		return nil, err
	}

	reg := graph.NewRegistry()
	ids := make(map[string]graph.FunctionID, len(functions))
	for _, fn := range functions {
		id := graph.FunctionID{FilePath: fn.FilePath, Line: fn.Line, Name: fn.Name}
		ids[fn.ID] = id
		reg.Add(id)
	}
	for _, call := range calls {
		reg.RecordEdge(ids[call.CallerID], ids[call.CalleeID])
	}

	return reg, nil
}

// ReadExport opens an existing export read-only and rebuilds its registry.
func ReadExport(dbPath string) (*graph.Registry, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	version, err := GetSchemaVersion(db)
	if err != nil {
		return nil, err
	}
	if version == "0" {
		return nil, fmt.Errorf("%s is not a call graph export", dbPath)
	}

	return NewCallGraphReader(db).ReadRegistry()
}

// CallCounts returns function_id -> call_count.
func CallCounts(db *sql.DB) (map[string]int, error) {
	rows, err := sq.Select("function_id", "call_count").
		From("functions").
		RunWith(db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query call counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("failed to scan call count: %w", err)
		}
		counts[id] = count
	}

	return counts, rows.Err()
}
