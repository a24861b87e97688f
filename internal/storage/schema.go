package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is written to export_metadata on creation.
const SchemaVersion = "1"

// CreateSchema creates the call graph export tables and indexes.
// Uses a transaction so schema creation succeeds or fails as a whole.
//
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"functions", createFunctionsTable},
		{"function_calls", createFunctionCallsTable},
		{"export_metadata", createExportMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT INTO export_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap export_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// GetSchemaVersion retrieves the schema version from export_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='export_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check export_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM export_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in export_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createFunctionsTable = `
CREATE TABLE functions (
    function_id TEXT PRIMARY KEY,                -- file_path:line:name
    file_path TEXT NOT NULL,
    module TEXT NOT NULL,                        -- file stem, lib for src/lib.rs
    name TEXT NOT NULL,
    line INTEGER NOT NULL,                       -- definition line
    call_count INTEGER NOT NULL DEFAULT 0,       -- always the number of function_calls rows
    position INTEGER NOT NULL                    -- first-seen order in the trace
)
`

const createFunctionCallsTable = `
CREATE TABLE function_calls (
    call_id TEXT PRIMARY KEY,                    -- UUID
    caller_function_id TEXT NOT NULL,
    callee_function_id TEXT NOT NULL,
    position INTEGER NOT NULL,                   -- index within the caller's calls
    FOREIGN KEY (caller_function_id) REFERENCES functions(function_id) ON DELETE CASCADE,
    FOREIGN KEY (callee_function_id) REFERENCES functions(function_id) ON DELETE CASCADE
)
`

const createExportMetadataTable = `
CREATE TABLE export_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

func getAllIndexes() []string {
	return []string{
		"CREATE INDEX idx_functions_file_path ON functions(file_path)",
		"CREATE INDEX idx_functions_name ON functions(name)",
		"CREATE INDEX idx_functions_position ON functions(position)",
		"CREATE INDEX idx_function_calls_caller ON function_calls(caller_function_id)",
		"CREATE INDEX idx_function_calls_callee ON function_calls(callee_function_id)",
	}
}
