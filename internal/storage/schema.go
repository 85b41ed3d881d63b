package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is written to the metadata table by CreateSchema.
const SchemaVersion = "1"

// CreateSchema creates all tables and indexes for analysis results.
// Uses a transaction so schema creation succeeds or fails as a whole.
//
// Every child table cascades on delete from its parent, so deleting a row of
// files removes everything extracted from that file.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Create all tables in dependency order
	tables := []struct {
		name string
		ddl  string
	}{
		{"files", createFilesTable},
		{"classes", createClassesTable},
		{"methods", createMethodsTable},
		{"parameters", createParametersTable},
		{"calls", createCallsTable},
		{"metadata", createMetadataTable},
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
		"INSERT INTO metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)",
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("schema_version key not found in metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createFilesTable = `
CREATE TABLE files (
    file_path TEXT PRIMARY KEY,                  -- Slash-separated path relative to the batch root
    class_count INTEGER NOT NULL DEFAULT 0,      -- All classes, nested included
    method_count INTEGER NOT NULL DEFAULT 0,
    analyzed_at TEXT NOT NULL                    -- ISO 8601
)
`

const createClassesTable = `
CREATE TABLE classes (
    class_id TEXT PRIMARY KEY,                   -- UUID
    file_path TEXT NOT NULL,
    parent_id TEXT,                              -- Enclosing class (NULL for top level)
    name TEXT NOT NULL,
    qualified_name TEXT NOT NULL,                -- Outer.Inner
    depth INTEGER NOT NULL,                      -- 0 for top level
    position INTEGER NOT NULL,                   -- Order among siblings
    modifiers TEXT NOT NULL,                     -- JSON array
    annotations TEXT NOT NULL,                   -- JSON array
    extends TEXT NOT NULL,                       -- JSON array
    implements TEXT NOT NULL,                    -- JSON array
    comments TEXT NOT NULL,
    original_code TEXT NOT NULL,
    FOREIGN KEY (file_path) REFERENCES files(file_path) ON DELETE CASCADE,
    FOREIGN KEY (parent_id) REFERENCES classes(class_id) ON DELETE CASCADE
)
`

const createMethodsTable = `
CREATE TABLE methods (
    method_id TEXT PRIMARY KEY,                  -- UUID
    class_id TEXT NOT NULL,
    file_path TEXT NOT NULL,                     -- Denormalized for per-file queries
    name TEXT NOT NULL,
    qualified_name TEXT NOT NULL,                -- Outer.Inner.method
    is_constructor INTEGER NOT NULL DEFAULT 0,
    return_type TEXT NOT NULL,
    position INTEGER NOT NULL,
    modifiers TEXT NOT NULL,                     -- JSON array
    annotations TEXT NOT NULL,                   -- JSON array
    comments TEXT NOT NULL,
    original_code TEXT NOT NULL,
    FOREIGN KEY (class_id) REFERENCES classes(class_id) ON DELETE CASCADE
)
`

const createParametersTable = `
CREATE TABLE parameters (
    method_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    param_type TEXT NOT NULL,
    PRIMARY KEY (method_id, position),
    FOREIGN KEY (method_id) REFERENCES methods(method_id) ON DELETE CASCADE
)
`

const createCallsTable = `
CREATE TABLE calls (
    method_id TEXT NOT NULL,                     -- Caller
    callee_name TEXT NOT NULL,                   -- Simple name, unresolved
    PRIMARY KEY (method_id, callee_name),
    FOREIGN KEY (method_id) REFERENCES methods(method_id) ON DELETE CASCADE
)
`

const createMetadataTable = `
CREATE TABLE metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

func getAllIndexes() []string {
	return []string{
		"CREATE INDEX idx_classes_file_path ON classes(file_path)",
		"CREATE INDEX idx_classes_parent ON classes(parent_id)",
		"CREATE INDEX idx_classes_name ON classes(name)",

		"CREATE INDEX idx_methods_class ON methods(class_id)",
		"CREATE INDEX idx_methods_file_path ON methods(file_path)",
		"CREATE INDEX idx_methods_name ON methods(name)",

		"CREATE INDEX idx_calls_callee ON calls(callee_name)",
	}
}
