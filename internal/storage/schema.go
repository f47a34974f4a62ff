package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is written to catalog_metadata by CreateSchema.
const SchemaVersion = "1.0"

// CreateSchema creates all tables and indexes for the catalog.
// Uses a transaction so schema creation succeeds or fails as a whole.
//
// Schema includes:
//   - runs: one row per summarization run
//   - classes: one row per binary class name, replaced by later runs
//   - class_interfaces, class_fields, class_methods, class_annotations: child
//     rows deleted with their class
//   - catalog_metadata: schema version and bookkeeping
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"classes", createClassesTable},
		{"class_interfaces", createClassInterfacesTable},
		{"class_fields", createClassFieldsTable},
		{"class_methods", createClassMethodsTable},
		{"class_annotations", createClassAnnotationsTable},
		{"catalog_metadata", createCatalogMetadataTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range allIndexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT INTO catalog_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap catalog_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from catalog_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='catalog_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check catalog_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM catalog_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in catalog_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createRunsTable = `
CREATE TABLE runs (
    run_id TEXT PRIMARY KEY,                     -- UUID
    started_at TEXT NOT NULL,                    -- ISO 8601
    finished_at TEXT NOT NULL,
    mode TEXT NOT NULL,                          -- fail-fast or best-effort
    inputs INTEGER NOT NULL DEFAULT 0,
    classes INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    duplicates INTEGER NOT NULL DEFAULT 0
)
`

const createClassesTable = `
CREATE TABLE classes (
    binary_name TEXT PRIMARY KEY,                -- Dotted binary name
    run_id TEXT NOT NULL,                        -- Run that last wrote this class
    package_name TEXT NOT NULL,
    simple_name TEXT NOT NULL,
    kind TEXT NOT NULL,                          -- CLASS, INTERFACE, ENUM, ANNOTATION
    super_class TEXT,                            -- NULL for java.lang.Object and module-info
    access INTEGER NOT NULL,
    modifiers TEXT NOT NULL,                     -- Space separated
    outer TEXT,
    source_file TEXT,
    deprecated INTEGER NOT NULL DEFAULT 0,
    major_version INTEGER NOT NULL,
    minor_version INTEGER NOT NULL,
    field_count INTEGER NOT NULL DEFAULT 0,      -- Denormalized count
    method_count INTEGER NOT NULL DEFAULT 0,     -- Denormalized count
    decl TEXT NOT NULL,                          -- Full declaration as JSON
    FOREIGN KEY (run_id) REFERENCES runs(run_id)
)
`

const createClassInterfacesTable = `
CREATE TABLE class_interfaces (
    binary_name TEXT NOT NULL,
    interface_name TEXT NOT NULL,
    position INTEGER NOT NULL,                   -- Declaration order
    PRIMARY KEY (binary_name, position),
    FOREIGN KEY (binary_name) REFERENCES classes(binary_name) ON DELETE CASCADE
)
`

const createClassFieldsTable = `
CREATE TABLE class_fields (
    binary_name TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    descriptor TEXT NOT NULL,
    access INTEGER NOT NULL,
    modifiers TEXT NOT NULL,
    PRIMARY KEY (binary_name, position),
    FOREIGN KEY (binary_name) REFERENCES classes(binary_name) ON DELETE CASCADE
)
`

const createClassMethodsTable = `
CREATE TABLE class_methods (
    binary_name TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    descriptor TEXT NOT NULL,
    access INTEGER NOT NULL,
    modifiers TEXT NOT NULL,
    param_count INTEGER NOT NULL DEFAULT 0,
    return_type TEXT NOT NULL,
    PRIMARY KEY (binary_name, position),
    FOREIGN KEY (binary_name) REFERENCES classes(binary_name) ON DELETE CASCADE
)
`

const createClassAnnotationsTable = `
CREATE TABLE class_annotations (
    binary_name TEXT NOT NULL,
    annotation_type TEXT NOT NULL,               -- Dotted annotation type name
    PRIMARY KEY (binary_name, annotation_type),
    FOREIGN KEY (binary_name) REFERENCES classes(binary_name) ON DELETE CASCADE
)
`

const createCatalogMetadataTable = `
CREATE TABLE catalog_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

var allIndexes = []string{
	"CREATE INDEX idx_classes_package ON classes(package_name)",
	"CREATE INDEX idx_classes_super ON classes(super_class)",
	"CREATE INDEX idx_classes_run ON classes(run_id)",
	"CREATE INDEX idx_class_interfaces_iface ON class_interfaces(interface_name)",
	"CREATE INDEX idx_class_methods_name ON class_methods(name)",
	"CREATE INDEX idx_class_fields_name ON class_fields(name)",
	"CREATE INDEX idx_class_annotations_type ON class_annotations(annotation_type)",
}
