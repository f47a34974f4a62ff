package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	"github.com/mvp-joe/apisummarizer/internal/decl"
	"github.com/mvp-joe/apisummarizer/internal/summarizer"
)

// ErrClassNotFound is returned when a class is not in the catalog.
var ErrClassNotFound = errors.New("class not found in catalog")

// ClassRow is the catalog listing entry for one class.
type ClassRow struct {
	BinaryName  string
	PackageName string
	SimpleName  string
	Kind        decl.Kind
	SuperClass  string
	FieldCount  int
	MethodCount int
	RunID       string
}

// CatalogReader reads classes and runs back from the catalog.
type CatalogReader struct {
	db *sql.DB
}

// NewCatalogReader creates a CatalogReader using an existing connection.
func NewCatalogReader(db *sql.DB) *CatalogReader {
	return &CatalogReader{db: db}
}

// GetClass loads the full declaration of one class. Annotation and constant
// values come back in their JSON shapes (numbers as float64, enum and class
// values as maps).
func (r *CatalogReader) GetClass(ctx context.Context, binaryName string) (*decl.ClassDecl, error) {
	var encoded string
	err := sq.Select("decl").
		From("classes").
		Where(sq.Eq{"binary_name": binaryName}).
		RunWith(r.db).
		QueryRowContext(ctx).
		Scan(&encoded)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, binaryName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query class %s: %w", binaryName, err)
	}
	return decodeDecl(binaryName, encoded)
}

func decodeDecl(name, encoded string) (*decl.ClassDecl, error) {
	var c decl.ClassDecl
	if err := json.Unmarshal([]byte(encoded), &c); err != nil {
		return nil, fmt.Errorf("failed to decode class %s: %w", name, err)
	}
	return &c, nil
}

// ListClasses lists classes whose package starts with packagePrefix, ordered
// by binary name. An empty prefix lists everything.
func (r *CatalogReader) ListClasses(ctx context.Context, packagePrefix string) ([]*ClassRow, error) {
	query := sq.Select(
		"binary_name", "package_name", "simple_name", "kind", "super_class",
		"field_count", "method_count", "run_id",
	).
		From("classes").
		OrderBy("binary_name")
	if packagePrefix != "" {
		query = query.Where(sq.Or{
			sq.Eq{"package_name": packagePrefix},
			sq.Expr("substr(package_name, 1, ?) = ?", utf8.RuneCountInString(packagePrefix)+1, packagePrefix+"."),
		})
	}

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	var out []*ClassRow
	for rows.Next() {
		var (
			row   ClassRow
			kind  string
			super sql.NullString
		)
		if err := rows.Scan(&row.BinaryName, &row.PackageName, &row.SimpleName, &kind, &super,
			&row.FieldCount, &row.MethodCount, &row.RunID); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		row.Kind = decl.Kind(kind)
		row.SuperClass = super.String
		out = append(out, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating classes: %w", err)
	}
	return out, nil
}

// Implementors returns the classes that directly list iface among their
// interfaces, ordered by name.
func (r *CatalogReader) Implementors(ctx context.Context, iface string) ([]string, error) {
	rows, err := sq.Select("binary_name").
		From("class_interfaces").
		Where(sq.Eq{"interface_name": iface}).
		OrderBy("binary_name").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query implementors of %s: %w", iface, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan implementor: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// LoadSummary reads every class in the catalog.
func (r *CatalogReader) LoadSummary(ctx context.Context) (summarizer.Summary, error) {
	rows, err := sq.Select("binary_name", "decl").
		From("classes").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	summary := summarizer.Summary{}
	for rows.Next() {
		var name, encoded string
		if err := rows.Scan(&name, &encoded); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		c, err := decodeDecl(name, encoded)
		if err != nil {
			return nil, err
		}
		summary[name] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating classes: %w", err)
	}
	return summary, nil
}

// Runs returns the most recent runs first. A limit of zero returns all runs.
func (r *CatalogReader) Runs(ctx context.Context, limit int) ([]*RunRecord, error) {
	query := sq.Select("run_id", "started_at", "finished_at", "mode", "inputs", "classes", "failed", "duplicates").
		From("runs").
		OrderBy("started_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []*RunRecord
	for rows.Next() {
		var (
			run             RunRecord
			started, finish string
		)
		if err := rows.Scan(&run.ID, &started, &finish, &run.Mode, &run.Inputs, &run.Classes, &run.Failed, &run.Duplicates); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(timeLayout, started)
		run.FinishedAt, _ = time.Parse(timeLayout, finish)
		out = append(out, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return out, nil
}
