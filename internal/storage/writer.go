package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/mvp-joe/apisummarizer/internal/decl"
	"github.com/mvp-joe/apisummarizer/internal/summarizer"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRecord describes one summarization run.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Mode       string
	Inputs     int
	Classes    int
	Failed     int
	Duplicates int
}

// NewRunRecord creates a record with a fresh run ID from run statistics.
func NewRunRecord(mode string, started time.Time, stats *summarizer.Stats) *RunRecord {
	r := &RunRecord{
		ID:         uuid.New().String(),
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
		Mode:       mode,
	}
	if stats != nil {
		r.Inputs = stats.Inputs
		r.Classes = stats.Classes
		r.Failed = stats.Failed
		r.Duplicates = stats.Duplicates
	}
	return r
}

// CatalogWriter writes summaries to the catalog.
type CatalogWriter struct {
	db *sql.DB
}

// NewCatalogWriter creates a CatalogWriter.
// DB must have schema already created via CreateSchema().
func NewCatalogWriter(db *sql.DB) *CatalogWriter {
	return &CatalogWriter{db: db}
}

// WriteRun records the run and replaces every class in summary in a single
// transaction. Classes absent from summary are left untouched.
func (w *CatalogWriter) WriteRun(ctx context.Context, run *RunRecord, summary summarizer.Summary) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	_, err = sq.Insert("runs").
		Columns("run_id", "started_at", "finished_at", "mode", "inputs", "classes", "failed", "duplicates").
		Values(
			run.ID,
			run.StartedAt.Format(timeLayout),
			run.FinishedAt.Format(timeLayout),
			run.Mode,
			run.Inputs,
			run.Classes,
			run.Failed,
			run.Duplicates,
		).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := writeClass(ctx, tx, run.ID, summary[name]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// DeleteClasses removes classes and their child rows.
func (w *CatalogWriter) DeleteClasses(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	_, err := sq.Delete("classes").
		Where(sq.Eq{"binary_name": names}).
		RunWith(w.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete classes: %w", err)
	}
	return nil
}

func writeClass(ctx context.Context, tx *sql.Tx, runID string, c *decl.ClassDecl) error {
	encoded, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.BinaryName, err)
	}

	// Child rows go with the old class row through ON DELETE CASCADE.
	if _, err := sq.Delete("classes").Where(sq.Eq{"binary_name": c.BinaryName}).RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to replace class %s: %w", c.BinaryName, err)
	}

	_, err = sq.Insert("classes").
		Columns(
			"binary_name", "run_id", "package_name", "simple_name", "kind",
			"super_class", "access", "modifiers", "outer", "source_file",
			"deprecated", "major_version", "minor_version",
			"field_count", "method_count", "decl",
		).
		Values(
			c.BinaryName,
			runID,
			c.PackageName,
			c.SimpleName,
			string(c.Kind),
			nullString(c.SuperClass),
			c.Access,
			strings.Join(c.Modifiers, " "),
			nullString(c.Outer),
			nullString(c.SourceFile),
			c.Deprecated,
			c.Version.Major,
			c.Version.Minor,
			len(c.Fields),
			len(c.Methods),
			string(encoded),
		).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert class %s: %w", c.BinaryName, err)
	}

	for i, iface := range c.Interfaces {
		_, err := sq.Insert("class_interfaces").
			Columns("binary_name", "interface_name", "position").
			Values(c.BinaryName, iface, i).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert interface %s of %s: %w", iface, c.BinaryName, err)
		}
	}

	for i, f := range c.Fields {
		_, err := sq.Insert("class_fields").
			Columns("binary_name", "position", "name", "descriptor", "access", "modifiers").
			Values(c.BinaryName, i, f.Name, f.Descriptor, f.Access, strings.Join(f.Modifiers, " ")).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert field %s.%s: %w", c.BinaryName, f.Name, err)
		}
	}

	for i, m := range c.Methods {
		_, err := sq.Insert("class_methods").
			Columns("binary_name", "position", "name", "descriptor", "access", "modifiers", "param_count", "return_type").
			Values(c.BinaryName, i, m.Name, m.Descriptor, m.Access, strings.Join(m.Modifiers, " "), len(m.Params), m.ReturnType).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert method %s.%s: %w", c.BinaryName, m.Name, err)
		}
	}

	for name := range c.Annotations {
		_, err := sq.Insert("class_annotations").
			Columns("binary_name", "annotation_type").
			Values(c.BinaryName, name).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert annotation %s on %s: %w", name, c.BinaryName, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
