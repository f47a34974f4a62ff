// Package storage persists summaries into a SQLite catalog so later commands
// can read declarations back without re-parsing class files.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrCatalogLocked is returned when another process holds the write lock.
	ErrCatalogLocked = errors.New("catalog is locked by another process")
	// ErrNoCatalog is returned when opening a catalog that was never written.
	ErrNoCatalog = errors.New("catalog does not exist")
)

// Catalog is an open catalog database.
type Catalog struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open opens the catalog at path for writing, creating the schema on first
// use. A file lock next to the database keeps concurrent writers out.
func Open(path string) (*Catalog, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire catalog lock: %w", err)
	}
	if !locked {
		return nil, ErrCatalogLocked
	}

	db, err := openDB(path)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		lock.Unlock()
		return nil, fmt.Errorf("failed to check schema version: %w", err)
	}
	if version == "0" {
		if err := CreateSchema(db); err != nil {
			db.Close()
			lock.Unlock()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Catalog{db: db, path: path, lock: lock}, nil
}

// OpenReadOnly opens an existing catalog without taking the write lock.
func OpenReadOnly(path string) (*Catalog, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoCatalog, path)
		}
		return nil, err
	}
	// go-sqlite3 only passes mode=ro through for file: URIs.
	db, err := openDB("file:" + path + "?mode=ro")
	if err != nil {
		return nil, err
	}
	return &Catalog{db: db, path: path}, nil
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// Path returns the database file path.
func (c *Catalog) Path() string { return c.path }

// Writer returns a writer bound to this catalog.
func (c *Catalog) Writer() *CatalogWriter { return NewCatalogWriter(c.db) }

// Reader returns a reader bound to this catalog.
func (c *Catalog) Reader() *CatalogReader { return NewCatalogReader(c.db) }

// Close closes the database and releases the write lock.
func (c *Catalog) Close() error {
	err := c.db.Close()
	if c.lock != nil {
		err = errors.Join(err, c.lock.Unlock())
	}
	return err
}
