// Package duckdb persists knockout results in a DuckDB database so they can
// be queried after a run.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for knockout results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS knockouts (
		gene VARCHAR,
		variant_key VARCHAR,
		chrom VARCHAR,
		pos BIGINT,
		homozygous BOOLEAN,
		PRIMARY KEY (gene, variant_key)
	)`); err != nil {
		return err
	}

	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS knockouts_staging (
		gene VARCHAR,
		variant_key VARCHAR,
		chrom VARCHAR,
		pos BIGINT,
		homozygous BOOLEAN
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		input_path VARCHAR,
		input_size BIGINT,
		input_mtime TIMESTAMP,
		records BIGINT,
		knockout_records BIGINT,
		unresolved_genotypes BIGINT,
		created_at TIMESTAMP DEFAULT current_timestamp
	)`)
	return err
}
