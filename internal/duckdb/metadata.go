package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/inodb/vep-knockout/internal/knockout"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Run describes one stored pipeline run.
type Run struct {
	Input     FileFingerprint
	Stats     knockout.Stats
	CreatedAt time.Time
}

// RecordRun stores the input fingerprint and counters of a run.
func (s *Store) RecordRun(fp FileFingerprint, stats knockout.Stats) error {
	_, err := s.db.Exec(`INSERT INTO runs
		(input_path, input_size, input_mtime, records, knockout_records, unresolved_genotypes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		fp.Path, fp.Size, fp.ModTime, stats.Records, stats.KnockoutRecords, stats.UnresolvedGenotypes)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// LastRun returns the most recently recorded run, or nil if none exists.
func (s *Store) LastRun() (*Run, error) {
	row := s.db.QueryRow(`SELECT input_path, input_size, input_mtime,
		records, knockout_records, unresolved_genotypes, created_at
		FROM runs ORDER BY created_at DESC LIMIT 1`)

	var r Run
	var records, knockoutRecords, unresolved int64
	err := row.Scan(&r.Input.Path, &r.Input.Size, &r.Input.ModTime,
		&records, &knockoutRecords, &unresolved, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	r.Stats = knockout.Stats{
		Records:             int(records),
		KnockoutRecords:     int(knockoutRecords),
		UnresolvedGenotypes: int(unresolved),
	}
	return &r, nil
}
