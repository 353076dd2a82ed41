package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vep-knockout/internal/knockout"
)

// KnockoutRow is one stored (gene, variant) knockout call.
type KnockoutRow struct {
	Gene       string
	VariantKey string
	Chrom      string // empty when the key has no parsable locus
	Pos        int64
	Homozygous bool
}

// ReplaceKnockouts replaces the stored knockouts with every (gene, variant)
// pair of res. Rows are batch-loaded into a staging table with the Appender
// API and swapped in within one transaction, so a failed load keeps the
// previous rows.
func (s *Store) ReplaceKnockouts(res *knockout.Result) error {
	ctx := context.Background()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "DELETE FROM knockouts_staging"); err != nil {
		return fmt.Errorf("clear staging: %w", err)
	}
	if err := appendKnockouts(conn, "knockouts_staging", res); err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM knockouts",
		"INSERT INTO knockouts SELECT * FROM knockouts_staging",
		"DELETE FROM knockouts_staging",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("swap knockouts: %w", err)
		}
	}
	return tx.Commit()
}

func appendKnockouts(conn *sql.Conn, table string, res *knockout.Result) error {
	if res.All.Len() == 0 {
		return nil
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for _, gene := range res.All.Genes() {
		for _, key := range res.All.Variants(gene) {
			locus, _ := knockout.ParseLocus(key)
			if err := appender.AppendRow(
				gene, key, locus.Chrom, locus.Pos, res.Homozygous.Has(gene, key),
			); err != nil {
				appender.Close()
				return fmt.Errorf("append knockout: %w", err)
			}
		}
	}

	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush knockouts: %w", err)
	}
	return nil
}

// SearchByGene returns the stored knockouts of a gene in insertion order.
func (s *Store) SearchByGene(gene string) ([]KnockoutRow, error) {
	rows, err := s.db.Query(`SELECT gene, variant_key, chrom, pos, homozygous
		FROM knockouts
		WHERE gene=?
		ORDER BY rowid`, gene)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	return scanKnockoutRows(rows)
}

// Genes returns the distinct stored gene symbols, sorted. With
// homozygousOnly set, only genes with a homozygous knockout are returned.
func (s *Store) Genes(homozygousOnly bool) ([]string, error) {
	query := `SELECT DISTINCT gene FROM knockouts ORDER BY gene`
	if homozygousOnly {
		query = `SELECT DISTINCT gene FROM knockouts WHERE homozygous ORDER BY gene`
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query genes: %w", err)
	}
	defer rows.Close()

	var genes []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan gene: %w", err)
		}
		genes = append(genes, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genes: %w", err)
	}
	return genes, nil
}

// LoadResult rebuilds a knockout.Result from the stored rows.
func (s *Store) LoadResult() (*knockout.Result, error) {
	rows, err := s.db.Query(`SELECT gene, variant_key, chrom, pos, homozygous
		FROM knockouts
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query knockouts: %w", err)
	}
	defer rows.Close()

	stored, err := scanKnockoutRows(rows)
	if err != nil {
		return nil, err
	}

	res := knockout.NewResult()
	for _, r := range stored {
		res.All.Add(r.Gene, r.VariantKey)
		if r.Homozygous {
			res.Homozygous.Add(r.Gene, r.VariantKey)
		}
	}
	return res, nil
}

// scanKnockoutRows scans rows into KnockoutRow slices.
func scanKnockoutRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]KnockoutRow, error) {
	var out []KnockoutRow
	for rows.Next() {
		var r KnockoutRow
		if err := rows.Scan(&r.Gene, &r.VariantKey, &r.Chrom, &r.Pos, &r.Homozygous); err != nil {
			return nil, fmt.Errorf("scan knockout: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knockouts: %w", err)
	}
	return out, nil
}
