// Package output provides knockout report formatters.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vep-knockout/internal/knockout"
)

// Knockout categories written in the Category column.
const (
	CategoryAll        = "all"
	CategoryHomozygous = "homozygous"
)

// TabWriter writes knockout genes in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Gene",
			"Category",
			"Variant_count",
			"Variants",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes one row per gene of idx, sorted by gene symbol.
func (tw *TabWriter) Write(category string, idx *knockout.GeneIndex) error {
	for _, gene := range idx.Genes() {
		variants := idx.Variants(gene)
		values := []string{
			cell(gene),
			category,
			strconv.Itoa(len(variants)),
			cell(strings.Join(variants, ",")),
		}
		if _, err := tw.w.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteResult writes the all-knockouts rows followed by the homozygous rows.
func (tw *TabWriter) WriteResult(res *knockout.Result) error {
	if err := tw.Write(CategoryAll, res.All); err != nil {
		return err
	}
	return tw.Write(CategoryHomozygous, res.Homozygous)
}

var cellReplacer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// cell keeps a value inside its column.
func cell(s string) string {
	return cellReplacer.Replace(s)
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
