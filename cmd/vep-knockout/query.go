package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vep-knockout/internal/duckdb"
)

func newQueryCmd() *cobra.Command {
	var (
		dbPath         string
		homozygousOnly bool
		format         string
	)

	cmd := &cobra.Command{
		Use:   "query [gene]",
		Short: "Query knockouts stored by run --db",
		Long: `Without arguments, list stored knockout genes. With a gene symbol, list
that gene's knockout variants. With --format, print the full stored report.`,
		Example: `  vep-knockout query --db knockouts.duckdb
  vep-knockout query --db knockouts.duckdb --homozygous
  vep-knockout query --db knockouts.duckdb BRCA2`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = viper.GetString("run.db")
			}
			if dbPath == "" {
				return usageErrorf("--db is required")
			}

			store, err := duckdb.Open(dbPath)
			if err != nil {
				return fmt.Errorf("opening knockout store: %w", err)
			}
			defer store.Close()

			w := cmd.OutOrStdout()
			switch {
			case len(args) == 1:
				return queryGene(w, store, args[0], homozygousOnly)
			case format != "":
				if homozygousOnly {
					return usageErrorf("--homozygous cannot be combined with --format")
				}
				if format != "text" && format != "tab" {
					return usageErrorf("unknown output format %q", format)
				}
				res, err := store.LoadResult()
				if err != nil {
					return err
				}
				return writeReport(w, format, res)
			default:
				return queryGenes(w, store, homozygousOnly)
			}
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB file written by run --db")
	cmd.Flags().BoolVar(&homozygousOnly, "homozygous", false, "Only list homozygous knockouts")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Print the full stored report: text, tab")

	return cmd
}

func queryGene(w io.Writer, store *duckdb.Store, gene string, homozygousOnly bool) error {
	rows, err := store.SearchByGene(gene)
	if err != nil {
		return err
	}
	if homozygousOnly {
		rows = slices.DeleteFunc(rows, func(r duckdb.KnockoutRow) bool { return !r.Homozygous })
	}
	if len(rows) == 0 {
		return fmt.Errorf("no knockouts stored for gene %q", gene)
	}

	fmt.Fprintln(w, strings.Join([]string{"#Variant", "Chrom", "Pos", "Homozygous"}, "\t"))
	for _, r := range rows {
		pos := ""
		if r.Pos > 0 {
			pos = fmt.Sprint(r.Pos)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", r.VariantKey, r.Chrom, pos, r.Homozygous)
	}
	return nil
}

func queryGenes(w io.Writer, store *duckdb.Store, homozygousOnly bool) error {
	genes, err := store.Genes(homozygousOnly)
	if err != nil {
		return err
	}
	for _, g := range genes {
		fmt.Fprintln(w, g)
	}

	run, err := store.LastRun()
	if err != nil {
		return err
	}
	if run != nil {
		fmt.Fprintf(w, "# %d genes from %s (%s)\n", len(genes), run.Input.Path, run.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
