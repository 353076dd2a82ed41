package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vep-knockout/internal/knockout"
)

// WriteText writes the console report: the all-knockouts section, a blank
// line, then the homozygous section. Genes are sorted; each line lists the
// gene's variant keys joined by ", ".
func WriteText(w io.Writer, res *knockout.Result) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Total potential gene knockouts found: %d\n", res.All.Len())
	writeGenes(bw, res.All)

	fmt.Fprintf(bw, "\nHomozygous gene knockouts found: %d\n", res.Homozygous.Len())
	writeGenes(bw, res.Homozygous)

	return bw.Flush()
}

func writeGenes(w *bufio.Writer, idx *knockout.GeneIndex) {
	for _, gene := range idx.Genes() {
		fmt.Fprintf(w, "%s: %s\n", gene, strings.Join(idx.Variants(gene), ", "))
	}
}

// WriteSummary writes aggregation counters, one per line.
func WriteSummary(w io.Writer, stats knockout.Stats) {
	fmt.Fprintf(w, "Records examined:            %d\n", stats.Records)
	fmt.Fprintf(w, "Knockout records:            %d\n", stats.KnockoutRecords)
	fmt.Fprintf(w, "Unattributed transcripts:    %d\n", stats.UnknownGene)
	fmt.Fprintf(w, "Unresolved genotype lookups: %d\n", stats.UnresolvedGenotypes)
}
