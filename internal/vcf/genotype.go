package vcf

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Zygosity classifies a single sample's GT call.
type Zygosity int

const (
	NoCall Zygosity = iota
	HomRef
	Het
	HomAlt
)

func (z Zygosity) String() string {
	switch z {
	case HomRef:
		return "HOMOZYGOUS_REFERENCE"
	case Het:
		return "HETEROZYGOUS"
	case HomAlt:
		return "HOMOZYGOUS_ALTERNATE"
	default:
		return "NO_CALL"
	}
}

// ParseGenotype classifies a GT value such as "0/1", "1|1" or "1".
// Missing or unparsable alleles yield NoCall. A haploid alt call counts as
// HomAlt, since the only copy carries the variant.
func ParseGenotype(gt string) Zygosity {
	if gt == "" {
		return NoCall
	}

	var alleles []string
	switch {
	case strings.Contains(gt, "|"):
		alleles = strings.Split(gt, "|")
	case strings.Contains(gt, "/"):
		alleles = strings.Split(gt, "/")
	default:
		alleles = []string{gt}
	}

	first := -1
	allSame := true
	for i, a := range alleles {
		n, err := strconv.Atoi(a)
		if err != nil || n < 0 {
			return NoCall
		}
		if i == 0 {
			first = n
		} else if n != first {
			allSame = false
		}
	}

	switch {
	case !allSame:
		return Het
	case first == 0:
		return HomRef
	default:
		return HomAlt
	}
}

// Locus is a normalized (chromosome, position) pair.
type Locus struct {
	Chrom string
	Pos   int64
}

func (l Locus) String() string {
	return fmt.Sprintf("%s:%d", l.Chrom, l.Pos)
}

// GenotypeSummary tallies sample zygosity for one locus.
type GenotypeSummary struct {
	Het    int
	HomAlt int
	HomRef int
	NoCall int
}

// Add accumulates another summary into s.
func (s *GenotypeSummary) Add(o GenotypeSummary) {
	s.Het += o.Het
	s.HomAlt += o.HomAlt
	s.HomRef += o.HomRef
	s.NoCall += o.NoCall
}

// HomozygousOnly reports whether at least one sample is homozygous for an
// alternate allele and no sample is heterozygous.
func (s GenotypeSummary) HomozygousOnly() bool {
	return s.Het == 0 && s.HomAlt > 0
}

// GenotypeSummary tallies the GT calls of all samples on the variant.
// Variants without a GT FORMAT key produce an empty summary.
func (v *Variant) GenotypeSummary() GenotypeSummary {
	var s GenotypeSummary

	gtIdx := -1
	for i, f := range v.Format {
		if f == "GT" {
			gtIdx = i
			break
		}
	}
	if gtIdx < 0 {
		return s
	}

	for _, sample := range v.Samples {
		values := strings.Split(sample, ":")
		gt := ""
		if gtIdx < len(values) {
			gt = values[gtIdx]
		}
		switch ParseGenotype(gt) {
		case Het:
			s.Het++
		case HomAlt:
			s.HomAlt++
		case HomRef:
			s.HomRef++
		default:
			s.NoCall++
		}
	}

	return s
}

// GenotypeIndex maps loci to their genotype summaries.
type GenotypeIndex struct {
	entries      map[Locus]GenotypeSummary
	multiAllelic int
}

// NewGenotypeIndex creates an empty index.
func NewGenotypeIndex() *GenotypeIndex {
	return &GenotypeIndex{entries: make(map[Locus]GenotypeSummary)}
}

// Add records the variant's genotype summary. Several lines at one locus
// (e.g. a pre-split multi-allelic site) accumulate into a single summary.
func (g *GenotypeIndex) Add(v *Variant) {
	if v.IsMultiAllelic() {
		g.multiAllelic++
	}
	loc := v.Locus()
	s := g.entries[loc]
	s.Add(v.GenotypeSummary())
	g.entries[loc] = s
}

// Lookup returns the summary for a locus.
func (g *GenotypeIndex) Lookup(l Locus) (GenotypeSummary, bool) {
	s, ok := g.entries[Locus{Chrom: NormalizeChrom(l.Chrom), Pos: l.Pos}]
	return s, ok
}

// Len returns the number of indexed loci.
func (g *GenotypeIndex) Len() int {
	return len(g.entries)
}

// MultiAllelicSites returns how many indexed lines carried more than one ALT.
func (g *GenotypeIndex) MultiAllelicSites() int {
	return g.multiAllelic
}

// BuildGenotypeIndex reads all variants from parser in a single pass.
func BuildGenotypeIndex(parser VariantParser, logger *zap.Logger) (*GenotypeIndex, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	idx := NewGenotypeIndex()
	for {
		v, err := parser.Next()
		if err != nil {
			return nil, fmt.Errorf("read variant: %w", err)
		}
		if v == nil {
			break
		}
		idx.Add(v)
	}

	logger.Debug("built genotype index",
		zap.Int("loci", idx.Len()),
		zap.Int("multi_allelic", idx.MultiAllelicSites()))

	return idx, nil
}
