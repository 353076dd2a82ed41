// Package vcf provides VCF file parsing functionality.
package vcf

import "strings"

// Variant represents a single data line from a VCF file.
type Variant struct {
	Chrom   string   // Chromosome name (e.g., "12", "chr12")
	Pos     int64    // 1-based genomic position
	ID      string   // Variant identifier (e.g., rs ID)
	Ref     string   // Reference allele
	Alt     string   // Alternate allele(s), comma-separated when multi-allelic
	Filter  string   // Filter status (PASS or filter name)
	Format  []string // FORMAT keys (e.g., GT, AD, DP), nil if absent
	Samples []string // Raw per-sample columns, in header order
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	return NormalizeChrom(v.Chrom)
}

// Locus returns the normalized (chromosome, position) pair of the variant.
func (v *Variant) Locus() Locus {
	return Locus{Chrom: v.NormalizeChrom(), Pos: v.Pos}
}

// IsMultiAllelic returns true if the variant lists more than one ALT allele.
func (v *Variant) IsMultiAllelic() bool {
	return strings.Contains(v.Alt, ",")
}

// NormalizeChrom strips a leading "chr" from a chromosome name.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && chrom[:3] == "chr" {
		return chrom[3:]
	}
	return chrom
}
