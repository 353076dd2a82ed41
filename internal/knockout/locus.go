package knockout

import (
	"strconv"
	"strings"

	"github.com/inodb/vep-knockout/internal/annotate"
	"github.com/inodb/vep-knockout/internal/vcf"
)

// ParseLocus extracts the (chromosome, position) pair from a variant key.
// Recognized forms:
//
//	1:1000A>T, chr1:1000          chrom ":" pos, optional allele suffix
//	1_1000_A/T                    VEP default identifier
//	1<TAB>1000<TAB>.<TAB>A ...    VCF data line echoed by VEP
//
// The chromosome is returned without a "chr" prefix.
func ParseLocus(key string) (vcf.Locus, bool) {
	key = strings.TrimSpace(key)

	var chrom, pos string
	switch {
	case strings.Contains(key, "\t"):
		fields := strings.SplitN(key, "\t", 3)
		if len(fields) < 2 {
			return vcf.Locus{}, false
		}
		chrom, pos = fields[0], fields[1]
	case strings.Contains(key, ":"):
		var rest string
		chrom, rest, _ = strings.Cut(key, ":")
		pos = leadingDigits(rest)
	case strings.Contains(key, "_"):
		parts := strings.Split(key, "_")
		if len(parts) < 2 {
			return vcf.Locus{}, false
		}
		posIdx := len(parts) - 1
		if strings.Contains(parts[posIdx], "/") {
			posIdx--
		}
		if posIdx < 1 {
			return vcf.Locus{}, false
		}
		chrom = strings.Join(parts[:posIdx], "_")
		pos = parts[posIdx]
	default:
		return vcf.Locus{}, false
	}

	if chrom == "" {
		return vcf.Locus{}, false
	}
	n, err := strconv.ParseInt(pos, 10, 64)
	if err != nil || n <= 0 {
		return vcf.Locus{}, false
	}

	return vcf.Locus{Chrom: vcf.NormalizeChrom(chrom), Pos: n}, true
}

// RecordLocus resolves the locus of a record from its Input key, falling
// back to the seq_region_name/start VEP reported. The fallback is less
// exact for indels, where VEP drops the anchor base and shifts start by one.
func RecordLocus(rec *annotate.Record) (vcf.Locus, bool) {
	if l, ok := ParseLocus(rec.Input); ok {
		return l, true
	}
	if rec.SeqRegion != "" && rec.Start > 0 {
		return vcf.Locus{Chrom: vcf.NormalizeChrom(rec.SeqRegion), Pos: rec.Start}, true
	}
	return vcf.Locus{}, false
}

// VariantKey returns the identifier under which rec's variant is reported.
// A VCF data line echoed by VEP as input is condensed to chrom:posREF>ALT,
// with several ALT alleles joined by "/". Other inputs are returned as is.
func VariantKey(rec *annotate.Record) string {
	if !strings.Contains(rec.Input, "\t") {
		return rec.Input
	}
	fields := strings.SplitN(strings.TrimSpace(rec.Input), "\t", 6)
	switch len(fields) {
	case 1:
		return fields[0]
	case 2, 3, 4:
		return fields[0] + ":" + fields[1]
	}
	alt := strings.ReplaceAll(fields[4], ",", "/")
	return fields[0] + ":" + fields[1] + fields[3] + ">" + alt
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}
