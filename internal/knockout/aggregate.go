package knockout

import (
	"go.uber.org/zap"

	"github.com/inodb/vep-knockout/internal/annotate"
	"github.com/inodb/vep-knockout/internal/vcf"
)

// GenotypeLookup resolves a locus to its cohort genotype summary.
type GenotypeLookup interface {
	Lookup(l vcf.Locus) (vcf.GenotypeSummary, bool)
}

// Aggregator maps knockout records to genes.
type Aggregator struct {
	rules  Rules
	logger *zap.Logger
}

// NewAggregator creates an aggregator using the given rules.
func NewAggregator(rules Rules) *Aggregator {
	return &Aggregator{
		rules:  rules,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for per-variant debug messages.
func (a *Aggregator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Aggregate builds a fresh Result from records. A nil genotypes lookup
// leaves every knockout unresolved for homozygous classification.
func (a *Aggregator) Aggregate(records []*annotate.Record, genotypes GenotypeLookup) *Result {
	res := NewResult()
	for _, rec := range records {
		a.Add(res, rec, genotypes)
	}
	return res
}

// Add folds a single record into res.
func (a *Aggregator) Add(res *Result, rec *annotate.Record, genotypes GenotypeLookup) {
	if rec == nil {
		return
	}
	res.Stats.Records++

	rule := a.rules.Classify(rec)
	if rule == PolicyNone {
		return
	}
	res.Stats.KnockoutRecords++

	key := VariantKey(rec)
	a.logger.Debug("knockout variant",
		zap.String("variant", key),
		zap.Stringer("rule", rule))

	var (
		resolved bool
		summary  vcf.GenotypeSummary
		looked   bool
	)

	for _, tc := range rec.TranscriptConsequences {
		if tc == nil {
			continue
		}
		gene := tc.GeneSymbol
		if gene == "" || gene == annotate.UnknownGene {
			res.Stats.UnknownGene++
			continue
		}

		res.All.Add(gene, key)

		if !looked {
			looked = true
			summary, resolved = a.resolve(rec, key, genotypes)
			if !resolved {
				res.Stats.UnresolvedGenotypes++
			}
		}

		if resolved && summary.HomozygousOnly() {
			res.Homozygous.Add(gene, key)
		}
	}
}

func (a *Aggregator) resolve(rec *annotate.Record, key string, genotypes GenotypeLookup) (vcf.GenotypeSummary, bool) {
	locus, ok := RecordLocus(rec)
	if !ok {
		a.logger.Debug("cannot derive locus from variant key",
			zap.String("variant", key))
		return vcf.GenotypeSummary{}, false
	}
	if genotypes == nil {
		return vcf.GenotypeSummary{}, false
	}

	summary, ok := genotypes.Lookup(locus)
	if !ok {
		a.logger.Debug("no genotype summary for knockout variant",
			zap.String("variant", key),
			zap.Stringer("locus", locus))
		return vcf.GenotypeSummary{}, false
	}
	return summary, true
}

// Aggregate applies DefaultRules to records.
func Aggregate(records []*annotate.Record, genotypes GenotypeLookup) *Result {
	return NewAggregator(DefaultRules()).Aggregate(records, genotypes)
}
