// Package annotate models VEP JSON annotations and runs the external
// Variant Effect Predictor to obtain them.
package annotate

// Impact levels for variant consequences.
const (
	ImpactHigh     = "HIGH"
	ImpactModerate = "MODERATE"
	ImpactLow      = "LOW"
	ImpactModifier = "MODIFIER"
)

// Consequence types (Sequence Ontology terms).
const (
	// HIGH impact
	ConsequenceTranscriptAblation = "transcript_ablation"
	ConsequenceStopGained         = "stop_gained"
	ConsequenceFrameshiftVariant  = "frameshift_variant"
	ConsequenceStopLost           = "stop_lost"
	ConsequenceStartLost          = "start_lost"
	ConsequenceSpliceAcceptor     = "splice_acceptor_variant"
	ConsequenceSpliceDonor        = "splice_donor_variant"

	// MODERATE impact
	ConsequenceMissenseVariant  = "missense_variant"
	ConsequenceInframeInsertion = "inframe_insertion"
	ConsequenceInframeDeletion  = "inframe_deletion"

	// LOW impact
	ConsequenceSynonymousVariant     = "synonymous_variant"
	ConsequenceSpliceRegion          = "splice_region_variant"
	ConsequenceStopRetained          = "stop_retained_variant"
	ConsequenceStartRetained         = "start_retained_variant"
	ConsequenceCodingSequenceVariant = "coding_sequence_variant"

	// MODIFIER impact
	ConsequenceIntronVariant     = "intron_variant"
	Consequence5PrimeUTR         = "5_prime_UTR_variant"
	Consequence3PrimeUTR         = "3_prime_UTR_variant"
	ConsequenceIntergenicVariant = "intergenic_variant"

	// Structural variant class reported for large deletions.
	ConsequenceDeletion = "deletion"
)

// UnknownGene is the gene symbol used when VEP did not resolve a gene.
const UnknownGene = "Unknown"

// TranscriptConsequence is one transcript-level effect prediction.
type TranscriptConsequence struct {
	ConsequenceTerms []string // SO consequence terms
	GeneSymbol       string   // Gene symbol, UnknownGene if unresolved
	GeneID           string   // Gene identifier
	TranscriptID     string   // Affected transcript
	CDSChangeLength  int      // Length of a CDS-altering event in bases, 0 if N/A
	Exon             string   // Exon number (e.g., "2/5"), empty if not exonic
	Impact           string   // HIGH, MODERATE, LOW, MODIFIER
	Biotype          string   // Transcript biotype
	Canonical        bool     // Annotation on canonical transcript
}

// Record is the annotation payload VEP emits for one input variant.
type Record struct {
	Input                  string // Variant key as given to VEP
	ID                     string
	SeqRegion              string // seq_region_name
	Start                  int64
	AlleleString           string
	MostSevereConsequence  string
	TranscriptConsequences []*TranscriptConsequence
}

// GetImpact returns the highest impact among the given consequence terms.
func GetImpact(terms []string) string {
	best := ImpactModifier
	for _, term := range terms {
		var impact string
		switch term {
		case ConsequenceTranscriptAblation, ConsequenceStopGained, ConsequenceFrameshiftVariant,
			ConsequenceStopLost, ConsequenceStartLost,
			ConsequenceSpliceAcceptor, ConsequenceSpliceDonor:
			impact = ImpactHigh
		case ConsequenceMissenseVariant, ConsequenceInframeInsertion,
			ConsequenceInframeDeletion, "inframe_variant":
			impact = ImpactModerate
		case ConsequenceSynonymousVariant, ConsequenceSpliceRegion,
			ConsequenceStopRetained, ConsequenceStartRetained,
			ConsequenceCodingSequenceVariant:
			impact = ImpactLow
		default:
			impact = ImpactModifier
		}
		if ImpactRank(impact) > ImpactRank(best) {
			best = impact
		}
	}
	return best
}

// ImpactRank returns numeric rank for impact comparison (higher = more severe).
func ImpactRank(impact string) int {
	switch impact {
	case ImpactHigh:
		return 3
	case ImpactModerate:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}
