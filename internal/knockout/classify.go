// Package knockout classifies VEP annotations as likely gene knockouts and
// aggregates knockout variants per gene, separating homozygous-only calls.
package knockout

import (
	"maps"
	"strings"

	"github.com/inodb/vep-knockout/internal/annotate"
)

// DefaultMinDeletionLength is the CDS change length a deletion must exceed
// to count as a knockout. Shorter deletions are assumed to keep the frame.
const DefaultMinDeletionLength = 100

// Policy states when a consequence term makes a transcript a knockout.
type Policy int

const (
	PolicyNone           Policy = iota
	PolicyAlways                // the term alone is a knockout
	PolicyDeletionLength        // only when CDS change length exceeds the threshold
	PolicyBoundaryExon          // only in the first or last exon
)

func (p Policy) String() string {
	switch p {
	case PolicyAlways:
		return "loss_of_function"
	case PolicyDeletionLength:
		return "large_deletion"
	case PolicyBoundaryExon:
		return "boundary_exon_splice_region"
	default:
		return "none"
	}
}

var defaultPolicies = map[string]Policy{
	annotate.ConsequenceStopGained:         PolicyAlways,
	annotate.ConsequenceFrameshiftVariant:  PolicyAlways,
	annotate.ConsequenceSpliceDonor:        PolicyAlways,
	annotate.ConsequenceSpliceAcceptor:     PolicyAlways,
	annotate.ConsequenceStartLost:          PolicyAlways,
	annotate.ConsequenceTranscriptAblation: PolicyAlways,
	annotate.ConsequenceDeletion:           PolicyDeletionLength,
	annotate.ConsequenceSpliceRegion:       PolicyBoundaryExon,
}

// Rules decide whether a transcript consequence is a knockout.
// A Rules value is not modified after construction; use the With methods
// to derive a new one.
type Rules struct {
	policies          map[string]Policy
	minDeletionLength int
}

// DefaultRules returns the standard knockout rules.
func DefaultRules() Rules {
	return Rules{
		policies:          defaultPolicies,
		minDeletionLength: DefaultMinDeletionLength,
	}
}

// WithMinDeletionLength returns a copy of r using the given deletion threshold.
func (r Rules) WithMinDeletionLength(n int) Rules {
	r.minDeletionLength = n
	return r
}

// WithLossOfFunctionTerms returns a copy of r in which every given term is
// treated as a knockout on its own.
func (r Rules) WithLossOfFunctionTerms(terms ...string) Rules {
	policies := maps.Clone(r.policies)
	if policies == nil {
		policies = make(map[string]Policy, len(terms))
	}
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			policies[t] = PolicyAlways
		}
	}
	r.policies = policies
	return r
}

// MinDeletionLength returns the deletion threshold.
func (r Rules) MinDeletionLength() int {
	return r.minDeletionLength
}

// Explain returns the policy under which tc is a knockout, or PolicyNone.
func (r Rules) Explain(tc *annotate.TranscriptConsequence) Policy {
	if tc == nil {
		return PolicyNone
	}

	// Unconditional terms win over gated ones regardless of term order.
	gated := PolicyNone
	for _, term := range tc.ConsequenceTerms {
		switch r.policies[term] {
		case PolicyAlways:
			return PolicyAlways
		case PolicyDeletionLength:
			if gated == PolicyNone && tc.CDSChangeLength > r.minDeletionLength {
				gated = PolicyDeletionLength
			}
		case PolicyBoundaryExon:
			if gated == PolicyNone && isBoundaryExon(tc.Exon) {
				gated = PolicyBoundaryExon
			}
		}
	}
	return gated
}

// IsKnockoutConsequence reports whether a single transcript consequence is a knockout.
func (r Rules) IsKnockoutConsequence(tc *annotate.TranscriptConsequence) bool {
	return r.Explain(tc) != PolicyNone
}

// Classify returns the policy of the first transcript consequence of rec
// that is a knockout, or PolicyNone.
func (r Rules) Classify(rec *annotate.Record) Policy {
	if rec == nil {
		return PolicyNone
	}
	for _, tc := range rec.TranscriptConsequences {
		if p := r.Explain(tc); p != PolicyNone {
			return p
		}
	}
	return PolicyNone
}

// IsKnockout reports whether any transcript consequence of rec is a knockout.
func (r Rules) IsKnockout(rec *annotate.Record) bool {
	return r.Classify(rec) != PolicyNone
}

// IsKnockout applies DefaultRules to rec.
func IsKnockout(rec *annotate.Record) bool {
	return DefaultRules().IsKnockout(rec)
}

// isBoundaryExon reports whether exon ("index/total") names the first or the
// last exon. Anything other than exactly two numeric tokens is false.
func isBoundaryExon(exon string) bool {
	first, total, ok := strings.Cut(exon, "/")
	if !ok || strings.Contains(total, "/") {
		return false
	}
	if !isDigits(first) || !isDigits(total) {
		return false
	}
	return first == "1" || first == total
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
