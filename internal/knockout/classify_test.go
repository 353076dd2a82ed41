package knockout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inodb/vep-knockout/internal/annotate"
)

func record(tcs ...*annotate.TranscriptConsequence) *annotate.Record {
	return &annotate.Record{Input: "1:1000A>T", TranscriptConsequences: tcs}
}

func consequence(terms ...string) *annotate.TranscriptConsequence {
	return &annotate.TranscriptConsequence{ConsequenceTerms: terms, GeneSymbol: annotate.UnknownGene}
}

func TestIsKnockout_LossOfFunctionTerms(t *testing.T) {
	for _, term := range []string{
		"stop_gained",
		"frameshift_variant",
		"splice_donor_variant",
		"splice_acceptor_variant",
		"start_lost",
		"transcript_ablation",
	} {
		t.Run(term, func(t *testing.T) {
			assert.True(t, IsKnockout(record(consequence(term))))
			assert.True(t, IsKnockout(record(consequence("intron_variant", term))))
		})
	}
}

func TestIsKnockout_StopGainedIgnoresOtherFields(t *testing.T) {
	tc := &annotate.TranscriptConsequence{
		ConsequenceTerms: []string{"synonymous_variant", "stop_gained"},
		GeneSymbol:       "GENE1",
		CDSChangeLength:  1,
		Exon:             "garbage",
	}
	assert.True(t, IsKnockout(record(tc)))
}

func TestIsKnockout_NotKnockout(t *testing.T) {
	tests := []struct {
		name string
		tc   *annotate.TranscriptConsequence
	}{
		{"synonymous", consequence("synonymous_variant")},
		{"missense", consequence("missense_variant")},
		{"stop_lost", consequence("stop_lost")},
		{"no terms", consequence()},
		{"short deletion", &annotate.TranscriptConsequence{ConsequenceTerms: []string{"deletion"}, CDSChangeLength: 99}},
		{"length without deletion", &annotate.TranscriptConsequence{ConsequenceTerms: []string{"inframe_deletion"}, CDSChangeLength: 500}},
		{"splice region mid exon", &annotate.TranscriptConsequence{ConsequenceTerms: []string{"splice_region_variant"}, Exon: "3/5"}},
		{"first exon without splice region", &annotate.TranscriptConsequence{ConsequenceTerms: []string{"missense_variant"}, Exon: "1/5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, IsKnockout(record(tt.tc)))
		})
	}
}

func TestIsKnockout_DeletionBoundary(t *testing.T) {
	del := func(n int) *annotate.Record {
		return record(&annotate.TranscriptConsequence{ConsequenceTerms: []string{"deletion"}, CDSChangeLength: n})
	}
	assert.False(t, IsKnockout(del(100)))
	assert.True(t, IsKnockout(del(101)))
	assert.False(t, IsKnockout(del(0)))
}

func TestIsKnockout_SpliceRegionExon(t *testing.T) {
	tests := []struct {
		exon string
		want bool
	}{
		{"1/5", true},
		{"5/5", true},
		{"3/5", false},
		{"1/1", true},
		{"1/2/3", false},
		{"", false},
		{"1", false},
		{"/", false},
		{"a/a", false},
		{"5/", false},
		{"01/5", false},
	}

	for _, tt := range tests {
		t.Run(tt.exon, func(t *testing.T) {
			tc := &annotate.TranscriptConsequence{
				ConsequenceTerms: []string{"splice_region_variant", "intron_variant"},
				Exon:             tt.exon,
			}
			assert.Equal(t, tt.want, IsKnockout(record(tc)))
		})
	}
}

func TestIsKnockout_AnyTranscript(t *testing.T) {
	rec := record(
		consequence("synonymous_variant"),
		consequence("upstream_gene_variant"),
		consequence("frameshift_variant"),
	)
	assert.True(t, IsKnockout(rec))
}

func TestIsKnockout_Nil(t *testing.T) {
	assert.False(t, IsKnockout(nil))
	assert.False(t, IsKnockout(&annotate.Record{}))
	assert.False(t, IsKnockout(record(nil)))
}

func TestIsKnockout_DoesNotMutate(t *testing.T) {
	tc := &annotate.TranscriptConsequence{
		ConsequenceTerms: []string{"splice_region_variant", "deletion"},
		GeneSymbol:       "GENE1",
		CDSChangeLength:  150,
		Exon:             "1/3",
	}
	before := *tc
	beforeTerms := append([]string(nil), tc.ConsequenceTerms...)

	IsKnockout(record(tc))

	assert.Equal(t, beforeTerms, tc.ConsequenceTerms)
	assert.Equal(t, before.GeneSymbol, tc.GeneSymbol)
	assert.Equal(t, before.CDSChangeLength, tc.CDSChangeLength)
	assert.Equal(t, before.Exon, tc.Exon)
}

func TestRules_Explain(t *testing.T) {
	r := DefaultRules()

	assert.Equal(t, PolicyAlways, r.Explain(consequence("stop_gained")))
	// the unconditional term wins even when listed after a gated one
	assert.Equal(t, PolicyAlways, r.Explain(&annotate.TranscriptConsequence{
		ConsequenceTerms: []string{"splice_region_variant", "splice_donor_variant"},
		Exon:             "1/4",
	}))
	assert.Equal(t, PolicyDeletionLength, r.Explain(&annotate.TranscriptConsequence{
		ConsequenceTerms: []string{"deletion"}, CDSChangeLength: 200,
	}))
	assert.Equal(t, PolicyBoundaryExon, r.Explain(&annotate.TranscriptConsequence{
		ConsequenceTerms: []string{"splice_region_variant"}, Exon: "7/7",
	}))
	assert.Equal(t, PolicyNone, r.Explain(consequence("missense_variant")))
	assert.Equal(t, PolicyNone, r.Explain(nil))

	assert.Equal(t, "large_deletion", PolicyDeletionLength.String())
	assert.Equal(t, "none", PolicyNone.String())
}

func TestRules_WithMinDeletionLength(t *testing.T) {
	r := DefaultRules().WithMinDeletionLength(50)
	rec := record(&annotate.TranscriptConsequence{ConsequenceTerms: []string{"deletion"}, CDSChangeLength: 60})

	assert.True(t, r.IsKnockout(rec))
	assert.False(t, DefaultRules().IsKnockout(rec))
	assert.Equal(t, 50, r.MinDeletionLength())
	assert.Equal(t, DefaultMinDeletionLength, DefaultRules().MinDeletionLength())
}

func TestRules_WithLossOfFunctionTerms(t *testing.T) {
	r := DefaultRules().WithLossOfFunctionTerms("stop_lost", " ", "")
	rec := record(consequence("stop_lost"))

	assert.True(t, r.IsKnockout(rec))
	assert.False(t, DefaultRules().IsKnockout(rec), "default rules must not be modified")
	assert.Equal(t, PolicyAlways, r.Classify(rec))
	assert.Equal(t, PolicyNone, DefaultRules().Classify(rec))

	// zero Rules can be extended too
	assert.True(t, Rules{}.WithLossOfFunctionTerms("stop_lost").IsKnockout(rec))
}
