package knockout

// Merge unions partial results per gene, deduplicating variant keys.
// The result is independent of argument order up to the order of keys
// within a gene; nil partials are skipped.
func Merge(partials ...*Result) *Result {
	out := NewResult()
	for _, p := range partials {
		if p == nil {
			continue
		}
		out.All.Merge(p.All)
		out.Homozygous.Merge(p.Homozygous)
		out.Stats.Add(p.Stats)
	}
	return out
}
