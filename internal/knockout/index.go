package knockout

import (
	"maps"
	"slices"
)

// GeneIndex maps gene symbols to the knockout variant keys seen for them.
// Keys are unique per gene and kept in first-seen order.
type GeneIndex struct {
	variants map[string][]string
	seen     map[string]map[string]struct{}
}

// NewGeneIndex creates an empty index.
func NewGeneIndex() *GeneIndex {
	return &GeneIndex{
		variants: make(map[string][]string),
		seen:     make(map[string]map[string]struct{}),
	}
}

// Add records key under gene. It returns false if the pair was already present.
func (g *GeneIndex) Add(gene, key string) bool {
	keys, ok := g.seen[gene]
	if !ok {
		keys = make(map[string]struct{})
		g.seen[gene] = keys
	}
	if _, dup := keys[key]; dup {
		return false
	}
	keys[key] = struct{}{}
	g.variants[gene] = append(g.variants[gene], key)
	return true
}

// Has reports whether key is recorded under gene.
func (g *GeneIndex) Has(gene, key string) bool {
	_, ok := g.seen[gene][key]
	return ok
}

// HasGene reports whether gene has any recorded variant.
func (g *GeneIndex) HasGene(gene string) bool {
	return len(g.variants[gene]) > 0
}

// Variants returns the keys recorded under gene in first-seen order.
func (g *GeneIndex) Variants(gene string) []string {
	return slices.Clone(g.variants[gene])
}

// Genes returns all gene symbols, sorted.
func (g *GeneIndex) Genes() []string {
	return slices.Sorted(maps.Keys(g.variants))
}

// Len returns the number of genes.
func (g *GeneIndex) Len() int {
	return len(g.variants)
}

// VariantCount returns the number of (gene, variant) pairs.
func (g *GeneIndex) VariantCount() int {
	n := 0
	for _, keys := range g.variants {
		n += len(keys)
	}
	return n
}

// Map returns a copy of the index as a plain map.
func (g *GeneIndex) Map() map[string][]string {
	out := make(map[string][]string, len(g.variants))
	for gene, keys := range g.variants {
		out[gene] = slices.Clone(keys)
	}
	return out
}

// Merge adds every (gene, key) pair of o to g.
func (g *GeneIndex) Merge(o *GeneIndex) {
	if o == nil {
		return
	}
	for _, gene := range o.Genes() {
		for _, key := range o.variants[gene] {
			g.Add(gene, key)
		}
	}
}

// Equal reports whether g and o hold the same genes with the same variant
// sets. Order within a gene is ignored.
func (g *GeneIndex) Equal(o *GeneIndex) bool {
	if len(g.seen) != len(o.seen) {
		return false
	}
	for gene, keys := range g.seen {
		other, ok := o.seen[gene]
		if !ok || len(other) != len(keys) {
			return false
		}
		for k := range keys {
			if _, ok := other[k]; !ok {
				return false
			}
		}
	}
	return true
}

// Stats counts what happened while aggregating records.
type Stats struct {
	Records             int // records examined
	KnockoutRecords     int // records classified as knockouts
	UnknownGene         int // knockout transcripts without a gene symbol
	UnresolvedGenotypes int // knockout records whose locus had no genotype summary
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Records += o.Records
	s.KnockoutRecords += o.KnockoutRecords
	s.UnknownGene += o.UnknownGene
	s.UnresolvedGenotypes += o.UnresolvedGenotypes
}

// Result is the pair of gene indices produced by aggregation.
// Every (gene, key) in Homozygous is also in All.
type Result struct {
	All        *GeneIndex
	Homozygous *GeneIndex
	Stats      Stats
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{
		All:        NewGeneIndex(),
		Homozygous: NewGeneIndex(),
	}
}

// Equal reports whether both indices of r and o are equal. Stats are ignored.
func (r *Result) Equal(o *Result) bool {
	return r.All.Equal(o.All) && r.Homozygous.Equal(o.Homozygous)
}
