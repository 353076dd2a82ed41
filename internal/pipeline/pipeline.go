// Package pipeline runs knockout detection over a VCF file: it partitions
// the input by chromosome, annotates and aggregates each partition
// independently, and merges the partial results.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vep-knockout/internal/annotate"
	"github.com/inodb/vep-knockout/internal/knockout"
	"github.com/inodb/vep-knockout/internal/vcf"
)

// Config controls a pipeline run.
type Config struct {
	InputVCF string // VCF or VCF.gz to scan
	WorkDir  string // parent for partition files; os.TempDir() if empty
	Workers  int    // concurrent partitions; runtime.NumCPU() if <= 0

	// Split runs one annotation task per chromosome. When false the whole
	// file is annotated as a single partition.
	Split bool
}

// Pipeline wires an annotation engine to the knockout aggregator.
type Pipeline struct {
	engine     annotate.Engine
	aggregator *knockout.Aggregator
	logger     *zap.Logger
}

// New creates a pipeline using engine and the given classification rules.
func New(engine annotate.Engine, rules knockout.Rules) *Pipeline {
	return &Pipeline{
		engine:     engine,
		aggregator: knockout.NewAggregator(rules),
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for progress messages.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
	p.aggregator.SetLogger(l)
}

// Run processes cfg.InputVCF and returns the merged knockout result.
func (p *Pipeline) Run(ctx context.Context, cfg Config) (*knockout.Result, error) {
	if !cfg.Split {
		return p.processPartition(ctx, vcf.Partition{Chrom: "*", Path: cfg.InputVCF})
	}

	dir, err := os.MkdirTemp(cfg.WorkDir, "vep-knockout-")
	if err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	parts, err := vcf.SplitByChromosome(cfg.InputVCF, dir)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", cfg.InputVCF, err)
	}
	defer func() {
		if err := parts.Cleanup(); err != nil {
			p.logger.Warn("failed to remove partition files", zap.Error(err))
		}
	}()

	p.logger.Info("split input by chromosome",
		zap.String("input", cfg.InputVCF),
		zap.Int("partitions", len(parts.Items)))

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]*knockout.Result, len(parts.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, part := range parts.Items {
		g.Go(func() error {
			res, err := p.processPartition(gctx, part)
			if err != nil {
				return fmt.Errorf("chromosome %s: %w", part.Chrom, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return knockout.Merge(results...), nil
}

// processPartition annotates one partition and aggregates it into a
// private result.
func (p *Pipeline) processPartition(ctx context.Context, part vcf.Partition) (*knockout.Result, error) {
	start := time.Now()
	log := p.logger.With(zap.String("chrom", part.Chrom))
	log.Info("processing chromosome", zap.Int("variants", part.Variants))

	genotypes, err := loadGenotypes(part.Path, log)
	if err != nil {
		return nil, err
	}

	records, err := p.engine.Annotate(ctx, part.Path)
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}

	res := p.aggregator.Aggregate(records, genotypes)

	log.Info("chromosome done",
		zap.Int("records", res.Stats.Records),
		zap.Int("knockout_records", res.Stats.KnockoutRecords),
		zap.Int("genes", res.All.Len()),
		zap.Int("homozygous_genes", res.Homozygous.Len()),
		zap.Duration("elapsed", time.Since(start)))
	if res.Stats.UnresolvedGenotypes > 0 {
		log.Warn("knockouts without genotype summary excluded from homozygous index",
			zap.Int("count", res.Stats.UnresolvedGenotypes))
	}

	return res, nil
}

func loadGenotypes(path string, logger *zap.Logger) (*vcf.GenotypeIndex, error) {
	parser, err := vcf.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	idx, err := vcf.BuildGenotypeIndex(parser, logger)
	if err != nil {
		return nil, fmt.Errorf("index genotypes: %w", err)
	}
	return idx, nil
}
