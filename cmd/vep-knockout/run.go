package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vep-knockout/internal/annotate"
	"github.com/inodb/vep-knockout/internal/duckdb"
	"github.com/inodb/vep-knockout/internal/knockout"
	"github.com/inodb/vep-knockout/internal/output"
	"github.com/inodb/vep-knockout/internal/pipeline"
)

// runOptions holds per-invocation flags that are not persisted in config.
type runOptions struct {
	input   string
	vepJSON string
	output  string
	noSplit bool
	summary bool
}

// runSettings holds values resolved from flags, environment and config.
type runSettings struct {
	vepBinary         string
	vepCacheDir       string
	vepExtraArgs      []string
	workers           int
	format            string
	dbPath            string
	minDeletionLength int
	extraTerms        []string
	verbose           bool
}

func loadRunSettings() runSettings {
	return runSettings{
		vepBinary:         viper.GetString("vep.binary"),
		vepCacheDir:       viper.GetString("vep.cache_dir"),
		vepExtraArgs:      viper.GetStringSlice("vep.extra_args"),
		workers:           viper.GetInt("run.workers"),
		format:            viper.GetString("run.format"),
		dbPath:            viper.GetString("run.db"),
		minDeletionLength: viper.GetInt("knockout.min_deletion_length"),
		extraTerms:        viper.GetStringSlice("knockout.extra_terms"),
		verbose:           viper.GetBool("verbose"),
	}
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [flags] <input.vcf>",
		Short: "Annotate a VCF with VEP and report gene knockouts",
		Long: `Split the input VCF by chromosome, run VEP on each partition in parallel,
and report genes with a loss-of-function variant. Genes where some knockout
variant is carried only homozygously are reported separately.`,
		Example: `  vep-knockout run input.vcf.gz
  vep-knockout run --vep-cache ~/.vep --workers 8 -o knockouts.txt input.vcf
  vep-knockout run --format tab --db knockouts.duckdb input.vcf
  vep-knockout run --vep-json annotated.json input.vcf`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.input = args[0]
			return runKnockouts(cmd.Context(), opts, loadRunSettings(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.String("vep", "vep", "VEP executable")
	f.String("vep-cache", "", "VEP cache directory (--dir_cache)")
	f.StringArray("vep-arg", nil, "Extra argument passed to VEP (repeatable)")
	f.IntP("workers", "w", 0, "Chromosomes annotated in parallel (default: number of CPUs)")
	f.StringP("format", "f", "text", "Output format: text, tab")
	f.String("db", "", "Also store knockouts in this DuckDB file")
	f.Int("min-deletion-length", knockout.DefaultMinDeletionLength, "CDS change length above which a deletion is a knockout")
	f.StringSlice("extra-terms", nil, "Additional consequence terms treated as loss of function")

	f.StringVar(&opts.vepJSON, "vep-json", "", "Read VEP JSON lines from this file instead of running VEP")
	f.StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	f.BoolVar(&opts.noSplit, "no-split", false, "Annotate the whole file in one VEP run")
	f.BoolVar(&opts.summary, "summary", true, "Print run counters to stderr")

	viper.BindPFlag("vep.binary", f.Lookup("vep"))
	viper.BindPFlag("vep.cache_dir", f.Lookup("vep-cache"))
	viper.BindPFlag("vep.extra_args", f.Lookup("vep-arg"))
	viper.BindPFlag("run.workers", f.Lookup("workers"))
	viper.BindPFlag("run.format", f.Lookup("format"))
	viper.BindPFlag("run.db", f.Lookup("db"))
	viper.BindPFlag("knockout.min_deletion_length", f.Lookup("min-deletion-length"))
	viper.BindPFlag("knockout.extra_terms", f.Lookup("extra-terms"))

	return cmd
}

func runKnockouts(ctx context.Context, opts runOptions, s runSettings, stdout, stderr io.Writer) error {
	if s.format != "text" && s.format != "tab" {
		return usageErrorf("unknown output format %q", s.format)
	}
	if s.minDeletionLength < 0 {
		return usageErrorf("--min-deletion-length must not be negative")
	}
	if opts.vepJSON == "-" && opts.input == "-" {
		return usageErrorf("VCF and VEP JSON cannot both be read from stdin")
	}
	// Without a split the VCF is read twice: once by VEP, once for genotypes.
	if opts.input == "-" && opts.noSplit && opts.vepJSON == "" {
		return usageErrorf("stdin input requires chromosome splitting")
	}

	logger, err := newLogger(s.verbose)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	rules := knockout.DefaultRules().WithMinDeletionLength(s.minDeletionLength)
	if len(s.extraTerms) > 0 {
		rules = rules.WithLossOfFunctionTerms(s.extraTerms...)
	}
	logger.Debug("knockout rules",
		zap.Int("min_deletion_length", rules.MinDeletionLength()),
		zap.Strings("extra_terms", s.extraTerms))

	var engine annotate.Engine
	split := !opts.noSplit
	if opts.vepJSON != "" {
		engine = &annotate.JSONFileEngine{Path: opts.vepJSON}
		// Pre-computed annotations cover every chromosome.
		split = false
	} else {
		ce := annotate.NewCommandEngine(s.vepBinary)
		ce.SetCacheDir(s.vepCacheDir)
		ce.SetExtraArgs(s.vepExtraArgs)
		ce.SetLogger(logger)
		engine = ce
	}

	p := pipeline.New(engine, rules)
	p.SetLogger(logger)

	res, err := p.Run(ctx, pipeline.Config{
		InputVCF: opts.input,
		Workers:  s.workers,
		Split:    split,
	})
	if err != nil {
		return err
	}

	if opts.output != "" {
		err = writeReportFile(opts.output, s.format, res)
	} else {
		err = writeReport(stdout, s.format, res)
	}
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if s.dbPath != "" {
		if err := storeResult(s.dbPath, opts.input, res, logger); err != nil {
			return err
		}
	}

	if opts.summary {
		output.WriteSummary(stderr, res.Stats)
	}
	return nil
}

func writeReport(w io.Writer, format string, res *knockout.Result) error {
	if format == "text" {
		return output.WriteText(w, res)
	}

	tw := output.NewTabWriter(w)
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	if err := tw.WriteResult(res); err != nil {
		return err
	}
	return tw.Flush()
}

// writeReportFile writes the report to path, reporting close errors.
func writeReportFile(path, format string, res *knockout.Result) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeReport(fh, format, res); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// storeResult replaces the stored knockouts with res and records the run.
func storeResult(path, input string, res *knockout.Result, logger *zap.Logger) error {
	store, err := duckdb.Open(path)
	if err != nil {
		return fmt.Errorf("opening knockout store: %w", err)
	}
	defer store.Close()

	if err := store.ReplaceKnockouts(res); err != nil {
		return fmt.Errorf("storing knockouts: %w", err)
	}

	if input != "-" {
		fp, err := duckdb.StatFile(input)
		if err != nil {
			return fmt.Errorf("stat input: %w", err)
		}
		if err := store.RecordRun(fp, res.Stats); err != nil {
			return err
		}
	}

	logger.Info("stored knockouts",
		zap.String("db", path),
		zap.Int("genes", res.All.Len()),
		zap.Int("variants", res.All.VariantCount()))
	return nil
}
