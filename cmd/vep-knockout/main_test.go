package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vep-knockout/internal/duckdb"
)

const testVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1
chr1	1000	.	A	T	.	PASS	.	GT	1/1
chr1	2000	.	G	C	.	PASS	.	GT	0/1
`

const testVEPJSON = `{"input":"chr1:1000A>T","transcript_consequences":[{"consequence_terms":["stop_gained"],"gene_symbol":"GENE1"}]}
{"input":"chr1:2000G>C","transcript_consequences":[{"consequence_terms":["synonymous_variant"],"gene_symbol":"GENE2"}]}
`

func writeFixtures(t *testing.T) (vcfPath, jsonPath string) {
	t.Helper()
	dir := t.TempDir()
	vcfPath = filepath.Join(dir, "in.vcf")
	jsonPath = filepath.Join(dir, "vep.json")
	require.NoError(t, os.WriteFile(vcfPath, []byte(testVCF), 0644))
	require.NoError(t, os.WriteFile(jsonPath, []byte(testVEPJSON), 0644))
	return vcfPath, jsonPath
}

func defaultSettings() runSettings {
	return runSettings{
		vepBinary:         "vep",
		format:            "text",
		minDeletionLength: 100,
	}
}

func TestRunKnockouts_TextReport(t *testing.T) {
	vcfPath, jsonPath := writeFixtures(t)

	var stdout, stderr bytes.Buffer
	err := runKnockouts(context.Background(),
		runOptions{input: vcfPath, vepJSON: jsonPath, summary: true},
		defaultSettings(), &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "Total potential gene knockouts found: 1\n"+
		"GENE1: chr1:1000A>T\n"+
		"\n"+
		"Homozygous gene knockouts found: 1\n"+
		"GENE1: chr1:1000A>T\n", stdout.String())
	assert.Contains(t, stderr.String(), "Records examined:            2")
}

func TestRunKnockouts_TabReportToFileAndStore(t *testing.T) {
	vcfPath, jsonPath := writeFixtures(t)
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.tsv")

	s := defaultSettings()
	s.format = "tab"
	s.dbPath = filepath.Join(dir, "knockouts.duckdb")

	var stdout, stderr bytes.Buffer
	err := runKnockouts(context.Background(),
		runOptions{input: vcfPath, vepJSON: jsonPath, output: outPath},
		s, &stdout, &stderr)
	require.NoError(t, err)
	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "#Gene\tCategory\tVariant_count\tVariants\n"+
		"GENE1\tall\t1\tchr1:1000A>T\n"+
		"GENE1\thomozygous\t1\tchr1:1000A>T\n", string(data))

	store, err := duckdb.Open(s.dbPath)
	require.NoError(t, err)
	defer store.Close()

	rows, err := store.SearchByGene("GENE1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Homozygous)

	run, err := store.LastRun()
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, vcfPath, run.Input.Path)
	assert.Equal(t, 1, run.Stats.KnockoutRecords)
}

func TestRunKnockouts_ExtraTerms(t *testing.T) {
	vcfPath, jsonPath := writeFixtures(t)

	s := defaultSettings()
	s.extraTerms = []string{"synonymous_variant"}

	var stdout bytes.Buffer
	err := runKnockouts(context.Background(),
		runOptions{input: vcfPath, vepJSON: jsonPath}, s, &stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Total potential gene knockouts found: 2\n")
	assert.Contains(t, stdout.String(), "Homozygous gene knockouts found: 1\n")
}

func TestRunKnockouts_UsageErrors(t *testing.T) {
	vcfPath, jsonPath := writeFixtures(t)

	tests := []struct {
		name string
		opts runOptions
		edit func(*runSettings)
	}{
		{"bad format", runOptions{input: vcfPath, vepJSON: jsonPath}, func(s *runSettings) { s.format = "xml" }},
		{"negative length", runOptions{input: vcfPath, vepJSON: jsonPath}, func(s *runSettings) { s.minDeletionLength = -1 }},
		{"both stdin", runOptions{input: "-", vepJSON: "-"}, nil},
		{"stdin without split", runOptions{input: "-", noSplit: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultSettings()
			if tt.edit != nil {
				tt.edit(&s)
			}
			err := runKnockouts(context.Background(), tt.opts, s, &bytes.Buffer{}, &bytes.Buffer{})
			var ue *usageError
			assert.True(t, errors.As(err, &ue), "got %v", err)
		})
	}
}

func TestRunKnockouts_EngineFailure(t *testing.T) {
	vcfPath, _ := writeFixtures(t)

	s := defaultSettings()
	s.vepBinary = filepath.Join(t.TempDir(), "no-such-vep")

	var stdout bytes.Buffer
	err := runKnockouts(context.Background(), runOptions{input: vcfPath}, s, &stdout, &bytes.Buffer{})
	require.Error(t, err)

	var ue *usageError
	assert.False(t, errors.As(err, &ue))
	assert.Empty(t, stdout.String(), "no report is written when annotation fails")
}

func TestParseConfigValue(t *testing.T) {
	assert.Equal(t, true, parseConfigValue("yes"))
	assert.Equal(t, false, parseConfigValue("off"))
	assert.Equal(t, 50, parseConfigValue("50"))
	assert.Equal(t, "/data/vep", parseConfigValue("/data/vep"))
}

func TestRootCommand_UsageErrors(t *testing.T) {
	tests := [][]string{
		{"run"},
		{"run", "a.vcf", "b.vcf"},
		{"run", "--workers", "many", "a.vcf"},
		{"version", "extra"},
	}
	for _, args := range tests {
		root := newRootCmd()
		root.SetArgs(args)
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})

		err := root.Execute()
		var ue *usageError
		assert.True(t, errors.As(err, &ue), "args %v: got %v", args, err)
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "vep-knockout version dev (none) built unknown\n", out.String())
}

// fakeVEP writes an executable shell script standing in for the vep binary.
func fakeVEP(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "vep")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

// vcfLineVEP echoes VCF data lines as input, as vep --format vcf does.
const vcfLineVEP = `cat <<'JSON'
{"input":"chr1\t1000\t.\tA\tT\t.\tPASS\t.\tGT\t1/1","transcript_consequences":[{"consequence_terms":["stop_gained"],"gene_symbol":"GENE1"}]}
{"input":"chr1\t2000\t.\tG\tC\t.\tPASS\t.\tGT\t0/1","transcript_consequences":[{"consequence_terms":["frameshift_variant"],"gene_symbol":"GENE2"}]}
JSON
`

func TestRunKnockouts_TabReportWithVCFLineInput(t *testing.T) {
	vcfPath, _ := writeFixtures(t)

	s := defaultSettings()
	s.vepBinary = fakeVEP(t, vcfLineVEP)
	s.format = "tab"

	var stdout bytes.Buffer
	err := runKnockouts(context.Background(),
		runOptions{input: vcfPath, noSplit: true}, s, &stdout, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "#Gene\tCategory\tVariant_count\tVariants\n"+
		"GENE1\tall\t1\tchr1:1000A>T\n"+
		"GENE2\tall\t1\tchr1:2000G>C\n"+
		"GENE1\thomozygous\t1\tchr1:1000A>T\n", stdout.String())
	for _, line := range strings.Split(strings.TrimSuffix(stdout.String(), "\n"), "\n") {
		assert.Len(t, strings.Split(line, "\t"), 4, "line %q", line)
	}
}

func TestWriteReportFile(t *testing.T) {
	vcfPath, jsonPath := writeFixtures(t)
	outPath := filepath.Join(t.TempDir(), "report.txt")

	err := runKnockouts(context.Background(),
		runOptions{input: vcfPath, vepJSON: jsonPath, output: outPath},
		defaultSettings(), &bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Total potential gene knockouts found: 1\n"))

	err = writeReportFile(filepath.Join(t.TempDir(), "missing", "report.txt"), "text", nil)
	assert.Error(t, err)
}

// storeFixture runs the pipeline against vcfLineVEP and stores the result.
func storeFixture(t *testing.T) string {
	t.Helper()
	vcfPath, _ := writeFixtures(t)

	s := defaultSettings()
	s.vepBinary = fakeVEP(t, vcfLineVEP)
	s.dbPath = filepath.Join(t.TempDir(), "knockouts.duckdb")

	err := runKnockouts(context.Background(),
		runOptions{input: vcfPath, noSplit: true}, s, &bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err)
	return s.dbPath
}

func executeRoot(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestQuery_GeneHomozygousFilter(t *testing.T) {
	db := storeFixture(t)

	out, err := executeRoot("query", "--db", db, "GENE2")
	require.NoError(t, err)
	assert.Contains(t, out, "chr1:2000G>C\t")
	assert.Contains(t, out, "\tfalse\n")

	_, err = executeRoot("query", "--db", db, "--homozygous", "GENE2")
	assert.ErrorContains(t, err, `no knockouts stored for gene "GENE2"`)

	out, err = executeRoot("query", "--db", db, "--homozygous", "GENE1")
	require.NoError(t, err)
	assert.Contains(t, out, "chr1:1000A>T\t")
	assert.Contains(t, out, "\ttrue\n")
}

func TestQuery_HomozygousWithFormat(t *testing.T) {
	db := storeFixture(t)

	_, err := executeRoot("query", "--db", db, "--homozygous", "--format", "tab")
	var ue *usageError
	assert.True(t, errors.As(err, &ue), "got %v", err)

	out, err := executeRoot("query", "--db", db, "--format", "tab")
	require.NoError(t, err)
	assert.Contains(t, out, "GENE1\thomozygous\t1\tchr1:1000A>T\n")
}
