package annotate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Engine produces annotation records for the variants in a VCF file.
type Engine interface {
	Annotate(ctx context.Context, vcfPath string) ([]*Record, error)
}

// EngineError reports a failed VEP invocation together with its stderr.
type EngineError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("vep failed: %v", e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// DefaultBinary is the VEP executable looked up on PATH.
const DefaultBinary = "vep"

// CommandEngine runs the VEP command-line tool and parses its JSON output.
type CommandEngine struct {
	binary    string
	cacheDir  string
	extraArgs []string
	logger    *zap.Logger
}

// NewCommandEngine creates an engine invoking binary (DefaultBinary if empty).
func NewCommandEngine(binary string) *CommandEngine {
	if binary == "" {
		binary = DefaultBinary
	}
	return &CommandEngine{
		binary: binary,
		logger: zap.NewNop(),
	}
}

// SetCacheDir sets the VEP cache directory passed with --dir_cache.
func (e *CommandEngine) SetCacheDir(dir string) {
	e.cacheDir = dir
}

// SetExtraArgs appends arguments to every VEP invocation (e.g. --assembly GRCh37).
func (e *CommandEngine) SetExtraArgs(args []string) {
	e.extraArgs = args
}

// SetLogger sets the logger for invocation messages.
func (e *CommandEngine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Args returns the command-line arguments used to annotate vcfPath.
func (e *CommandEngine) Args(vcfPath string) []string {
	args := []string{
		"--input_file", vcfPath,
		"--format", "vcf",
		"--output_file", "STDOUT",
		"--json",
		"--cache",
		"--everything",
		"--allele_number",
	}
	if e.cacheDir != "" {
		args = append(args, "--dir_cache", e.cacheDir)
	}
	return append(args, e.extraArgs...)
}

// Annotate runs VEP on vcfPath. A non-zero exit or an unparsable output line
// is returned as an error, never as an empty record set.
func (e *CommandEngine) Annotate(ctx context.Context, vcfPath string) ([]*Record, error) {
	args := e.Args(vcfPath)
	cmd := exec.CommandContext(ctx, e.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("vep stdout pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &EngineError{Args: args, Err: err}
	}

	records, readErr := ReadRecords(stdout)
	if readErr != nil {
		// Unblock the child before waiting on it.
		io.Copy(io.Discard, stdout)
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("vep cancelled: %w", ctxErr)
		}
		return nil, &EngineError{Args: args, Stderr: stderr.String(), Err: err}
	}
	if readErr != nil {
		return nil, fmt.Errorf("parse vep output for %s: %w", vcfPath, readErr)
	}

	e.logger.Debug("vep finished",
		zap.String("input", vcfPath),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)))

	return records, nil
}

// JSONFileEngine reads pre-computed VEP JSON lines instead of running VEP.
// The vcfPath passed to Annotate is ignored.
type JSONFileEngine struct {
	Path string // file path, or "-" for stdin
}

// Annotate reads all records from the configured file.
func (e *JSONFileEngine) Annotate(ctx context.Context, _ string) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if e.Path == "-" {
		return ReadRecords(os.Stdin)
	}

	f, err := os.Open(e.Path)
	if err != nil {
		return nil, fmt.Errorf("open vep json: %w", err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Path, err)
	}
	return records, nil
}
