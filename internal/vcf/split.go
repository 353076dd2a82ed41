package vcf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Partition is one per-chromosome slice of a VCF file.
type Partition struct {
	Chrom    string
	Path     string
	Variants int
}

// Partitions holds the files written by SplitByChromosome.
type Partitions struct {
	Items []Partition // in first-seen chromosome order
}

// Cleanup removes every partition file. Calling it more than once is safe.
func (ps *Partitions) Cleanup() error {
	var errs []error
	for _, p := range ps.Items {
		if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type partitionWriter struct {
	file *os.File
	w    *bufio.Writer
	idx  int
}

// SplitByChromosome copies the header of the VCF at path into one file per
// chromosome under dir and appends each data line to its chromosome's file.
// Partition files are named "<chrom>.vcf", with a numeric suffix when two
// chromosomes map to the same name. On error, files written so far are
// removed.
func SplitByChromosome(path, dir string) (*Partitions, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create partition directory: %w", err)
	}

	ps := &Partitions{}
	writers := make(map[string]*partitionWriter)
	names := make(map[string]bool)
	var header []string

	fail := func(err error) (*Partitions, error) {
		for _, pw := range writers {
			pw.file.Close()
		}
		ps.Cleanup()
		return nil, err
	}

	lineNumber := 0
	for {
		line, err := src.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				break
			}
			return fail(fmt.Errorf("read vcf: %w", err))
		}
		lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			header = append(header, line)
			continue
		}

		chrom, _, ok := strings.Cut(line, "\t")
		if !ok {
			return fail(&ParseError{Line: lineNumber, Message: "expected tab-separated columns"})
		}

		pw, ok := writers[chrom]
		if !ok {
			name := filepath.Join(dir, uniqueFileName(partitionFileName(chrom), names))
			f, err := os.Create(name)
			if err != nil {
				return fail(fmt.Errorf("create partition file: %w", err))
			}
			pw = &partitionWriter{file: f, w: bufio.NewWriter(f), idx: len(ps.Items)}
			writers[chrom] = pw
			ps.Items = append(ps.Items, Partition{Chrom: chrom, Path: name})

			for _, h := range header {
				if _, err := pw.w.WriteString(h + "\n"); err != nil {
					return fail(fmt.Errorf("write partition header: %w", err))
				}
			}
		}

		if _, err := pw.w.WriteString(line + "\n"); err != nil {
			return fail(fmt.Errorf("write partition: %w", err))
		}
		ps.Items[pw.idx].Variants++
	}

	for _, pw := range writers {
		if err := pw.w.Flush(); err != nil {
			return fail(fmt.Errorf("flush partition: %w", err))
		}
		if err := pw.file.Close(); err != nil {
			return fail(fmt.Errorf("close partition: %w", err))
		}
	}

	return ps, nil
}

// partitionFileName maps a chromosome name to a safe file name.
func partitionFileName(chrom string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, chrom)
	return safe + ".vcf"
}

// uniqueFileName returns name, or name with a "_<n>" suffix before the
// extension when it is already in taken. Names are compared case-insensitively
// so partitions stay distinct on case-folding file systems.
func uniqueFileName(name string, taken map[string]bool) string {
	base, ext := strings.TrimSuffix(name, filepath.Ext(name)), filepath.Ext(name)
	for n := 2; taken[strings.ToLower(name)]; n++ {
		name = fmt.Sprintf("%s_%d%s", base, n, ext)
	}
	taken[strings.ToLower(name)] = true
	return name
}
