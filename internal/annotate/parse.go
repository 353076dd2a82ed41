package annotate

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs"
)

// maxLineSize bounds a single VEP JSON line; --everything output for a
// variant overlapping many transcripts can run to several megabytes.
const maxLineSize = 64 * 1024 * 1024

// ParseRecord decodes one line of VEP JSON output. Absent fields default to
// empty or zero values; an absent gene_symbol defaults to UnknownGene.
func ParseRecord(line []byte) (*Record, error) {
	c, err := gabs.ParseJSON(line)
	if err != nil {
		return nil, fmt.Errorf("parse vep json: %w", err)
	}
	if _, ok := c.Data().(map[string]interface{}); !ok {
		return nil, fmt.Errorf("parse vep json: expected object")
	}

	rec := &Record{
		Input:                 stringField(c, "input"),
		ID:                    stringField(c, "id"),
		SeqRegion:             stringField(c, "seq_region_name"),
		Start:                 int64(intField(c, "start")),
		AlleleString:          stringField(c, "allele_string"),
		MostSevereConsequence: stringField(c, "most_severe_consequence"),
	}

	children, err := c.S("transcript_consequences").Children()
	if err != nil {
		// Missing or non-array: no transcript consequences.
		return rec, nil
	}

	rec.TranscriptConsequences = make([]*TranscriptConsequence, 0, len(children))
	for _, tc := range children {
		rec.TranscriptConsequences = append(rec.TranscriptConsequences, parseConsequence(tc))
	}

	return rec, nil
}

func parseConsequence(c *gabs.Container) *TranscriptConsequence {
	tc := &TranscriptConsequence{
		ConsequenceTerms: stringsField(c, "consequence_terms"),
		GeneSymbol:       stringField(c, "gene_symbol"),
		GeneID:           stringField(c, "gene_id"),
		TranscriptID:     stringField(c, "transcript_id"),
		CDSChangeLength:  intField(c, "cds_change_length"),
		Exon:             stringField(c, "exon"),
		Impact:           stringField(c, "impact"),
		Biotype:          stringField(c, "biotype"),
		Canonical:        boolField(c, "canonical"),
	}
	if tc.GeneSymbol == "" {
		tc.GeneSymbol = UnknownGene
	}
	if tc.Impact == "" {
		tc.Impact = GetImpact(tc.ConsequenceTerms)
	}
	return tc
}

func stringField(c *gabs.Container, key string) string {
	switch v := c.S(key).Data().(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func intField(c *gabs.Container, key string) int {
	switch v := c.S(key).Data().(type) {
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

func boolField(c *gabs.Container, key string) bool {
	switch v := c.S(key).Data().(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v == "1" || strings.EqualFold(v, "yes") || strings.EqualFold(v, "true")
	default:
		return false
	}
}

func stringsField(c *gabs.Container, key string) []string {
	items, ok := c.S(key).Data().([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ReadRecords parses line-delimited VEP JSON, skipping blank lines.
func ReadRecords(r io.Reader) ([]*Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []*Record
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vep output: %w", err)
	}
	return records, nil
}
