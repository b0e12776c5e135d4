// Package vcf provides streaming VCF record parsing.
package vcf

import "strings"

// Record is a single data line from a VCF file.
type Record struct {
	Chrom   string            // chromosome name, with or without "chr" prefix
	Pos     int64             // 1-based position
	ID      string            // variant identifier ("." when absent)
	Ref     string            // reference allele
	Alt     string            // alternate alleles, comma-joined as written
	Qual    float64           // quality score, 0 when missing
	Filter  string            // filter status
	Info    map[string]string // INFO key/value pairs; flags map to ""
	Format  string            // FORMAT column, "" when absent
	Samples []string          // raw per-sample columns
}

// HasID reports whether the record carries a variant identifier.
func (r *Record) HasID() bool {
	return r.ID != "" && r.ID != "."
}

// NormalizeChrom returns the chromosome name without a "chr" prefix.
func (r *Record) NormalizeChrom() string {
	return strings.TrimPrefix(r.Chrom, "chr")
}

// AltAlleles returns the alternate alleles as a slice.
func (r *Record) AltAlleles() []string {
	if r.Alt == "" || r.Alt == "." {
		return nil
	}
	return strings.Split(r.Alt, ",")
}

// GenotypeCall returns the GT subfield of the first sample, with pipe
// separators normalized to slashes. Returns "" when the record has no
// samples or no GT field.
func (r *Record) GenotypeCall() string {
	if r.Format == "" || len(r.Samples) == 0 {
		return ""
	}

	gtIndex := -1
	for i, key := range strings.Split(r.Format, ":") {
		if key == "GT" {
			gtIndex = i
			break
		}
	}
	if gtIndex < 0 {
		return ""
	}

	fields := strings.Split(r.Samples[0], ":")
	if gtIndex >= len(fields) {
		return ""
	}
	return strings.ReplaceAll(fields[gtIndex], "|", "/")
}
