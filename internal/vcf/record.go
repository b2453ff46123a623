// Package vcf provides VCF file parsing functionality.
package vcf

import "strings"

// Record represents a single VCF data line with its per-sample calls.
type Record struct {
	Chrom string   // Chromosome name (e.g., "12", "chr12")
	Pos   int64    // 1-based genomic position
	ID    string   // Variant identifier (e.g., rs ID)
	Ref   string   // Reference allele
	Alt   []string // Alternate alleles in file order
	Calls []Call   // One call per sample column, in header order
	Line  int64    // Source line number, 0 when unknown
}

// Call is the genotype call of one sample at a record.
type Call struct {
	Sample string
	GT     []int             // Allele indices; -1 for a missing allele (".")
	Phased bool              // True when alleles were joined with "|"
	Fields map[string]string // Raw FORMAT values keyed by FORMAT ID
}

// End returns the last reference base covered by the record.
func (r *Record) End() int64 {
	if len(r.Ref) == 0 {
		return r.Pos
	}
	return r.Pos + int64(len(r.Ref)) - 1
}

// Overlaps reports whether the record's reference span contains pos.
func (r *Record) Overlaps(pos int64) bool {
	return pos >= r.Pos && pos <= r.End()
}

// Allele returns the bases for allele index i, where 0 is the reference
// allele and n is the nth alternate allele.
func (r *Record) Allele(i int) (string, bool) {
	switch {
	case i == 0:
		return r.Ref, r.Ref != ""
	case i > 0 && i <= len(r.Alt):
		return r.Alt[i-1], true
	}
	return "", false
}

// Call returns the call for the named sample.
func (r *Record) Call(sample string) (*Call, bool) {
	for i := range r.Calls {
		if r.Calls[i].Sample == sample {
			return &r.Calls[i], true
		}
	}
	return nil, false
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && chrom[:3] == "chr" {
		return chrom[3:]
	}
	return chrom
}

// AlternateChrom returns the other common spelling of a chromosome name:
// "chr1" becomes "1" and "1" becomes "chr1". The mitochondrial contig maps
// between "chrM" and "MT".
func AlternateChrom(chrom string) string {
	switch strings.ToUpper(chrom) {
	case "CHRM", "CHRMT":
		return "MT"
	case "MT", "M":
		return "chrM"
	}
	if n := NormalizeChrom(chrom); n != chrom {
		return n
	}
	return "chr" + chrom
}
