package vcf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		pos  int64
		want bool
	}{
		{"SNV at position", "C", 100, true},
		{"SNV before", "C", 99, false},
		{"SNV after", "C", 101, false},
		{"deletion covers next base", "ATG", 102, true},
		{"deletion end exclusive", "ATG", 103, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Record{Chrom: "chr1", Pos: 100, Ref: tt.ref}
			assert.Equal(t, tt.want, r.Overlaps(tt.pos))
		})
	}
}

func TestRecord_Allele(t *testing.T) {
	r := &Record{Ref: "T", Alt: []string{"C", "G"}}

	tests := []struct {
		idx  int
		want string
		ok   bool
	}{
		{0, "T", true},
		{1, "C", true},
		{2, "G", true},
		{3, "", false},
		{-1, "", false},
	}

	for _, tt := range tests {
		got, ok := r.Allele(tt.idx)
		assert.Equal(t, tt.ok, ok, "index %d", tt.idx)
		assert.Equal(t, tt.want, got, "index %d", tt.idx)
	}
}

func TestRecord_Call(t *testing.T) {
	r := &Record{Calls: []Call{{Sample: "A"}, {Sample: "B", GT: []int{1, 1}}}}

	c, ok := r.Call("B")
	assert.True(t, ok)
	assert.Equal(t, []int{1, 1}, c.GT)

	_, ok = r.Call("C")
	assert.False(t, ok)
}

func TestNormalizeChrom(t *testing.T) {
	assert.Equal(t, "1", NormalizeChrom("chr1"))
	assert.Equal(t, "1", NormalizeChrom("1"))
	assert.Equal(t, "X", NormalizeChrom("chrX"))
	assert.Equal(t, "chr", NormalizeChrom("chr"))
}

func TestAlternateChrom(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"chr1", "1"},
		{"1", "chr1"},
		{"chrX", "X"},
		{"X", "chrX"},
		{"chrM", "MT"},
		{"MT", "chrM"},
		{"M", "chrM"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AlternateChrom(tt.in), tt.in)
	}
}
