// Package genotype turns a VCF record into the genotype and depth strings
// reported for a marker.
package genotype

import (
	"strings"

	"gopkg.in/guregu/null.v3"

	"github.com/inodb/vibe-pgx/internal/vcf"
)

// Sentinel marks a value that could not be resolved: no record, no call,
// or an absent FORMAT field.
const Sentinel = "--"

// DefaultDepthField is the FORMAT field read for depth when none is set.
const DefaultDepthField = "DP"

// Result is the decoded call for one marker.
type Result struct {
	Genotype string
	Depth    string
}

// Missing returns the result used when no record matched.
func Missing() Result {
	return Result{Genotype: Sentinel, Depth: Sentinel}
}

// Called reports whether the genotype resolved to alleles.
func (r Result) Called() bool {
	return r.Genotype != Sentinel
}

// Decoder extracts a genotype and depth from a record for one sample.
type Decoder struct {
	// Sample selects the call to decode. Empty selects the first call in
	// the record.
	Sample string
	// DepthField is the FORMAT ID read as depth. Empty means DP.
	DepthField string
}

// NewDecoder creates a decoder for the given sample and depth field.
func NewDecoder(sample, depthField string) *Decoder {
	return &Decoder{Sample: sample, DepthField: depthField}
}

// Decode returns the genotype and depth of the selected sample's call.
// Decode never fails; anything unresolvable becomes Sentinel, and the two
// fields degrade independently.
func (d *Decoder) Decode(rec *vcf.Record) Result {
	if rec == nil {
		return Missing()
	}

	call, ok := d.selectCall(rec)
	if !ok {
		return Missing()
	}

	return Result{
		Genotype: orSentinel(Bases(rec, call)),
		Depth:    orSentinel(d.depth(call)),
	}
}

func (d *Decoder) selectCall(rec *vcf.Record) (*vcf.Call, bool) {
	if d.Sample == "" {
		if len(rec.Calls) == 0 {
			return nil, false
		}
		return &rec.Calls[0], true
	}
	return rec.Call(d.Sample)
}

func (d *Decoder) depth(call *vcf.Call) null.String {
	field := d.DepthField
	if field == "" {
		field = DefaultDepthField
	}

	v, ok := call.Fields[field]
	v = strings.TrimSpace(v)
	if !ok || v == "" || v == "." {
		return null.String{}
	}
	return null.StringFrom(v)
}

// Bases concatenates the bases of a call's alleles in call order. The
// result is null when the call has no alleles, any allele is missing, or an
// allele index does not exist in the record.
func Bases(rec *vcf.Record, call *vcf.Call) null.String {
	if call == nil || len(call.GT) == 0 {
		return null.String{}
	}

	var b strings.Builder
	for _, idx := range call.GT {
		if idx < 0 {
			return null.String{}
		}
		allele, ok := rec.Allele(idx)
		if !ok {
			return null.String{}
		}
		b.WriteString(allele)
	}
	return null.StringFrom(b.String())
}

func orSentinel(s null.String) string {
	if !s.Valid {
		return Sentinel
	}
	return s.String
}
