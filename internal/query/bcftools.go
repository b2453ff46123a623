package query

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/inodb/vibe-pgx/internal/vcf"
)

// DefaultBcftools is the bcftools executable looked up on PATH.
const DefaultBcftools = "bcftools"

// BcftoolsSource runs `bcftools view -r chrom:pos` for every query. The VCF
// must be indexed for bcftools region access.
type BcftoolsSource struct {
	binary string
	path   string
}

// NewBcftoolsSource creates a source that shells out to the given bcftools
// binary. An empty binary uses DefaultBcftools.
func NewBcftoolsSource(binary, path string) *BcftoolsSource {
	if binary == "" {
		binary = DefaultBcftools
	}
	return &BcftoolsSource{binary: binary, path: path}
}

// Query returns the records bcftools reports for chrom:pos.
func (s *BcftoolsSource) Query(ctx context.Context, chrom string, pos int64) ([]*vcf.Record, error) {
	region := fmt.Sprintf("%s:%d", chrom, pos)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.binary, "view", "-r", region, s.path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("bcftools view -r %s: %w: %s", region, err, msg)
		}
		return nil, fmt.Errorf("bcftools view -r %s: %w", region, err)
	}

	p, err := vcf.NewParserFromReader(&stdout)
	if err != nil {
		return nil, fmt.Errorf("parse bcftools output: %w", err)
	}
	defer p.Close()

	records, err := vcf.ReadAll(p)
	if err != nil {
		return nil, fmt.Errorf("parse bcftools output: %w", err)
	}
	return overlapping(records, pos), nil
}

// Close is a no-op; each query runs its own process.
func (s *BcftoolsSource) Close() error {
	return nil
}
