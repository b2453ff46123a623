// Package vcf provides VCF file parsing functionality.
package vcf

// RecordParser is the interface for parsers that read VCF records.
type RecordParser interface {
	// Next reads the next record.
	// Returns nil, nil when there are no more records.
	Next() (*Record, error)

	// Close closes the parser and releases resources.
	Close() error

	// LineNumber returns the number of records read so far.
	LineNumber() int
}
