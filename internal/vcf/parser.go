// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/carbocation/vcfgo"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// Parser reads records from a VCF file.
type Parser struct {
	reader      *vcfgo.Reader
	file        *os.File
	gzipReader  *gzip.Reader
	lineNumber  int
	sampleNames []string // sample names from #CHROM header line
	logger      *zap.Logger
}

// NewParser creates a new VCF parser for the given file.
// Supports plain, gzipped and bgzipped VCF files.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p, err := newParser(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	p.file = file
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin or
// the output of an external tool).
func NewParserFromReader(r io.Reader) (*Parser, error) {
	return newParser(r)
}

func newParser(r io.Reader) (*Parser, error) {
	p := &Parser{logger: zap.NewNop()}

	buffered := bufio.NewReader(r)
	magic, err := buffered.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read vcf header: %w", err)
	}

	var src io.Reader = buffered
	// Check for gzip magic number (0x1f, 0x8b)
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		src = p.gzipReader
	}

	p.reader, err = vcfgo.NewReader(src, false)
	if err != nil {
		p.Close()
		return nil, &ParseError{Line: 0, Message: fmt.Sprintf("invalid header: %v", err)}
	}
	p.sampleNames = p.reader.Header.SampleNames

	return p, nil
}

// SetLogger sets the logger for recoverable per-line problems.
func (p *Parser) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Next reads the next record from the VCF file.
// Returns nil, nil when there are no more records.
//
// vcfgo reports recoverable problems (for example a Float GQ rounded to an
// integer) alongside a usable variant; those are logged and the record is
// kept. A line that yields no variant is a ParseError.
func (p *Parser) Next() (*Record, error) {
	v, err := p.read()
	if err != nil {
		return nil, err
	}

	readErr := p.reader.Error()
	p.reader.Clear()

	if v == nil {
		if readErr != nil {
			return nil, &ParseError{Line: int(p.reader.LineNumber), Message: readErr.Error()}
		}
		return nil, nil
	}
	p.lineNumber++

	if readErr != nil {
		p.logger.Warn("recoverable vcf problem",
			zap.Int64("line", v.LineNumber),
			zap.String("chrom", v.Chromosome),
			zap.Uint64("pos", v.Pos),
			zap.Error(readErr))
	}

	return FromVariant(v, p.sampleNames), nil
}

// read calls vcfgo, turning its panics on short lines into a ParseError.
func (p *Parser) read() (v *vcfgo.Variant, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.reader.Clear()
			v = nil
			err = &ParseError{Line: int(p.reader.LineNumber), Message: fmt.Sprintf("malformed record: %v", r)}
		}
	}()
	return p.reader.Read(), nil
}

// FromVariant converts a vcfgo variant into a Record. Samples must already
// be parsed; sampleNames gives the header order of the sample columns.
func FromVariant(v *vcfgo.Variant, sampleNames []string) *Record {
	rec := &Record{
		Chrom: v.Chromosome,
		Pos:   int64(v.Pos),
		ID:    v.Id(),
		Ref:   v.Ref(),
		Line:  v.LineNumber,
	}

	for _, alt := range v.Alt() {
		if alt == "." || alt == "" {
			continue
		}
		rec.Alt = append(rec.Alt, alt)
	}

	rec.Calls = make([]Call, len(v.Samples))
	for i, s := range v.Samples {
		if i < len(sampleNames) {
			rec.Calls[i].Sample = sampleNames[i]
		}
		if s == nil {
			continue
		}
		rec.Calls[i].GT = append([]int(nil), s.GT...)
		rec.Calls[i].Phased = s.Phased
		rec.Calls[i].Fields = make(map[string]string, len(s.Fields)+1)
		for k, val := range s.Fields {
			rec.Calls[i].Fields[k] = val
		}
		// vcfgo lifts DP into its own typed field; it is only non-zero when
		// the FORMAT column carried it.
		if _, ok := rec.Calls[i].Fields["DP"]; !ok && s.DP != 0 {
			rec.Calls[i].Fields["DP"] = strconv.Itoa(s.DP)
		}
	}

	return rec
}

// SampleNames returns sample names from the #CHROM header line.
// Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// Header returns the parsed VCF header.
func (p *Parser) Header() *vcfgo.Header {
	return p.reader.Header
}

// LineNumber returns the number of records read so far.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ReadAll drains a parser and returns every record in file order.
func ReadAll(p RecordParser) ([]*Record, error) {
	var records []*Record
	for {
		rec, err := p.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return records, nil
		}
		records = append(records, rec)
	}
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
