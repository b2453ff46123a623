package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-pgx/internal/vcf"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// sliceParser feeds fixed records to ImportVCF.
type sliceParser struct {
	records []*vcf.Record
	i       int
}

func (p *sliceParser) Next() (*vcf.Record, error) {
	if p.i >= len(p.records) {
		return nil, nil
	}
	r := p.records[p.i]
	p.i++
	return r, nil
}

func (p *sliceParser) Close() error    { return nil }
func (p *sliceParser) LineNumber() int { return p.i }

// brokenParser yields its records and then fails.
type brokenParser struct {
	sliceParser
}

func (p *brokenParser) Next() (*vcf.Record, error) {
	rec, _ := p.sliceParser.Next()
	if rec == nil {
		return nil, &vcf.ParseError{Line: p.i + 1, Message: "truncated line"}
	}
	return rec, nil
}

func testRecords() []*vcf.Record {
	return []*vcf.Record{
		{
			Chrom: "chr1", Pos: 100, ID: "rs100", Ref: "C", Alt: []string{"T"},
			Calls: []vcf.Call{
				{Sample: "S1", GT: []int{0, 1}, Fields: map[string]string{"DP": "35"}},
				{Sample: "S2", GT: []int{1, 1}, Phased: true, Fields: map[string]string{"DP": "12"}},
			},
		},
		{
			Chrom: "chr1", Pos: 100, ID: ".", Ref: "C", Alt: []string{"G"},
			Calls: []vcf.Call{{Sample: "S1", GT: []int{-1, -1}}, {Sample: "S2", GT: []int{0, 0}}},
		},
		{
			Chrom: "chr1", Pos: 198, Ref: "ATG", Alt: []string{"A"},
			Calls: []vcf.Call{{Sample: "S1", GT: []int{0, 1}}, {Sample: "S2", GT: []int{0, 0}}},
		},
		{Chrom: "chr2", Pos: 500, Ref: "T", Alt: []string{"C", "G"}},
	}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

func TestImportAndQuery(t *testing.T) {
	s := openInMemory(t)

	n, err := s.ImportVCF(&sliceParser{records: testRecords()}, FileFingerprint{Path: "x.vcf"})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	count, err := s.RecordCount()
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	ctx := context.Background()

	recs, err := s.Query(ctx, "chr1", 100)
	require.NoError(t, err)
	require.Len(t, recs, 2, "both records at chr1:100, in file order")
	assert.Equal(t, []string{"T"}, recs[0].Alt)
	assert.Equal(t, []string{"G"}, recs[1].Alt)

	require.Len(t, recs[0].Calls, 2)
	assert.Equal(t, "S1", recs[0].Calls[0].Sample)
	assert.Equal(t, []int{0, 1}, recs[0].Calls[0].GT)
	assert.Equal(t, "35", recs[0].Calls[0].Fields["DP"])
	assert.True(t, recs[0].Calls[1].Phased)
	assert.Equal(t, []int{-1, -1}, recs[1].Calls[0].GT)
	assert.Nil(t, recs[1].Calls[0].Fields)

	recs, err = s.Query(ctx, "chr1", 200)
	require.NoError(t, err)
	require.Len(t, recs, 1, "deletion starting at 198 spans 200")
	assert.Equal(t, int64(198), recs[0].Pos)

	recs, err = s.Query(ctx, "chr2", 500)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"C", "G"}, recs[0].Alt)
	assert.Empty(t, recs[0].Calls)

	recs, err = s.Query(ctx, "chr3", 1)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestImportReplacesPrevious(t *testing.T) {
	s := openInMemory(t)

	_, err := s.ImportVCF(&sliceParser{records: testRecords()}, FileFingerprint{Path: "a.vcf"})
	require.NoError(t, err)

	_, err = s.ImportVCF(&sliceParser{records: testRecords()[3:]}, FileFingerprint{Path: "b.vcf"})
	require.NoError(t, err)

	count, err := s.RecordCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	recs, err := s.Query(context.Background(), "chr1", 100)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestImportFailureKeepsPreviousCalls(t *testing.T) {
	s := openInMemory(t)
	fp := FileFingerprint{Path: "sample.vcf", Size: 10, ModTime: time.Now()}

	n, err := s.ImportVCF(&sliceParser{records: testRecords()}, fp)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	_, err = s.ImportVCF(&brokenParser{sliceParser{records: testRecords()[:1]}}, fp)
	var pe *vcf.ParseError
	require.ErrorAs(t, err, &pe)

	current, err := s.IsCurrent(fp)
	require.NoError(t, err)
	assert.False(t, current, "a failed import must not look up to date")

	count, err := s.RecordCount()
	require.NoError(t, err)
	assert.Equal(t, 4, count, "the failed import is rolled back")

	n, err = s.ImportVCF(&sliceParser{records: testRecords()}, fp)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	current, err = s.IsCurrent(fp)
	require.NoError(t, err)
	assert.True(t, current)
}

func TestIsCurrent(t *testing.T) {
	s := openInMemory(t)

	now := time.Now()
	fp := FileFingerprint{Path: "sample.vcf.gz", Size: 1000, ModTime: now}

	current, err := s.IsCurrent(fp)
	require.NoError(t, err)
	assert.False(t, current, "nothing imported yet")

	_, err = s.ImportVCF(&sliceParser{records: testRecords()}, fp)
	require.NoError(t, err)

	current, err = s.IsCurrent(fp)
	require.NoError(t, err)
	assert.True(t, current)

	changed := fp
	changed.Size = 9999
	current, err = s.IsCurrent(changed)
	require.NoError(t, err)
	assert.False(t, current)

	changed = fp
	changed.ModTime = now.Add(time.Hour)
	current, err = s.IsCurrent(changed)
	require.NoError(t, err)
	assert.False(t, current)
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.vcf")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, fp.Path)
	assert.Equal(t, int64(3), fp.Size)

	_, err = StatFile(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestPersistentStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "calls.duckdb")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.ImportVCF(&sliceParser{records: testRecords()}, FileFingerprint{Path: "x.vcf"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	recs, err := s.Query(context.Background(), "chr1", 100)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestGTEncoding(t *testing.T) {
	for _, gt := range [][]int{{0, 1}, {-1, -1}, {1}, {1, 2, 0}} {
		got, err := decodeGT(encodeGT(gt))
		require.NoError(t, err)
		assert.Equal(t, gt, got)
	}

	got, err := decodeGT("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = decodeGT("0,x")
	assert.Error(t, err)
}
