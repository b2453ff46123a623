package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-pgx/internal/vcf"
)

// fakeSource answers from a map keyed by "chrom:pos" and fails for the
// chromosomes listed in fail.
type fakeSource struct {
	records map[string][]*vcf.Record
	fail    map[string]error
	calls   []string
	delay   time.Duration
}

func (f *fakeSource) Query(ctx context.Context, chrom string, pos int64) ([]*vcf.Record, error) {
	f.calls = append(f.calls, chrom)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.fail[chrom]; ok {
		return nil, err
	}
	return f.records[key(chrom, pos)], nil
}

func (f *fakeSource) Close() error { return nil }

func key(chrom string, pos int64) string {
	return fmt.Sprintf("%s:%d", chrom, pos)
}

func TestAdapter_Found(t *testing.T) {
	rec := &vcf.Record{Chrom: "chr1", Pos: 100, Ref: "C"}
	src := &fakeSource{records: map[string][]*vcf.Record{key("chr1", 100): {rec}}}

	recs, err := NewAdapter(src).Query(context.Background(), " chr1 ", 100)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Same(t, rec, recs[0])
	assert.Equal(t, []string{"chr1"}, src.calls, "chromosome trimmed, no alias lookup after a hit")
}

func TestAdapter_ChromAlias(t *testing.T) {
	rec := &vcf.Record{Chrom: "1", Pos: 100, Ref: "C"}
	src := &fakeSource{records: map[string][]*vcf.Record{key("1", 100): {rec}}}

	a := NewAdapter(src)
	recs, err := a.Query(context.Background(), "chr1", 100)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"chr1", "1"}, src.calls)

	src.calls = nil
	a.SetChromAliases(false)
	recs, err = a.Query(context.Background(), "chr1", 100)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, []string{"chr1"}, src.calls)
}

func TestAdapter_NoMatchIsNotFailure(t *testing.T) {
	src := &fakeSource{}

	recs, err := NewAdapter(src).Query(context.Background(), "chr1", 100)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestAdapter_Failure(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{fail: map[string]error{"chr1": boom, "1": errors.New("other")}}

	_, err := NewAdapter(src).Query(context.Background(), "chr1", 100)
	require.Error(t, err)
	assert.True(t, IsFailure(err))
	assert.ErrorIs(t, err, boom, "first failure is kept")

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "chr1", f.Chrom)
	assert.Equal(t, int64(100), f.Pos)
	assert.Equal(t, "query chr1:100: boom", f.Error())
}

func TestAdapter_AliasRecordsWinOverFailure(t *testing.T) {
	rec := &vcf.Record{Chrom: "1", Pos: 100, Ref: "C"}
	src := &fakeSource{
		records: map[string][]*vcf.Record{key("1", 100): {rec}},
		fail:    map[string]error{"chr1": errors.New("no such contig")},
	}

	recs, err := NewAdapter(src).Query(context.Background(), "chr1", 100)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestAdapter_FailureNotHiddenByEmptyAlias(t *testing.T) {
	boom := errors.New("exit status 255")
	src := &fakeSource{fail: map[string]error{"chr1": boom}}

	recs, err := NewAdapter(src).Query(context.Background(), "chr1", 100)
	assert.Nil(t, recs)
	require.True(t, IsFailure(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"chr1", "1"}, src.calls, "the alias is still tried")
}

func TestAdapter_InvalidLocus(t *testing.T) {
	a := NewAdapter(&fakeSource{})

	for _, tt := range []struct {
		chrom string
		pos   int64
	}{
		{"", 100},
		{"   ", 100},
		{"chr1", 0},
		{"chr1", -5},
	} {
		_, err := a.Query(context.Background(), tt.chrom, tt.pos)
		assert.ErrorIs(t, err, ErrInvalidLocus)
		assert.True(t, IsFailure(err))
	}
}

func TestAdapter_Timeout(t *testing.T) {
	src := &fakeSource{delay: time.Second}

	a := NewAdapter(src)
	a.SetChromAliases(false)
	a.SetTimeout(10 * time.Millisecond)

	_, err := a.Query(context.Background(), "chr1", 100)
	require.Error(t, err)
	assert.True(t, IsFailure(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemorySource(t *testing.T) {
	src, err := LoadMemorySource("testdata/sample.vcf")
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 5, src.RecordCount())

	ctx := context.Background()

	recs, err := src.Query(ctx, "chr1", 100)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "rs100", recs[0].ID)

	recs, err = src.Query(ctx, "chr1", 401)
	require.NoError(t, err)
	require.Len(t, recs, 1, "deletion at 400 spans 401")
	assert.Equal(t, int64(400), recs[0].Pos)

	recs, err = src.Query(ctx, "chr1", 150)
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = src.Query(ctx, "chrX", 150)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMemorySource_NativeOrder(t *testing.T) {
	records := []*vcf.Record{
		{Chrom: "chr1", Pos: 98, Ref: "AAAAA", ID: "first"},
		{Chrom: "chr1", Pos: 100, Ref: "C", ID: "second"},
		{Chrom: "chr1", Pos: 99, Ref: "AA", ID: "third"},
		{Chrom: "chr1", Pos: 100, Ref: "C", ID: "fourth"},
	}
	src := NewMemorySource(records)

	recs, err := src.Query(context.Background(), "chr1", 100)
	require.NoError(t, err)

	var ids []string
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, ids)
}

func TestMemorySource_CancelledContext(t *testing.T) {
	src := NewMemorySource(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Query(ctx, "chr1", 100)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectBackend(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, BackendDuckDB, DetectBackend(dir+"/calls.duckdb"))
	assert.Equal(t, BackendDuckDB, DetectBackend(dir+"/calls.DB"))
	assert.Equal(t, BackendMemory, DetectBackend("testdata/sample.vcf"))

	indexed := writeFile(t, dir, "indexed.vcf.gz", "")
	writeFile(t, dir, "indexed.vcf.gz.tbi", "")
	assert.Equal(t, BackendTabix, DetectBackend(indexed))
}

func TestOpen(t *testing.T) {
	src, err := Open("testdata/sample.vcf", Options{})
	require.NoError(t, err)
	defer src.Close()
	assert.IsType(t, &MemorySource{}, src)

	src, err = Open("testdata/sample.vcf", Options{Backend: BackendBcftools})
	require.NoError(t, err)
	assert.IsType(t, &BcftoolsSource{}, src)

	_, err = Open("testdata/sample.vcf", Options{Backend: "nope"})
	assert.Error(t, err)

	_, err = Open("testdata/absent.duckdb", Options{})
	assert.Error(t, err)
}
