package query

import (
	"sort"

	"github.com/inodb/vibe-pgx/internal/vcf"
)

// recordIndex answers overlap queries over one chromosome's records with a
// binary search plus a backward scan that stops once no earlier record can
// reach the position. Built once, never modified.
type recordIndex struct {
	intervals []interval
	maxEnd    []int64 // maxEnd[i] = max(end) for intervals[:i+1]
}

type interval struct {
	start  int64
	end    int64
	seq    int // position in the source file, for restoring native order
	record *vcf.Record
}

func buildRecordIndex(intervals []interval) *recordIndex {
	if len(intervals) == 0 {
		return &recordIndex{}
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].end
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = max(maxEnd[i-1], intervals[i].end)
	}

	return &recordIndex{intervals: intervals, maxEnd: maxEnd}
}

// findOverlaps returns all records whose [Pos, End] range contains pos, in
// file order.
func (x *recordIndex) findOverlaps(pos int64) []*vcf.Record {
	if len(x.intervals) == 0 {
		return nil
	}

	// Candidates are [0, hi): the first index with start > pos bounds them.
	hi := sort.Search(len(x.intervals), func(i int) bool {
		return x.intervals[i].start > pos
	})

	var hits []interval
	for i := hi - 1; i >= 0; i-- {
		if x.maxEnd[i] < pos {
			// Nothing at or before i reaches pos.
			break
		}
		if x.intervals[i].end >= pos {
			hits = append(hits, x.intervals[i])
		}
	}
	if len(hits) == 0 {
		return nil
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].seq < hits[j].seq })
	records := make([]*vcf.Record, len(hits))
	for i, h := range hits {
		records[i] = h.record
	}
	return records
}
