package annotate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarker(t *testing.T) {
	tests := []struct {
		name      string
		fields    []string
		wantChrom string
		wantPos   int64
	}{
		{"plain", []string{"chr1", "100", "geneA"}, "chr1", 100},
		{"padded chromosome", []string{"  chr22 ", "42526694"}, "chr22", 42526694},
		{"padded position", []string{"10", " 94781859 "}, "10", 94781859},
		{"float position", []string{"chr1", "100.0"}, "chr1", 100},
		{"only coordinate columns", []string{"X", "1"}, "X", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMarker(3, tt.fields)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChrom, m.Chrom)
			assert.Equal(t, tt.wantPos, m.Pos)
			assert.Equal(t, 3, m.Row)
			assert.Equal(t, tt.fields, m.Fields, "original fields untouched")
		})
	}
}

func TestParseMarker_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		column string
	}{
		{"no fields", nil, "chromosome"},
		{"empty chromosome", []string{"  ", "100"}, "chromosome"},
		{"no position column", []string{"chr1"}, "position"},
		{"empty position", []string{"chr1", ""}, "position"},
		{"text position", []string{"chr1", "abc"}, "position"},
		{"fractional position", []string{"chr1", "100.5"}, "position"},
		{"zero position", []string{"chr1", "0"}, "position"},
		{"negative position", []string{"chr1", "-3"}, "position"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMarker(7, tt.fields)
			require.Error(t, err)

			var mm *MalformedMarkerError
			require.True(t, errors.As(err, &mm))
			assert.Equal(t, tt.column, mm.Column)
			assert.Equal(t, 7, mm.Row)
		})
	}
}

func TestParseMarkers(t *testing.T) {
	markers, err := ParseMarkers("Warfarin", [][]string{
		{"chr10", "94942290", "VKORC1"},
		{"chr16", "31096368", "CYP2C9"},
	})
	require.NoError(t, err)
	require.Len(t, markers, 2)
	assert.Equal(t, 1, markers[0].Row)
	assert.Equal(t, 2, markers[1].Row)

	_, err = ParseMarkers("Warfarin", [][]string{
		{"chr10", "94942290"},
		{"chr16", "n/a"},
	})
	var mm *MalformedMarkerError
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, "Warfarin", mm.Category)
	assert.Equal(t, 2, mm.Row)
	assert.Equal(t, `category "Warfarin" row 2: invalid position "n/a": must be a positive integer`, err.Error())
}

func TestMalformedMarkerError_NoCategory(t *testing.T) {
	err := &MalformedMarkerError{Row: 4, Column: "chromosome", Value: ""}
	assert.Equal(t, `row 4: invalid chromosome ""`, err.Error())
	assert.Nil(t, err.Unwrap())
}
