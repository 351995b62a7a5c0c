package engine_test

import (
	"bytes"
	"testing"

	"github.com/lineforge/extsort/engine"
	"github.com/stretchr/testify/require"
)

func TestPlanRangesEmptyFile(t *testing.T) {
	ranges, err := engine.PlanRanges(0, 1024, bytes.NewReader(nil))
	require.NoError(t, err)
	require.Empty(t, ranges)
}

func TestPlanRangesSingleChunkWhenSmallerThanChunkSize(t *testing.T) {
	data := []byte("1. a\n2. b\n3. c\n")
	ranges, err := engine.PlanRanges(int64(len(data)), 1<<20, bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	require.Equal(t, engine.FileRange{Start: 0, End: int64(len(data))}, ranges[0])
}

func TestPlanRangesAlignsToNewlines(t *testing.T) {
	// Fixed 13-byte records; 300 is not a multiple of 13, so naive byte-offset
	// cuts would land mid-record.
	var buf bytes.Buffer
	for i := 0; i < 200; i++ {
		buf.WriteString("123456789. " + string(rune('a'+i%26)) + "\n")
	}
	data := buf.Bytes()

	ranges, err := engine.PlanRanges(int64(len(data)), 300, bytes.NewReader(data))
	require.NoError(t, err)
	require.NotEmpty(t, ranges)

	require.Equal(t, int64(0), ranges[0].Start)
	require.Equal(t, int64(len(data)), ranges[len(ranges)-1].End)

	for i, r := range ranges {
		require.Greater(t, r.End, r.Start)
		if r.End < int64(len(data)) {
			require.Equal(t, byte('\n'), data[r.End-1])
		}
		if i > 0 {
			require.Equal(t, ranges[i-1].End, r.Start)
		}
	}

	// Concatenation of ranges reconstructs the file exactly.
	var reconstructed []byte
	for _, r := range ranges {
		reconstructed = append(reconstructed, data[r.Start:r.End]...)
	}
	require.Equal(t, data, reconstructed)
}

func TestPlanRangesCollapsesDuplicateBoundaries(t *testing.T) {
	// A single huge record spanning the whole file: every internal probe
	// finds the same terminal newline, so all but the last range collapse.
	data := []byte("1. " + string(make([]byte, 5000)) + "\n")
	ranges, err := engine.PlanRanges(int64(len(data)), 100, bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	require.Equal(t, int64(0), ranges[0].Start)
	require.Equal(t, int64(len(data)), ranges[0].End)
}

func TestPlanRangesNoTrailingNewline(t *testing.T) {
	data := []byte("1. a\n2. b\n3. no newline at end")
	ranges, err := engine.PlanRanges(int64(len(data)), 6, bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), ranges[len(ranges)-1].End)
}
