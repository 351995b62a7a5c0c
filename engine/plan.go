package engine

import (
	"bytes"
	"fmt"
	"io"
)

// FileRange is a [Start, End) byte range into the input, aligned so that
// input[End-1] == '\n' unless End == file length.
type FileRange struct {
	Start, End int64
}

func (r FileRange) Len() int64 { return r.End - r.Start }

// PlanRanges computes chunk boundaries for a file of fileLength bytes
// targeting chunkSize-sized chunks, probing probe for the nearest following
// newline at each internal boundary so every cut lands immediately after a
// '\n'. It is a pure function of its inputs so it is testable without
// spinning up the rest of the pipeline.
func PlanRanges(fileLength int64, chunkSize int64, probe io.ReaderAt) ([]FileRange, error) {
	if fileLength <= 0 {
		return nil, nil
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("engine: chunkSize must be positive")
	}

	rangeCount := (fileLength + chunkSize - 1) / chunkSize
	boundaries := make([]int64, rangeCount+1)
	boundaries[0] = 0
	boundaries[rangeCount] = fileLength

	prev := int64(0)
	for i := int64(1); i < rangeCount; i++ {
		candidate := i * chunkSize
		if candidate <= prev {
			candidate = prev
		}
		aligned, err := nextNewlineAfter(probe, candidate, fileLength)
		if err != nil {
			return nil, err
		}
		if aligned < prev {
			aligned = prev
		}
		boundaries[i] = aligned
		prev = aligned
	}

	var ranges []FileRange
	for i := int64(0); i < rangeCount; i++ {
		start, end := boundaries[i], boundaries[i+1]
		if end <= start {
			continue // collapsed: two probes landed on the same newline
		}
		ranges = append(ranges, FileRange{Start: start, End: end})
	}
	return ranges, nil
}

// nextNewlineAfter returns the offset immediately after the first '\n' at or
// after from, reading forward in probeWindow-sized windows and extending the
// search until one is found or EOF is reached (in which case fileLength is
// returned: the range simply runs to the end of the file).
func nextNewlineAfter(probe io.ReaderAt, from, fileLength int64) (int64, error) {
	if from >= fileLength {
		return fileLength, nil
	}
	buf := make([]byte, probeWindow)
	pos := from
	for pos < fileLength {
		want := int64(len(buf))
		if remaining := fileLength - pos; remaining < want {
			want = remaining
		}
		n, err := probe.ReadAt(buf[:want], pos)
		if n > 0 {
			if idx := bytes.IndexByte(buf[:n], '\n'); idx >= 0 {
				return pos + int64(idx) + 1, nil
			}
		}
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("engine: probe read at %d: %w", pos, err)
		}
		if err == io.EOF && n == 0 {
			break
		}
		pos += int64(n)
	}
	return fileLength, nil
}
