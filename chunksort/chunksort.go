// Package chunksort implements the chunk sorter (spec component C4): split a
// raw byte chunk into records, sort them in memory, and stream the sorted
// result back out. Whether the output stream is compressed is the caller's
// concern (see package codec); this package only ever sees an io.Writer.
package chunksort

import (
	"io"

	"github.com/lineforge/extsort/internal/linewriter"
	"github.com/lineforge/extsort/record"
	"github.com/lineforge/extsort/sortalgo"
)

// estimatedBytesPerLine sizes the initial line slice to avoid reallocation
// during the scan; it is a guess, not a contract, and wrong guesses only
// cost one or two slice growths.
const estimatedBytesPerLine = 32

// Result reports what SortChunk produced.
type Result struct {
	Lines   []record.Line
	Skipped int // records dropped because they failed to parse
}

// SortChunk scans buf for \n-terminated records (plus a trailing partial
// record if buf doesn't end in \n), parses each into a record.Line sharing
// buf's backing array, drops parse failures, and sorts the survivors with
// the total order from package record.
func SortChunk(buf []byte) Result {
	lines := make([]record.Line, 0, len(buf)/estimatedBytesPerLine+1)
	skipped := 0

	start := 0
	for i := 0; i < len(buf); i++ {
		if buf[i] != '\n' {
			continue
		}
		if l, err := record.Parse(buf[start:i]); err == nil {
			lines = append(lines, l)
		} else {
			skipped++
		}
		start = i + 1
	}
	if start < len(buf) {
		if l, err := record.Parse(buf[start:]); err == nil {
			lines = append(lines, l)
		} else {
			skipped++
		}
	}

	sortalgo.Sort(lines)
	return Result{Lines: lines, Skipped: skipped}
}

// WriteChunk writes each line's original bytes followed by '\n' to w, using
// a fixed-size staging buffer to amortize syscalls. A line larger than the
// staging buffer bypasses staging and is written directly.
func WriteChunk(w io.Writer, lines []record.Line) (int64, error) {
	lw := linewriter.New(w, linewriter.DefaultStagingSize)
	var total int64
	for _, l := range lines {
		n, err := lw.WriteLine(l.Raw)
		if err != nil {
			return total, err
		}
		total += int64(n) + 1
	}
	if err := lw.Flush(); err != nil {
		return total, err
	}
	return total, nil
}
