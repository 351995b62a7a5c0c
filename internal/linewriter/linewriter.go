// Package linewriter is the one place that knows how to stage `<line>\n`
// output through a fixed-size buffer, used by both the chunk sorter and the
// k-way merger so the "flush when the next line won't fit, bypass staging
// for oversized lines" rule lives in a single spot.
package linewriter

import (
	"bufio"
	"fmt"
	"io"
)

const DefaultStagingSize = 256 * 1024

// Writer stages `<line>\n` records through a bufio.Writer, writing any
// single line larger than the staging buffer directly instead of through it.
type Writer struct {
	bw   *bufio.Writer
	dst  io.Writer
	size int
}

// New wraps dst with a staging buffer of the given size (DefaultStagingSize
// if size <= 0).
func New(dst io.Writer, size int) *Writer {
	if size <= 0 {
		size = DefaultStagingSize
	}
	return &Writer{bw: bufio.NewWriterSize(dst, size), dst: dst, size: size}
}

// WriteLine appends raw followed by '\n', returning the number of bytes
// consumed from raw (not counting the newline).
func (w *Writer) WriteLine(raw []byte) (int, error) {
	if len(raw)+1 > w.size {
		if err := w.bw.Flush(); err != nil {
			return 0, fmt.Errorf("linewriter: flush before oversized line: %w", err)
		}
		if _, err := w.dst.Write(raw); err != nil {
			return 0, fmt.Errorf("linewriter: write oversized line: %w", err)
		}
		if _, err := w.dst.Write([]byte{'\n'}); err != nil {
			return 0, fmt.Errorf("linewriter: write newline: %w", err)
		}
		return len(raw), nil
	}
	if _, err := w.bw.Write(raw); err != nil {
		return 0, fmt.Errorf("linewriter: buffer line: %w", err)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return 0, fmt.Errorf("linewriter: buffer newline: %w", err)
	}
	return len(raw), nil
}

// Flush flushes any buffered bytes to dst.
func (w *Writer) Flush() error {
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("linewriter: flush: %w", err)
	}
	return nil
}
