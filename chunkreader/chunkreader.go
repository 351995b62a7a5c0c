// Package chunkreader implements the sorted-chunk reader (spec component
// C6): a lazy, allocation-light stream of record.Line values read off one
// sorted run, transparently decoding the run if it was written compressed.
package chunkreader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lineforge/extsort/codec"
	"github.com/lineforge/extsort/record"
)

const readBufferSize = 64 * 1024

// Reader streams one sorted chunk file as parsed lines. The Line returned by
// Next borrows Reader's internal line buffer: it is only valid until the
// next call to Next. Reader is not safe for concurrent use.
type Reader struct {
	file    *os.File
	decoder *codec.Reader
	br      *bufio.Reader
	lineBuf []byte
	skipped int
}

// Open opens path for reading. When compressed is true the stream is
// decoded through package codec before being parsed as records.
func Open(path string, compressed bool) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chunkreader: open %s: %w", path, err)
	}

	r := &Reader{file: f, lineBuf: make([]byte, 0, 256)}
	var src io.Reader = f
	if compressed {
		dec, err := codec.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("chunkreader: init decoder for %s: %w", path, err)
		}
		r.decoder = dec
		src = dec
	}
	r.br = bufio.NewReaderSize(src, readBufferSize)
	return r, nil
}

// Next returns the next well-formed record, or ok=false at EOF. Malformed
// lines (which should not occur in an engine-written chunk file, but are
// tolerated defensively) are skipped and counted, never surfaced as errors.
func (r *Reader) Next() (record.Line, bool, error) {
	for {
		r.lineBuf = r.lineBuf[:0]
		for {
			chunk, err := r.br.ReadSlice('\n')
			r.lineBuf = append(r.lineBuf, chunk...)
			if err == nil {
				break
			}
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			return record.Line{}, false, fmt.Errorf("chunkreader: read: %w", err)
		}
		if len(r.lineBuf) == 0 {
			return record.Line{}, false, nil
		}

		raw := r.lineBuf
		if raw[len(raw)-1] == '\n' {
			raw = raw[:len(raw)-1]
		}
		l, err := record.Parse(raw)
		if err != nil {
			r.skipped++
			continue
		}
		return l, true, nil
	}
}

// Skipped reports how many malformed lines this reader has dropped so far.
func (r *Reader) Skipped() int { return r.skipped }

// Close releases the decoder (if any) and the underlying file.
func (r *Reader) Close() error {
	if r.decoder != nil {
		_ = r.decoder.Close()
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("chunkreader: close: %w", err)
	}
	return nil
}
