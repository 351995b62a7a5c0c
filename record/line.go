// Package record implements the line codec: parsing a `<Number>. <String>`
// record from a byte slice into a zero-copy descriptor, and the total order
// used everywhere else in the pipeline.
package record

import (
	"bytes"
	"errors"
	"fmt"
	"math"
)

// ErrMalformed is returned by Parse for any byte sequence that does not
// match the `<digits>. <string>` grammar. Callers drop the record and move
// on; nothing in this package treats it as fatal.
var ErrMalformed = errors.New("record: malformed line")

const separator = ". "

// Line is a zero-copy view into a caller-owned byte slice identifying one
// record. Raw shares its backing array with the chunk buffer it was parsed
// from; no bytes are copied during Parse, sort, or merge. NumberValue is
// parsed once, here, so comparisons never re-scan the digit run.
type Line struct {
	Raw          []byte
	NumberStart  int
	NumberLength int
	StringStart  int
	StringLength int
	NumberValue  uint64
}

// Number returns the digit run of the record.
func (l Line) Number() []byte {
	return l.Raw[l.NumberStart : l.NumberStart+l.NumberLength]
}

// Str returns the string part of the record (excludes the ". " separator and
// any line terminator).
func (l Line) Str() []byte {
	return l.Raw[l.StringStart : l.StringStart+l.StringLength]
}

// Parse locates the first occurrence of ". " in raw, requires everything
// before it to be a non-empty run of ASCII digits fitting in a uint64, and
// treats everything after it (to the end of raw) as the string part. raw
// must already have any trailing newline stripped.
func Parse(raw []byte) (Line, error) {
	idx := bytes.Index(raw, []byte(separator))
	if idx <= 0 {
		return Line{}, fmt.Errorf("%w: no \". \" separator found", ErrMalformed)
	}

	var value uint64
	for i := 0; i < idx; i++ {
		c := raw[i]
		if c < '0' || c > '9' {
			return Line{}, fmt.Errorf("%w: non-digit byte %q in number prefix", ErrMalformed, c)
		}
		d := uint64(c - '0')
		if value > (math.MaxUint64-d)/10 {
			return Line{}, fmt.Errorf("%w: number overflows uint64", ErrMalformed)
		}
		value = value*10 + d
	}

	stringStart := idx + len(separator)
	return Line{
		Raw:          raw,
		NumberStart:  0,
		NumberLength: idx,
		StringStart:  stringStart,
		StringLength: len(raw) - stringStart,
		NumberValue:  value,
	}, nil
}

// Compare implements the system's one total order: byte-lexicographic on the
// string part, ties broken by ascending numeric value.
func Compare(a, b Line) int {
	if c := bytes.Compare(a.Str(), b.Str()); c != 0 {
		return c
	}
	switch {
	case a.NumberValue < b.NumberValue:
		return -1
	case a.NumberValue > b.NumberValue:
		return 1
	default:
		return 0
	}
}

// Less is Compare expressed as a strict less-than, for callers that want a
// sort.Interface-shaped comparator.
func Less(a, b Line) bool { return Compare(a, b) < 0 }
