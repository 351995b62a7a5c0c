// Package sorterr defines the error taxonomy shared by every stage of the
// sort pipeline, mirroring the fixed error-kind style erigon's own storage
// and networking layers use instead of an unstructured error string.
package sorterr

import "fmt"

// Kind classifies a sort failure so callers can branch on it with errors.As
// without depending on error message text.
type Kind int

const (
	// InputUnavailable means the input path could not be opened or read.
	InputUnavailable Kind = iota
	// OutputUnavailable means the output path could not be created or written.
	OutputUnavailable
	// TempUnavailable means the working directory could not be created or is not writable.
	TempUnavailable
	// MalformedRecord classifies a dropped, unparseable record. Never returned
	// from Sort itself: malformed records are recovered locally per line and
	// only counted, and no stage constructs an error of this kind.
	MalformedRecord
	// Cancelled means the cooperative cancellation signal was observed.
	Cancelled
	// ResourceExhausted means a bounded pool (buffers, file handles) could not
	// satisfy a request within policy.
	ResourceExhausted
	// CodecError means a compression or decompression failure occurred in an
	// intermediate stream.
	CodecError
)

func (k Kind) String() string {
	switch k {
	case InputUnavailable:
		return "InputUnavailable"
	case OutputUnavailable:
		return "OutputUnavailable"
	case TempUnavailable:
		return "TempUnavailable"
	case MalformedRecord:
		return "MalformedRecord"
	case Cancelled:
		return "Cancelled"
	case ResourceExhausted:
		return "ResourceExhausted"
	case CodecError:
		return "CodecError"
	default:
		return "Unknown"
	}
}

// SortError wraps an underlying cause with the Kind that classifies it.
type SortError struct {
	Kind Kind
	Op   string // short operation description, e.g. "open input", "merge pass 2"
	Err  error
}

func New(kind Kind, op string, err error) *SortError {
	return &SortError{Kind: kind, Op: op, Err: err}
}

func (e *SortError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *SortError) Unwrap() error { return e.Err }

// Is reports whether target is a *SortError of the same Kind, so
// errors.Is(err, sorterr.New(sorterr.Cancelled, "", nil)) matches any
// cancelled error regardless of its Op or cause.
func (e *SortError) Is(target error) bool {
	other, ok := target.(*SortError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}
