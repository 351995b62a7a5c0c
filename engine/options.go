package engine

import (
	"runtime"

	"github.com/pbnjay/memory"

	"github.com/lineforge/extsort/internal/xlog"
)

const (
	memoryUsageRatio = 0.6
	minChunkSize     = 64 << 20  // 64 MiB
	maxChunkSize     = 1 << 30   // 1 GiB
	probeWindow      = 64 << 10  // 64 KiB
)

// Phase identifies which stage of the sort a Progress event describes.
type Phase int

const (
	PhaseChunking Phase = iota
	PhaseMerging
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseChunking:
		return "chunking"
	case PhaseMerging:
		return "merging"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Progress is one observer notification. Current never decreases within a
// phase.
type Progress struct {
	Phase   Phase
	Current int64
	Total   int64
}

// Options configures one Sort call. Every field has a default for its zero
// value (most applied by WithDefaults); the zero value is always valid input.
type Options struct {
	// ChunkSize is the target size of one chunk in bytes. 0 selects the
	// computed default from spec.md §4.8.
	ChunkSize int64
	// ParallelDegree bounds range-level chunking workers and, halved, merge
	// batch concurrency. 0 selects runtime.NumCPU().
	ParallelDegree int
	// TempDirectory is the working directory for intermediate files. Empty
	// selects a uniquely named subdirectory of the OS temp directory.
	TempDirectory string
	// MergeWidth overrides the derived merge fan-in. 0 selects
	// merge.Width(ParallelDegree).
	MergeWidth int
	// QueueCapacity bounds the chunking phase's write-job queue. 0 selects
	// max(2, ParallelDegree/2).
	QueueCapacity int
	// WriterCount bounds the chunk-writer pool. 0 selects
	// clamp(ParallelDegree/4, 1, 4).
	WriterCount int
	// CompressChunks overrides the phase-1 compression decision (compress
	// only when a multi-pass merge will follow). Nil leaves the automatic
	// decision in place.
	CompressChunks *bool

	Logger   xlog.Logger
	Progress func(Progress)
}

// WithDefaults returns a copy of o with ParallelDegree, ChunkSize,
// QueueCapacity, WriterCount, Logger and Progress replaced by their computed
// defaults when zero-valued; a user-supplied value is never overridden.
// MergeWidth, TempDirectory and CompressChunks are left as given: Sort and
// package tempstore resolve their zero values.
func (o Options) WithDefaults() Options {
	if o.ParallelDegree <= 0 {
		o.ParallelDegree = runtime.NumCPU()
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize(o.ParallelDegree)
	}
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = clampInt(o.ParallelDegree/2, 2, 1<<30)
	}
	if o.WriterCount <= 0 {
		o.WriterCount = clampInt(o.ParallelDegree/4, 1, 4)
	}
	if o.Logger == nil {
		o.Logger = xlog.Discard()
	}
	if o.Progress == nil {
		o.Progress = func(Progress) {}
	}
	return o
}

func defaultChunkSize(workerCount int) int64 {
	total := memory.TotalMemory()
	if total == 0 {
		return minChunkSize
	}
	size := int64(memoryUsageRatio * float64(total) / float64(workerCount))
	return clampInt64(size, minChunkSize, maxChunkSize)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
