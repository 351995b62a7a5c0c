// Package merge implements the k-way merger (spec component C7): merge N
// sorted chunk readers through a loser tree into one output, recursing into
// further passes when N exceeds the configured merge width. The worker-pool
// shape (errgroup for fan-out, a semaphore to cap concurrent batches)
// mirrors the teacher's own etl.Collector.Load, which runs its heap-drain
// and its batch-commit loop as two errgroup goroutines.
package merge

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/lineforge/extsort/chunkreader"
	"github.com/lineforge/extsort/codec"
	"github.com/lineforge/extsort/internal/linewriter"
	"github.com/lineforge/extsort/internal/xlog"
	"github.com/lineforge/extsort/losertree"
	"github.com/lineforge/extsort/record"
	"github.com/lineforge/extsort/sorterr"
	"github.com/lineforge/extsort/tempstore"
)

const (
	MinWidth = 8
	MaxWidth = 64
)

// Width derives the merge fan-in from parallelism: nominal 4x, clamped to
// [MinWidth, MaxWidth] to bound open file handles.
func Width(parallelDegree int) int {
	w := 4 * parallelDegree
	if w < MinWidth {
		return MinWidth
	}
	if w > MaxWidth {
		return MaxWidth
	}
	return w
}

// Source is one sorted run to merge.
type Source struct {
	Path       string
	Compressed bool
}

// Stats reports what a merge (single pass or the whole multi-pass tree)
// produced.
type Stats struct {
	LinesWritten int64
	BytesWritten int64
	Skipped      int // malformed lines dropped while re-reading intermediates
	Passes       int
}

// Options configures a Merger.
type Options struct {
	ParallelDegree int
	MergeWidth     int // 0 means Width(ParallelDegree)
	// Progress, if set, is called with the cumulative bytes written across
	// every pass of one Merge call (intermediate passes included, since
	// those are real merge work too), at the same cadence as the
	// cancellation check inside mergeOne.
	Progress func(bytesWritten int64)
}

// Merger drives one or more merge passes, allocating intermediate paths from
// registry and reporting through log.
type Merger struct {
	Registry *tempstore.Registry
	Options  Options
	Log      xlog.Logger
}

// New builds a Merger with sane option defaults filled in.
func New(reg *tempstore.Registry, opts Options, log xlog.Logger) *Merger {
	if opts.MergeWidth <= 0 {
		opts.MergeWidth = Width(max(opts.ParallelDegree, 1))
	}
	if log == nil {
		log = xlog.Discard()
	}
	return &Merger{Registry: reg, Options: opts, Log: log}
}

// Merge merges sources into targetPath. When compressTarget is false the
// final write is a plain sorted-run file (the output format of spec.md §6);
// when true it is wrapped in package codec, used for producing a compressed
// intermediate feeding a further pass.
func (m *Merger) Merge(ctx context.Context, sources []Source, targetPath string, compressTarget bool) (Stats, error) {
	progress := new(atomic.Int64)
	return m.run(ctx, sources, targetPath, compressTarget, 1, progress)
}

func (m *Merger) run(ctx context.Context, sources []Source, targetPath string, compressTarget bool, pass int, progress *atomic.Int64) (Stats, error) {
	if len(sources) <= m.Options.MergeWidth {
		st, err := m.mergeOne(ctx, sources, targetPath, compressTarget, progress)
		st.Passes = pass
		return st, err
	}

	m.Log.Info("merge: fan-in exceeds width, running intermediate pass", "pass", pass, "sources", len(sources), "width", m.Options.MergeWidth)

	batches := partition(sources, m.Options.MergeWidth)
	intermediates := make([]Source, len(batches))
	concurrency := int64(max(1, m.Options.ParallelDegree/2))
	sem := semaphore.NewWeighted(concurrency)

	g, gctx := errgroup.WithContext(ctx)
	skippedTotal := make([]int, len(batches))

	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return fmt.Errorf("merge: acquire batch slot: %w", err)
			}
			defer sem.Release(1)

			path := m.Registry.MergePath(pass, i)
			st, err := m.mergeOne(gctx, batch, path, true, progress)
			if err != nil {
				return err
			}
			skippedTotal[i] = st.Skipped
			intermediates[i] = Source{Path: path, Compressed: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	next, err := m.run(ctx, intermediates, targetPath, compressTarget, pass+1, progress)
	for _, s := range skippedTotal {
		next.Skipped += s
	}
	return next, err
}

func partition(sources []Source, width int) [][]Source {
	var batches [][]Source
	for i := 0; i < len(sources); i += width {
		end := i + width
		if end > len(sources) {
			end = len(sources)
		}
		batches = append(batches, sources[i:end])
	}
	return batches
}

// mergeOne performs one flat k-way merge (no further fan-out) of sources
// into targetPath via a loser tree. progress, if non-nil, accumulates bytes
// written across every mergeOne call in the whole (possibly multi-pass)
// Merge invocation.
func (m *Merger) mergeOne(ctx context.Context, sources []Source, targetPath string, compress bool, progress *atomic.Int64) (Stats, error) {
	readers := make([]*chunkreader.Reader, len(sources))
	defer func() {
		for _, r := range readers {
			if r != nil {
				_ = r.Close()
			}
		}
	}()
	for i, s := range sources {
		r, err := chunkreader.Open(s.Path, s.Compressed)
		if err != nil {
			return Stats{}, sorterr.New(sorterr.InputUnavailable, "open merge source", err)
		}
		readers[i] = r
	}

	f, err := os.Create(targetPath)
	if err != nil {
		return Stats{}, sorterr.New(sorterr.OutputUnavailable, "create merge target", err)
	}
	defer f.Close()

	var lw *linewriter.Writer
	var enc *codec.Writer
	if compress {
		enc = codec.NewWriter(f)
		lw = linewriter.New(enc, linewriter.DefaultStagingSize)
	} else {
		lw = linewriter.New(f, linewriter.DefaultStagingSize)
	}

	tree := losertree.New[record.Line](len(readers), record.Less)
	skipped := 0
	for i, r := range readers {
		line, ok, err := r.Next()
		if err != nil {
			return Stats{}, sorterr.New(sorterr.InputUnavailable, "prime merge source", err)
		}
		if ok {
			tree.SetLeaf(i, line)
		}
	}
	tree.Build()

	var stats Stats
	checkEvery := 0
	for tree.ActiveCount() > 0 {
		checkEvery++
		if checkEvery&0xFFFF == 0 {
			if err := ctx.Err(); err != nil {
				return stats, sorterr.New(sorterr.Cancelled, "merge", err)
			}
		}

		w := tree.WinnerIndex()
		line := tree.WinnerValue()
		n, err := lw.WriteLine(line.Raw)
		if err != nil {
			return stats, sorterr.New(sorterr.OutputUnavailable, "write merged line", err)
		}
		stats.LinesWritten++
		stats.BytesWritten += int64(n) + 1

		if progress != nil {
			total := progress.Add(int64(n) + 1)
			if m.Options.Progress != nil && checkEvery&0xFFFF == 0 {
				m.Options.Progress(total)
			}
		}

		next, ok, err := readers[w].Next()
		if err != nil {
			return stats, sorterr.New(sorterr.InputUnavailable, "read next merge line", err)
		}
		if ok {
			tree.ReplaceWinner(next)
		} else {
			tree.DeactivateWinner()
		}
	}

	if err := lw.Flush(); err != nil {
		return stats, sorterr.New(sorterr.OutputUnavailable, "flush merge output", err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return stats, sorterr.New(sorterr.CodecError, "close merge compressor", err)
		}
	}
	for _, r := range readers {
		skipped += r.Skipped()
	}
	stats.Skipped = skipped

	if progress != nil && m.Options.Progress != nil {
		m.Options.Progress(progress.Load())
	}
	return stats, nil
}
