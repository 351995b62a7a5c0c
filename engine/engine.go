// Package engine wires the whole pipeline together (spec component C8): plan
// ranges over the input, sort and write each range as a compressed or plain
// chunk through a bounded producer/writer pool, then hand the resulting
// sorted runs to package merge. The two-pool chunking shape (CPU-bound range
// sorters feeding a small pool of I/O-bound writers through a bounded
// channel) mirrors the teacher's own etl.Collector, which double-buffers its
// heap-drain against its batch-commit goroutine the same way.
package engine

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/lineforge/extsort/chunksort"
	"github.com/lineforge/extsort/codec"
	"github.com/lineforge/extsort/internal/bufpool"
	"github.com/lineforge/extsort/internal/xlog"
	"github.com/lineforge/extsort/merge"
	"github.com/lineforge/extsort/record"
	"github.com/lineforge/extsort/sorterr"
	"github.com/lineforge/extsort/tempstore"
)

// Result summarizes one completed Sort call.
type Result struct {
	LinesWritten   int64
	BytesWritten   int64
	RecordsSkipped int
	Chunks         int
	MergePasses    int
}

// Sort reads inputPath, sorts it by the system's one total order, and writes
// the result to outputPath. It is the entry point for spec component C8.
func Sort(ctx context.Context, inputPath, outputPath string, opts Options) (Result, error) {
	opts = opts.WithDefaults()
	log := opts.Logger

	in, err := os.Open(inputPath)
	if err != nil {
		return Result{}, sorterr.New(sorterr.InputUnavailable, "open input", err)
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return Result{}, sorterr.New(sorterr.InputUnavailable, "stat input", err)
	}

	if stat.Size() == 0 {
		if err := os.WriteFile(outputPath, nil, 0o644); err != nil {
			return Result{}, sorterr.New(sorterr.OutputUnavailable, "create empty output", err)
		}
		opts.Progress(Progress{Phase: PhaseDone, Current: 0, Total: 0})
		return Result{}, nil
	}

	reg, err := tempstore.New(opts.TempDirectory, log)
	if err != nil {
		return Result{}, err
	}
	success := false
	defer func() {
		if !success {
			reg.Dispose()
		}
	}()

	ranges, err := PlanRanges(stat.Size(), opts.ChunkSize, in)
	if err != nil {
		return Result{}, sorterr.New(sorterr.InputUnavailable, "plan ranges", err)
	}
	log.Info("engine: planned chunking ranges", "ranges", len(ranges), "chunkSize", opts.ChunkSize)

	mergeWidth := opts.MergeWidth
	if mergeWidth <= 0 {
		mergeWidth = merge.Width(opts.ParallelDegree)
	}
	// Phase-1 chunks are only worth compressing when a further merge pass
	// will read them back; a single-pass merge reads each chunk exactly
	// once, so compressing it would spend CPU without saving a rewrite.
	compressChunks := len(ranges) > mergeWidth
	if opts.CompressChunks != nil {
		compressChunks = *opts.CompressChunks
	}

	sources, skipped, err := chunkPhase(ctx, in, ranges, reg, opts, compressChunks, stat.Size(), log)
	if err != nil {
		return Result{}, err
	}

	// Concurrent batch merges can deliver their totals out of order; only
	// forward a value that does not go below the last one reported.
	var mergeProgressMu sync.Mutex
	var mergeReported int64
	mergeOpts := merge.Options{
		ParallelDegree: opts.ParallelDegree,
		MergeWidth:     mergeWidth,
		Progress: func(bytesWritten int64) {
			mergeProgressMu.Lock()
			defer mergeProgressMu.Unlock()
			if bytesWritten < mergeReported {
				return
			}
			mergeReported = bytesWritten
			opts.Progress(Progress{Phase: PhaseMerging, Current: bytesWritten, Total: stat.Size()})
		},
	}
	m := merge.New(reg, mergeOpts, log.New("stage", "merge"))
	mstats, err := m.Merge(ctx, sources, outputPath, false)
	if err != nil {
		return Result{}, err
	}
	opts.Progress(Progress{Phase: PhaseDone, Current: stat.Size(), Total: stat.Size()})

	success = true
	reg.Dispose()

	return Result{
		LinesWritten:   mstats.LinesWritten,
		BytesWritten:   mstats.BytesWritten,
		RecordsSkipped: skipped + mstats.Skipped,
		Chunks:         len(ranges),
		MergePasses:    mstats.Passes,
	}, nil
}

// writeJob is a sorted range awaiting output.
type writeJob struct {
	lines []record.Line
	path  string
	buf   []byte // owning buffer, returned to pool once written
}

// chunkPhase reads every planned range, sorts it in memory, and writes the
// sorted result to a fresh chunk file, fanning the CPU-bound sort step out
// across opts.ParallelDegree workers while a small pool of writer goroutines
// drains a bounded queue so a slow disk never stalls the sorters.
func chunkPhase(ctx context.Context, in *os.File, ranges []FileRange, reg *tempstore.Registry, opts Options, compress bool, totalBytes int64, log xlog.Logger) ([]merge.Source, int, error) {
	pool := bufpool.New()
	queue := make(chan writeJob, opts.QueueCapacity)

	var sourcesMu sync.Mutex
	var sources []merge.Source
	var totalSkipped atomic.Int64
	var bytesProcessed atomic.Int64
	var progressMu sync.Mutex // keeps chunking progress events in Current order

	g, gctx := errgroup.WithContext(ctx)

	// Writer pool: drains queue, each write independent of the others.
	for w := 0; w < opts.WriterCount; w++ {
		g.Go(func() error {
			for job := range queue {
				if err := gctx.Err(); err != nil {
					pool.Put(job.buf)
					return sorterr.New(sorterr.Cancelled, "chunk write", err)
				}
				n, err := writeChunkFile(job.path, job.lines, compress)
				pool.Put(job.buf)
				if err != nil {
					return err
				}
				log.Debug("engine: wrote chunk file", "path", job.path, "bytes", n)
				sourcesMu.Lock()
				sources = append(sources, merge.Source{Path: job.path, Compressed: compress})
				sourcesMu.Unlock()
			}
			return nil
		})
	}

	// Sort workers: bounded by ParallelDegree via a semaphore, each reads
	// one range, sorts it, and hands it to the write queue.
	sortSem := semaphore.NewWeighted(int64(opts.ParallelDegree))
	sortErrs, sortCtx := errgroup.WithContext(gctx)
	for _, rg := range ranges {
		rg := rg
		sortErrs.Go(func() error {
			if err := sortSem.Acquire(sortCtx, 1); err != nil {
				return sorterr.New(sorterr.Cancelled, "acquire chunk sort slot", err)
			}
			defer sortSem.Release(1)

			if err := sortCtx.Err(); err != nil {
				return sorterr.New(sorterr.Cancelled, "chunk read", err)
			}

			buf := pool.Get(int(rg.Len()))
			if _, err := in.ReadAt(buf, rg.Start); err != nil {
				pool.Put(buf)
				return sorterr.New(sorterr.InputUnavailable, "read chunk range", err)
			}

			res := chunksort.SortChunk(buf)
			if res.Skipped > 0 {
				totalSkipped.Add(int64(res.Skipped))
				log.Debug("engine: dropped malformed records in chunk", "count", res.Skipped)
			}

			progressMu.Lock()
			processed := bytesProcessed.Add(rg.Len())
			opts.Progress(Progress{Phase: PhaseChunking, Current: processed, Total: totalBytes})
			progressMu.Unlock()

			select {
			case queue <- writeJob{lines: res.Lines, path: reg.ChunkPath(), buf: buf}:
				return nil
			case <-sortCtx.Done():
				pool.Put(buf)
				return sorterr.New(sorterr.Cancelled, "enqueue chunk write", sortCtx.Err())
			}
		})
	}

	go func() {
		_ = sortErrs.Wait()
		close(queue)
	}()

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if err := sortErrs.Wait(); err != nil {
		return nil, 0, err
	}

	log.Info("engine: chunking phase complete", "chunks", len(sources), "skipped", totalSkipped.Load())
	return sources, int(totalSkipped.Load()), nil
}

func writeChunkFile(path string, lines []record.Line, compress bool) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, sorterr.New(sorterr.OutputUnavailable, "create chunk file", err)
	}
	defer f.Close()

	if !compress {
		n, err := chunksort.WriteChunk(f, lines)
		if err != nil {
			return 0, sorterr.New(sorterr.OutputUnavailable, "write chunk", err)
		}
		return n, nil
	}

	enc := codec.NewWriter(f)
	n, err := chunksort.WriteChunk(enc, lines)
	if err != nil {
		return 0, sorterr.New(sorterr.OutputUnavailable, "write compressed chunk", err)
	}
	if err := enc.Close(); err != nil {
		return 0, sorterr.New(sorterr.CodecError, "close chunk compressor", err)
	}
	return n, nil
}
