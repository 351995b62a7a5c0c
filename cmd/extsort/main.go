package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/c2h5oh/datasize"

	"github.com/lineforge/extsort/engine"
	"github.com/lineforge/extsort/internal/xlog"
	"github.com/lineforge/extsort/sorterr"
)

type sortCmd struct {
	Input  string `arg:"" name:"input" help:"path to the input file" type:"existingfile"`
	Output string `arg:"" name:"output" help:"path to write the sorted output to"`

	ChunkSize             datasize.ByteSize `help:"target size of one in-memory chunk; 0 picks a size from available memory" default:"0"`
	Parallel              int               `help:"chunking/merge worker count; 0 picks runtime.NumCPU()" default:"0"`
	MergeWidth            int               `help:"k-way merge fan-in; 0 derives it from --parallel" default:"0"`
	TempDir               string            `help:"working directory for intermediate files; empty uses a generated subdirectory of the OS temp dir"`
	CompressIntermediates *bool             `help:"force phase-1 chunk compression on/off; unset lets the engine decide from chunk count"`
	Verbose               bool              `help:"enable debug-level logging" short:"v"`
}

func (c *sortCmd) Run(ctx *Context) error {
	log := xlog.New("cmd", "extsort")
	if c.Verbose {
		log = xlog.WithLevel(log, xlog.LvlDebug)
	} else {
		log = xlog.WithLevel(log, xlog.LvlInfo)
	}

	opts := engine.Options{
		ChunkSize:      int64(c.ChunkSize.Bytes()),
		ParallelDegree: c.Parallel,
		MergeWidth:     c.MergeWidth,
		TempDirectory:  c.TempDir,
		CompressChunks: c.CompressIntermediates,
		Logger:         log,
		Progress: func(p engine.Progress) {
			log.Debug("progress", "phase", p.Phase, "current", p.Current, "total", p.Total)
		},
	}

	res, err := engine.Sort(ctx.Context, c.Input, c.Output, opts)
	if err != nil {
		var serr *sorterr.SortError
		if errors.As(err, &serr) {
			log.Error("sort failed", "kind", serr.Kind, "op", serr.Op, "err", serr.Err)
		} else {
			log.Error("sort failed", "err", err)
		}
		return err
	}

	log.Info("sort complete",
		"lines", res.LinesWritten,
		"bytes", res.BytesWritten,
		"chunks", res.Chunks,
		"mergePasses", res.MergePasses,
		"skipped", res.RecordsSkipped,
	)
	return nil
}

// Context threads a cancellable context through to every command's Run.
type Context struct {
	context.Context
}

var CLI struct {
	Sort sortCmd `cmd:"" default:"1" help:"sort a large line-oriented file by number-prefixed string"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	kctx := kong.Parse(&CLI,
		kong.Name("extsort"),
		kong.Description("External merge sort for line-oriented `<Number>. <String>` records."),
	)
	err := kctx.Run(&Context{Context: ctx})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var serr *sorterr.SortError
	if !errors.As(err, &serr) {
		return 1
	}
	switch serr.Kind {
	case sorterr.Cancelled:
		return 130 // conventional 128+SIGINT
	case sorterr.InputUnavailable:
		return 2
	case sorterr.OutputUnavailable, sorterr.TempUnavailable:
		return 3
	case sorterr.ResourceExhausted:
		return 4
	case sorterr.CodecError:
		return 5
	default:
		return 1
	}
}
