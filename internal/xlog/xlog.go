// Package xlog is a small structured, leveled logger in the style of
// erigon-lib's log/v3 (itself descended from go-ethereum's log15): a Logger
// interface taking a message plus alternating key/value context, a terminal
// handler that color-codes by level using go-colorable/go-isatty, and
// package-level New/Discard constructors so components can be handed a
// Logger instead of reaching for a global.
package xlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Lvl is a log level, ordered from most to least severe.
type Lvl int

const (
	LvlError Lvl = iota
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "?"
	}
}

var levelColor = map[Lvl]string{
	LvlError: "\x1b[31m",
	LvlWarn:  "\x1b[33m",
	LvlInfo:  "\x1b[32m",
	LvlDebug: "\x1b[36m",
	LvlTrace: "\x1b[90m",
}

const colorReset = "\x1b[0m"

// Logger writes leveled, structured messages with a fixed context prefix.
type Logger interface {
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	// New returns a child logger with additional fixed context appended.
	New(ctx ...any) Logger
}

type logger struct {
	out    io.Writer
	color  bool
	mu     *sync.Mutex
	level  Lvl
	prefix []any
}

// New creates a root logger writing to stderr at LvlInfo, color-coding
// output when stderr is a terminal (matching erigon-lib's own console
// handler).
func New(ctx ...any) Logger {
	out := colorable.NewColorableStderr()
	return &logger{
		out:    out,
		color:  isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		mu:     &sync.Mutex{},
		level:  LvlInfo,
		prefix: append([]any(nil), ctx...),
	}
}

// Discard returns a Logger that drops everything; used in tests.
func Discard() Logger {
	return &logger{out: io.Discard, mu: &sync.Mutex{}, level: LvlError - 1}
}

// WithLevel returns a copy of l writing only messages at or above lvl.
func WithLevel(l Logger, lvl Lvl) Logger {
	base, ok := l.(*logger)
	if !ok {
		return l
	}
	cp := *base
	cp.level = lvl
	return &cp
}

func (l *logger) New(ctx ...any) Logger {
	return &logger{
		out:    l.out,
		color:  l.color,
		mu:     l.mu,
		level:  l.level,
		prefix: append(append([]any(nil), l.prefix...), ctx...),
	}
}

func (l *logger) Trace(msg string, ctx ...any) { l.write(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...any) { l.write(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...any)  { l.write(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...any)  { l.write(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...any) { l.write(LvlError, msg, ctx) }

func (l *logger) write(lvl Lvl, msg string, ctx []any) {
	if lvl > l.level {
		return
	}
	var b strings.Builder
	ts := time.Now().Format("15:04:05.000")
	if l.color {
		fmt.Fprintf(&b, "%s%-5s%s[%s] %s", levelColor[lvl], lvl, colorReset, ts, msg)
	} else {
		fmt.Fprintf(&b, "%-5s[%s] %s", lvl, ts, msg)
	}
	all := append(append([]any(nil), l.prefix...), ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}
