// Package diag implements the diagnostic engine: formatting and emitting
// human-readable reports with macro backtraces, multi-range highlighting,
// and thread-safe per-severity tallying.
package diag

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"

	"github.com/standardbeagle/cuikgo/internal/intern"
	"github.com/standardbeagle/cuikgo/internal/srcloc"
)

// Level is a diagnostic severity.
type Level int

const (
	LevelVerbose Level = iota
	LevelInfo
	LevelWarning
	LevelError
	levelCount
)

func (l Level) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is a per-job error tally, shareable across goroutines. Counters
// only ever increase.
type Status struct {
	tally [levelCount]atomic.Int64
}

// Tally returns the current count at level.
func (s *Status) Tally(level Level) int64 {
	return s.tally[level].Load()
}

func (s *Status) bump(level Level) {
	s.tally[level].Add(1)
}

// HasReports reports whether any counter at or above minimum is positive.
// A nil Status never has reports.
func HasReports(status *Status, minimum Level) bool {
	if status == nil {
		return false
	}
	for l := minimum; l < levelCount; l++ {
		if status.Tally(l) > 0 {
			return true
		}
	}
	return false
}

// abortFunc is called when a >=LevelError report arrives with a nil Status.
// Overridable in tests so the test binary doesn't exit.
var abortFunc = func() { os.Exit(1) }

// Engine is the process-singleton formatter/sink. ReportFix needs to emit
// a nested report for an expansion site from inside its own critical
// section; rather than a recursive lock, it calls an unexported
// reportLocked that assumes the mutex is already held.
type Engine struct {
	mu          sync.Mutex
	out         io.Writer
	colors      [levelCount]*color.Color
	thinErrors  bool
	initialized bool
}

var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
)

// Default returns the process-wide Engine, creating it on first use.
func Default() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = NewEngine(os.Stdout)
	})
	return defaultEngine
}

// NewEngine creates an Engine writing to out. Most callers should use
// Default(); NewEngine exists for tests and for tools that want an
// isolated engine (e.g. capturing output to a buffer).
func NewEngine(out io.Writer) *Engine {
	return &Engine{
		out: out,
		colors: [levelCount]*color.Color{
			LevelVerbose: color.New(color.Reset),
			LevelInfo:    color.New(color.FgGreen, color.Bold),
			LevelWarning: color.New(color.FgMagenta, color.Bold),
			LevelError:   color.New(color.FgRed, color.Bold),
		},
		initialized: true,
	}
}

// SetThinErrors toggles "thin errors" mode: diagnostics render as a single
// headline with no line preview or caret underline.
func (e *Engine) SetThinErrors(thin bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.thinErrors = thin
}

func (e *Engine) printLevelName(level Level) {
	e.colors[level].Fprintf(e.out, "%s: ", level)
}

// Header prints a standalone headline with the named severity.
func (e *Engine) Header(level Level, format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.printLevelName(level)
	fmt.Fprintf(e.out, format, args...)
	fmt.Fprintln(e.out)
}

// displayLine walks up through synthetic ancestors to find a concrete
// display location and prints "file:line:col: level: " for it.
func (e *Engine) displayLine(store *srcloc.Store, in *intern.Interner, level Level, idx srcloc.LocIndex) srcloc.LocIndex {
	resolved := store.Walk(in, idx)
	loc := store.GetLoc(resolved)
	line := store.GetLine(loc.Line)
	path, _ := in.Lookup(line.Filepath)
	fmt.Fprintf(e.out, "%s:%d:%d: ", path, line.Line, loc.Column)
	e.printLevelName(level)
	return resolved
}

// lineStartAndEnd returns the byte offsets of the first non-whitespace
// character and the end of the (non-newline) line text.
func lineStartAndEnd(text []byte) (start, end int) {
	for start < len(text) && (text[start] == ' ' || text[start] == '\t') {
		start++
	}
	end = len(text)
	for end > 0 && (text[end-1] == '\n' || text[end-1] == '\r') {
		end--
	}
	return start, end
}

// drawLine prints "NNNN| <line text, tabs rendered as spaces>" and returns
// the byte offset of the first non-whitespace character, needed to convert
// column coordinates (which include leading whitespace) to the preview's
// coordinate space.
func (e *Engine) drawLine(store *srcloc.Store, locIdx srcloc.LocIndex) int {
	loc := store.GetLoc(locIdx)
	line := store.GetLine(loc.Line)
	start, end := lineStartAndEnd(line.Text)
	if start >= end {
		return start
	}
	fmt.Fprintf(e.out, "%4d| ", line.Line)
	for _, b := range line.Text[start:end] {
		if b == '\t' {
			b = ' '
		}
		e.out.Write([]byte{b})
	}
	fmt.Fprintln(e.out)
	return start
}

func (e *Engine) pad() {
	fmt.Fprint(e.out, "      ")
}

// previewLine draws the caret underline beneath the already-printed line
// preview. If tip is non-empty it is appended, fixit-style, immediately
// after the token (report_fix's behavior).
func (e *Engine) previewLine(store *srcloc.Store, locIdx srcloc.LocIndex, tip string) {
	if e.thinErrors {
		return
	}
	loc := store.GetLoc(locIdx)
	dist := e.drawLine(store, locIdx)
	e.pad()

	start := 0
	if loc.Column > dist {
		start = loc.Column - dist
	}
	length := loc.Length
	if tip != "" {
		start += loc.Length
		length = len(tip)
	}

	green := color.New(color.FgGreen)
	var b bytes.Buffer
	for i := 0; i < start; i++ {
		b.WriteByte(' ')
	}
	b.WriteByte('^')
	for i := 1; i < length; i++ {
		b.WriteByte('~')
	}
	green.Fprintln(e.out, b.String())

	if tip != "" {
		e.pad()
		for i := 0; i < start; i++ {
			fmt.Fprint(e.out, " ")
		}
		fmt.Fprintln(e.out, tip)
	}
}

// printBacktrace recursively prints "In macro 'X' expanded at file:line:col"
// frames walking up a macro-expansion chain, returning the line-number bias
// used so nested frames report the outermost concrete line number.
// macroSite is true when idx is the parent of a synthetic expansion line,
// i.e. the site where a macro was invoked, even if that site is a plain
// file token.
func (e *Engine) printBacktrace(store *srcloc.Store, in *intern.Interner, idx srcloc.LocIndex, macroSite bool) int {
	loc := store.GetLoc(idx)
	line := store.GetLine(loc.Line)

	bias := 0
	if line.Parent != 0 {
		bias = e.printBacktrace(store, in, line.Parent, in.IsSynthetic(line.Filepath))
	}

	if loc.Kind != srcloc.KindMacro && !macroSite {
		path, _ := in.Lookup(line.Filepath)
		fmt.Fprintf(e.out, "In file %s:%d:\n", path, line.Line)
		return line.Line
	}

	path, _ := in.Lookup(line.Filepath)
	name := macroNameSlice(line, loc)
	if in.IsSynthetic(line.Filepath) {
		fmt.Fprintf(e.out, "In macro '%s' expanded at line %d:\n", name, bias+line.Line)
	} else {
		fmt.Fprintf(e.out, "In macro '%s' expanded at %s:%d:%d:\n", name, path, line.Line, loc.Column)
	}

	if !e.thinErrors {
		e.drawLine(store, idx)
		e.pad()
		green := color.New(color.FgGreen)
		var b bytes.Buffer
		dist, _ := lineStartAndEnd(line.Text)
		start := 0
		if loc.Column > dist {
			start = loc.Column - dist
		}
		for i := 0; i < start; i++ {
			b.WriteByte(' ')
		}
		b.WriteByte('^')
		for i := 1; i < loc.Length; i++ {
			b.WriteByte('~')
		}
		green.Fprintln(e.out, b.String())
	}
	if loc.Kind != srcloc.KindMacro {
		return line.Line
	}
	return bias
}

func macroNameSlice(line srcloc.SourceLine, loc srcloc.SourceLoc) string {
	end := loc.Column + loc.Length
	if loc.Column < 0 || end > len(line.Text) {
		return ""
	}
	return string(line.Text[loc.Column:end])
}

// previewExpansion, after a report's main line has been printed, shows the
// macro's own definition site ("macro 'X' defined at ...") when the
// location's line has a parent whose Expansion points at a #define.
func (e *Engine) previewExpansion(store *srcloc.Store, in *intern.Interner, idx srcloc.LocIndex) {
	loc := store.GetLoc(idx)
	line := store.GetLine(loc.Line)
	if line.Parent == 0 {
		fmt.Fprintln(e.out)
		return
	}
	parent := store.GetLoc(line.Parent)
	if parent.Expansion == 0 {
		fmt.Fprintln(e.out)
		return
	}
	expLoc := store.GetLoc(parent.Expansion)
	expLine := store.GetLine(expLoc.Line)
	name := macroNameSlice(expLine, expLoc)

	e.displayLine(store, in, LevelInfo, parent.Expansion)
	fmt.Fprintf(e.out, "macro '%s' defined at\n", name)
	e.previewLine(store, parent.Expansion, "")
	fmt.Fprintln(e.out)
}

func (e *Engine) tally(level Level, status *Status) {
	if status == nil {
		if level >= LevelError {
			color.New(color.FgRed, color.Bold).Fprintln(e.out, "ABORTING")
			abortFunc()
		}
		return
	}
	status.bump(level)
}

// Report prints "file:line:col: level: message", a line preview with a
// caret underline (unless thin errors are set), then any macro-expansion
// backtrace, and tallies the severity.
func (e *Engine) Report(level Level, status *Status, store *srcloc.Store, in *intern.Interner, idx srcloc.LocIndex, format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reportLocked(level, status, store, in, idx, format, args...)
}

// reportLocked is Report's body, callable while e.mu is already held (used
// by ReportFix to emit a nested "Expanded from" report without recursive
// locking).
func (e *Engine) reportLocked(level Level, status *Status, store *srcloc.Store, in *intern.Interner, idx srcloc.LocIndex, format string, args ...any) {
	loc := store.GetLoc(idx)
	line := store.GetLine(loc.Line)
	if !e.thinErrors && line.Parent != 0 {
		e.printBacktrace(store, in, line.Parent, in.IsSynthetic(line.Filepath))
	}

	e.displayLine(store, in, level, idx)
	fmt.Fprintf(e.out, format, args...)
	fmt.Fprintln(e.out)

	e.previewLine(store, idx, "")
	e.previewExpansion(store, in, idx)

	e.tally(level, status)
}

// mergeLocations merges two locations into a single spanning SourceLoc when
// they lie on the same file and line; otherwise it falls back to start.
func mergeLocations(store *srcloc.Store, start, end srcloc.LocIndex) srcloc.SourceLoc {
	s := store.GetLoc(start)
	en := store.GetLoc(end)
	sLine := store.GetLine(s.Line)
	enLine := store.GetLine(en.Line)

	if sLine.Filepath != enLine.Filepath || sLine.Line != enLine.Line {
		return s
	}

	endCol := en.Column + en.Length
	if s.Column >= endCol {
		return s
	}
	return srcloc.SourceLoc{Line: s.Line, Column: s.Column, Length: endCol - s.Column, Kind: s.Kind}
}

// ReportRanged merges start/end into a range when they share a file+line
// and reports at that merged span.
func (e *Engine) ReportRanged(level Level, status *Status, store *srcloc.Store, in *intern.Interner, start, end srcloc.LocIndex, format string, args ...any) {
	merged := mergeLocations(store, start, end)
	mergedIdx := store.MakeLoc(merged.Line, merged.Column, merged.Length, merged.Kind, merged.Expansion)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.reportLocked(level, status, store, in, mergedIdx, format, args...)
}

// ReportFix is like Report but appends a fix-it tip positioned immediately
// after the offending token, and — when the location's parent carries an
// Expansion reference — follows up with a nested "Expanded from" report at
// that Expansion location (the macro's #define name).
func (e *Engine) ReportFix(level Level, status *Status, store *srcloc.Store, in *intern.Interner, idx srcloc.LocIndex, tip, format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	loc := store.GetLoc(idx)
	line := store.GetLine(loc.Line)
	if !e.thinErrors && line.Parent != 0 {
		e.printBacktrace(store, in, line.Parent, in.IsSynthetic(line.Filepath))
	}

	e.displayLine(store, in, level, idx)
	fmt.Fprintf(e.out, format, args...)
	fmt.Fprintln(e.out)

	e.previewLine(store, idx, tip)
	e.previewExpansion(store, in, idx)

	if line.Parent != 0 {
		parent := store.GetLoc(line.Parent)
		if parent.Expansion != 0 {
			e.reportLocked(level, status, store, in, parent.Expansion, "Expanded from")
		}
	}

	e.tally(level, status)
}
