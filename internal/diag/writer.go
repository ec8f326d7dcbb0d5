package diag

import (
	"fmt"

	"github.com/standardbeagle/cuikgo/internal/intern"
	"github.com/standardbeagle/cuikgo/internal/srcloc"
)

// noBase marks a DiagWriter that hasn't recorded its first highlight yet.
const noBase = ^uint32(0)

// DiagWriter accumulates highlights on a single source line, filling caret
// ranges left-to-right. It is not safe for concurrent use by
// itself — callers needing concurrency must synchronize externally.
type DiagWriter struct {
	store  *srcloc.Store
	in     *intern.Interner
	base   uint32 // noBase until the first Highlight call
	line   []byte
	start  int // byte offset of first non-whitespace char
	end    int // byte offset of line end (exclusive of newline)
	cursor int
	out    *Engine
}

// Begin starts a new DiagWriter bound to store, printing through e. The
// interner resolves filepaths for the "file:line" header the first
// highlight prints.
func (e *Engine) Begin(store *srcloc.Store, in *intern.Interner) *DiagWriter {
	return &DiagWriter{store: store, in: in, base: noBase, out: e}
}

// IsCompatible reports whether loc lies on the same source line as the
// writer's first highlight (or true if no highlight has been added yet).
func (w *DiagWriter) IsCompatible(loc srcloc.LocIndex) bool {
	if w.base == noBase {
		return true
	}
	base := w.store.GetLoc(srcloc.LocIndex(w.base))
	cur := w.store.GetLoc(loc)
	return base.Line == cur.Line
}

func (w *DiagWriter) writeUpTo(pos int) {
	if w.cursor < pos {
		for i := w.cursor; i < pos; i++ {
			fmt.Fprint(w.out.out, " ")
		}
		w.cursor = pos
	}
}

// Highlight adds one highlight. Callers must check IsCompatible first;
// Highlight does not itself validate compatibility.
func (w *DiagWriter) Highlight(loc srcloc.LocIndex) {
	l := w.store.GetLoc(loc)
	if w.base == noBase {
		line := w.store.GetLine(l.Line)
		start, end := lineStartAndEnd(line.Text)
		w.base = uint32(loc)
		w.line = line.Text
		w.start = start
		w.end = end

		path, _ := w.in.Lookup(line.Filepath)
		fmt.Fprintf(w.out.out, "%s:%d\n", path, line.Line)
		w.out.pad()
		fmt.Fprintf(w.out.out, "%s\n", string(line.Text[start:end]))
		w.out.pad()
	}

	startPos := 0
	if l.Column > w.start {
		startPos = l.Column - w.start
	}
	w.writeUpTo(startPos)
	fmt.Fprint(w.out.out, caretLine(0, l.Length))
	w.cursor = startPos + l.Length
}

// Done finishes the writer, padding out to the end of the line.
func (w *DiagWriter) Done() {
	if w.base != noBase {
		w.writeUpTo(w.end - w.start)
		fmt.Fprintln(w.out.out)
	}
}
