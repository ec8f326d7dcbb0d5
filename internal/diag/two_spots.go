package diag

import (
	"bytes"
	"fmt"

	"github.com/fatih/color"

	"github.com/standardbeagle/cuikgo/internal/intern"
	"github.com/standardbeagle/cuikgo/internal/srcloc"
)

func caretLine(start, length int) string {
	var b bytes.Buffer
	for i := 0; i < start; i++ {
		b.WriteByte(' ')
	}
	b.WriteByte('^')
	for i := 1; i < length; i++ {
		b.WriteByte('~')
	}
	return b.String()
}

// ReportTwoSpots prints a one-line layout when loc1 and loc2 share a line,
// or two previews joined by an optional interjection phrase otherwise.
func (e *Engine) ReportTwoSpots(level Level, status *Status, store *srcloc.Store, in *intern.Interner, loc1, loc2 srcloc.LocIndex, msg, label1, label2, interjection string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l1 := store.GetLoc(loc1)
	l2 := store.GetLoc(loc2)
	line1 := store.GetLine(l1.Line)
	line2 := store.GetLine(l2.Line)
	green := color.New(color.FgGreen)

	if interjection == "" && line1.Line == line2.Line {
		e.displayLine(store, in, level, loc1)
		fmt.Fprintln(e.out, msg)

		if !e.thinErrors {
			dist := e.drawLine(store, loc1)
			e.pad()

			firstStart := 0
			if l1.Column > dist {
				firstStart = l1.Column - dist
			}
			firstEnd := firstStart + l1.Length

			secondStart := 0
			if l2.Column > dist {
				secondStart = l2.Column - dist
			}
			secondEnd := secondStart + l2.Length

			var b bytes.Buffer
			for i := 0; i < firstStart; i++ {
				b.WriteByte(' ')
			}
			b.WriteByte('^')
			for i := firstStart + 1; i < firstEnd; i++ {
				b.WriteByte('~')
			}
			for i := firstEnd; i < secondStart; i++ {
				b.WriteByte(' ')
			}
			b.WriteByte('^')
			for i := secondStart + 1; i < secondEnd; i++ {
				b.WriteByte('~')
			}
			green.Fprintln(e.out, b.String())

			e.pad()
			for i := 0; i < firstStart; i++ {
				fmt.Fprint(e.out, " ")
			}
			fmt.Fprint(e.out, label1)
			for i := firstStart + len(label1); i < secondStart; i++ {
				fmt.Fprint(e.out, " ")
			}
			fmt.Fprintln(e.out, label2)
		}
	} else {
		e.displayLine(store, in, level, loc1)
		fmt.Fprintln(e.out, msg)

		if !e.thinErrors {
			dist := e.drawLine(store, loc1)
			e.pad()
			start := 0
			if l1.Column > dist {
				start = l1.Column - dist
			}
			green.Fprintln(e.out, caretLine(start, l1.Length))

			if label1 != "" {
				e.pad()
				fmt.Fprintln(e.out, label1)
			}

			if line1.Filepath != line2.Filepath {
				path2, _ := in.Lookup(line2.Filepath)
				fmt.Fprintf(e.out, "  meanwhile in... %s\n", path2)
				e.pad()
				fmt.Fprintln(e.out)
			}

			if interjection != "" {
				fmt.Fprintf(e.out, "  %s\n", interjection)
				e.pad()
				fmt.Fprintln(e.out)
			} else {
				e.pad()
				fmt.Fprintln(e.out)
			}

			dist2 := e.drawLine(store, loc2)
			e.pad()
			start2 := 0
			if l2.Column > dist2 {
				start2 = l2.Column - dist2
			}
			green.Fprintln(e.out, caretLine(start2, l2.Length))

			if label2 != "" {
				e.pad()
				fmt.Fprintln(e.out, label2)
			}
		}
	}

	fmt.Fprintln(e.out)
	fmt.Fprintln(e.out)
	e.tally(level, status)
}
