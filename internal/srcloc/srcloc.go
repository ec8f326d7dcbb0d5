// Package srcloc implements the source-location store: an append-only
// table mapping a compact index to a SourceLoc, each of which refers to a
// shared SourceLine. Indices are stable for the lifetime of their owning
// TokenStream; the parent-line chain forms a forest, never a cycle.
package srcloc

import "github.com/standardbeagle/cuikgo/internal/intern"

// LineIndex identifies a SourceLine within a Store. The zero value means
// "no line" and is never issued by InternLine.
type LineIndex uint32

// LocIndex identifies a SourceLoc within a Store. The zero value means
// "no location" and is never issued by MakeLoc.
type LocIndex uint32

// Kind classifies where a SourceLoc's text ultimately came from.
type Kind uint8

const (
	// KindFile marks a location that appears verbatim in a physical file.
	KindFile Kind = iota
	// KindMacro marks a location produced by macro expansion.
	KindMacro
)

// SourceLine is a physical line in a file, or a synthetic line describing
// one macro-expansion step. Once created it is never mutated.
type SourceLine struct {
	Filepath intern.Handle
	Line     int    // 1-based
	Text     []byte // pointer-into-buffer slice of the line's raw text
	Parent   LocIndex
}

// SourceLoc is a span inside a SourceLine.
type SourceLoc struct {
	Line      LineIndex
	Column    int // byte offset within the line
	Length    int
	Kind      Kind
	Expansion LocIndex // location of the macro name, when Kind == KindMacro
}

// Store owns the append-only SourceLine and SourceLoc tables shared by a
// TokenStream and everything derived from it.
type Store struct {
	lines []SourceLine // LineIndex i -> lines[i-1]
	locs  []SourceLoc  // LocIndex i -> locs[i-1]
}

// NewStore returns an empty Store.
func NewStore() *Store {
	// Reserve index 0 in both tables so the zero value of LineIndex/LocIndex
	// unambiguously means "none".
	return &Store{
		lines: make([]SourceLine, 1),
		locs:  make([]SourceLoc, 1),
	}
}

// InternLine appends a new SourceLine and returns its index. Equal lines
// from two different #includes are intentionally distinct entries; no
// deduplication is performed.
func (s *Store) InternLine(filepath intern.Handle, lineNumber int, text []byte, parent LocIndex) LineIndex {
	s.lines = append(s.lines, SourceLine{
		Filepath: filepath,
		Line:     lineNumber,
		Text:     text,
		Parent:   parent,
	})
	return LineIndex(len(s.lines) - 1)
}

// GetLine returns the SourceLine for idx.
func (s *Store) GetLine(idx LineIndex) SourceLine {
	return s.lines[idx]
}

// MakeLoc appends a new SourceLoc and returns its index.
func (s *Store) MakeLoc(line LineIndex, column, length int, kind Kind, expansion LocIndex) LocIndex {
	s.locs = append(s.locs, SourceLoc{
		Line:      line,
		Column:    column,
		Length:    length,
		Kind:      kind,
		Expansion: expansion,
	})
	return LocIndex(len(s.locs) - 1)
}

// GetLoc returns the SourceLoc for idx.
func (s *Store) GetLoc(idx LocIndex) SourceLoc {
	return s.locs[idx]
}

// Len reports how many locations have been recorded, including the
// reserved zero entry.
func (s *Store) Len() int { return len(s.locs) }

// Walk follows loc's line's Parent chain, stopping as soon as it reaches a
// line whose Filepath is not synthetic (does not begin with '<'), or a line
// with no parent. It returns the index of the SourceLoc at that point. This
// is the "nicer display location" search shared by the diagnostic
// engine's headers and by TranslationUnit.IsInMainFile.
func (s *Store) Walk(in *intern.Interner, idx LocIndex) LocIndex {
	for {
		loc := s.GetLoc(idx)
		line := s.GetLine(loc.Line)
		if !in.IsSynthetic(line.Filepath) || line.Parent == 0 {
			return idx
		}
		idx = line.Parent
	}
}

// TopmostFile returns the Filepath handle of the outermost non-synthetic
// ancestor of idx, per Walk.
func (s *Store) TopmostFile(in *intern.Interner, idx LocIndex) intern.Handle {
	top := s.Walk(in, idx)
	return s.GetLine(s.GetLoc(top).Line).Filepath
}

// VerifyForest reports whether following every line's Parent chain
// terminates without revisiting a line. It is a test/debug helper,
// not used on the hot path, since the Store's append-only construction
// (a line's Parent always references an already-created line) makes cycles
// impossible by construction.
func (s *Store) VerifyForest() bool {
	for i := 1; i < len(s.lines); i++ {
		seen := make(map[LineIndex]bool)
		line := s.lines[i]
		steps := 0
		for line.Parent != 0 {
			parentLine := s.GetLoc(line.Parent).Line
			if seen[parentLine] {
				return false
			}
			seen[parentLine] = true
			line = s.GetLine(parentLine)
			steps++
			if steps > len(s.lines)+1 {
				return false
			}
		}
	}
	return true
}
