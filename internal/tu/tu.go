// Package tu implements the translation unit: the owner of a finalized
// token stream's parsed declarations, the main-file predicate, and
// top-level visitation. Parse calls internal/cparse directly and wraps the
// result; there is no hook for substituting another parser.
package tu

import (
	"fmt"

	"github.com/standardbeagle/cuikgo/internal/cerr"
	"github.com/standardbeagle/cuikgo/internal/cparse"
	"github.com/standardbeagle/cuikgo/internal/intern"
	"github.com/standardbeagle/cuikgo/internal/preprocessor"
	"github.com/standardbeagle/cuikgo/internal/srcloc"
)

// TranslationUnit owns a finalized token stream's declarations plus
// enough of the store/interner pair to answer main-file queries: one
// struct per analyzed file, queried through accessor methods rather than
// exposing its internals.
type TranslationUnit struct {
	store    *srcloc.Store
	intern   *intern.Interner
	mainFile intern.Handle
	decls    []cparse.Decl

	backend any // opaque backend-module handle

	// next links sibling TUs inside a CompilationUnit's list. Owned by
	// package cu; tu only exposes it so cu can link/walk without a
	// dependency cycle.
	next *TranslationUnit
	// parent is the owning *cu.CompilationUnit, typed as any because cu
	// already imports tu. Set exactly once, when attached.
	parent any
	// attached marks whether this TU has ever been linked into a
	// CompilationUnit; a second attach is rejected.
	attached bool

	destroyed bool
}

// Parse consumes ts's tokens via internal/cparse and returns a
// TranslationUnit over the result, optionally carrying an opaque backend
// handle. backend may be nil.
func Parse(ts *preprocessor.TokenStream, in *intern.Interner, backend any) (*TranslationUnit, error) {
	decls, err := cparse.Parse(ts)
	if err != nil {
		return nil, cerr.New(cerr.KindSyntax, "tu.Parse", err)
	}
	return &TranslationUnit{
		store:    ts.Store,
		intern:   in,
		mainFile: in.Intern(ts.MainFile),
		decls:    decls,
		backend:  backend,
	}, nil
}

// IsInMainFile reports whether loc's topmost non-synthetic ancestor is
// this translation unit's root file.
func (tu *TranslationUnit) IsInMainFile(loc srcloc.LocIndex) bool {
	return tu.store.TopmostFile(tu.intern, loc) == tu.mainFile
}

// VisitTopLevel iterates each top-level declaration exactly once, in
// source order, calling visitor(userData, decl) for each.
func (tu *TranslationUnit) VisitTopLevel(userData any, visitor func(userData any, d cparse.Decl)) {
	for _, d := range tu.decls {
		visitor(userData, d)
	}
}

// Decls returns the translation unit's top-level declarations directly,
// for callers (e.g. package cu's export filter) that need to scan them
// without the visitor indirection.
func (tu *TranslationUnit) Decls() []cparse.Decl {
	return tu.decls
}

// Backend returns the opaque backend-module handle this TU was parsed
// with, or nil.
func (tu *TranslationUnit) Backend() any {
	return tu.backend
}

// Next returns the next sibling TU in a CompilationUnit's list, or nil.
// Exported for package cu; not meant for general callers.
func (tu *TranslationUnit) Next() *TranslationUnit { return tu.next }

// SetNext links tu to the next sibling in a CompilationUnit's list.
// Exported for package cu; not meant for general callers.
func (tu *TranslationUnit) SetNext(next *TranslationUnit) { tu.next = next }

// MarkAttached records that tu has been linked into the given
// CompilationUnit, returning an error if it was already attached
// elsewhere. A translation unit belongs to at most one compilation unit.
func (tu *TranslationUnit) MarkAttached(parent any) error {
	if tu.attached {
		return cerr.New(cerr.KindInternal, "tu.MarkAttached",
			fmt.Errorf("translation unit already attached to a compilation unit"))
	}
	tu.attached = true
	tu.parent = parent
	return nil
}

// Parent returns the compilation unit this TU is attached to (as an
// untyped handle that callers assert back to *cu.CompilationUnit), or nil.
func (tu *TranslationUnit) Parent() any { return tu.parent }

// Destroy releases the translation unit's references. Idempotent: a
// second call is a no-op rather than a panic, so teardown lists can run
// it unconditionally.
func (tu *TranslationUnit) Destroy() {
	if tu.destroyed {
		return
	}
	tu.decls = nil
	tu.backend = nil
	tu.store = nil
	tu.intern = nil
	tu.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (tu *TranslationUnit) Destroyed() bool { return tu.destroyed }
