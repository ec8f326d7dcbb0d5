// Package cu implements the compilation unit: a thread-safe aggregator of
// translation units that owns the global export table used by cross-unit
// linking. One mutex-guarded struct owns both the membership list and the
// cross-file map, with lock-free reads once aggregation is done.
package cu

import (
	"fmt"
	"sync"

	"github.com/standardbeagle/cuikgo/internal/cerr"
	"github.com/standardbeagle/cuikgo/internal/cparse"
	"github.com/standardbeagle/cuikgo/internal/intern"
	"github.com/standardbeagle/cuikgo/internal/tu"
)

// CompilationUnit aggregates translation units compiled together. Add may
// be called concurrently; InternalLink assumes parsing has finished and
// runs single-threaded, after which the export table is read-only.
type CompilationUnit struct {
	mu    sync.Mutex
	head  *tu.TranslationUnit
	tail  *tu.TranslationUnit
	count int

	interner *intern.Interner
	exports  map[intern.Handle]*cparse.Decl

	destroyed bool
}

// Create initializes an empty compilation unit. Export-table keys are
// interned through in so lookups can compare handles.
func Create(in *intern.Interner) *CompilationUnit {
	return &CompilationUnit{
		interner: in,
		exports:  make(map[intern.Handle]*cparse.Decl),
	}
}

// Lock takes the compilation unit's mutex directly, for callers batching
// multiple mutations atomically (e.g. parallel parsing updating a shared
// table). Pair with Unlock.
func (cu *CompilationUnit) Lock() { cu.mu.Lock() }

// Unlock releases the mutex taken by Lock.
func (cu *CompilationUnit) Unlock() { cu.mu.Unlock() }

// Add links t at the tail of the unit's list, sets its parent, and bumps
// the count. Precondition: t is not yet attached anywhere (t.Next() ==
// nil); violating it returns an error and leaves the unit unchanged.
func (cu *CompilationUnit) Add(t *tu.TranslationUnit) error {
	cu.mu.Lock()
	defer cu.mu.Unlock()

	if cu.destroyed {
		return cerr.New(cerr.KindInternal, "cu.Add",
			fmt.Errorf("compilation unit already destroyed"))
	}
	if t.Next() != nil {
		return cerr.New(cerr.KindInternal, "cu.Add",
			fmt.Errorf("translation unit is already linked into a list"))
	}
	if err := t.MarkAttached(cu); err != nil {
		return err
	}

	if cu.tail == nil {
		cu.head = t
	} else {
		cu.tail.SetNext(t)
	}
	cu.tail = t
	cu.count++
	return nil
}

// Count returns the number of attached translation units.
func (cu *CompilationUnit) Count() int {
	cu.mu.Lock()
	defer cu.mu.Unlock()
	return cu.count
}

// Head returns the first attached translation unit, or nil. Iteration
// order matches attachment order.
func (cu *CompilationUnit) Head() *tu.TranslationUnit {
	cu.mu.Lock()
	defer cu.mu.Unlock()
	return cu.head
}

// exported reports whether d satisfies the export predicate: a FUNC_DECL
// that is neither static nor inline, or a GLOBAL_DECL/DECL that is not
// static, extern, typedef or inline, is not of function kind, and has a
// non-empty name.
func exported(d *cparse.Decl) bool {
	switch d.Op {
	case cparse.OpFuncDecl:
		return !d.Attrs.Has(cparse.AttrStatic) && !d.Attrs.Has(cparse.AttrInline)
	case cparse.OpGlobalDecl, cparse.OpDecl:
		return !d.Attrs.Has(cparse.AttrStatic) &&
			!d.Attrs.Has(cparse.AttrExtern) &&
			!d.Attrs.Has(cparse.AttrTypedef) &&
			!d.Attrs.Has(cparse.AttrInline) &&
			!d.IsFunctionKind() &&
			d.Name != ""
	default:
		return false
	}
}

// InternalLink computes the export table from every attached translation
// unit's top-level declarations. Collisions keep the later contribution;
// resolving them is a later link-checking pass's job, not this one's.
// Idempotent: the table is rebuilt from scratch each call.
func (cu *CompilationUnit) InternalLink() {
	cu.mu.Lock()
	defer cu.mu.Unlock()

	exports := make(map[intern.Handle]*cparse.Decl)
	for t := cu.head; t != nil; t = t.Next() {
		decls := t.Decls()
		for i := range decls {
			d := &decls[i]
			if exported(d) {
				exports[cu.interner.Intern(d.Name)] = d
			}
		}
	}
	cu.exports = exports
}

// Export looks a name up in the export table. Safe without the lock once
// InternalLink has run; the table is read-only from then on.
func (cu *CompilationUnit) Export(name string) (*cparse.Decl, bool) {
	d, ok := cu.exports[cu.interner.Intern(name)]
	return d, ok
}

// ExportCount returns the number of exported declarations.
func (cu *CompilationUnit) ExportCount() int {
	return len(cu.exports)
}

// ExportNames returns every exported name, in no particular order.
func (cu *CompilationUnit) ExportNames() []string {
	out := make([]string, 0, len(cu.exports))
	for h := range cu.exports {
		out = append(out, cu.interner.MustLookup(h))
	}
	return out
}

// Destroy walks the list destroying every translation unit, then clears
// the compilation unit. A second Destroy is a detectable error.
func (cu *CompilationUnit) Destroy() error {
	cu.mu.Lock()
	defer cu.mu.Unlock()

	if cu.destroyed {
		return cerr.New(cerr.KindInternal, "cu.Destroy",
			fmt.Errorf("compilation unit already destroyed"))
	}

	for t := cu.head; t != nil; {
		next := t.Next()
		t.Destroy()
		t = next
	}
	cu.head = nil
	cu.tail = nil
	cu.count = 0
	cu.exports = nil
	cu.destroyed = true
	return nil
}
