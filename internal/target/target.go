// Package target implements the pluggable target descriptor registry:
// each descriptor bundles a platform's predefined macros,
// builtin-function table, builtin type checking, and — when a backend
// module is attached — its ABI policy hooks. Descriptors are fixed
// records of capabilities, not an interface hierarchy; the set of hooks
// is closed.
package target

import (
	"sort"
	"sync"

	"github.com/standardbeagle/cuikgo/internal/diag"
	"github.com/standardbeagle/cuikgo/internal/intern"
	"github.com/standardbeagle/cuikgo/internal/preprocessor"
	"github.com/standardbeagle/cuikgo/internal/srcloc"
)

// Arch identifies a target architecture.
type Arch uint8

const (
	ArchX86_64 Arch = iota
)

func (a Arch) String() string {
	switch a {
	case ArchX86_64:
		return "x86_64"
	default:
		return "unknown"
	}
}

// System identifies the OS family a target's conditional predefines key on.
type System uint8

const (
	SystemWindows System = iota
	SystemLinux
)

// SystemFromString maps a config/CLI spelling to a System.
func SystemFromString(s string) (System, bool) {
	switch s {
	case "windows":
		return SystemWindows, true
	case "linux":
		return SystemLinux, true
	default:
		return 0, false
	}
}

// Type is the small result-type algebra builtin type checking needs. The
// full C type system lives in the external semantic checker; builtins
// only ever produce these.
type Type uint8

const (
	TypeVoid Type = iota
	TypeInt
	TypeUInt
	TypePtr
)

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeInt:
		return "int"
	case TypeUInt:
		return "unsigned int"
	case TypePtr:
		return "void*"
	default:
		return "unknown"
	}
}

// Arg is one argument at a builtin call site, as the external checker
// hands it to TypeCheckBuiltin: its already-resolved type plus the
// location to report against.
type Arg struct {
	Loc  srcloc.LocIndex
	Type Type
}

// CheckContext carries the diagnostic plumbing a builtin type check
// reports through.
type CheckContext struct {
	Diags    *diag.Engine
	Status   *diag.Status
	Store    *srcloc.Store
	Interner *intern.Interner
}

func (cc *CheckContext) errorf(loc srcloc.LocIndex, format string, args ...any) {
	if loc == 0 {
		cc.Diags.Header(diag.LevelError, format, args...)
		return
	}
	cc.Diags.Report(diag.LevelError, cc.Status, cc.Store, cc.Interner, loc, format, args...)
}

// Desc is a target descriptor: a static singleton per platform,
// initialized on first lookup.
type Desc struct {
	Arch Arch

	// SetDefines injects the platform's predefined macros plus the
	// OS-conditional set for sys into cpp.
	SetDefines func(cpp *preprocessor.CppState, sys System)

	// TypeCheckBuiltin resolves a recognized builtin call's result type,
	// enforcing arity. On error it reports through cc and returns
	// TypeVoid.
	TypeCheckBuiltin func(cc *CheckContext, callLoc srcloc.LocIndex, name string, args []Arg) Type

	// Hooks are the backend ABI hooks, nil when no backend module is
	// attached.
	Hooks *BackendHooks

	builtins map[string]struct{}
}

// HasBuiltin reports whether name is in the descriptor's builtin table.
func (d *Desc) HasBuiltin(name string) bool {
	_, ok := d.builtins[name]
	return ok
}

// AddBuiltins extends the descriptor's builtin table (used by the JSON
// override loader).
func (d *Desc) AddBuiltins(names ...string) {
	if d.builtins == nil {
		d.builtins = make(map[string]struct{}, len(names))
	}
	for _, n := range names {
		d.builtins[n] = struct{}{}
	}
}

// BuiltinSet interns every builtin name through in and returns the
// handle-keyed set, for hot-path membership tests against identifier
// handles.
func (d *Desc) BuiltinSet(in *intern.Interner) map[intern.Handle]struct{} {
	out := make(map[intern.Handle]struct{}, len(d.builtins))
	for n := range d.builtins {
		out[in.Intern(n)] = struct{}{}
	}
	return out
}

// BuiltinNames returns the builtin table's names in sorted order.
func (d *Desc) BuiltinNames() []string {
	out := make([]string, 0, len(d.builtins))
	for n := range d.builtins {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

var (
	regMu        sync.RWMutex
	registry     = make(map[string]*Desc)
	registerOnce sync.Once
)

func registerBuiltins() {
	registerOnce.Do(func() {
		Register("x86_64", X64Desc())
	})
}

// Register adds a descriptor under name, replacing any previous entry.
func Register(name string, d *Desc) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = d
}

// Lookup returns the descriptor registered under name. Built-in targets
// are registered on first lookup.
func Lookup(name string) (*Desc, bool) {
	registerBuiltins()
	regMu.RLock()
	defer regMu.RUnlock()
	d, ok := registry[name]
	return d, ok
}

// Names returns every registered target name in sorted order.
func Names() []string {
	registerBuiltins()
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
