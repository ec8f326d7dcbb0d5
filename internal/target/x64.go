package target

import (
	"sync"

	"github.com/standardbeagle/cuikgo/internal/preprocessor"
	"github.com/standardbeagle/cuikgo/internal/srcloc"
)

// genericDefines are the architecture-independent predefines every target
// injects before its own (the shared set the per-arch set_defines calls
// into first).
var genericDefines = []struct{ key, value string }{
	{"__STDC__", "1"},
	{"__STDC_VERSION__", "201112L"},
	{"__STDC_HOSTED__", "1"},
	{"__CUIK__", "1"},
	{"__LITTLE_ENDIAN__", "1"},
}

// genericBuiltins is the builtin set shared by every target; the per-arch
// table extends it.
var genericBuiltins = []string{
	"__builtin_expect",
	"__builtin_trap",
	"__builtin_unreachable",
	"__builtin_mul_overflow",
	"__va_start",
}

func x64SetDefines(cpp *preprocessor.CppState, sys System) {
	for _, d := range genericDefines {
		cpp.Define(d.key, d.value)
	}

	switch sys {
	case SystemWindows:
		cpp.Define("_WIN32", "1")
		cpp.Define("_WIN64", "1")
		cpp.Define("_M_X64", "100")
		cpp.Define("_AMD64_", "100")
		cpp.Define("_M_AMD64", "100")
	case SystemLinux:
		cpp.Define("__linux__", "1")
		cpp.Define("__LP64__", "1")
		cpp.Define("__x86_64__", "1")
		cpp.Define("__amd64", "1")
		cpp.Define("__amd64__", "1")
	}
}

// x64TypeCheckBuiltin enforces the x64-specific builtins' arities and
// result types: _mm_setcsr(unsigned int) -> void, _mm_getcsr() ->
// unsigned int. Anything else in the builtin table but not handled here
// is an unimplemented builtin.
func x64TypeCheckBuiltin(cc *CheckContext, callLoc srcloc.LocIndex, name string, args []Arg) Type {
	switch name {
	case "_mm_setcsr":
		if len(args) != 1 {
			cc.errorf(callLoc, "%s requires 1 arguments", name)
			return TypeVoid
		}
		if args[0].Type != TypeUInt && args[0].Type != TypeInt {
			cc.errorf(args[0].Loc, "Could not implicitly convert type %s into %s.", args[0].Type, TypeUInt)
			return TypeVoid
		}
		return TypeVoid

	case "_mm_getcsr":
		if len(args) != 0 {
			cc.errorf(callLoc, "%s requires 0 arguments", name)
		}
		return TypeUInt

	default:
		cc.errorf(callLoc, "unimplemented builtin '%s'", name)
		return TypeVoid
	}
}

var (
	x64Once sync.Once
	x64     *Desc
)

// X64Desc returns the x86-64 target descriptor, a static singleton
// initialized on first use.
func X64Desc() *Desc {
	x64Once.Do(func() {
		x64 = &Desc{
			Arch:             ArchX86_64,
			SetDefines:       x64SetDefines,
			TypeCheckBuiltin: x64TypeCheckBuiltin,
			Hooks:            win64Hooks(),
		}
		x64.AddBuiltins(genericBuiltins...)
		x64.AddBuiltins("_mm_getcsr", "_mm_setcsr")
	})
	return x64
}
