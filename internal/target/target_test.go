package target

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/cuikgo/internal/diag"
	"github.com/standardbeagle/cuikgo/internal/intern"
	"github.com/standardbeagle/cuikgo/internal/preprocessor"
	"github.com/standardbeagle/cuikgo/internal/srcloc"
)

func newCpp(t *testing.T) *preprocessor.CppState {
	t.Helper()
	return preprocessor.NewCppState(intern.New(), srcloc.NewStore(), diag.NewEngine(io.Discard), &diag.Status{}, nil)
}

func definedMacros(cs *preprocessor.CppState) map[string]string {
	out := make(map[string]string)
	cs.ForDefines(func(d preprocessor.MacroDef) {
		out[d.Key] = d.Value
	})
	return out
}

func TestLookup_KnowsX64(t *testing.T) {
	desc, ok := Lookup("x86_64")
	require.True(t, ok)
	assert.Equal(t, ArchX86_64, desc.Arch)
	assert.Contains(t, Names(), "x86_64")
}

func TestLookup_UnknownTarget(t *testing.T) {
	_, ok := Lookup("sparc")
	assert.False(t, ok)
}

func TestSetDefines_Windows(t *testing.T) {
	desc, _ := Lookup("x86_64")
	cs := newCpp(t)
	desc.SetDefines(cs, SystemWindows)

	defs := definedMacros(cs)
	assert.Equal(t, "100", defs["_M_X64"])
	assert.Equal(t, "100", defs["_AMD64_"])
	assert.Equal(t, "100", defs["_M_AMD64"])
	assert.NotContains(t, defs, "__x86_64__")
}

func TestSetDefines_Linux(t *testing.T) {
	desc, _ := Lookup("x86_64")
	cs := newCpp(t)
	desc.SetDefines(cs, SystemLinux)

	defs := definedMacros(cs)
	assert.Equal(t, "1", defs["__x86_64__"])
	assert.Equal(t, "1", defs["__amd64"])
	assert.Equal(t, "1", defs["__amd64__"])
	assert.NotContains(t, defs, "_M_X64")
}

func TestSystemFromString(t *testing.T) {
	sys, ok := SystemFromString("windows")
	require.True(t, ok)
	assert.Equal(t, SystemWindows, sys)

	sys, ok = SystemFromString("linux")
	require.True(t, ok)
	assert.Equal(t, SystemLinux, sys)

	_, ok = SystemFromString("plan9")
	assert.False(t, ok)
}

func TestBuiltinTable_ContainsX64Intrinsics(t *testing.T) {
	desc, _ := Lookup("x86_64")
	assert.True(t, desc.HasBuiltin("_mm_getcsr"))
	assert.True(t, desc.HasBuiltin("_mm_setcsr"))
	assert.True(t, desc.HasBuiltin("__builtin_trap"))
	assert.False(t, desc.HasBuiltin("not_a_builtin"))
}

func TestBuiltinSet_HandleKeyed(t *testing.T) {
	desc, _ := Lookup("x86_64")
	in := intern.New()
	set := desc.BuiltinSet(in)

	_, ok := set[in.Intern("_mm_getcsr")]
	assert.True(t, ok)
	_, ok = set[in.Intern("not_a_builtin")]
	assert.False(t, ok)
}

func checkContext(t *testing.T) (*CheckContext, *diag.Status, *srcloc.Store, srcloc.LocIndex) {
	t.Helper()
	store := srcloc.NewStore()
	in := intern.New()
	status := &diag.Status{}
	line := store.InternLine(in.Intern("a.c"), 1, []byte("x = _mm_getcsr();"), 0)
	loc := store.MakeLoc(line, 4, 10, srcloc.KindFile, 0)
	cc := &CheckContext{
		Diags:    diag.NewEngine(io.Discard),
		Status:   status,
		Store:    store,
		Interner: in,
	}
	return cc, status, store, loc
}

func TestTypeCheckBuiltin_GetcsrReturnsUInt(t *testing.T) {
	desc, _ := Lookup("x86_64")
	cc, status, _, loc := checkContext(t)

	got := desc.TypeCheckBuiltin(cc, loc, "_mm_getcsr", nil)
	assert.Equal(t, TypeUInt, got)
	assert.False(t, diag.HasReports(status, diag.LevelError))
}

func TestTypeCheckBuiltin_GetcsrRejectsArguments(t *testing.T) {
	desc, _ := Lookup("x86_64")
	cc, status, _, loc := checkContext(t)

	got := desc.TypeCheckBuiltin(cc, loc, "_mm_getcsr", []Arg{{Loc: loc, Type: TypeInt}})
	assert.Equal(t, TypeUInt, got)
	assert.True(t, diag.HasReports(status, diag.LevelError))
}

func TestTypeCheckBuiltin_SetcsrArity(t *testing.T) {
	desc, _ := Lookup("x86_64")
	cc, status, _, loc := checkContext(t)

	got := desc.TypeCheckBuiltin(cc, loc, "_mm_setcsr", nil)
	assert.Equal(t, TypeVoid, got)
	assert.True(t, diag.HasReports(status, diag.LevelError))
}

func TestTypeCheckBuiltin_SetcsrAcceptsUInt(t *testing.T) {
	desc, _ := Lookup("x86_64")
	cc, status, _, loc := checkContext(t)

	got := desc.TypeCheckBuiltin(cc, loc, "_mm_setcsr", []Arg{{Loc: loc, Type: TypeUInt}})
	assert.Equal(t, TypeVoid, got)
	assert.False(t, diag.HasReports(status, diag.LevelError))
}

func TestTypeCheckBuiltin_SetcsrRejectsPointer(t *testing.T) {
	desc, _ := Lookup("x86_64")
	cc, status, _, loc := checkContext(t)

	got := desc.TypeCheckBuiltin(cc, loc, "_mm_setcsr", []Arg{{Loc: loc, Type: TypePtr}})
	assert.Equal(t, TypeVoid, got)
	assert.True(t, diag.HasReports(status, diag.LevelError))
}

func TestTypeCheckBuiltin_UnknownBuiltinReportsError(t *testing.T) {
	desc, _ := Lookup("x86_64")
	cc, status, _, loc := checkContext(t)

	got := desc.TypeCheckBuiltin(cc, loc, "_mm_made_up", nil)
	assert.Equal(t, TypeVoid, got)
	assert.True(t, diag.HasReports(status, diag.LevelError))
}

func TestWin64_SmallAggregatesPassViaReg(t *testing.T) {
	desc, _ := Lookup("x86_64")
	hooks := desc.Hooks
	require.NotNil(t, hooks)

	for _, size := range []int{1, 2, 4, 8} {
		assert.True(t, hooks.PassReturnViaReg(ParamType{Size: size, Aggregate: true}), "size %d", size)
	}
	for _, size := range []int{3, 12, 16, 32} {
		assert.False(t, hooks.PassReturnViaReg(ParamType{Size: size, Aggregate: true}), "size %d", size)
	}
	assert.True(t, hooks.PassReturnViaReg(ParamType{Size: 16, Aggregate: false}))
}

func TestWin64_PassParameterClassification(t *testing.T) {
	desc, _ := Lookup("x86_64")
	hooks := desc.Hooks

	assert.Equal(t, PassInReg, hooks.PassParameter(ParamType{Size: 4}, false))
	assert.Equal(t, PassByRef, hooks.PassParameter(ParamType{Size: 24, Aggregate: true, ReadOnly: true}, false))
	assert.Equal(t, PassByRefCopy, hooks.PassParameter(ParamType{Size: 24, Aggregate: true}, false))
}

func TestWin64_CreatePrototype(t *testing.T) {
	desc, _ := Lookup("x86_64")
	hooks := desc.Hooks

	proto := hooks.CreatePrototype(
		ParamType{Size: 16, Aggregate: true},
		[]ParamType{{Size: 4}, {Size: 24, Aggregate: true}},
	)
	assert.True(t, proto.AggregateReturn)
	assert.Equal(t, []Passing{PassInReg, PassByRefCopy}, proto.Params)
}

func TestWin64_CompileBuiltin(t *testing.T) {
	desc, _ := Lookup("x86_64")
	hooks := desc.Hooks

	assert.NoError(t, hooks.CompileBuiltin("_mm_getcsr"))
	assert.NoError(t, hooks.CompileBuiltin("_mm_setcsr"))
	assert.Error(t, hooks.CompileBuiltin("_mm_made_up"))
}

func TestLoadOverride_MergesBuiltins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "builtins.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"builtins": {"_mm_pause": 0, "_mm_clflush": 1}}`), 0o644))

	override, err := LoadOverride(path)
	require.NoError(t, err)
	assert.Equal(t, 0, override.Builtins["_mm_pause"])
	assert.Equal(t, 1, override.Builtins["_mm_clflush"])

	d := &Desc{}
	override.Merge(d)
	assert.True(t, d.HasBuiltin("_mm_pause"))
	assert.True(t, d.HasBuiltin("_mm_clflush"))
}

func TestLoadOverride_RejectsSchemaViolations(t *testing.T) {
	dir := t.TempDir()

	badArity := filepath.Join(dir, "bad_arity.json")
	require.NoError(t, os.WriteFile(badArity, []byte(`{"builtins": {"_mm_pause": "zero"}}`), 0o644))
	_, err := LoadOverride(badArity)
	assert.Error(t, err)

	missingKey := filepath.Join(dir, "missing.json")
	require.NoError(t, os.WriteFile(missingKey, []byte(`{"intrinsics": {}}`), 0o644))
	_, err = LoadOverride(missingKey)
	assert.Error(t, err)
}

func TestLoadOverride_MissingFile(t *testing.T) {
	_, err := LoadOverride(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestRegister_UserDescriptor(t *testing.T) {
	d := &Desc{Arch: ArchX86_64}
	Register("x86_64-custom", d)

	got, ok := Lookup("x86_64-custom")
	require.True(t, ok)
	assert.Same(t, d, got)
}
