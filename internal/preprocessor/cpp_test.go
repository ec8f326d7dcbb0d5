package preprocessor

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/cuikgo/internal/diag"
	"github.com/standardbeagle/cuikgo/internal/intern"
	"github.com/standardbeagle/cuikgo/internal/srcloc"
)

func newTestState(t *testing.T, systemPaths ...string) *CppState {
	t.Helper()
	return NewCppState(intern.New(), srcloc.NewStore(), diag.NewEngine(io.Discard), &diag.Status{}, systemPaths)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func tokenTexts(ts *TokenStream) []string {
	out := make([]string, len(ts.Tokens))
	for i, tok := range ts.Tokens {
		out[i] = tok.Text
	}
	return out
}

func TestPreprocessSimple_ObjectLikeMacroExpansion(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.c", "#define FOO 42\nint x = FOO;\n")

	cs := newTestState(t)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"int", "x", "=", "42", ";"}, tokenTexts(ts))
}

func TestPreprocessSimple_FunctionLikeMacroWithArgs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.c", "#define ADD(a, b) ((a) + (b))\nint x = ADD(1, 2);\n")

	cs := newTestState(t)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"int", "x", "=", "(", "(", "1", ")", "+", "(", "2", ")", ")", ";",
	}, tokenTexts(ts))
}

func TestPreprocessSimple_FunctionLikeMacroNotInvokedWithoutParens(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.c", "#define ADD(a, b) ((a) + (b))\nint x = ADD;\n")

	cs := newTestState(t)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"int", "x", "=", "ADD", ";"}, tokenTexts(ts))
}

func TestPreprocessSimple_Stringize(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.c", "#define STR(x) #x\nchar *s = STR(hello world);\n")

	cs := newTestState(t)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	texts := tokenTexts(ts)
	assert.Equal(t, `"hello world"`, texts[len(texts)-2])
}

func TestPreprocessSimple_TokenPaste(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.c", "#define CAT(a, b) a##b\nint CAT(foo, bar) = 1;\n")

	cs := newTestState(t)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"int", "foobar", "=", "1", ";"}, tokenTexts(ts))
}

func TestPreprocessSimple_RecursiveMacroDoesNotLoop(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.c", "#define SQR(x) ((x)*(x))\nint y = SQR(SQR(1));\n")

	cs := newTestState(t)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	for _, tok := range ts.Tokens {
		assert.NotEqual(t, "SQR", tok.Text)
	}
	// ((((1)*(1)))*(((1)*(1))))
	ones := 0
	for _, tok := range ts.Tokens {
		if tok.Text == "1" {
			ones++
		}
	}
	assert.Equal(t, 4, ones)
}

func TestPreprocessSimple_VariadicMacro(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.c", "#define LOG(fmt, ...) printf(fmt, __VA_ARGS__)\nLOG(\"x=%d\", 1, 2);\n")

	cs := newTestState(t)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"printf", "(", `"x=%d"`, ",", "1", ",", "2", ")", ";",
	}, tokenTexts(ts))
}

func TestPreprocessSimple_ConditionalCompilationTakesTrueBranch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.c",
		"#define FEATURE 1\n#if FEATURE\nint a;\n#else\nint b;\n#endif\n")

	cs := newTestState(t)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"int", "a", ";"}, tokenTexts(ts))
}

func TestPreprocessSimple_ConditionalCompilationTakesElseBranch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.c",
		"#if 0\nint a;\n#elif 0\nint b;\n#else\nint c;\n#endif\n")

	cs := newTestState(t)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"int", "c", ";"}, tokenTexts(ts))
}

func TestPreprocessSimple_IfdefRespectsDefinedMacros(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.c",
		"#define HAVE_X\n#ifdef HAVE_X\nint a;\n#endif\n#ifndef HAVE_X\nint b;\n#endif\n")

	cs := newTestState(t)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"int", "a", ";"}, tokenTexts(ts))
}

func TestPreprocessSimple_IncludeOwnDirectoryFirst(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.h", "int included_value;\n")
	path := writeFile(t, dir, "main.c", "#include \"other.h\"\nint main_value;\n")

	cs := newTestState(t)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"int", "included_value", ";", "int", "main_value", ";",
	}, tokenTexts(ts))
}

func TestPreprocessSimple_IncludeSystemPath(t *testing.T) {
	dir := t.TempDir()
	sysDir := t.TempDir()
	writeFile(t, sysDir, "sys.h", "int from_system;\n")
	path := writeFile(t, dir, "main.c", "#include <sys.h>\n")

	cs := newTestState(t, sysDir)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"int", "from_system", ";"}, tokenTexts(ts))
}

func TestPreprocessSimple_PragmaOnceSuppressesSecondInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "guard.h", "#pragma once\nint guarded;\n")
	path := writeFile(t, dir, "main.c", "#include \"guard.h\"\n#include \"guard.h\"\n")

	cs := newTestState(t)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	count := 0
	for _, tok := range ts.Tokens {
		if tok.Text == "guarded" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestForDefines_ListsInDefinitionOrder(t *testing.T) {
	cs := newTestState(t)
	cs.Define("A", "1")
	cs.Define("B", "2")

	var got []MacroDef
	cs.ForDefines(func(d MacroDef) { got = append(got, d) })

	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Key)
	assert.Equal(t, "B", got[1].Key)
}

func TestDeinit_ResetsState(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.c", "#define FOO 1\nFOO;\n")

	cs := newTestState(t)
	_, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	cs.Deinit()
	assert.Empty(t, cs.macros)
	assert.Empty(t, cs.output)
}
