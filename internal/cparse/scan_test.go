package cparse

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

func preprocess(t *testing.T, content string) *preprocessor.TokenStream {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cs := preprocessor.NewCppState(intern.New(), srcloc.NewStore(), diag.NewEngine(io.Discard), &diag.Status{}, nil)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)
	return ts
}

func TestParse_ExportFilterScenario(t *testing.T) {
	ts := preprocess(t, "static int a; extern int b; int c; typedef int d; inline int e(){} int f(){}\n")

	decls, err := Parse(ts)
	require.NoError(t, err)
	require.Len(t, decls, 6)

	byName := make(map[string]Decl, len(decls))
	for _, d := range decls {
		byName[d.Name] = d
	}

	assert.Equal(t, OpGlobalDecl, byName["a"].Op)
	assert.True(t, byName["a"].Attrs.Has(AttrStatic))

	assert.Equal(t, OpGlobalDecl, byName["b"].Op)
	assert.True(t, byName["b"].Attrs.Has(AttrExtern))

	assert.Equal(t, OpGlobalDecl, byName["c"].Op)
	assert.Equal(t, Attr(0), byName["c"].Attrs)

	assert.Equal(t, OpGlobalDecl, byName["d"].Op)
	assert.True(t, byName["d"].Attrs.Has(AttrTypedef))

	assert.Equal(t, OpFuncDecl, byName["e"].Op)
	assert.True(t, byName["e"].Attrs.Has(AttrInline))
	assert.True(t, byName["e"].IsFunctionKind())

	assert.Equal(t, OpFuncDecl, byName["f"].Op)
	assert.Equal(t, Attr(0), byName["f"].Attrs)
}

func TestParse_FunctionPrototypeWithoutBody(t *testing.T) {
	ts := preprocess(t, "int g(int x, int y);\n")

	decls, err := Parse(ts)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "g", decls[0].Name)
	assert.Equal(t, OpFuncDecl, decls[0].Op)
	assert.Equal(t, []string{"x", "y"}, decls[0].Params)
}

func TestParse_ParameterNames(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		params []string
	}{
		{"empty list", "int f();\n", nil},
		{"void list", "int f(void);\n", nil},
		{"unnamed prototype", "int f(int, unsigned long);\n", nil},
		{"pointer parameter", "int f(const char *msg);\n", []string{"msg"}},
		{"array parameter", "int f(int xs[8]);\n", []string{"xs"}},
		{"function pointer", "int f(int (*cb)(int), int n);\n", []string{"cb", "n"}},
		{"mixed named and unnamed", "int f(int a, int);\n", []string{"a"}},
		{"definition body ignored", "int f(int a, int b) { return a; }\n", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := preprocess(t, tt.src)
			decls, err := Parse(ts)
			require.NoError(t, err)
			require.Len(t, decls, 1)
			assert.Equal(t, tt.params, decls[0].Params)
		})
	}
}

func TestParse_PointerDeclaratorKeepsName(t *testing.T) {
	ts := preprocess(t, "static char *msg;\n")

	decls, err := Parse(ts)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "msg", decls[0].Name)
	assert.True(t, decls[0].Attrs.Has(AttrStatic))
}

func TestParse_FunctionWithNestedParensInParamList(t *testing.T) {
	ts := preprocess(t, "int apply(int (*fn)(int)) { return 0; }\n")

	decls, err := Parse(ts)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "apply", decls[0].Name)
	assert.Equal(t, OpFuncDecl, decls[0].Op)
	assert.Equal(t, []string{"fn"}, decls[0].Params)
}

func TestParse_ConsumesEveryTopLevelToken(t *testing.T) {
	ts := preprocess(t, "int a; int b; int c;\n")

	decls, err := Parse(ts)
	require.NoError(t, err)
	assert.Len(t, decls, 3)
}
