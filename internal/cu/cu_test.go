package cu

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/cuikgo/internal/diag"
	"github.com/standardbeagle/cuikgo/internal/intern"
	"github.com/standardbeagle/cuikgo/internal/preprocessor"
	"github.com/standardbeagle/cuikgo/internal/srcloc"
	"github.com/standardbeagle/cuikgo/internal/tu"
)

func parseTU(t *testing.T, in *intern.Interner, content string) *tu.TranslationUnit {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cs := preprocessor.NewCppState(in, srcloc.NewStore(), diag.NewEngine(io.Discard), &diag.Status{}, nil)
	ts, err := cs.PreprocessSimple(path)
	require.NoError(t, err)

	unit, err := tu.Parse(ts, in, nil)
	require.NoError(t, err)
	return unit
}

func TestAdd_LinksInAttachmentOrder(t *testing.T) {
	in := intern.New()
	compUnit := Create(in)

	first := parseTU(t, in, "int a;\n")
	second := parseTU(t, in, "int b;\n")
	require.NoError(t, compUnit.Add(first))
	require.NoError(t, compUnit.Add(second))

	assert.Equal(t, 2, compUnit.Count())
	assert.Same(t, first, compUnit.Head())
	assert.Same(t, second, compUnit.Head().Next())
	assert.Same(t, compUnit, first.Parent())
}

func TestAdd_ConcurrentAttach(t *testing.T) {
	in := intern.New()
	compUnit := Create(in)

	units := []*tu.TranslationUnit{
		parseTU(t, in, "int a;\n"),
		parseTU(t, in, "int b;\n"),
	}

	var wg sync.WaitGroup
	for _, unit := range units {
		wg.Add(1)
		go func(u *tu.TranslationUnit) {
			defer wg.Done()
			assert.NoError(t, compUnit.Add(u))
		}(unit)
	}
	wg.Wait()

	assert.Equal(t, 2, compUnit.Count())

	reachable := 0
	for u := compUnit.Head(); u != nil; u = u.Next() {
		reachable++
	}
	assert.Equal(t, 2, reachable)
}

func TestAdd_SecondCompilationUnitRejected(t *testing.T) {
	in := intern.New()
	first := Create(in)
	second := Create(in)

	unit := parseTU(t, in, "int a;\n")
	require.NoError(t, first.Add(unit))

	err := second.Add(unit)
	assert.Error(t, err)
	assert.Equal(t, 0, second.Count())
	assert.Same(t, first, unit.Parent())
}

func TestInternalLink_ExportFilter(t *testing.T) {
	in := intern.New()
	compUnit := Create(in)
	unit := parseTU(t, in, "static int a; extern int b; int c; typedef int d; inline int e(){} int f(){}\n")
	require.NoError(t, compUnit.Add(unit))

	compUnit.InternalLink()

	assert.ElementsMatch(t, []string{"c", "f"}, compUnit.ExportNames())

	c, ok := compUnit.Export("c")
	require.True(t, ok)
	assert.Equal(t, "c", c.Name)
	_, ok = compUnit.Export("a")
	assert.False(t, ok)
}

func TestInternalLink_Idempotent(t *testing.T) {
	in := intern.New()
	compUnit := Create(in)
	require.NoError(t, compUnit.Add(parseTU(t, in, "int c; int f(){}\n")))

	compUnit.InternalLink()
	once := compUnit.ExportNames()
	compUnit.InternalLink()
	twice := compUnit.ExportNames()

	assert.ElementsMatch(t, once, twice)
	assert.Equal(t, 2, compUnit.ExportCount())
}

func TestInternalLink_AggregatesAcrossUnits(t *testing.T) {
	in := intern.New()
	compUnit := Create(in)
	require.NoError(t, compUnit.Add(parseTU(t, in, "int first;\n")))
	require.NoError(t, compUnit.Add(parseTU(t, in, "int second(){}\n")))

	compUnit.InternalLink()

	assert.ElementsMatch(t, []string{"first", "second"}, compUnit.ExportNames())
}

func TestDestroy_DestroysUnitsAndRejectsSecondCall(t *testing.T) {
	in := intern.New()
	compUnit := Create(in)
	unit := parseTU(t, in, "int a;\n")
	require.NoError(t, compUnit.Add(unit))

	require.NoError(t, compUnit.Destroy())
	assert.True(t, unit.Destroyed())
	assert.Error(t, compUnit.Destroy())
	assert.Error(t, compUnit.Add(parseTU(t, in, "int b;\n")))
}

func TestCollector_ReportsCounts(t *testing.T) {
	in := intern.New()
	compUnit := Create(in)
	require.NoError(t, compUnit.Add(parseTU(t, in, "int c;\n")))
	compUnit.InternalLink()

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(Collector(compUnit)))

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]float64)
	for _, mf := range families {
		byName[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Equal(t, 1.0, byName["cuik_translation_units"])
	assert.Equal(t, 1.0, byName["cuik_export_table_size"])
}
