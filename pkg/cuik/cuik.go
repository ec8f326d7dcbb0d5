// Package cuik is the public facade over the translation-unit pipeline:
// opaque handles and the operation entry points drivers consume. The
// internal packages' layouts are private; drivers see only this surface.
package cuik

import (
	"fmt"
	"io"
	"os"

	"github.com/standardbeagle/cuikgo/internal/cerr"
	"github.com/standardbeagle/cuikgo/internal/cparse"
	"github.com/standardbeagle/cuikgo/internal/cu"
	"github.com/standardbeagle/cuikgo/internal/diag"
	"github.com/standardbeagle/cuikgo/internal/intern"
	"github.com/standardbeagle/cuikgo/internal/preprocessor"
	"github.com/standardbeagle/cuikgo/internal/srcloc"
	"github.com/standardbeagle/cuikgo/internal/target"
	"github.com/standardbeagle/cuikgo/internal/tu"
)

// Loc is an opaque source-location handle. The zero Loc means "none".
type Loc = srcloc.LocIndex

// Options configures a Session.
type Options struct {
	// Output receives diagnostics; defaults to os.Stdout.
	Output io.Writer
	// ThinErrors suppresses line previews and caret underlines.
	ThinErrors bool
}

// Session owns the shared pipeline substrate: interner, location store,
// diagnostic engine, and error status. One Session serves one
// compilation; preprocessor states and translation units created from it
// share its location table.
type Session struct {
	interner *intern.Interner
	store    *srcloc.Store
	engine   *diag.Engine
	status   *diag.Status
}

// Init creates a Session. opts may be nil for defaults.
func Init(opts *Options) *Session {
	out := io.Writer(os.Stdout)
	thin := false
	if opts != nil {
		if opts.Output != nil {
			out = opts.Output
		}
		thin = opts.ThinErrors
	}
	engine := diag.NewEngine(out)
	engine.SetThinErrors(thin)
	return &Session{
		interner: intern.New(),
		store:    srcloc.NewStore(),
		engine:   engine,
		status:   &diag.Status{},
	}
}

// HasErrors reports whether any error-level diagnostic has been tallied.
func (s *Session) HasErrors() bool {
	return diag.HasReports(s.status, diag.LevelError)
}

// Header prints a standalone diagnostic headline at the given severity
// name ("verbose", "info", "warning", "error").
func (s *Session) Header(severity, format string, args ...any) {
	level := diag.LevelInfo
	switch severity {
	case "verbose":
		level = diag.LevelVerbose
	case "warning":
		level = diag.LevelWarning
	case "error":
		level = diag.LevelError
	}
	s.engine.Header(level, format, args...)
}

// Cpp is an opaque preprocessor handle.
type Cpp struct {
	state *preprocessor.CppState
}

// NewCpp creates a preprocessor session for the named target
// ("x86_64") and system ("windows" or "linux"), injecting the target's
// predefines, with the given user (-I) and system include search paths.
func (s *Session) NewCpp(targetName, system string, userPaths, systemPaths []string) (*Cpp, error) {
	desc, ok := target.Lookup(targetName)
	if !ok {
		return nil, cerr.New(cerr.KindIO, "cuik.NewCpp",
			fmt.Errorf("unknown target %q (have %v)", targetName, target.Names()))
	}
	sys, ok := target.SystemFromString(system)
	if !ok {
		return nil, cerr.New(cerr.KindIO, "cuik.NewCpp",
			fmt.Errorf("unknown system %q", system))
	}

	state := preprocessor.NewCppState(s.interner, s.store, s.engine, s.status, systemPaths)
	state.UserPaths = userPaths
	desc.SetDefines(state, sys)
	return &Cpp{state: state}, nil
}

// Define injects a macro binding as if from a command-line -D.
func (c *Cpp) Define(key, value string) {
	c.state.Define(key, value)
}

// Define is one entry of the finalized macro table.
type Define struct {
	Key   string
	Value string
	Loc   Loc
}

// ForDefines calls fn for every macro currently defined, in definition
// order.
func (c *Cpp) ForDefines(fn func(Define)) {
	c.state.ForDefines(func(md preprocessor.MacroDef) {
		fn(Define{Key: md.Key, Value: md.Value, Loc: md.Location})
	})
}

// PreprocessSimple preprocesses path as a translation unit's root file.
func (c *Cpp) PreprocessSimple(path string) (*TokenStream, error) {
	ts, err := c.state.PreprocessSimple(path)
	if err != nil {
		return nil, err
	}
	return &TokenStream{ts: ts}, nil
}

// Deinit releases the preprocessor's state. The token streams it
// produced stay valid; they share the session's location store.
func (c *Cpp) Deinit() {
	c.state.Deinit()
}

// TokenStream is an opaque handle on a preprocessed token stream.
type TokenStream struct {
	ts *preprocessor.TokenStream
}

// TokenInfo is one token's driver-visible view: its text plus the file and
// line of the token's own source line. For macro-expansion output that is
// a synthetic "<...>" file, flagged by Synthetic.
type TokenInfo struct {
	Text      string
	File      string
	Line      int
	Synthetic bool
	Loc       Loc
}

// ForTokens calls fn for every token in stream order.
func (t *TokenStream) ForTokens(s *Session, fn func(TokenInfo)) {
	for _, tok := range t.ts.Tokens {
		loc := t.ts.Store.GetLoc(tok.Loc)
		line := t.ts.Store.GetLine(loc.Line)
		path, _ := s.interner.Lookup(line.Filepath)
		fn(TokenInfo{
			Text:      tok.Text,
			File:      path,
			Line:      line.Line,
			Synthetic: s.interner.IsSynthetic(line.Filepath),
			Loc:       tok.Loc,
		})
	}
}

// TranslationUnit is an opaque handle on one parsed source file.
type TranslationUnit struct {
	inner *tu.TranslationUnit
}

// ParseTranslationUnit hands ts to the parser and wraps the result.
// backend may be nil when no backend module is attached.
func (s *Session) ParseTranslationUnit(ts *TokenStream, backend any) (*TranslationUnit, error) {
	inner, err := tu.Parse(ts.ts, s.interner, backend)
	if err != nil {
		return nil, err
	}
	return &TranslationUnit{inner: inner}, nil
}

// IsInMainFile reports whether loc's topmost non-synthetic ancestor is
// the translation unit's root file.
func (t *TranslationUnit) IsInMainFile(loc Loc) bool {
	return t.inner.IsInMainFile(loc)
}

// Decl is one top-level declaration's driver-visible view. Params holds
// a function's declared parameter names in order; unnamed parameters
// contribute no entry.
type Decl struct {
	Kind      string // "FUNC_DECL", "GLOBAL_DECL" or "DECL"
	Name      string
	Type      string
	Params    []string
	Loc       Loc
	IsStatic  bool
	IsExtern  bool
	IsInline  bool
	IsTypedef bool
}

func viewDecl(d cparse.Decl) Decl {
	return Decl{
		Kind:      d.Op.String(),
		Name:      d.Name,
		Type:      d.TypeRef,
		Params:    d.Params,
		Loc:       d.Loc,
		IsStatic:  d.Attrs.Has(cparse.AttrStatic),
		IsExtern:  d.Attrs.Has(cparse.AttrExtern),
		IsInline:  d.Attrs.Has(cparse.AttrInline),
		IsTypedef: d.Attrs.Has(cparse.AttrTypedef),
	}
}

// VisitTopLevel iterates each top-level declaration exactly once, in
// source order.
func (t *TranslationUnit) VisitTopLevel(userData any, visitor func(userData any, d Decl)) {
	t.inner.VisitTopLevel(userData, func(ud any, d cparse.Decl) {
		visitor(ud, viewDecl(d))
	})
}

// Destroy releases t. Safe to call more than once.
func (t *TranslationUnit) Destroy() {
	t.inner.Destroy()
}

// CompilationUnit is an opaque handle on an aggregate of translation
// units sharing an export table.
type CompilationUnit struct {
	inner *cu.CompilationUnit
}

// CreateCompilationUnit initializes an empty compilation unit bound to
// the session's interner.
func (s *Session) CreateCompilationUnit() *CompilationUnit {
	return &CompilationUnit{inner: cu.Create(s.interner)}
}

// Add attaches t. A translation unit attaches to at most one compilation
// unit; a second attach returns an error.
func (c *CompilationUnit) Add(t *TranslationUnit) error {
	return c.inner.Add(t.inner)
}

// Count returns the number of attached translation units.
func (c *CompilationUnit) Count() int {
	return c.inner.Count()
}

// InternalLink computes the export table from every attached unit.
func (c *CompilationUnit) InternalLink() {
	c.inner.InternalLink()
}

// ExportNames returns the export table's names, unordered.
func (c *CompilationUnit) ExportNames() []string {
	return c.inner.ExportNames()
}

// Export looks up one exported declaration by name.
func (c *CompilationUnit) Export(name string) (Decl, bool) {
	d, ok := c.inner.Export(name)
	if !ok {
		return Decl{}, false
	}
	return viewDecl(*d), true
}

// Destroy releases every attached translation unit and then the
// compilation unit itself. A second call returns an error.
func (c *CompilationUnit) Destroy() error {
	return c.inner.Destroy()
}
