// Package cparse is a narrow stand-in for a full C parser, with one
// contract: consume the entire token stream. It recognizes just enough
// top-level declaration grammar (storage-class keywords, a declarator
// name, and a function's parameter-name list) to feed export-table
// computation and top-level visitation. It does not parse expressions,
// statement bodies, or full C declarator grammar; a function body is
// skipped as a matched brace span rather than parsed.
package cparse

import "github.com/standardbeagle/cuikgo/internal/srcloc"

// Op is a declaration's top-level operation tag.
type Op uint8

const (
	// OpFuncDecl is a function declaration or definition.
	OpFuncDecl Op = iota
	// OpGlobalDecl is a file-scope variable or typedef declaration.
	OpGlobalDecl
	// OpDecl is any other declaration shape this scanner recognizes but
	// does not further classify. The narrow top-level scanner in scan.go
	// never emits this tag itself (everything it sees is file-scope); it
	// exists so a fuller parser dropped in later has somewhere to put
	// block-scope decls.
	OpDecl
)

func (o Op) String() string {
	switch o {
	case OpFuncDecl:
		return "FUNC_DECL"
	case OpGlobalDecl:
		return "GLOBAL_DECL"
	default:
		return "DECL"
	}
}

// Attr is a bitset of the declarator attributes the export filter tests:
// static, extern, inline, typedef.
type Attr uint8

const (
	AttrStatic Attr = 1 << iota
	AttrExtern
	AttrInline
	AttrTypedef
)

func (a Attr) Has(bit Attr) bool { return a&bit != 0 }

// attrKeyword maps a storage-class/function-specifier keyword spelling to
// the bit it sets, or (0, false) if text isn't one of the four.
func attrKeyword(text string) (Attr, bool) {
	switch text {
	case "static":
		return AttrStatic, true
	case "extern":
		return AttrExtern, true
	case "inline":
		return AttrInline, true
	case "typedef":
		return AttrTypedef, true
	default:
		return 0, false
	}
}

// Decl is one top-level declaration: an operation tag, a name, a raw
// type reference (this package does not type-check), attribute bits, and
// the source location of the declarator name. For function declarations
// Params holds the declared parameter names in order; parameters without
// a name (prototypes like "int g(int, int)", or "void") contribute no
// entry.
type Decl struct {
	Op      Op
	Name    string
	TypeRef string // raw joined text of the declarator's type tokens
	Params  []string
	Attrs   Attr
	Loc     srcloc.LocIndex
}

// IsFunctionKind reports whether d declares a function, the "not of
// function kind" test the export predicate applies to GLOBAL_DECL/DECL.
func (d Decl) IsFunctionKind() bool { return d.Op == OpFuncDecl }
