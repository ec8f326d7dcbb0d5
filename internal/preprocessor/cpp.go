// Package preprocessor implements the token-level C preprocessor: file
// reading, logical-line splicing, macro expansion with blue paint against
// self-recursion, conditional compilation, and #include resolution across
// an own-directory-first / system-path-fallback search.
package preprocessor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/standardbeagle/cuikgo/internal/diag"
	"github.com/standardbeagle/cuikgo/internal/intern"
	"github.com/standardbeagle/cuikgo/internal/srcloc"
)

const maxIncludeDepth = 200

// CppState is a preprocessor session: one per translation unit, not safe
// for concurrent use from multiple goroutines (mirrors the single
// TranslationUnit-scoped lifetime the rest of the module assumes).
type CppState struct {
	Interner *intern.Interner
	Store    *srcloc.Store
	Diags    *diag.Engine
	Status   *diag.Status

	// UserPaths are the -I style search paths, tried in order before
	// SystemPaths for every #include form.
	UserPaths   []string
	SystemPaths []string

	macros map[string]*Macro
	order  []string // insertion order, for stable ForDefines iteration
	cond   condStack
	dirs   []string // own-directory search stack, innermost last
	once   map[string]bool
	depth  int
	output []Token
}

// NewCppState returns a ready-to-use preprocessor session.
func NewCppState(in *intern.Interner, store *srcloc.Store, diags *diag.Engine, status *diag.Status, systemPaths []string) *CppState {
	return &CppState{
		Interner:    in,
		Store:       store,
		Diags:       diags,
		Status:      status,
		SystemPaths: systemPaths,
		macros:      make(map[string]*Macro),
		once:        make(map[string]bool),
	}
}

// Define installs a macro programmatically (e.g. a target's predefined
// macros, or a -D command-line define), attributed to a synthetic
// "<command-line>" location.
func (cs *CppState) Define(name, value string) {
	fileHandle := cs.Interner.Intern("<command-line>")
	lineIdx := cs.Store.InternLine(fileHandle, 1, []byte(name+" "+value), 0)
	loc := cs.Store.MakeLoc(lineIdx, 0, len(name), srcloc.KindFile, 0)

	body := lexLine([]byte(value))
	cs.installMacro(name, &Macro{
		Name:   cs.Interner.Intern(name),
		Body:   body,
		DefLoc: loc,
	})
}

func (cs *CppState) installMacro(name string, m *Macro) {
	if _, exists := cs.macros[name]; !exists {
		cs.order = append(cs.order, name)
	}
	cs.macros[name] = m
}

// ForDefines calls fn once per currently-defined macro, in definition
// order, for tools that want to dump the active macro table.
func (cs *CppState) ForDefines(fn func(MacroDef)) {
	for _, name := range cs.order {
		m, ok := cs.macros[name]
		if !ok {
			continue
		}
		fn(MacroDef{Key: name, Value: bodyText(m.Body), Location: m.DefLoc})
	}
}

// Finalize returns the accumulated token stream. Preprocessing must be
// driven to completion (via PreprocessSimple) before calling this.
func (cs *CppState) Finalize(mainFile string) *TokenStream {
	return &TokenStream{
		Tokens:   cs.output,
		Store:    cs.Store,
		MainFile: mainFile,
	}
}

// Deinit resets cs so it can be reused for another translation unit,
// mirroring the explicit init/deinit lifecycle the rest of this module
// uses instead of relying solely on garbage collection.
func (cs *CppState) Deinit() {
	cs.macros = make(map[string]*Macro)
	cs.order = nil
	cs.cond = condStack{}
	cs.dirs = nil
	cs.once = make(map[string]bool)
	cs.depth = 0
	cs.output = nil
}

// PreprocessSimple preprocesses path as a translation unit's main file and
// returns the resulting TokenStream.
func (cs *CppState) PreprocessSimple(path string) (*TokenStream, error) {
	if err := cs.processFile(path, false, 0); err != nil {
		return nil, err
	}
	return cs.Finalize(path), nil
}

// processFile reads path, splices its logical lines, and interprets
// directives / emits tokens for each. includeLoc is the location of the
// #include directive that pulled this file in (0 for the main file).
func (cs *CppState) processFile(path string, isSystem bool, includeLoc srcloc.LocIndex) error {
	cs.depth++
	defer func() { cs.depth-- }()
	if cs.depth > maxIncludeDepth {
		return fmt.Errorf("preprocessor: #include nesting exceeds %d levels at %s", maxIncludeDepth, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if cs.once[abs] {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("preprocessor: %w", err)
	}

	fileHandle := cs.Interner.Intern(path)
	cs.dirs = append(cs.dirs, filepath.Dir(path))
	defer func() { cs.dirs = cs.dirs[:len(cs.dirs)-1] }()

	for _, rl := range splitLogicalLines(content) {
		directive, rest, isDirective := splitDirective(rl.text)
		if isDirective {
			if err := cs.handleDirective(fileHandle, rl, directive, rest, path); err != nil {
				return err
			}
			continue
		}
		if !cs.cond.active() {
			continue
		}
		cs.lexAndEmit(fileHandle, rl, includeLoc)
	}

	return nil
}

// lexAndEmit tokenizes one non-directive logical line and appends its
// (macro-expanded) tokens to the output stream.
func (cs *CppState) lexAndEmit(fileHandle intern.Handle, rl rawLine, includeLoc srcloc.LocIndex) {
	raws := lexLine(rl.text)
	if len(raws) == 0 {
		return
	}

	lineIdx := cs.Store.InternLine(fileHandle, rl.number, rl.text, includeLoc)

	tokens := make([]Token, 0, len(raws))
	for _, rt := range raws {
		loc := cs.Store.MakeLoc(lineIdx, rt.column, len(rt.text), srcloc.KindFile, 0)
		tokens = append(tokens, Token{Kind: rt.kind, Text: rt.text, Loc: loc})
	}

	expanded := cs.expandTokens(tokens, nil)
	cs.output = append(cs.output, expanded...)
}

// expandTokens scans tokens left to right, replacing macro invocations not
// currently blue-painted, and returns the fully expanded token list.
// Re-entrant: macro bodies and function-like arguments are themselves run
// back through expandTokens. blue names the macros currently being
// expanded on this call stack, preventing self-referential macros from
// expanding forever.
func (cs *CppState) expandTokens(tokens []Token, blue map[string]bool) []Token {
	var out []Token
	i := 0
	for i < len(tokens) {
		tok := tokens[i]

		if tok.Kind != KindIdent || blue[tok.Text] {
			out = append(out, tok)
			i++
			continue
		}

		m, ok := cs.macros[tok.Text]
		if !ok {
			out = append(out, tok)
			i++
			continue
		}

		if !m.FunctionLike {
			result := cs.instantiate(m, tok, nil, nil, nil, nil, blue)
			out = append(out, result...)
			i++
			continue
		}

		// Function-like macro: only invoked when immediately followed by
		// '(' (no intervening identifier — C leaves a bare mention
		// unexpanded).
		if i+1 >= len(tokens) || !tokens[i+1].IsPunct("(") {
			out = append(out, tok)
			i++
			continue
		}

		groups, end, ok := collectArgs(tokens, i+1)
		if !ok {
			out = append(out, tok)
			i++
			continue
		}
		argLists, variadicTokens := splitVariadic(groups, len(m.Params), m.Variadic)

		rawArgs, expArgs := cs.prepareArgs(argLists, blue)
		variadicRaw, variadicExp := cs.prepareVariadic(variadicTokens, blue)

		result := cs.instantiate(m, tok, rawArgs, expArgs, variadicRaw, variadicExp, blue)
		out = append(out, result...)
		i = end
	}
	return out
}

// prepareArgs converts each raw argument's tokens into both a raw
// (unexpanded) rawToken slice and a fully macro-expanded rawToken slice.
func (cs *CppState) prepareArgs(argLists [][]Token, blue map[string]bool) (raw, exp [][]rawToken) {
	raw = make([][]rawToken, len(argLists))
	exp = make([][]rawToken, len(argLists))
	for i, arg := range argLists {
		raw[i] = toRaw(arg)
		exp[i] = toRaw(cs.expandTokens(arg, blue))
	}
	return raw, exp
}

func (cs *CppState) prepareVariadic(variadic []Token, blue map[string]bool) (raw, exp []rawToken) {
	if variadic == nil {
		return nil, nil
	}
	return toRaw(variadic), toRaw(cs.expandTokens(variadic, blue))
}

func toRaw(tokens []Token) []rawToken {
	out := make([]rawToken, len(tokens))
	for i, t := range tokens {
		out[i] = rawToken{kind: t.Kind, text: t.Text}
	}
	return out
}

// collectArgs scans tokens starting at the '(' index openIdx for a
// function-like macro call's argument list, splitting on top-level commas
// (depth 0) and stopping at the matching ')'. It returns one []Token per
// comma-separated group at the call site (nil for an empty "()"), and end
// is the index just past the matching ')'; ok is false when no matching
// ')' is found. Separating a variadic tail from the named-parameter
// groups is splitVariadic's job.
func collectArgs(tokens []Token, openIdx int) (args [][]Token, end int, ok bool) {
	depth := 0
	var current []Token
	var groups [][]Token

	i := openIdx
	for ; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.IsPunct("("):
			depth++
			if depth == 1 {
				continue
			}
		case t.IsPunct(")"):
			depth--
			if depth == 0 {
				groups = append(groups, current)
				// A single empty group means a zero-argument call like
				// FOO() — treat as no arguments, not one empty argument.
				if len(groups) == 1 && len(groups[0]) == 0 {
					groups = nil
				}
				return groups, i + 1, true
			}
		case t.IsPunct(",") && depth == 1:
			groups = append(groups, current)
			current = nil
			continue
		}
		current = append(current, t)
	}
	return nil, 0, false
}

// splitVariadic separates the groups collectArgs found into the macro's
// named-parameter slots plus a single comma-joined variadic tail, for
// macros declared with a trailing "...".
func splitVariadic(groups [][]Token, namedCount int, variadic bool) (args [][]Token, tail []Token) {
	if !variadic {
		return groups, nil
	}
	if len(groups) <= namedCount {
		return groups, nil
	}
	args = groups[:namedCount]
	for i, g := range groups[namedCount:] {
		if i > 0 {
			tail = append(tail, Token{Kind: KindPunct, Text: ","})
		}
		tail = append(tail, g...)
	}
	return args, tail
}

// instantiate substitutes and pastes m's body against the given arguments,
// assigns the result a synthetic expansion location chained to call, and
// recursively re-expands it with m's name added to blue.
func (cs *CppState) instantiate(m *Macro, call Token, rawArgs, expArgs [][]rawToken, variadicRaw, variadicExp []rawToken, blue map[string]bool) []Token {
	pasted := substituteAndPaste(m, rawArgs, expArgs, variadicRaw, variadicExp)

	name, _ := cs.Interner.Lookup(m.Name)
	syntheticFile := cs.Interner.Intern("<" + name + ">")
	text := bodyText(pasted)
	lineIdx := cs.Store.InternLine(syntheticFile, 1, []byte(text), call.Loc)

	result := make([]Token, 0, len(pasted))
	col := 0
	for i, t := range pasted {
		if i > 0 {
			col++ // account for the joining space bodyText inserts
		}
		loc := cs.Store.MakeLoc(lineIdx, col, len(t.text), srcloc.KindMacro, m.DefLoc)
		result = append(result, Token{Kind: t.kind, Text: t.text, Loc: loc})
		col += len(t.text)
	}

	nextBlue := make(map[string]bool, len(blue)+1)
	for k := range blue {
		nextBlue[k] = true
	}
	nextBlue[name] = true

	return cs.expandTokens(result, nextBlue)
}

// definedFn returns the isDefined callback evalConstExpr uses to resolve
// defined(NAME) within a #if/#elif expression.
func (cs *CppState) definedFn() func(string) bool {
	return func(name string) bool {
		_, ok := cs.macros[name]
		return ok
	}
}
