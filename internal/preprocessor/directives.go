package preprocessor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/cuikgo/internal/diag"
	"github.com/standardbeagle/cuikgo/internal/intern"
	"github.com/standardbeagle/cuikgo/internal/srcloc"
)

// splitDirective reports whether text (a logical line) is a preprocessor
// directive line, returning the directive keyword and the remainder of the
// line as a subslice of text (so column arithmetic against the original
// line stays valid).
func splitDirective(text []byte) (directive string, rest []byte, isDirective bool) {
	i := 0
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if i >= len(text) || text[i] != '#' {
		return "", nil, false
	}
	i++
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}

	start := i
	for i < len(text) && text[i] >= 'a' && text[i] <= 'z' {
		i++
	}
	return string(text[start:i]), text[i:], true
}

// handleDirective dispatches one directive line. Conditional directives
// (#if/#ifdef/#ifndef/#elif/#else/#endif) run regardless of whether the
// enclosing region is active, to keep the conditional stack's nesting
// correct; every other directive is skipped while inactive.
func (cs *CppState) handleDirective(fileHandle intern.Handle, rl rawLine, directive string, rest []byte, currentPath string) error {
	switch directive {
	case "":
		return nil

	case "if":
		cs.cond.pushIf(cs.evalDirectiveExpr(rest) != 0)
		return nil

	case "ifdef", "ifndef":
		raws := lexLine(rest)
		name := ""
		if len(raws) > 0 {
			name = raws[0].text
		}
		_, defined := cs.macros[name]
		if directive == "ifndef" {
			defined = !defined
		}
		cs.cond.pushIf(defined)
		return nil

	case "elif":
		if err := cs.cond.handleElif(cs.evalDirectiveExpr(rest) != 0); err != nil {
			cs.reportDirectiveError(fileHandle, rl, err)
		}
		return nil

	case "else":
		if err := cs.cond.handleElse(); err != nil {
			cs.reportDirectiveError(fileHandle, rl, err)
		}
		return nil

	case "endif":
		if err := cs.cond.handleEndif(); err != nil {
			cs.reportDirectiveError(fileHandle, rl, err)
		}
		return nil
	}

	if !cs.cond.active() {
		return nil
	}

	switch directive {
	case "define":
		cs.handleDefine(fileHandle, rl, rest)
	case "undef":
		raws := lexLine(rest)
		if len(raws) > 0 {
			delete(cs.macros, raws[0].text)
		}
	case "include":
		return cs.handleInclude(fileHandle, rl, rest, currentPath)
	case "error":
		cs.reportDirectiveMessage(fileHandle, rl, diag.LevelError, rest)
	case "warning":
		cs.reportDirectiveMessage(fileHandle, rl, diag.LevelWarning, rest)
	case "pragma":
		cs.handlePragma(rest, currentPath)
	default:
		// Unrecognized directive (#line, vendor pragmas, etc): ignored.
	}
	return nil
}

// evalDirectiveExpr evaluates a #if/#elif constant expression: defined(X)
// operands are resolved first (before the remainder is macro-expanded) so
// a macro named the same as a defined() operand is never itself expanded.
func (cs *CppState) evalDirectiveExpr(rest []byte) int64 {
	raws := lexLine(rest)
	substituted := cs.substituteDefined(raws)

	tokens := make([]Token, len(substituted))
	for i, t := range substituted {
		tokens[i] = Token{Kind: t.kind, Text: t.text}
	}

	expanded := cs.expandTokens(tokens, nil)
	return evalConstExpr(toRaw(expanded), cs.definedFn())
}

func (cs *CppState) substituteDefined(raws []rawToken) []rawToken {
	var out []rawToken
	i := 0
	for i < len(raws) {
		if raws[i].kind != KindIdent || raws[i].text != "defined" {
			out = append(out, raws[i])
			i++
			continue
		}
		i++
		paren := i < len(raws) && raws[i].text == "("
		if paren {
			i++
		}
		if i >= len(raws) {
			break
		}
		name := raws[i].text
		i++
		if paren && i < len(raws) && raws[i].text == ")" {
			i++
		}
		val := "0"
		if _, ok := cs.macros[name]; ok {
			val = "1"
		}
		out = append(out, rawToken{kind: KindNumber, text: val})
	}
	return out
}

func (cs *CppState) reportDirectiveError(fileHandle intern.Handle, rl rawLine, err error) {
	lineIdx := cs.Store.InternLine(fileHandle, rl.number, rl.text, 0)
	loc := cs.Store.MakeLoc(lineIdx, 0, len(rl.text), srcloc.KindFile, 0)
	cs.Diags.Report(diag.LevelError, cs.Status, cs.Store, cs.Interner, loc, "%s", err.Error())
}

func (cs *CppState) reportDirectiveMessage(fileHandle intern.Handle, rl rawLine, level diag.Level, rest []byte) {
	lineIdx := cs.Store.InternLine(fileHandle, rl.number, rl.text, 0)
	loc := cs.Store.MakeLoc(lineIdx, 0, len(rl.text), srcloc.KindFile, 0)
	cs.Diags.Report(level, cs.Status, cs.Store, cs.Interner, loc, "%s", strings.TrimSpace(string(rest)))
}

// handleDefine parses a #define directive's name, optional parameter list,
// and replacement list, installing the resulting Macro.
func (cs *CppState) handleDefine(fileHandle intern.Handle, rl rawLine, rest []byte) {
	raws := lexLine(rest)
	if len(raws) == 0 || raws[0].kind != KindIdent {
		return
	}
	offset := len(rl.text) - len(rest)
	nameTok := raws[0]
	name := nameTok.text

	lineIdx := cs.Store.InternLine(fileHandle, rl.number, rl.text, 0)
	defLoc := cs.Store.MakeLoc(lineIdx, offset+nameTok.column, len(name), srcloc.KindFile, 0)

	funcLike := len(raws) > 1 &&
		raws[1].kind == KindPunct && raws[1].text == "(" &&
		raws[1].column == nameTok.column+len(name)

	var params []string
	var variadic bool
	bodyStart := 1

	if funcLike {
		i := 2
		for i < len(raws) && !(raws[i].kind == KindPunct && raws[i].text == ")") {
			switch raws[i].text {
			case ",":
			case "...":
				variadic = true
			default:
				params = append(params, raws[i].text)
			}
			i++
		}
		if i < len(raws) {
			i++ // consume ')'
		}
		bodyStart = i
	}

	var body []rawToken
	if bodyStart < len(raws) {
		body = raws[bodyStart:]
	}

	cs.installMacro(name, &Macro{
		Name:         cs.Interner.Intern(name),
		FunctionLike: funcLike,
		Variadic:     variadic,
		Params:       params,
		Body:         body,
		DefLoc:       defLoc,
	})
}

// handleInclude resolves and recursively processes a #include target.
func (cs *CppState) handleInclude(fileHandle intern.Handle, rl rawLine, rest []byte, currentPath string) error {
	target, isSystem, ok := parseIncludeTarget(rest)
	if !ok {
		cs.reportDirectiveError(fileHandle, rl, fmt.Errorf("malformed #include directive"))
		return nil
	}

	resolved, ok := cs.resolveInclude(target, isSystem)
	if !ok {
		cs.reportDirectiveError(fileHandle, rl, fmt.Errorf("cannot find %q in the search path", target))
		return nil
	}

	lineIdx := cs.Store.InternLine(fileHandle, rl.number, rl.text, 0)
	inclLoc := cs.Store.MakeLoc(lineIdx, 0, len(rl.text), srcloc.KindFile, 0)

	if err := cs.processFile(resolved, isSystem, inclLoc); err != nil {
		cs.reportDirectiveError(fileHandle, rl, err)
	}
	return nil
}

// parseIncludeTarget extracts the quoted or angle-bracketed filename from
// a #include directive's remainder.
func parseIncludeTarget(rest []byte) (target string, isSystem bool, ok bool) {
	i := 0
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
		i++
	}
	if i >= len(rest) {
		return "", false, false
	}

	switch rest[i] {
	case '"':
		j := i + 1
		for j < len(rest) && rest[j] != '"' {
			j++
		}
		if j >= len(rest) {
			return "", false, false
		}
		return string(rest[i+1 : j]), false, true

	case '<':
		j := i + 1
		for j < len(rest) && rest[j] != '>' {
			j++
		}
		if j >= len(rest) {
			return "", false, false
		}
		return string(rest[i+1 : j]), true, true

	default:
		return "", false, false
	}
}

// resolveInclude searches the own-directory stack (for "..." includes
// only; <...> skips it), then the user paths in their given order, then
// the configured system paths.
func (cs *CppState) resolveInclude(target string, isSystem bool) (string, bool) {
	if !isSystem && len(cs.dirs) > 0 {
		candidate := filepath.Join(cs.dirs[len(cs.dirs)-1], target)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	for _, root := range cs.UserPaths {
		candidate := filepath.Join(root, target)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	for _, root := range cs.SystemPaths {
		candidate := filepath.Join(root, target)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// handlePragma recognizes "#pragma once"; anything else is ignored.
func (cs *CppState) handlePragma(rest []byte, currentPath string) {
	raws := lexLine(rest)
	if len(raws) > 0 && raws[0].text == "once" {
		if abs, err := filepath.Abs(currentPath); err == nil {
			cs.once[abs] = true
		}
	}
}
