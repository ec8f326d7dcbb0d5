package cparse

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/cuikgo/internal/cerr"
	"github.com/standardbeagle/cuikgo/internal/preprocessor"
)

// Parse consumes every token in ts and returns the top-level declarations
// it recognizes, in source order. It is deliberately narrow: it tracks
// storage-class keywords, the declarator name, and a function's declared
// parameter names, skipping everything else (type tokens, pointer stars,
// array brackets, parameter types, function bodies) as opaque spans.
func Parse(ts *preprocessor.TokenStream) ([]Decl, error) {
	toks := ts.Tokens
	var decls []Decl

	i := 0
	for i < len(toks) {
		if toks[i].IsPunct(";") {
			// Stray top-level semicolon; harmless, consume and continue.
			i++
			continue
		}

		d, next, err := parseOneDecl(toks, i)
		if err != nil {
			return decls, err
		}
		if d != nil {
			decls = append(decls, *d)
		}
		i = next
	}

	return decls, nil
}

// parseOneDecl scans one top-level declaration starting at i and returns
// it (nil if the span held no name, e.g. a bare struct tag), the index of
// the first unconsumed token, and an error if a paren/brace never closes.
func parseOneDecl(toks []preprocessor.Token, i int) (*Decl, int, error) {
	var attrs Attr
	var typeParts []string
	var params []string
	var nameTok preprocessor.Token
	haveName := false
	isFunction := false

	for i < len(toks) {
		t := toks[i]

		switch {
		case t.Kind == preprocessor.KindIdent:
			if bit, ok := attrKeyword(t.Text); ok {
				attrs |= bit
				i++
				continue
			}
			if haveName {
				// Previous identifier was part of the type, not the name.
				typeParts = append(typeParts, nameTok.Text)
			}
			nameTok = t
			haveName = true
			i++

		case t.IsPunct("("):
			end, err := skipMatched(toks, i, "(", ")")
			if err != nil {
				return nil, i, err
			}
			if !isFunction {
				params = paramNames(toks[i+1 : end-1])
			}
			isFunction = true
			i = end

		case t.IsPunct("{"):
			end, err := skipMatched(toks, i, "{", "}")
			if err != nil {
				return nil, i, err
			}
			i = end
			return finishDecl(attrs, typeParts, params, nameTok, haveName, isFunction), i, nil

		case t.IsPunct(";"):
			i++
			return finishDecl(attrs, typeParts, params, nameTok, haveName, isFunction), i, nil

		default:
			// Pointer stars, array brackets, qualifiers, numeric initializers
			// and the like: not needed to classify the declarator.
			i++
		}
	}

	// Ran off the end without a terminator; report whatever was gathered
	// rather than silently dropping a trailing declaration.
	return finishDecl(attrs, typeParts, params, nameTok, haveName, isFunction), i, nil
}

func finishDecl(attrs Attr, typeParts, params []string, nameTok preprocessor.Token, haveName, isFunction bool) *Decl {
	if !haveName {
		return nil
	}
	op := OpGlobalDecl
	if isFunction {
		op = OpFuncDecl
	}
	return &Decl{
		Op:      op,
		Name:    nameTok.Text,
		TypeRef: strings.Join(typeParts, " "),
		Params:  params,
		Attrs:   attrs,
		Loc:     nameTok.Loc,
	}
}

// paramTypeWords are spellings that cannot be a parameter's name. When a
// group's trailing identifier is one of these the parameter is unnamed
// (prototype style).
var paramTypeWords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true,
	"_Bool": true, "const": true, "volatile": true, "restrict": true,
	"struct": true, "union": true, "enum": true,
}

// paramNames extracts the declared parameter names from span, the tokens
// between a parameter list's outer parens, splitting on top-level commas.
// Unnamed parameters contribute no entry.
func paramNames(span []preprocessor.Token) []string {
	var names []string
	var group []preprocessor.Token
	depth := 0

	flush := func() {
		if name := groupParamName(group); name != "" {
			names = append(names, name)
		}
		group = nil
	}

	for _, t := range span {
		switch {
		case t.IsPunct("(") || t.IsPunct("["):
			depth++
		case t.IsPunct(")") || t.IsPunct("]"):
			depth--
		case t.IsPunct(",") && depth == 0:
			flush()
			continue
		}
		group = append(group, t)
	}
	flush()
	return names
}

// groupParamName finds one parameter's declared name: the identifier
// after a "(*" for function-pointer declarators, otherwise the last
// identifier outside any nesting — unless that identifier is a type or
// qualifier keyword, in which case the parameter is unnamed.
func groupParamName(group []preprocessor.Token) string {
	for i := 0; i+1 < len(group); i++ {
		if group[i].IsPunct("(") && group[i+1].IsPunct("*") {
			for j := i + 2; j < len(group); j++ {
				if group[j].Kind == preprocessor.KindIdent {
					return group[j].Text
				}
			}
		}
	}

	depth := 0
	name := ""
	for _, t := range group {
		switch {
		case t.IsPunct("(") || t.IsPunct("["):
			depth++
		case t.IsPunct(")") || t.IsPunct("]"):
			depth--
		case t.Kind == preprocessor.KindIdent && depth == 0:
			name = t.Text
		}
	}
	if paramTypeWords[name] {
		return ""
	}
	return name
}

// skipMatched returns the index just past the close token matching the
// open token at toks[i] (toks[i] itself must be open), tracking nesting
// depth so e.g. "(int (*f)(int))" skips correctly.
func skipMatched(toks []preprocessor.Token, i int, open, close string) (int, error) {
	depth := 0
	for ; i < len(toks); i++ {
		switch {
		case toks[i].IsPunct(open):
			depth++
		case toks[i].IsPunct(close):
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return i, cerr.New(cerr.KindSyntax, "cparse.skipMatched",
		fmt.Errorf("unterminated %q starting before end of token stream", open))
}
