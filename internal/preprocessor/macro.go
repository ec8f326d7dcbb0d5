package preprocessor

import (
	"strings"

	"github.com/standardbeagle/cuikgo/internal/intern"
	"github.com/standardbeagle/cuikgo/internal/srcloc"
)

// Macro is a #define binding.
type Macro struct {
	Name         intern.Handle
	FunctionLike bool
	Variadic     bool
	Params       []string
	Body         []rawToken
	DefLoc       srcloc.LocIndex
}

// MacroDef is one (key, value, location) triple yielded by ForDefines.
type MacroDef struct {
	Key      string
	Value    string
	Location srcloc.LocIndex
}

// bodyText renders a macro's replacement list back to source-ish text, used
// for ForDefines and for diagnostics that quote a macro's value.
func bodyText(body []rawToken) string {
	var b strings.Builder
	for i, t := range body {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.text)
	}
	return b.String()
}

// paramIndex returns the index of name within params, or -1.
func paramIndex(params []string, name string) int {
	for i, p := range params {
		if p == name {
			return i
		}
	}
	return -1
}

// substituteAndPaste performs parameter substitution (using expanded
// argument tokens, except where the raw argument is required for # or the
// operands of ##) followed by ## pasting. The companion recursion guard
// lives in expandTokens.
func substituteAndPaste(m *Macro, rawArgs, expArgs [][]rawToken, variadicRaw []rawToken, variadicExp []rawToken) []rawToken {
	// First pass: expand parameter references (and `#param`) into a flat
	// list of "parts", remembering which parts came from raw vs. expanded
	// substitution so ## can re-glue raw text.
	type part struct {
		tok     rawToken
		rawText string // non-empty when this part is a pastable operand
	}

	var parts []part
	body := m.Body
	for i := 0; i < len(body); i++ {
		tok := body[i]

		if tok.kind == KindPunct && tok.text == "#" && m.FunctionLike && i+1 < len(body) {
			next := body[i+1]
			if next.text == "__VA_ARGS__" && m.Variadic {
				parts = append(parts, part{tok: rawToken{kind: KindString, text: stringize(variadicRaw)}})
				i++
				continue
			}
			if idx := paramIndex(m.Params, next.text); idx >= 0 && idx < len(rawArgs) {
				parts = append(parts, part{tok: rawToken{kind: KindString, text: stringize(rawArgs[idx])}})
				i++
				continue
			}
		}

		if tok.text == "__VA_ARGS__" && m.Variadic {
			for _, a := range variadicExp {
				parts = append(parts, part{tok: a})
			}
			if len(variadicRaw) > 0 {
				parts[len(parts)-1].rawText = variadicRaw[len(variadicRaw)-1].text
			}
			continue
		}

		if idx := paramIndex(m.Params, tok.text); idx >= 0 && m.FunctionLike && idx < len(expArgs) {
			for j, a := range expArgs[idx] {
				p := part{tok: a}
				if j == len(expArgs[idx])-1 && len(rawArgs[idx]) > 0 {
					p.rawText = rawArgs[idx][len(rawArgs[idx])-1].text
				}
				parts = append(parts, p)
			}
			continue
		}

		parts = append(parts, part{tok: tok, rawText: tok.text})
	}

	// Second pass: resolve "##" by gluing the raw text of its neighbors.
	var out []rawToken
	for i := 0; i < len(parts); i++ {
		if parts[i].tok.kind == KindPunct && parts[i].tok.text == "##" && i > 0 && i+1 < len(parts) {
			left := out[len(out)-1]
			leftText := parts[i-1].rawText
			if leftText == "" {
				leftText = left.text
			}
			rightText := parts[i+1].rawText
			if rightText == "" {
				rightText = parts[i+1].tok.text
			}
			glued := leftText + rightText
			out[len(out)-1] = gluedToken(glued)
			i++ // skip the right operand, already consumed
			continue
		}
		out = append(out, parts[i].tok)
	}

	return out
}

// gluedToken re-lexes a pasted token's text. A well-formed paste produces
// exactly one token; if it doesn't, the paste "fails" and we fall back to
// a single punctuation-kind token carrying the raw glued text
// so the stream still advances. No diagnostic is reported for a failed
// paste.
func gluedToken(text string) rawToken {
	toks := lexLine([]byte(text))
	if len(toks) == 1 {
		return rawToken{kind: toks[0].kind, text: toks[0].text}
	}
	return rawToken{kind: KindPunct, text: text}
}

// stringize renders raw tokens as a single C string literal, escaping
// backslashes and quotes.
func stringize(toks []rawToken) string {
	var raw strings.Builder
	for i, t := range toks {
		if i > 0 {
			raw.WriteByte(' ')
		}
		raw.WriteString(t.text)
	}

	var out strings.Builder
	out.WriteByte('"')
	for _, r := range raw.String() {
		if r == '\\' || r == '"' {
			out.WriteByte('\\')
		}
		out.WriteRune(r)
	}
	out.WriteByte('"')
	return out.String()
}
