package preprocessor

import "unicode"

// rawLine is one physical source line with a trailing-backslash splice
// already resolved (logical-line text) and its original 1-based physical
// line number, matching the spliced-then-lexed pipeline a real C
// preprocessor uses.
type rawLine struct {
	number int
	text   []byte
}

// splitLogicalLines splits raw file content into logical lines: physical
// lines are joined when a line ends in a backslash (line continuation),
// and comments are blanked to spaces byte-for-byte by stripComments, so
// token boundaries and column offsets survive. A block comment spanning
// several physical lines leaves each of them as its own (blanked) line.
func splitLogicalLines(content []byte) []rawLine {
	physical := splitPhysical(content)
	var out []rawLine

	inBlockComment := false
	i := 0
	for i < len(physical) {
		var buf []byte
		lineNo := physical[i].number

		for {
			line := stripComments(physical[i].text, &inBlockComment)
			trimmed := trimTrailingCR(line)

			if len(trimmed) > 0 && trimmed[len(trimmed)-1] == '\\' && !inBlockComment {
				buf = append(buf, trimmed[:len(trimmed)-1]...)
				i++
				if i >= len(physical) {
					break
				}
				continue
			}

			buf = append(buf, trimmed...)
			i++
			break
		}

		out = append(out, rawLine{number: lineNo, text: buf})
	}

	return out
}

func splitPhysical(content []byte) []rawLine {
	var lines []rawLine
	start := 0
	lineNo := 1
	for idx := 0; idx < len(content); idx++ {
		if content[idx] == '\n' {
			lines = append(lines, rawLine{number: lineNo, text: content[start:idx]})
			start = idx + 1
			lineNo++
		}
	}
	if start < len(content) {
		lines = append(lines, rawLine{number: lineNo, text: content[start:]})
	}
	return lines
}

func trimTrailingCR(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}
	return b
}

// stripComments removes "//" line comments and blanks out "/* ... */"
// content (tracking state across lines via inBlockComment), preserving
// byte offsets so columns stay accurate.
func stripComments(line []byte, inBlockComment *bool) []byte {
	out := make([]byte, len(line))
	copy(out, line)

	i := 0
	for i < len(out) {
		if *inBlockComment {
			if i+1 < len(out) && out[i] == '*' && out[i+1] == '/' {
				out[i] = ' '
				out[i+1] = ' '
				*inBlockComment = false
				i += 2
				continue
			}
			out[i] = ' '
			i++
			continue
		}

		if i+1 < len(out) && out[i] == '/' && out[i+1] == '/' {
			for j := i; j < len(out); j++ {
				out[j] = ' '
			}
			break
		}

		if i+1 < len(out) && out[i] == '/' && out[i+1] == '*' {
			out[i] = ' '
			out[i+1] = ' '
			*inBlockComment = true
			i += 2
			continue
		}

		// skip over string/char literals so '/' inside them isn't mistaken
		// for a comment start
		if out[i] == '"' || out[i] == '\'' {
			quote := out[i]
			j := i + 1
			for j < len(out) {
				if out[j] == '\\' && j+1 < len(out) {
					j += 2
					continue
				}
				if out[j] == quote {
					j++
					break
				}
				j++
			}
			i = j
			continue
		}

		i++
	}

	return out
}

// rawToken is a lexed token before it has been assigned a SourceLoc.
type rawToken struct {
	kind   Kind
	text   string
	column int
}

// lexLine tokenizes one logical line's text into rawTokens.
func lexLine(text []byte) []rawToken {
	var toks []rawToken
	i := 0
	n := len(text)

	isIdentStart := func(b byte) bool {
		return b == '_' || unicode.IsLetter(rune(b))
	}
	isIdentCont := func(b byte) bool {
		return b == '_' || unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b))
	}

	for i < n {
		b := text[i]

		if b == ' ' || b == '\t' {
			i++
			continue
		}

		start := i

		switch {
		case isIdentStart(b):
			for i < n && isIdentCont(text[i]) {
				i++
			}
			toks = append(toks, rawToken{kind: KindIdent, text: string(text[start:i]), column: start})

		case b >= '0' && b <= '9':
			for i < n && (isIdentCont(text[i]) || text[i] == '.') {
				i++
			}
			toks = append(toks, rawToken{kind: KindNumber, text: string(text[start:i]), column: start})

		case b == '"':
			i++
			for i < n && text[i] != '"' {
				if text[i] == '\\' && i+1 < n {
					i++
				}
				i++
			}
			if i < n {
				i++
			}
			toks = append(toks, rawToken{kind: KindString, text: string(text[start:i]), column: start})

		case b == '\'':
			i++
			for i < n && text[i] != '\'' {
				if text[i] == '\\' && i+1 < n {
					i++
				}
				i++
			}
			if i < n {
				i++
			}
			toks = append(toks, rawToken{kind: KindChar, text: string(text[start:i]), column: start})

		default:
			i += lexPunct(text[i:])
			toks = append(toks, rawToken{kind: KindPunct, text: string(text[start:i]), column: start})
		}
	}

	return toks
}

var multiCharPuncts = []string{
	"...", "##",
	"<<=", ">>=",
	"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=",
	"&&", "||", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "::",
}

// lexPunct returns the byte-length of the punctuation token starting at s.
func lexPunct(s []byte) int {
	for _, p := range multiCharPuncts {
		if len(s) >= len(p) && string(s[:len(p)]) == p {
			return len(p)
		}
	}
	return 1
}
