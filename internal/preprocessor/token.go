package preprocessor

import "github.com/standardbeagle/cuikgo/internal/srcloc"

// Kind classifies a lexical token.
type Kind uint8

const (
	KindEOF Kind = iota
	KindIdent
	KindNumber
	KindString
	KindChar
	KindPunct
)

// Token is a lexical token: its text plus the location it was ultimately
// produced at. Tokens carry their text directly instead of [start,end)
// offsets into the original buffer, trading one allocation per token for
// not needing the buffer to outlive the stream.
type Token struct {
	Kind Kind
	Text string
	Loc  srcloc.LocIndex
}

// IsIdent reports whether t is an identifier with the given text.
func (t Token) IsIdent(text string) bool {
	return t.Kind == KindIdent && t.Text == text
}

// IsPunct reports whether t is punctuation with the given text.
func (t Token) IsPunct(text string) bool {
	return t.Kind == KindPunct && t.Text == text
}

// TokenStream is the preprocessor's output: an ordered token array plus the
// location table it was produced against. Read-only once produced.
type TokenStream struct {
	Tokens   []Token
	Store    *srcloc.Store
	MainFile string
}
