package header

import "strconv"

// TokenType determines the type of token, eg. an identifier or a directive.
type TokenType uint32

// TokenType values.
const (
	ErrorToken TokenType = iota // extra token when errors occur
	WhitespaceToken
	LineTerminatorToken // \r \n \r\n
	CommentToken        // /* block */ or // line
	IdentifierToken
	NumericToken     // preprocessing number: 12, 0x1F, 10u, 1.5e3
	StringToken      // "string" or 'c'
	PunctuatorToken  // any other single byte
	DirectiveToken   // whole logical line starting with #
)

// String returns the string representation of a TokenType.
func (tt TokenType) String() string {
	switch tt {
	case ErrorToken:
		return "Error"
	case WhitespaceToken:
		return "Whitespace"
	case LineTerminatorToken:
		return "LineTerminator"
	case CommentToken:
		return "Comment"
	case IdentifierToken:
		return "Identifier"
	case NumericToken:
		return "Numeric"
	case StringToken:
		return "String"
	case PunctuatorToken:
		return "Punctuator"
	case DirectiveToken:
		return "Directive"
	}
	return "Invalid(" + strconv.Itoa(int(tt)) + ")"
}

// Token is a significant token together with where it starts in the source.
type Token struct {
	Type   TokenType
	Data   []byte
	Offset int
}

// End returns the offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Data)
}

// Is reports whether t is the punctuator c.
func (t Token) Is(c byte) bool {
	return t.Type == PunctuatorToken && len(t.Data) == 1 && t.Data[0] == c
}

// IsIdent reports whether t is the identifier name.
func (t Token) IsIdent(name string) bool {
	return t.Type == IdentifierToken && string(t.Data) == name
}
