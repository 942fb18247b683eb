package header

import (
	"strconv"
	"testing"

	"github.com/tdewolff/test"
)

func helperStringify(t *testing.T, input string) string {
	s := ""
	l := NewLexer([]byte(input))
	for i := 0; i < 10; i++ {
		tt, data := l.Next()
		if tt == ErrorToken {
			s += tt.String() + "('" + l.Err().Error() + "')"
			break
		} else if tt == WhitespaceToken {
			continue
		} else {
			s += tt.String() + "('" + string(data) + "') "
		}
	}
	return s
}

////////////////////////////////////////////////////////////////

type TTs []TokenType

func TestTokens(t *testing.T) {
	var tokenTests = []struct {
		src      string
		expected []TokenType
	}{
		{" \t\v\f", TTs{}},
		{"\n\r\r\n", TTs{LineTerminatorToken, LineTerminatorToken, LineTerminatorToken}},
		{"5 0x1F 10u 1.5e+3 .5", TTs{NumericToken, NumericToken, NumericToken, NumericToken, NumericToken}},
		{"PACKET_TYPE_PING = 1,", TTs{IdentifierToken, PunctuatorToken, NumericToken, PunctuatorToken}},
		{"/* block */ // line", TTs{CommentToken, CommentToken}},
		{"/* multi\nline */", TTs{CommentToken}},
		{"\"str\\\"ing\" 'c'", TTs{StringToken, StringToken}},
		{"#define FOO 1", TTs{DirectiveToken}},
		{"  #include <stdint.h>\nx", TTs{DirectiveToken, LineTerminatorToken, IdentifierToken}},
		{"#define A \\\n  2\nB", TTs{DirectiveToken, LineTerminatorToken, IdentifierToken}},
		{"#define C /* spans\nlines */ 3\nD", TTs{DirectiveToken, LineTerminatorToken, IdentifierToken}},
		{"#error don't do that\nE", TTs{DirectiveToken, LineTerminatorToken, IdentifierToken}},
		{"x # y", TTs{IdentifierToken, PunctuatorToken, IdentifierToken}},
		{"a\\\nb", TTs{IdentifierToken, IdentifierToken}},
		{"enum { A }", TTs{IdentifierToken, PunctuatorToken, IdentifierToken, PunctuatorToken}},
	}
	for _, tt := range tokenTests {
		t.Run(tt.src, func(t *testing.T) {
			stringify := helperStringify(t, tt.src)
			l := NewLexer([]byte(tt.src))
			i := 0
			for {
				token, _ := l.Next()
				if token == ErrorToken {
					test.That(t, i == len(tt.expected), "when error occurred we must be at the end in "+stringify)
					test.That(t, l.Err().Error() == "EOF", "error must be EOF in "+stringify)
					break
				} else if token == WhitespaceToken {
					continue
				}
				test.That(t, i < len(tt.expected), "index", i, "must not exceed expected token types size", len(tt.expected), "in "+stringify)
				if i < len(tt.expected) {
					test.That(t, token == tt.expected[i], "token types must match at index "+strconv.Itoa(i)+" in "+stringify)
				}
				i++
			}
		})
	}

	test.String(t, TokenType(100).String(), "Invalid(100)")
}

func TestDirectiveLexeme(t *testing.T) {
	l := NewLexer([]byte("#define FOO 0x10 // sixteen\nBAR"))
	tt, data := l.Next()
	test.T(t, tt, DirectiveToken)
	test.String(t, string(data), "#define FOO 0x10 // sixteen")
}

func TestLexerErrors(t *testing.T) {
	var errorTests = []struct {
		src    string
		line   int
		column int
	}{
		{"enum { A = 1 /* never closed", 1, 14},
		{"x\n  \"open string\ny", 2, 3},
	}
	for _, tt := range errorTests {
		t.Run(tt.src, func(t *testing.T) {
			l := NewLexer([]byte(tt.src))
			for {
				token, _ := l.Next()
				if token == ErrorToken {
					break
				}
			}
			err, ok := l.Err().(*SyntaxError)
			test.That(t, ok, "error must be a *SyntaxError, got", l.Err())
			if ok {
				test.T(t, err.Line, tt.line, "line")
				test.T(t, err.Column, tt.column, "column")
			}
		})
	}
}

func TestPosition(t *testing.T) {
	src := []byte("ab\ncd\n\nef")
	var positionTests = []struct {
		offset int
		line   int
		col    int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{3, 2, 1},
		{4, 2, 2},
		{6, 3, 1},
		{7, 4, 1},
		{100, 4, 3},
	}
	for _, tt := range positionTests {
		line, col := Position(src, tt.offset)
		test.T(t, line, tt.line, "line at", tt.offset)
		test.T(t, col, tt.col, "column at", tt.offset)
	}
}
