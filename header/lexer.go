package header

import (
	"bytes"
	"fmt"

	"github.com/tdewolff/parse/v2/buffer"
)

// SyntaxError reports malformed declaration source, such as a comment or
// string literal that never ends.
type SyntaxError struct {
	Message string
	Line    int
	Column  int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s on line %d and column %d", e.Message, e.Line, e.Column)
}

// Position returns the 1-based line and column of offset in src.
func Position(src []byte, offset int) (line, col int) {
	if offset > len(src) {
		offset = len(src)
	}
	line = 1 + bytes.Count(src[:offset], []byte{'\n'})
	col = offset - bytes.LastIndexByte(src[:offset], '\n')
	return line, col
}

////////////////////////////////////////////////////////////////

// Lexer tokenizes C declaration source: enough of the C lexical grammar to
// find enumerators and object-like macros. Preprocessor directives are
// returned whole, one DirectiveToken per logical line.
type Lexer struct {
	r         *buffer.Lexer
	src       []byte
	err       error
	lineStart bool
}

// NewLexer returns a new Lexer for the given source.
func NewLexer(src []byte) *Lexer {
	return &Lexer{
		r:         buffer.NewLexer(bytes.NewReader(src)),
		src:       src,
		lineStart: true,
	}
}

// Err returns the error encountered during lexing, this is io.EOF at the end
// of the input or a *SyntaxError.
func (l *Lexer) Err() error {
	if l.err != nil {
		return l.err
	}
	return l.r.Err()
}

// Offset returns the current position in the input stream.
func (l *Lexer) Offset() int {
	return l.r.Offset()
}

// Next returns the next Token. It returns ErrorToken at the end of the input
// or when an error was encountered. Using Err() one can retrieve the error.
func (l *Lexer) Next() (TokenType, []byte) {
	lineStart := l.lineStart
	l.lineStart = false

	c := l.r.Peek(0)
	switch c {
	case ' ', '\t', '\v', '\f':
		l.consumeWhitespace()
		l.lineStart = lineStart
		return WhitespaceToken, l.r.Shift()
	case '\n', '\r':
		l.consumeLineTerminator()
		l.lineStart = true
		return LineTerminatorToken, l.r.Shift()
	case '\\':
		if l.consumeLineContinuation() {
			l.lineStart = lineStart
			return WhitespaceToken, l.r.Shift()
		}
	case '/':
		if next := l.r.Peek(1); next == '*' || next == '/' {
			if !l.consumeComment() {
				return ErrorToken, nil
			}
			l.lineStart = lineStart
			return CommentToken, l.r.Shift()
		}
	case '#':
		if lineStart {
			if !l.consumeDirective() {
				return ErrorToken, nil
			}
			return DirectiveToken, l.r.Shift()
		}
	case '"', '\'':
		if !l.consumeQuoted(c, false) {
			return ErrorToken, nil
		}
		return StringToken, l.r.Shift()
	case 0:
		if l.r.Err() != nil {
			return ErrorToken, nil
		}
	default:
		if isIdentStart(c) {
			l.consumeIdentifier()
			return IdentifierToken, l.r.Shift()
		}
		if isDigit(c) || c == '.' && isDigit(l.r.Peek(1)) {
			l.consumeNumeric()
			return NumericToken, l.r.Shift()
		}
	}

	l.r.Move(1)
	return PunctuatorToken, l.r.Shift()
}

////////////////////////////////////////////////////////////////

func (l *Lexer) consumeWhitespace() {
	for {
		c := l.r.Peek(0)
		if c != ' ' && c != '\t' && c != '\v' && c != '\f' {
			return
		}
		l.r.Move(1)
	}
}

func (l *Lexer) consumeLineTerminator() bool {
	c := l.r.Peek(0)
	if c == '\n' {
		l.r.Move(1)
		return true
	} else if c == '\r' {
		if l.r.Peek(1) == '\n' {
			l.r.Move(2)
		} else {
			l.r.Move(1)
		}
		return true
	}
	return false
}

// consumeLineContinuation consumes a backslash immediately followed by a
// line terminator.
func (l *Lexer) consumeLineContinuation() bool {
	if next := l.r.Peek(1); next != '\n' && next != '\r' {
		return false
	}
	l.r.Move(1)
	return l.consumeLineTerminator()
}

func (l *Lexer) consumeComment() bool {
	start := l.r.Offset()
	if l.r.Peek(1) == '/' {
		l.r.Move(2)
		l.consumeLineComment()
		return true
	}

	l.r.Move(2)
	for {
		c := l.r.Peek(0)
		if c == '*' && l.r.Peek(1) == '/' {
			l.r.Move(2)
			return true
		} else if c == 0 && l.r.Err() != nil {
			l.fail("unterminated block comment", start)
			return false
		}
		l.r.Move(1)
	}
}

func (l *Lexer) consumeLineComment() {
	for {
		c := l.r.Peek(0)
		if c == '\n' || c == '\r' || c == 0 && l.r.Err() != nil {
			return
		}
		if c == '\\' && l.consumeLineContinuation() {
			continue
		}
		l.r.Move(1)
	}
}

// consumeQuoted consumes a string or character literal. Inside a directive
// an unterminated literal just ends at the end of the line, since
// #error and #warning take free text.
func (l *Lexer) consumeQuoted(quote byte, lenient bool) bool {
	start := l.r.Offset()
	l.r.Move(1)
	for {
		c := l.r.Peek(0)
		switch {
		case c == quote:
			l.r.Move(1)
			return true
		case c == '\\':
			if l.consumeLineContinuation() {
				continue
			}
			l.r.Move(1)
			if n := l.r.Peek(0); n != 0 && n != '\n' && n != '\r' {
				l.r.Move(1)
			}
		case c == '\n' || c == '\r' || c == 0 && l.r.Err() != nil:
			if lenient {
				return true
			}
			l.fail("unterminated string literal", start)
			return false
		default:
			l.r.Move(1)
		}
	}
}

// consumeDirective consumes a preprocessor directive up to, but not
// including, the line terminator that ends its logical line.
func (l *Lexer) consumeDirective() bool {
	l.r.Move(1)
	for {
		c := l.r.Peek(0)
		switch {
		case c == 0 && l.r.Err() != nil:
			return true
		case c == '\n' || c == '\r':
			return true
		case c == '\\':
			if !l.consumeLineContinuation() {
				l.r.Move(1)
			}
		case c == '/' && (l.r.Peek(1) == '*' || l.r.Peek(1) == '/'):
			if !l.consumeComment() {
				return false
			}
		case c == '"' || c == '\'':
			l.consumeQuoted(c, true)
		default:
			l.r.Move(1)
		}
	}
}

func (l *Lexer) consumeIdentifier() {
	l.r.Move(1)
	for isIdentContinue(l.r.Peek(0)) {
		l.r.Move(1)
	}
}

// consumeNumeric consumes a preprocessing number, which is deliberately
// wider than a valid integer literal: 10u and 1.5e+3 are single tokens.
func (l *Lexer) consumeNumeric() {
	l.r.Move(1)
	for {
		c := l.r.Peek(0)
		if (c == '+' || c == '-') && isExponent(l.r.Peek(-1)) {
			l.r.Move(1)
		} else if isIdentContinue(c) || c == '.' {
			l.r.Move(1)
		} else {
			return
		}
	}
}

func (l *Lexer) fail(msg string, offset int) {
	line, col := Position(l.src, offset)
	l.err = &SyntaxError{Message: msg, Line: line, Column: col}
}

////////////////////////////////////////////////////////////////

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentContinue(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isExponent(c byte) bool {
	return c == 'e' || c == 'E' || c == 'p' || c == 'P'
}
