// Package header extracts integer constants from C declaration source.
//
// Two declaration forms are understood: enumerators and object-like
// #define macros. A value is accepted only when it is a decimal or
// hexadecimal literal (or an enumerator without an initializer that follows
// one). Anything else is reported as unsupported instead of being evaluated,
// so a symbol either resolves to the value written in the source or does not
// resolve at all.
package header

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("dispatchgen.header")

// Symbol is a name resolved to an integer value.
type Symbol struct {
	Name  string
	Value uint32
	Line  int
}

// Unsupported is a declaration that was seen but whose value is not a
// literal.
type Unsupported struct {
	Name   string
	Expr   string
	Reason string
	Line   int
}

// Options controls extraction.
type Options struct {
	// Prefix restricts extraction to names starting with it. Empty means
	// every name.
	Prefix string
}

// Symbols is the result of extraction.
type Symbols struct {
	// Defined holds resolved symbols in declaration order.
	Defined []Symbol
	// Unsupported holds declarations that could not be resolved, in
	// declaration order.
	Unsupported []Unsupported

	defined     map[string]int
	unsupported map[string]int
}

func newSymbols() *Symbols {
	return &Symbols{
		defined:     make(map[string]int),
		unsupported: make(map[string]int),
	}
}

// Lookup returns the value of name.
func (s *Symbols) Lookup(name string) (uint32, bool) {
	i, ok := s.defined[name]
	if !ok {
		return 0, false
	}
	return s.Defined[i].Value, true
}

// UnsupportedReason returns the unsupported record for name, if any.
func (s *Symbols) UnsupportedReason(name string) (Unsupported, bool) {
	i, ok := s.unsupported[name]
	if !ok {
		return Unsupported{}, false
	}
	return s.Unsupported[i], true
}

// Len returns the number of resolved symbols.
func (s *Symbols) Len() int {
	return len(s.Defined)
}

// Names returns the resolved symbol names sorted alphabetically.
func (s *Symbols) Names() []string {
	names := make([]string, 0, len(s.Defined))
	for _, sym := range s.Defined {
		names = append(names, sym.Name)
	}
	sort.Strings(names)
	return names
}

// ByValue returns the resolved symbols sorted by value, then name.
func (s *Symbols) ByValue() []Symbol {
	out := make([]Symbol, len(s.Defined))
	copy(out, s.Defined)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value < out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *Symbols) define(name string, value uint32, line int) {
	if _, bad := s.unsupported[name]; bad {
		return
	}
	if i, ok := s.defined[name]; ok {
		prev := s.Defined[i]
		if prev.Value == value {
			return
		}
		// Conflicting definitions: drop the name rather than pick one.
		s.removeDefined(name)
		s.markUnsupported(Unsupported{
			Name:   name,
			Reason: fmt.Sprintf("conflicting definitions %d (line %d) and %d (line %d)", prev.Value, prev.Line, value, line),
			Line:   line,
		})
		return
	}
	s.defined[name] = len(s.Defined)
	s.Defined = append(s.Defined, Symbol{Name: name, Value: value, Line: line})
}

func (s *Symbols) markUnsupported(u Unsupported) {
	if _, ok := s.defined[u.Name]; ok {
		s.removeDefined(u.Name)
	}
	if _, ok := s.unsupported[u.Name]; ok {
		return
	}
	s.unsupported[u.Name] = len(s.Unsupported)
	s.Unsupported = append(s.Unsupported, u)
}

func (s *Symbols) removeDefined(name string) {
	i := s.defined[name]
	s.Defined = append(s.Defined[:i], s.Defined[i+1:]...)
	delete(s.defined, name)
	for j := i; j < len(s.Defined); j++ {
		s.defined[s.Defined[j].Name] = j
	}
}

////////////////////////////////////////////////////////////////

// ExtractFile reads path and extracts its symbols.
func ExtractFile(path string, opts Options) (*Symbols, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	syms, err := Extract(src, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("%s: %d symbols, %d unsupported", path, syms.Len(), len(syms.Unsupported))
	return syms, nil
}

// Extract finds enumerators and object-like macros in src.
func Extract(src []byte, opts Options) (*Symbols, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	e := &extractor{
		src:  src,
		toks: toks,
		opts: opts,
		syms: newSymbols(),
	}
	e.run()
	return e.syms, nil
}

// tokenize returns the significant tokens of src.
func tokenize(src []byte) ([]Token, error) {
	l := NewLexer(src)
	var toks []Token
	for {
		offset := l.Offset()
		tt, data := l.Next()
		switch tt {
		case ErrorToken:
			if err := l.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			return toks, nil
		case WhitespaceToken, LineTerminatorToken, CommentToken:
			continue
		}
		toks = append(toks, Token{Type: tt, Data: data, Offset: offset})
	}
}

type extractor struct {
	src  []byte
	toks []Token
	pos  int
	opts Options
	syms *Symbols
}

func (e *extractor) run() {
	for e.pos < len(e.toks) {
		t := e.toks[e.pos]
		e.pos++
		switch {
		case t.Type == DirectiveToken:
			e.directive(t)
		case t.IsIdent("enum"):
			e.enum()
		}
	}
}

func (e *extractor) peek() (Token, bool) {
	if e.pos >= len(e.toks) {
		return Token{}, false
	}
	return e.toks[e.pos], true
}

// enum handles everything after the enum keyword: an optional tag, an
// optional underlying type, and the enumerator list.
func (e *extractor) enum() {
	for {
		t, ok := e.peek()
		if !ok {
			return
		}
		if t.Is('{') {
			e.pos++
			e.enumBody()
			return
		}
		if t.Type != IdentifierToken && !t.Is(':') {
			return
		}
		e.pos++
	}
}

func (e *extractor) enumBody() {
	next, known := uint64(0), true
	for {
		t, ok := e.peek()
		if !ok {
			return
		}
		e.pos++

		switch {
		case t.Is('}'):
			return
		case t.Type == DirectiveToken:
			e.directive(t)
			continue
		case t.Type != IdentifierToken:
			continue
		}

		name := string(t.Data)
		line := e.line(t.Offset)

		if eq, ok := e.peek(); ok && eq.Is('=') {
			e.pos++
			expr := e.expression()
			v, err := ParseLiteral(expr)
			if err != nil {
				e.unsupported(name, expr, err.Error(), line)
				known = false
				continue
			}
			e.define(name, v, line)
			next, known = uint64(v)+1, true
			continue
		}

		switch {
		case !known:
			e.unsupported(name, "", "follows an enumerator without a literal value", line)
		case next > math.MaxUint32:
			e.unsupported(name, "", errOutOfRange.Error(), line)
			known = false
		default:
			e.define(name, uint32(next), line)
			next++
		}
	}
}

// expression consumes an enumerator initializer up to the next top-level
// comma or closing brace and returns its source text.
func (e *extractor) expression() string {
	start, end := -1, -1
	depth := 0
	for {
		t, ok := e.peek()
		if !ok {
			break
		}
		if depth == 0 && (t.Is(',') || t.Is('}')) {
			break
		}
		switch {
		case t.Is('(') || t.Is('['):
			depth++
		case t.Is(')') || t.Is(']'):
			depth--
		}
		if start < 0 {
			start = t.Offset
		}
		end = t.End()
		e.pos++
	}
	if start < 0 {
		return ""
	}
	return strings.TrimSpace(string(e.src[start:end]))
}

// directive handles a preprocessor line. Only object-like #define with a
// non-empty body declares a symbol.
func (e *extractor) directive(t Token) {
	body := t.Data[1:]
	toks, err := tokenize(body)
	if err != nil || len(toks) < 3 {
		return
	}
	if !toks[0].IsIdent("define") || toks[1].Type != IdentifierToken {
		return
	}
	name := toks[1]
	if toks[2].Is('(') && toks[2].Offset == name.End() {
		// function-like macro
		return
	}

	values := toks[2:]
	expr := strings.TrimSpace(string(body[values[0].Offset:values[len(values)-1].End()]))
	line := e.line(t.Offset)
	v, err := ParseLiteral(expr)
	if err != nil {
		e.unsupported(string(name.Data), expr, err.Error(), line)
		return
	}
	e.define(string(name.Data), v, line)
}

func (e *extractor) wanted(name string) bool {
	return strings.HasPrefix(name, e.opts.Prefix)
}

func (e *extractor) define(name string, v uint32, line int) {
	if e.wanted(name) {
		e.syms.define(name, v, line)
	}
}

func (e *extractor) unsupported(name, expr, reason string, line int) {
	if !e.wanted(name) {
		return
	}
	log.Debugf("line %d: %s = %q is unsupported: %s", line, name, expr, reason)
	e.syms.markUnsupported(Unsupported{Name: name, Expr: expr, Reason: reason, Line: line})
}

func (e *extractor) line(offset int) int {
	line, _ := Position(e.src, offset)
	return line
}
