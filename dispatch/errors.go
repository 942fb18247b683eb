package dispatch

import (
	"fmt"
	"strings"

	"github.com/chazu/dispatchgen/header"
)

// ConfigError reports missing or invalid required input. It is detected
// before any processing.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// UnresolvedSymbolError reports a type name missing from the extracted
// symbols. Known lists every resolved name, sorted.
type UnresolvedSymbolError struct {
	Name  string
	Known []string
	// Unsupported is set when the name was declared with a value that is
	// not a literal.
	Unsupported *header.Unsupported
}

func (e *UnresolvedSymbolError) Error() string {
	var b strings.Builder
	if e.Unsupported != nil {
		fmt.Fprintf(&b, "type %s has an unsupported value", e.Name)
		if e.Unsupported.Expr != "" {
			fmt.Fprintf(&b, " %q", e.Unsupported.Expr)
		}
		fmt.Fprintf(&b, " (line %d: %s)", e.Unsupported.Line, e.Unsupported.Reason)
	} else {
		fmt.Fprintf(&b, "type %s not found", e.Name)
	}
	if len(e.Known) == 0 {
		b.WriteString("; no symbols were resolved")
	} else {
		fmt.Fprintf(&b, "; known symbols: %s", strings.Join(e.Known, ", "))
	}
	return b.String()
}

// CountMismatchError reports type and handler lists of different lengths.
type CountMismatchError struct {
	Types    int
	Handlers int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("type count (%d) does not match handler count (%d)", e.Types, e.Handlers)
}

// VerifyError reports an entry that a lookup on the built table did not
// find where the builder placed it.
type VerifyError struct {
	Name   string
	Key    uint32
	Detail string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify %s (key %d): %s", e.Name, e.Key, e.Detail)
}
