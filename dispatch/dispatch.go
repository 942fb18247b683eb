// Package dispatch runs the generator pipeline: extract symbols from a
// declaration source, resolve the requested types, build the table and emit
// it. Each stage runs only when the previous one fully succeeded.
package dispatch

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chazu/dispatchgen/emit"
	"github.com/chazu/dispatchgen/header"
	"github.com/chazu/dispatchgen/table"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("dispatchgen.dispatch")

const (
	// DefaultCapacity is the table size used when none is configured.
	DefaultCapacity = 32
	// MaxCapacity bounds the table size; generated tables are static data.
	MaxCapacity = 1 << 16
)

// Options configures one generator run.
type Options struct {
	// Header is the path of the declaration source.
	Header string
	// Types and Handlers are parallel lists; Handlers[i] handles Types[i].
	Types    []string
	Handlers []string

	Capacity uint32
	// EnumPrefix restricts extracted symbols to names with this prefix.
	EnumPrefix string

	Target  string
	Naming  emit.Naming
	Package string // Go target only

	// Check verifies every lookup on the built table before anything is
	// emitted.
	Check bool
}

// DefaultOptions returns options with the built-in defaults.
func DefaultOptions() Options {
	return Options{
		Capacity: DefaultCapacity,
		Target:   emit.DefaultTarget,
		Naming:   emit.Naming{}.WithDefaults(),
		Package:  emit.DefaultGoPackage,
	}
}

// Validate checks the options without touching the filesystem.
func (o *Options) Validate() error {
	if len(o.Types) == 0 {
		return &ConfigError{Field: "types", Reason: "no packet types given"}
	}
	if len(o.Handlers) == 0 {
		return &ConfigError{Field: "handlers", Reason: "no handlers given"}
	}
	if o.Header == "" {
		return &ConfigError{Field: "header", Reason: "no declaration source given"}
	}
	if len(o.Types) != len(o.Handlers) {
		return &CountMismatchError{Types: len(o.Types), Handlers: len(o.Handlers)}
	}
	for i, h := range o.Handlers {
		if strings.TrimSpace(h) == "" {
			return &ConfigError{Field: "handlers", Reason: fmt.Sprintf("handler %d is empty", i)}
		}
	}
	if o.Capacity == 0 {
		return &ConfigError{Field: "table_size", Reason: "must be greater than zero"}
	}
	if o.Capacity > MaxCapacity {
		return &ConfigError{Field: "table_size", Reason: fmt.Sprintf("%d exceeds the maximum of %d", o.Capacity, MaxCapacity)}
	}
	if o.Target != "" {
		if _, err := emit.LookupTarget(o.Target); err != nil {
			return &ConfigError{Field: "target", Reason: err.Error()}
		}
	}
	return nil
}

// Result is a built table together with everything that produced it.
type Result struct {
	Symbols  *header.Symbols
	Entries  []table.Entry
	Handlers []string
	Table    *table.Table
	Stats    emit.Stats
}

// Build runs the extract, resolve and build stages.
func Build(opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	syms, err := header.ExtractFile(opts.Header, header.Options{Prefix: opts.EnumPrefix})
	if err != nil {
		return nil, err
	}
	for _, u := range syms.Unsupported {
		log.Infof("%s:%d: %s not resolved: %s", opts.Header, u.Line, u.Name, u.Reason)
	}

	entries, err := Resolve(syms, opts.Types)
	if err != nil {
		return nil, err
	}

	t, err := table.Build(entries, opts.Capacity)
	if err != nil {
		return nil, err
	}

	handlers := make([]string, len(opts.Handlers))
	for i, h := range opts.Handlers {
		handlers[i] = strings.TrimSpace(h)
	}

	r := &Result{
		Symbols:  syms,
		Entries:  entries,
		Handlers: handlers,
		Table:    t,
		Stats:    emit.StatsOf(t),
	}
	log.Debugf("built table: %s", r.Stats)
	return r, nil
}

// Resolve maps type names to table entries. Entry i gets handler index i.
func Resolve(syms *header.Symbols, types []string) ([]table.Entry, error) {
	entries := make([]table.Entry, len(types))
	for i, raw := range types {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, &ConfigError{Field: "types", Reason: fmt.Sprintf("type %d is empty", i)}
		}
		key, ok := syms.Lookup(name)
		if !ok {
			err := &UnresolvedSymbolError{Name: name, Known: syms.Names()}
			if u, bad := syms.UnsupportedReason(name); bad {
				err.Unsupported = &u
			}
			return nil, err
		}
		entries[i] = table.Entry{Name: name, Key: key, HandlerIdx: uint32(i)}
	}
	return entries, nil
}

// verifyResult is replaced in tests.
var verifyResult = Verify

// Generate builds the table and writes the rendered target to w. Nothing
// is written to w unless every stage succeeds, including the check when
// opts.Check is set.
func Generate(w io.Writer, opts Options) (*Result, error) {
	r, err := Build(opts)
	if err != nil {
		return nil, err
	}
	if opts.Check {
		if err := verifyResult(r); err != nil {
			return nil, err
		}
	}

	target := opts.Target
	if target == "" {
		target = emit.DefaultTarget
	}
	var buf bytes.Buffer
	err = emit.Emit(&buf, target, &emit.Input{
		Table:    r.Table,
		Handlers: r.Handlers,
		Naming:   opts.Naming,
		Source:   filepath.Base(opts.Header),
		Package:  opts.Package,
	})
	if err != nil {
		return nil, err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	return r, nil
}
