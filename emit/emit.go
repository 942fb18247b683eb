// Package emit renders built dispatch tables as source code or binary
// images.
//
// Every source target produces the same five elements: a capacity
// constant, a handler array in entry input order, an entry record type, the
// table indexed by slot, and a lookup function that walks the same probe
// sequence table.Build used. Naming is fully parameterised and never changes
// behaviour.
package emit

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chazu/dispatchgen/table"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("dispatchgen.emit")

// Default names, matching the C conventions of the packet headers the tool
// was written for.
const (
	DefaultTableName    = "dispatch_hash"
	DefaultHandlerArray = "dispatch_handlers"
	DefaultEntryType    = "dispatch_entry_t"
	DefaultHandlerType  = "packet_handler_t"
	DefaultKeyType      = "packet_type_t"
	DefaultGoPackage    = "dispatch"
)

// Naming holds every user-visible identifier of the generated code.
type Naming struct {
	TableName    string
	HandlerArray string
	EntryType    string
	HandlerType  string
	KeyType      string
	// Prefix is prepended to generated constants and the lookup function.
	Prefix string
}

// WithDefaults fills empty names with their defaults.
func (n Naming) WithDefaults() Naming {
	if n.TableName == "" {
		n.TableName = DefaultTableName
	}
	if n.HandlerArray == "" {
		n.HandlerArray = DefaultHandlerArray
	}
	if n.EntryType == "" {
		n.EntryType = DefaultEntryType
	}
	if n.HandlerType == "" {
		n.HandlerType = DefaultHandlerType
	}
	if n.KeyType == "" {
		n.KeyType = DefaultKeyType
	}
	return n
}

// Input is everything an emitter needs.
type Input struct {
	Table *table.Table
	// Handlers holds the handler reference for each handler index.
	Handlers []string
	Naming   Naming
	// Source names the declaration file, for the generated banner.
	Source string
	// Package is the package clause of Go output.
	Package string
}

func (in *Input) validate() error {
	if in.Table == nil {
		return errors.New("emit: no table")
	}
	if len(in.Handlers) == 0 {
		return errors.New("emit: no handlers")
	}
	for i, s := range in.Table.Slots {
		if s.Occupied && int(s.HandlerIdx) >= len(in.Handlers) {
			return fmt.Errorf("emit: slot %d refers to handler %d but only %d handlers are defined",
				i, s.HandlerIdx, len(in.Handlers))
		}
	}
	return nil
}

// useOccupiedFlag reports whether the table needs an explicit validity flag
// because key 0 is a real key and cannot mark empty slots.
func (in *Input) useOccupiedFlag() bool {
	return in.Table.HasZeroKey()
}

// slotComment describes how an occupied slot was reached.
func slotComment(s table.Slot, slot, capacity uint32) string {
	home := table.Home(s.Key, capacity)
	c := fmt.Sprintf("hash(%d)=%d", s.Key, home)
	if home != slot {
		c += fmt.Sprintf(", probed->%d", slot)
	}
	return c
}

// indexBits returns the width of the smallest unsigned type that holds every
// handler index.
func indexBits(handlers int) int {
	switch {
	case handlers <= 1<<8:
		return 8
	case handlers <= 1<<16:
		return 16
	default:
		return 32
	}
}

////////////////////////////////////////////////////////////////

// Emitter writes one target representation of a table.
type Emitter interface {
	Emit(w io.Writer, in *Input) error
}

// Target describes a registered emitter.
type Target struct {
	Name    string
	Binary  bool
	Emitter Emitter
}

var targets = map[string]Target{
	"c":    {Name: "c", Emitter: CEmitter{}},
	"go":   {Name: "go", Emitter: GoEmitter{}},
	"cbor": {Name: "cbor", Binary: true, Emitter: ImageEmitter{}},
}

// DefaultTarget is the target used when none is configured.
const DefaultTarget = "c"

// LookupTarget returns the registered target called name.
func LookupTarget(name string) (Target, error) {
	t, ok := targets[name]
	if !ok {
		return Target{}, fmt.Errorf("unknown target %q (available: %s)", name, strings.Join(TargetNames(), ", "))
	}
	return t, nil
}

// TargetNames returns the registered target names, sorted.
func TargetNames() []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Emit validates in and renders it with the named target.
func Emit(w io.Writer, target string, in *Input) error {
	t, err := LookupTarget(target)
	if err != nil {
		return err
	}
	if err := in.validate(); err != nil {
		return err
	}
	log.Debugf("emitting %s target: %d slots, %d handlers", t.Name, in.Table.Capacity, len(in.Handlers))
	return t.Emitter.Emit(w, in)
}
