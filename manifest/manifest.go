// Package manifest handles dispatch.toml / dispatch.yaml project
// configuration: a list of table targets, each generating one output file.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chazu/dispatchgen/dispatch"
	"github.com/chazu/dispatchgen/emit"
	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"
)

var log = commonlog.GetLogger("dispatchgen.manifest")

// Filenames lists the manifest names searched for, in order.
var Filenames = []string{"dispatch.toml", "dispatch.yaml", "dispatch.yml"}

// Manifest represents a dispatch.toml project configuration.
type Manifest struct {
	// Defaults apply to every table that leaves a field empty.
	Defaults Target   `toml:"defaults" yaml:"defaults"`
	Tables   []Target `toml:"table" yaml:"table"`

	// Dir is the directory containing the manifest (set at load time).
	// Header and output paths are relative to it.
	Dir string `toml:"-" yaml:"-"`
	// Path is the manifest file itself.
	Path string `toml:"-" yaml:"-"`
}

// Target is one table to generate.
type Target struct {
	Name     string   `toml:"name" yaml:"name" json:"name,omitempty"`
	Header   string   `toml:"header" yaml:"header" json:"header,omitempty"`
	Output   string   `toml:"output" yaml:"output" json:"output,omitempty"`
	Types    []string `toml:"types" yaml:"types" json:"types,omitempty"`
	Handlers []string `toml:"handlers" yaml:"handlers" json:"handlers,omitempty"`

	TableSize  uint32 `toml:"table_size" yaml:"table_size" json:"table_size,omitempty"`
	EnumPrefix string `toml:"enum_prefix" yaml:"enum_prefix" json:"enum_prefix,omitempty"`
	Target     string `toml:"target" yaml:"target" json:"target,omitempty"`
	Package    string `toml:"package" yaml:"package" json:"package,omitempty"`

	Prefix       string `toml:"prefix" yaml:"prefix" json:"prefix,omitempty"`
	TableName    string `toml:"table_name" yaml:"table_name" json:"table_name,omitempty"`
	HandlerArray string `toml:"handler_array" yaml:"handler_array" json:"handler_array,omitempty"`
	EntryType    string `toml:"entry_type" yaml:"entry_type" json:"entry_type,omitempty"`
	HandlerType  string `toml:"handler_type" yaml:"handler_type" json:"handler_type,omitempty"`
	KeyType      string `toml:"key_type" yaml:"key_type" json:"key_type,omitempty"`
}

// Load parses the manifest at path. The format follows the extension:
// .toml, .yaml or .yml, or .json for the single-table legacy format.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse error in %s: unknown key %s", path, undecoded[0])
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	case ".json":
		t, err := ParseLegacy(data)
		if err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
		m.Tables = []Target{t}
	default:
		return nil, fmt.Errorf("%s: unknown manifest format %q", path, filepath.Ext(path))
	}

	m.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	m.Dir = filepath.Dir(m.Path)

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("loaded %s: %d tables", m.Path, len(m.Tables))
	return &m, nil
}

// LoadDir loads the first manifest of Filenames found in dir.
func LoadDir(dir string) (*Manifest, error) {
	if path := findIn(dir); path != "" {
		return Load(path)
	}
	return nil, fmt.Errorf("no %s in %s", strings.Join(Filenames, " or "), dir)
}

// FindAndLoad walks up from startDir to find a manifest file,
// then loads and returns it. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if path := findIn(dir); path != "" {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func findIn(dir string) string {
	for _, name := range Filenames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (m *Manifest) validate() error {
	if len(m.Tables) == 0 {
		return fmt.Errorf("no tables defined")
	}
	if err := ValidateTarget(m.Defaults); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	seen := make(map[string]bool, len(m.Tables))
	for i, t := range m.Tables {
		if err := ValidateTarget(t); err != nil {
			return fmt.Errorf("table %s: %w", tableLabel(t, i), err)
		}
		label := tableLabel(t, i)
		if seen[label] {
			return fmt.Errorf("duplicate table name %q", label)
		}
		seen[label] = true
	}
	return nil
}

// tableLabel names the i-th table. Unnamed tables are called table1,
// table2 and so on, which also names their default output file.
func tableLabel(t Target, i int) string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("table%d", i+1)
}

// Targets returns every table with the defaults applied.
func (m *Manifest) Targets() []Target {
	out := make([]Target, len(m.Tables))
	for i, t := range m.Tables {
		out[i] = t.Merge(m.Defaults)
		if out[i].Name == "" {
			out[i].Name = tableLabel(t, i)
		}
	}
	return out
}

// Lookup returns the named table with the defaults applied.
func (m *Manifest) Lookup(name string) (Target, bool) {
	for _, t := range m.Targets() {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// Merge returns t with every empty field taken from base.
func (t Target) Merge(base Target) Target {
	str := func(v *string, b string) {
		if *v == "" {
			*v = b
		}
	}
	str(&t.Header, base.Header)
	str(&t.Output, base.Output)
	str(&t.EnumPrefix, base.EnumPrefix)
	str(&t.Target, base.Target)
	str(&t.Package, base.Package)
	str(&t.Prefix, base.Prefix)
	str(&t.TableName, base.TableName)
	str(&t.HandlerArray, base.HandlerArray)
	str(&t.EntryType, base.EntryType)
	str(&t.HandlerType, base.HandlerType)
	str(&t.KeyType, base.KeyType)
	if len(t.Types) == 0 {
		t.Types = base.Types
	}
	if len(t.Handlers) == 0 {
		t.Handlers = base.Handlers
	}
	if t.TableSize == 0 {
		t.TableSize = base.TableSize
	}
	return t
}

// Apply overlays the non-empty fields of t onto opts.
func (t Target) Apply(opts *dispatch.Options) {
	set := func(v *string, s string) {
		if s != "" {
			*v = s
		}
	}
	set(&opts.Header, t.Header)
	set(&opts.EnumPrefix, t.EnumPrefix)
	set(&opts.Target, t.Target)
	set(&opts.Package, t.Package)
	set(&opts.Naming.Prefix, t.Prefix)
	set(&opts.Naming.TableName, t.TableName)
	set(&opts.Naming.HandlerArray, t.HandlerArray)
	set(&opts.Naming.EntryType, t.EntryType)
	set(&opts.Naming.HandlerType, t.HandlerType)
	set(&opts.Naming.KeyType, t.KeyType)
	if len(t.Types) > 0 {
		opts.Types = t.Types
	}
	if len(t.Handlers) > 0 {
		opts.Handlers = t.Handlers
	}
	if t.TableSize != 0 {
		opts.Capacity = t.TableSize
	}
}

// Options returns the generator options for t, with header paths resolved
// against the manifest directory.
func (m *Manifest) Options(t Target) dispatch.Options {
	opts := dispatch.DefaultOptions()
	t.Apply(&opts)
	opts.Header = m.resolve(opts.Header)
	return opts
}

// OutputPath returns the absolute output path of t. An empty output falls
// back to the table name with the extension of its target.
func (m *Manifest) OutputPath(t Target) string {
	if t.Output != "" {
		return m.resolve(t.Output)
	}
	target := t.Target
	if target == "" {
		target = emit.DefaultTarget
	}
	ext := map[string]string{"c": ".h", "go": ".go", "cbor": ".cbor"}[target]
	return filepath.Join(m.Dir, t.Name+"_dispatch"+ext)
}

func (m *Manifest) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.Dir, path)
}
