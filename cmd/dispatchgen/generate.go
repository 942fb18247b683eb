package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chazu/dispatchgen/dispatch"
	"github.com/chazu/dispatchgen/emit"
	"github.com/chazu/dispatchgen/manifest"
	"golang.org/x/term"
)

// generateFlags are the options shared by generate and verify.
type generateFlags struct {
	fs *flag.FlagSet

	config       string
	types        string
	handlers     string
	tableSize    uint
	prefix       string
	enumPrefix   string
	tableName    string
	handlerArray string
	handlerType  string
	entryType    string
	keyType      string
	target       string
	pkg          string
	output       string
	check        bool
	listTypes    bool
	verbose      int

	args []string
}

func newGenerateFlags(name string, stderr io.Writer) *generateFlags {
	g := &generateFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	fs := g.fs
	fs.SetOutput(stderr)
	fs.StringVar(&g.config, "config", "", "JSON config file with types and handlers")
	fs.StringVar(&g.types, "types", "", "Comma-separated list of packet type names")
	fs.StringVar(&g.handlers, "handlers", "", "Comma-separated list of handler names (same order as types)")
	fs.UintVar(&g.tableSize, "table-size", dispatch.DefaultCapacity, "Hash table size")
	fs.StringVar(&g.prefix, "prefix", "", "Prefix for generated constants (e.g., 'CLIENT_')")
	fs.StringVar(&g.enumPrefix, "enum-prefix", "", "Only consider constants starting with this prefix")
	fs.StringVar(&g.tableName, "table-name", emit.DefaultTableName, "Name for hash table variable")
	fs.StringVar(&g.handlerArray, "handler-array", emit.DefaultHandlerArray, "Name for handler array variable")
	fs.StringVar(&g.handlerType, "handler-typedef", emit.DefaultHandlerType, "Typedef for handler function pointer")
	fs.StringVar(&g.entryType, "entry-typedef", emit.DefaultEntryType, "Typedef for hash table entry")
	fs.StringVar(&g.keyType, "key-typedef", emit.DefaultKeyType, "Type of the packet type field")
	fs.StringVar(&g.target, "target", emit.DefaultTarget, "Output target: c, go or cbor")
	fs.StringVar(&g.pkg, "package", emit.DefaultGoPackage, "Package name of Go output")
	fs.StringVar(&g.output, "o", "", "Output file (default: stdout)")
	fs.BoolVar(&g.check, "check", false, "Verify every lookup against the built table")
	fs.BoolVar(&g.listTypes, "list-types", false, "List all packet types found in header and exit")
	fs.IntVar(&g.verbose, "v", 0, "Log verbosity (0-2)")
	return g
}

// options layers the configuration: defaults, then the -config file, then
// DISPATCHGEN_* environment variables, then flags given on the command line.
func (g *generateFlags) options(env *manifest.EnvLoader) (dispatch.Options, error) {
	opts := dispatch.DefaultOptions()

	if g.config != "" {
		data, err := os.ReadFile(g.config)
		if err != nil {
			return opts, err
		}
		t, err := manifest.ParseLegacy(data)
		if err != nil {
			return opts, fmt.Errorf("%s: %w", g.config, err)
		}
		if err := manifest.ValidateTarget(t); err != nil {
			return opts, fmt.Errorf("%s: %w", g.config, err)
		}
		t.Apply(&opts)
	}

	envTarget, err := env.Load()
	if err != nil {
		return opts, err
	}
	envTarget.Apply(&opts)

	g.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "types":
			opts.Types = manifest.SplitList(g.types)
		case "handlers":
			opts.Handlers = manifest.SplitList(g.handlers)
		case "table-size":
			opts.Capacity = uint32(g.tableSize)
		case "prefix":
			opts.Naming.Prefix = g.prefix
		case "enum-prefix":
			opts.EnumPrefix = g.enumPrefix
		case "table-name":
			opts.Naming.TableName = g.tableName
		case "handler-array":
			opts.Naming.HandlerArray = g.handlerArray
		case "handler-typedef":
			opts.Naming.HandlerType = g.handlerType
		case "entry-typedef":
			opts.Naming.EntryType = g.entryType
		case "key-typedef":
			opts.Naming.KeyType = g.keyType
		case "target":
			opts.Target = g.target
		case "package":
			opts.Package = g.pkg
		}
	})
	if g.tableSize > dispatch.MaxCapacity {
		return opts, &dispatch.ConfigError{Field: "table-size",
			Reason: fmt.Sprintf("%d exceeds the maximum of %d", g.tableSize, dispatch.MaxCapacity)}
	}

	if len(g.args) > 1 {
		return opts, &dispatch.ConfigError{Reason: fmt.Sprintf("expected one header, got %d arguments", len(g.args))}
	}
	if len(g.args) == 1 {
		opts.Header = g.args[0]
	}
	return opts, nil
}

// handleGenerateCommand processes `dispatchgen [generate]` and
// `dispatchgen verify`.
// Usage:
//
//	dispatchgen packet.h -types A,B -handlers h_a,h_b   # C to stdout
//	dispatchgen -config tables/server.json -o out.h     # legacy JSON config
//	dispatchgen verify packet.h -types A,B -handlers h_a,h_b
func handleGenerateCommand(args []string, stdout, stderr io.Writer, verifyOnly bool) int {
	name := "generate"
	if verifyOnly {
		name = "verify"
	}
	g := newGenerateFlags(name, stderr)
	var err error
	if g.args, err = parseInterspersed(g.fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	configureLogging(g.verbose)

	opts, err := g.options(manifest.NewEnvLoader())
	if err != nil {
		return fail(stderr, err)
	}

	if g.listTypes {
		if opts.Header == "" {
			return fail(stderr, &dispatch.ConfigError{Field: "header", Reason: "no declaration source given"})
		}
		return listSymbols(opts.Header, opts.EnumPrefix, stdout, stderr)
	}

	if verifyOnly {
		r, err := dispatch.Build(opts)
		if err != nil {
			return fail(stderr, err)
		}
		if err := dispatch.Verify(r); err != nil {
			return fail(stderr, err)
		}
		fmt.Fprintf(stdout, "OK: %s\n", r.Stats)
		writeProbes(stdout, r)
		return exitOK
	}

	opts.Check = g.check
	var r *dispatch.Result
	if g.output != "" {
		r, err = dispatch.GenerateFile(g.output, opts)
	} else {
		r, err = generateToStdout(stdout, opts)
	}
	if err != nil {
		return fail(stderr, err)
	}
	emit.WriteStats(stderr, r.Stats)
	return exitOK
}

// generateToStdout refuses binary output to a terminal before generating.
func generateToStdout(stdout io.Writer, opts dispatch.Options) (*dispatch.Result, error) {
	if t, err := emit.LookupTarget(opts.Target); err == nil && t.Binary && isTerminal(stdout) {
		return nil, &dispatch.ConfigError{Field: "target",
			Reason: fmt.Sprintf("refusing to write binary %s output to a terminal; use -o", t.Name)}
	}
	return dispatch.Generate(stdout, opts)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeProbes(w io.Writer, r *dispatch.Result) {
	for _, p := range r.Table.Probes {
		fmt.Fprintf(w, "  %-40s key %-10d home %-5d slot %-5d probes %d\n",
			p.Name, p.Key, p.HomeSlot, p.SlotIndex, p.ProbeCount)
	}
}
