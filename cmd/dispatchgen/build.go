package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/chazu/dispatchgen/dispatch"
	"github.com/chazu/dispatchgen/emit"
	"github.com/chazu/dispatchgen/manifest"
)

// handleBuildCommand processes the `dispatchgen build` subcommand.
// Usage:
//
//	dispatchgen build                          # every table of dispatch.toml
//	dispatchgen build -only client             # one table
//	dispatchgen build -manifest tables.yaml    # explicit manifest
func handleBuildCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(stderr)
	manifestPath := fs.String("manifest", "", "Manifest file (default: search for dispatch.toml upwards)")
	only := fs.String("only", "", "Build only the named table")
	check := fs.Bool("check", false, "Verify every lookup against the built tables")
	verbose := fs.Int("v", 0, "Log verbosity (0-2)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	configureLogging(*verbose)
	if fs.NArg() > 0 {
		return fail(stderr, &dispatch.ConfigError{Reason: fmt.Sprintf("build takes no arguments, got %q", fs.Arg(0))})
	}

	var m *manifest.Manifest
	var err error
	if *manifestPath != "" {
		m, err = manifest.Load(*manifestPath)
	} else {
		m, err = manifest.FindAndLoad(".")
	}
	if err != nil {
		return fail(stderr, fmt.Errorf("loading manifest: %w", err))
	}
	if m == nil {
		return fail(stderr, &dispatch.ConfigError{Reason: "no dispatch.toml found; use -manifest"})
	}

	env, err := manifest.NewEnvLoader().Load()
	if err != nil {
		return fail(stderr, err)
	}

	targets := m.Targets()
	if *only != "" {
		t, ok := m.Lookup(*only)
		if !ok {
			return fail(stderr, &dispatch.ConfigError{Field: "only", Reason: fmt.Sprintf("no table named %q in %s", *only, m.Path)})
		}
		targets = []manifest.Target{t}
	}

	for _, t := range targets {
		opts := m.Options(t)
		env.Apply(&opts)
		opts.Check = *check
		out := m.OutputPath(t)

		r, err := dispatch.GenerateFile(out, opts)
		if err != nil {
			return fail(stderr, fmt.Errorf("table %s: %w", t.Name, err))
		}
		fmt.Fprintf(stdout, "%s -> %s\n", t.Name, out)
		emit.WriteStats(stderr, r.Stats)
	}
	return exitOK
}
