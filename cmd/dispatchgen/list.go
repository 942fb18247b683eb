package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/dispatchgen/dispatch"
	"github.com/chazu/dispatchgen/header"
)

// handleListCommand processes the `dispatchgen list` subcommand.
// Usage:
//
//	dispatchgen list packet.h
//	dispatchgen list -enum-prefix PACKET_TYPE_ packet.h
func handleListCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	enumPrefix := fs.String("enum-prefix", "", "Only list constants starting with this prefix")
	verbose := fs.Int("v", 0, "Log verbosity (0-2)")
	rest, err := parseInterspersed(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	configureLogging(*verbose)

	if len(rest) != 1 {
		return fail(stderr, &dispatch.ConfigError{Field: "header", Reason: "list takes exactly one header"})
	}
	return listSymbols(rest[0], *enumPrefix, stdout, stderr)
}

// listSymbols prints the resolved constants sorted by value, then the
// declarations that were skipped.
func listSymbols(path, enumPrefix string, stdout, stderr io.Writer) int {
	syms, err := header.ExtractFile(path, header.Options{Prefix: enumPrefix})
	if err != nil {
		return fail(stderr, err)
	}

	fmt.Fprintf(stdout, "Packet types found in %s:\n", path)
	for _, s := range syms.ByValue() {
		fmt.Fprintf(stdout, "  %s = %d\n", s.Name, s.Value)
	}
	if len(syms.Unsupported) > 0 {
		fmt.Fprintf(stdout, "\nUnsupported declarations:\n")
		for _, u := range syms.Unsupported {
			if u.Expr != "" {
				fmt.Fprintf(stdout, "  %s = %s (line %d: %s)\n", u.Name, u.Expr, u.Line, u.Reason)
			} else {
				fmt.Fprintf(stdout, "  %s (line %d: %s)\n", u.Name, u.Line, u.Reason)
			}
		}
	}
	return exitOK
}

// parseInterspersed parses flags that may appear before and after
// positional arguments, and returns the positional arguments in order.
// Everything after a "--" terminator is positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if terminated(fs, args[:len(args)-len(rest)]) {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// terminated reports whether the flags parsed from consumed ended with a
// "--" terminator, as opposed to "--" given as the value of a flag.
func terminated(fs *flag.FlagSet, consumed []string) bool {
	for i := 0; i < len(consumed); i++ {
		a := consumed[i]
		if a == "--" {
			return i == len(consumed)-1
		}
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			continue
		}
		i++ // value
	}
	return false
}
