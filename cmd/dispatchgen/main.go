// dispatchgen - generates O(1) hash table dispatch code for packet handlers
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/dispatchgen/dispatch"
	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches to a subcommand and returns the process exit status.
// Generated output goes to stdout; diagnostics and errors go to stderr.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "generate":
			return handleGenerateCommand(args[1:], stdout, stderr, false)
		case "verify":
			return handleGenerateCommand(args[1:], stdout, stderr, true)
		case "list":
			return handleListCommand(args[1:], stdout, stderr)
		case "build":
			return handleBuildCommand(args[1:], stdout, stderr)
		case "help", "-h", "-help", "--help":
			usage(stdout)
			return exitOK
		}
	}
	return handleGenerateCommand(args, stdout, stderr, false)
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: dispatchgen [command] [options] [header]\n\n")
	fmt.Fprintf(w, "Generates an open-addressing hash table that dispatches packet types to handlers.\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  generate   Generate dispatch code (default)\n")
	fmt.Fprintf(w, "  verify     Build the table and check every lookup, without output\n")
	fmt.Fprintf(w, "  list       List the constants found in a header\n")
	fmt.Fprintf(w, "  build      Generate every table of dispatch.toml\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  dispatchgen packet.h -types PACKET_TYPE_PING,PACKET_TYPE_PONG -handlers handle_ping,handle_pong\n")
	fmt.Fprintf(w, "  dispatchgen -config scripts/dispatch_tables/server_client.json -o src/dispatch.h\n")
	fmt.Fprintf(w, "  dispatchgen list -enum-prefix PACKET_TYPE_ packet.h\n")
	fmt.Fprintf(w, "  dispatchgen build -only client\n")
	fmt.Fprintf(w, "\nRun 'dispatchgen <command> -h' for the options of a command.\n")
}

// configureLogging sets the log verbosity. Logs always go to stderr,
// unbuffered, since the process exits through os.Exit.
func configureLogging(verbosity int) {
	backend := simple.NewBackend()
	backend.Buffered = false
	commonlog.SetBackend(backend)
	commonlog.Configure(verbosity, nil)
}

// fail reports err and returns its exit status.
func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	var cfg *dispatch.ConfigError
	if errors.As(err, &cfg) {
		return exitUsage
	}
	return exitError
}
