// Command bc-log views and analyzes breadcrumbs protocol captures.
//
// Captures are written by breadcrumbs when protocol_log.path is set or the
// -protocol-log flag is given.
//
// Usage:
//
//	bc-log <command> [flags] <file.cbor>
//
// Commands:
//
//	view     Print events in human-readable form
//	export   Write events as JSON lines or CSV
//	filter   Copy matching events to a new capture
//	stats    Summarize a capture
//
// Examples:
//
//	bc-log view --layer wire client.cbor
//	bc-log view --id NETWORK_BROADCAST server.cbor
//	bc-log export --format csv -o out.csv server.cbor
//	bc-log filter --component client -o client-only.cbor all.cbor
//	bc-log stats server.cbor
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/breadcrumbs/breadcrumbs-go/cmd/bc-log/commands"
)

const usage = `bc-log - breadcrumbs protocol capture viewer

Usage:
  bc-log <command> [flags] <file.cbor>

Commands:
  view     Print events in human-readable form
  export   Write events as JSON lines or CSV
  filter   Copy matching events to a new capture
  stats    Summarize a capture

Use "bc-log <command> -help" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "view":
		err = runView(args)
	case "export":
		err = runExport(args)
	case "filter":
		err = runFilter(args)
	case "stats":
		err = runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	o := &commands.FilterOptions{}
	fs.StringVar(&o.ConnID, "conn-id", "", "Filter by connection ID")
	fs.StringVar(&o.Component, "component", "", "Filter by component name")
	fs.StringVar(&o.MessageID, "id", "", "Filter by wire message id")
	fs.StringVar(&o.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&o.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&o.Layer, "layer", "", "Filter by layer (transport, wire, bridge, discovery)")
	fs.StringVar(&o.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&o.Category, "category", "", "Filter by category (message, control, state, error)")
	fs.StringVar(&o.Role, "role", "", "Filter by role (client, server)")
	return o
}

// parse parses args and returns the capture path.
func parse(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return "", fmt.Errorf("log file path required")
	}
	return fs.Arg(0), nil
}

func newFlagSet(name, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "bc-log %s - %s\n\nUsage:\n  bc-log %s [flags] <file.cbor>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}
	return fs
}

func runView(args []string) error {
	fs := newFlagSet("view", "Print events in human-readable form")
	opts := filterFlags(fs)
	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	filter, err := opts.Build()
	if err != nil {
		return err
	}
	return commands.RunView(path, filter, os.Stdout)
}

func runExport(args []string) error {
	fs := newFlagSet("export", "Write events as JSON lines or CSV")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	opts := filterFlags(fs)
	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	filter, err := opts.Build()
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return commands.RunExport(path, *format, filter, w)
}

func runFilter(args []string) error {
	fs := newFlagSet("filter", "Copy matching events to a new capture")
	output := fs.String("o", "", "Output file (required)")
	opts := filterFlags(fs)
	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	if *output == "" {
		fs.Usage()
		return fmt.Errorf("output file (-o) required")
	}
	filter, err := opts.Build()
	if err != nil {
		return err
	}

	n, err := commands.RunFilter(path, *output, filter)
	if err != nil {
		return err
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
	return nil
}

func runStats(args []string) error {
	fs := newFlagSet("stats", "Summarize a capture")
	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	return commands.RunStats(path, os.Stdout)
}
