// Command ircheck-log is a tool for viewing and analyzing ircheck
// protocol log files.
//
// Log files are created by running ircheck with the -protocol-log
// flag.
//
// Usage:
//
//	ircheck-log <command> [flags] <file.ilog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSONL or CSV format
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	ircheck-log view run.ilog
//
//	# View only received lines
//	ircheck-log view -direction in run.ilog
//
//	# View one scenario's traffic
//	ircheck-log view -scenario kick_basic run.ilog
//
//	# Export to JSONL
//	ircheck-log export -format jsonl run.ilog
//
//	# Show statistics
//	ircheck-log stats run.ilog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ircheck-project/ircheck-go/cmd/ircheck-log/commands"
	"github.com/ircheck-project/ircheck-go/pkg/irclog"
)

const usage = `ircheck-log - IRC Protocol Log Analyzer

Usage:
  ircheck-log <command> [flags] <file.ilog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSONL or CSV format
  stats    Show statistics about the log file

Use "ircheck-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "view":
		err = runView(args)
	case "export":
		err = runExport(args)
	case "stats":
		err = runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", cmd, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runView(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	direction := fs.String("direction", "", "Filter by direction: in, out")
	layer := fs.String("layer", "", "Filter by layer: transport, session, harness")
	scenario := fs.String("scenario", "", "Filter by scenario name")
	connID := fs.String("conn-id", "", "Filter by connection ID")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("view: exactly one log file expected")
	}

	filter, err := buildFilter(*direction, *layer, *scenario, *connID)
	if err != nil {
		return err
	}
	return commands.RunView(fs.Arg(0), filter, os.Stdout)
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "jsonl", "Export format: jsonl, csv")
	output := fs.String("o", "", "Output file (default stdout)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("export: exactly one log file expected")
	}
	return commands.RunExport(fs.Arg(0), *format, *output)
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("stats: exactly one log file expected")
	}
	return commands.RunStats(fs.Arg(0), os.Stdout)
}

func buildFilter(direction, layer, scenario, connID string) (irclog.Filter, error) {
	var f irclog.Filter

	switch direction {
	case "":
	case "in":
		d := irclog.DirectionIn
		f.Direction = &d
	case "out":
		d := irclog.DirectionOut
		f.Direction = &d
	default:
		return f, fmt.Errorf("unknown direction %q (in, out)", direction)
	}

	switch layer {
	case "":
	case "transport":
		l := irclog.LayerTransport
		f.Layer = &l
	case "session":
		l := irclog.LayerSession
		f.Layer = &l
	case "harness":
		l := irclog.LayerHarness
		f.Layer = &l
	default:
		return f, fmt.Errorf("unknown layer %q (transport, session, harness)", layer)
	}

	f.Scenario = scenario
	f.ConnectionID = connID
	return f, nil
}
