// Command ircheck runs IRC server conformance checks.
//
// It connects one or more test clients to the server under test and
// exercises registration, channel membership, message routing, topics,
// operator privileges and channel modes per RFC 1459/2812.
//
// Usage:
//
//	ircheck [flags] [scenario-pattern]
//
// Flags:
//
//	-host string          Host of the IRC server under test
//	-port int             Port of the IRC server under test (default 6667)
//	-password string      Server password sent via PASS
//	-profile string       Path to a YAML conformance profile
//	-timeout duration     Per-scenario timeout (default 30s)
//	-verbose              Enable verbose output
//	-json                 Output results as JSON
//	-junit                Output results as JUnit XML
//	-protocol-log string  File path for protocol event logging (CBOR format)
//
// Examples:
//
//	# Check a server on localhost
//	ircheck -host localhost
//
//	# Check with a conformance profile, JUnit output for CI
//	ircheck -host irc.example.org -profile server.yaml -junit
//
//	# Run only kick scenarios with protocol capture
//	ircheck -host localhost -protocol-log run.ilog kick
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/ircheck-project/ircheck-go/internal/harness/runner"
	"github.com/ircheck-project/ircheck-go/pkg/irclog"
)

var (
	host        = flag.String("host", "", "Host of the IRC server under test")
	port        = flag.Int("port", 6667, "Port of the IRC server under test")
	password    = flag.String("password", "", "Server password sent via PASS")
	profileFile = flag.String("profile", "", "Path to a YAML conformance profile")
	timeout     = flag.Duration("timeout", 30*time.Second, "Per-scenario timeout")
	verbose     = flag.Bool("verbose", false, "Enable verbose output")
	jsonOut     = flag.Bool("json", false, "Output results as JSON")
	junitOut    = flag.Bool("junit", false, "Output results as JUnit XML")
	protocolLog = flag.String("protocol-log", "", "File path for protocol event logging (CBOR format)")
)

func main() {
	flag.Parse()

	pattern := ""
	if flag.NArg() > 0 {
		pattern = flag.Arg(0)
	}

	if *host == "" {
		fmt.Fprintln(os.Stderr, "Error: host is required (-host)")
		flag.Usage()
		os.Exit(1)
	}

	outputFormat := "text"
	if *jsonOut {
		outputFormat = "json"
	} else if *junitOut {
		outputFormat = "junit"
	}

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	opLog := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if outputFormat == "text" {
		log.SetFlags(log.Ltime)
		printBanner()
		log.Printf("Target: %s:%d", *host, *port)
		if *profileFile != "" {
			log.Printf("Profile: %s", *profileFile)
		}
		if pattern != "" {
			log.Printf("Pattern: %s", pattern)
		}
		log.Println()
	}

	var protocolLogger *irclog.FileLogger
	if *protocolLog != "" {
		var err error
		protocolLogger, err = irclog.NewFileLogger(*protocolLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create protocol logger: %v\n", err)
			os.Exit(1)
		}
		if outputFormat == "text" {
			log.Printf("Protocol logging to: %s", *protocolLog)
		}
	}

	cfg := runner.Config{
		Host:            *host,
		Port:            *port,
		Password:        *password,
		ProfileFile:     *profileFile,
		Pattern:         pattern,
		ScenarioTimeout: *timeout,
		Verbose:         *verbose,
		Output:          os.Stdout,
		OutputFormat:    outputFormat,
		Slog:            opLog,
	}
	// Only set logger when non-nil to avoid typed-nil interface issue.
	if protocolLogger != nil {
		cfg.ProtocolLogger = protocolLogger
	}

	r, err := runner.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	run, err := r.Run(ctx)

	// Flush the protocol log before any exit path.
	if protocolLogger != nil {
		if cerr := protocolLogger.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close protocol log: %v\n", cerr)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if run.Failed() {
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Print(`
 ___ ____   ____ _               _
|_ _|  _ \ / ___| |__   ___  ___| | __
 | || |_) | |   | '_ \ / _ \/ __| |/ /
 | ||  _ <| |___| | | |  __/ (__|   <
|___|_| \_\\____|_| |_|\___|\___|_|\_\

IRC Server Conformance Checker
`)
}
