// Command ircheck-console is an interactive raw IRC console for manual
// server poking.
//
// It connects to a server, optionally registers a nick, and then drops
// into a prompt where every line is sent verbatim to the server while
// incoming lines are printed as they arrive. A few slash commands wrap
// the most common operations.
//
// Usage:
//
//	ircheck-console [flags]
//
// Flags:
//
//	-host string          Server host (default "localhost")
//	-port int             Server port (default 6667)
//	-password string      Server password (PASS)
//	-nick string          Nick to register (default "checker")
//	-raw                  Skip registration, start with a bare connection
//	-protocol-log string  Write a protocol event log (.ilog) to this file
//
// Console commands:
//
//	/join <channel> [key]     - Join a channel
//	/part <channel> [reason]  - Leave a channel
//	/msg <target> <text>      - Send a PRIVMSG
//	/nick <newnick>           - Change nick
//	/quit [reason]            - Send QUIT and exit
//	anything else             - Sent to the server as a raw line
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ircheck-project/ircheck-go/cmd/ircheck-console/interactive"
	"github.com/ircheck-project/ircheck-go/pkg/irclog"
)

func main() {
	var (
		host        = flag.String("host", "localhost", "Server host")
		port        = flag.Int("port", 6667, "Server port")
		password    = flag.String("password", "", "Server password (PASS)")
		nick        = flag.String("nick", "checker", "Nick to register")
		raw         = flag.Bool("raw", false, "Skip registration, start with a bare connection")
		protocolLog = flag.String("protocol-log", "", "Write a protocol event log (.ilog) to this file")
	)
	flag.Parse()

	var logger irclog.Logger
	if *protocolLog != "" {
		fl, err := irclog.NewFileLogger(*protocolLog)
		if err != nil {
			log.Fatalf("Failed to open protocol log: %v", err)
		}
		defer fl.Close()
		logger = fl
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := interactive.Config{
		Addr:     fmt.Sprintf("%s:%d", *host, *port),
		Password: *password,
		Nick:     *nick,
		Raw:      *raw,
		Logger:   logger,
	}

	console, err := interactive.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer console.Close()

	// Redirect log output through readline to avoid interfering with input
	log.SetOutput(console.Stdout())

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	console.Run(ctx, cancel)
}
