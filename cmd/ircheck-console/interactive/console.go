// Package interactive provides the readline-based command loop for
// ircheck-console.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/ircheck-project/ircheck-go/pkg/irclog"
	"github.com/ircheck-project/ircheck-go/pkg/proto"
	"github.com/ircheck-project/ircheck-go/pkg/transport"
)

// Config holds the console connection settings.
type Config struct {
	Addr     string
	Password string
	Nick     string

	// Raw skips the PASS/NICK/USER registration burst.
	Raw bool

	// Logger receives protocol events when non-nil.
	Logger irclog.Logger
}

// Console is an interactive raw IRC session.
type Console struct {
	cfg  Config
	conn *transport.Connection
	rl   *readline.Instance

	done chan struct{}
}

// New dials the server and, unless cfg.Raw is set, sends the
// registration burst. Incoming lines start printing once Run is called.
func New(ctx context.Context, cfg Config) (*Console, error) {
	conn, err := transport.Dial(ctx, cfg.Addr)
	if err != nil {
		return nil, err
	}
	if cfg.Logger != nil {
		conn.SetLogger(cfg.Logger, uuid.NewString())
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "irc> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := &Console{
		cfg:  cfg,
		conn: conn,
		rl:   rl,
		done: make(chan struct{}),
	}

	if !cfg.Raw {
		if err := c.register(); err != nil {
			rl.Close()
			conn.Close()
			return nil, err
		}
	}

	return c, nil
}

// Stdout returns a writer that properly coordinates with the readline
// input. Use this for log output to avoid interfering with the prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Close tears down the connection and the readline instance.
func (c *Console) Close() error {
	err := c.conn.Close()
	c.rl.Close()
	return err
}

func (c *Console) register() error {
	if c.cfg.Password != "" {
		if err := c.conn.WriteLine(proto.New(proto.CmdPass, c.cfg.Password).String()); err != nil {
			return err
		}
	}
	if err := c.conn.WriteLine(proto.New(proto.CmdNick, c.cfg.Nick).String()); err != nil {
		return err
	}
	user := proto.New(proto.CmdUser, c.cfg.Nick, "0", "*", c.cfg.Nick)
	user.ForcedTrailing = true
	return c.conn.WriteLine(user.String())
}

// Run starts the receive printer and the command loop. It returns when
// the user quits or the connection drops.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	go c.receiveLoop(cancel)

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if !strings.HasPrefix(input, "/") {
			c.send(input)
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "/help", "/?":
			c.printHelp()

		case "/join":
			if len(args) < 1 {
				fmt.Fprintln(c.rl.Stdout(), "Usage: /join <channel> [key]")
				continue
			}
			c.sendMessage(proto.New(proto.CmdJoin, args...))

		case "/part":
			if len(args) < 1 {
				fmt.Fprintln(c.rl.Stdout(), "Usage: /part <channel> [reason]")
				continue
			}
			msg := proto.New(proto.CmdPart, args[0])
			if len(args) > 1 {
				msg = proto.New(proto.CmdPart, args[0], strings.Join(args[1:], " "))
				msg.ForcedTrailing = true
			}
			c.sendMessage(msg)

		case "/msg":
			if len(args) < 2 {
				fmt.Fprintln(c.rl.Stdout(), "Usage: /msg <target> <text>")
				continue
			}
			msg := proto.New(proto.CmdPrivmsg, args[0], strings.Join(args[1:], " "))
			msg.ForcedTrailing = true
			c.sendMessage(msg)

		case "/nick":
			if len(args) != 1 {
				fmt.Fprintln(c.rl.Stdout(), "Usage: /nick <newnick>")
				continue
			}
			c.sendMessage(proto.New(proto.CmdNick, args[0]))

		case "/quit":
			reason := "bye"
			if len(args) > 0 {
				reason = strings.Join(args, " ")
			}
			msg := proto.New(proto.CmdQuit, reason)
			msg.ForcedTrailing = true
			c.sendMessage(msg)
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type /help for commands)\n", cmd)
		}
	}
}

func (c *Console) send(raw string) {
	if err := c.conn.WriteLine(raw); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "!! send failed: %v\n", err)
	}
}

func (c *Console) sendMessage(msg *proto.Message) {
	c.send(msg.String())
}

// receiveLoop prints every incoming line and answers PING so an idle
// console is not dropped by the server.
func (c *Console) receiveLoop(cancel context.CancelFunc) {
	defer close(c.done)
	for {
		line, err := c.conn.ReadLine()
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "!! connection closed: %v\n", err)
			cancel()
			return
		}
		fmt.Fprintf(c.rl.Stdout(), "<< %s\n", line)

		msg, err := proto.Parse(line)
		if err != nil {
			continue
		}
		if msg.Command == proto.CmdPing {
			pong := proto.New(proto.CmdPong, msg.Params...)
			if err := c.conn.WriteLine(pong.String()); err != nil {
				return
			}
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
IRC Console Commands:
  /join <channel> [key]     - Join a channel
  /part <channel> [reason]  - Leave a channel
  /msg <target> <text>      - Send a PRIVMSG
  /nick <newnick>           - Change nick
  /quit [reason]            - Send QUIT and exit
  /help                     - Show this help

Any other input is sent to the server as a raw line.`)
}
