// Package mock provides an in-process IRC server implementing the
// RFC 1459 subset the harness exercises, so engine and suite tests
// run without an external server.
package mock

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/ircheck-project/ircheck-go/pkg/proto"
)

// ServerName is the prefix the mock uses on its own messages.
const ServerName = "irc.mock.test"

// Config holds mock server options.
type Config struct {
	// Password, when set, must be supplied via PASS before
	// registration completes.
	Password string

	// Slog is the operational logger. Nil means slog.Default().
	Slog *slog.Logger
}

// Server is an in-process IRC server.
type Server struct {
	cfg Config
	ln  net.Listener
	log *slog.Logger

	mu       sync.Mutex
	clients  map[string]*clientConn // lowercased nick -> conn
	channels map[string]*channel    // lowercased name -> channel
	closed   bool
	conns    map[*clientConn]struct{}
	wg       sync.WaitGroup
}

// Start listens on 127.0.0.1 with an ephemeral port and begins
// accepting clients.
func Start(cfg Config) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("mock server listen: %w", err)
	}
	if cfg.Slog == nil {
		cfg.Slog = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		ln:       ln,
		log:      cfg.Slog.With("component", "mockserver"),
		clients:  make(map[string]*clientConn),
		channels: make(map[string]*channel),
		conns:    make(map[*clientConn]struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Port returns the listening port.
func (s *Server) Port() int { return s.ln.Addr().(*net.TCPAddr).Port }

// Close stops the listener and drops every client.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conns := make([]*clientConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	s.ln.Close()
	for _, c := range conns {
		c.conn.Close()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		c := &clientConn{srv: s, conn: conn}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[c] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.serve()
		}()
	}
}

func (s *Server) removeConn(c *clientConn) {
	s.mu.Lock()
	delete(s.conns, c)
	if c.nick != "" {
		if cur, ok := s.clients[lower(c.nick)]; ok && cur == c {
			delete(s.clients, lower(c.nick))
		}
	}
	s.mu.Unlock()
}

func lower(s string) string { return strings.ToLower(s) }

// clientConn is one connected client.
type clientConn struct {
	srv  *Server
	conn net.Conn

	writeMu sync.Mutex

	// connection state, guarded by srv.mu for cross-client access
	nick       string
	username   string
	realname   string
	passOK     bool
	registered bool
}

func (c *clientConn) prefix() string {
	user := c.username
	if user == "" {
		user = c.nick
	}
	return c.nick + "!" + user + "@" + ServerName
}

// sendRaw writes one line to the client.
func (c *clientConn) sendRaw(line string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.Write([]byte(line + "\r\n"))
}

func (c *clientConn) send(msg *proto.Message) {
	c.sendRaw(msg.String())
}

// reply sends a numeric from the server to this client. The client's
// nick (or * before registration) is the first parameter.
func (c *clientConn) reply(numeric string, params ...string) {
	target := c.nick
	if target == "" {
		target = "*"
	}
	msg := proto.New(numeric, append([]string{target}, params...)...)
	msg.Prefix = ServerName
	c.send(msg)
}

// fromUser sends a command to this client prefixed with another
// user's nick!user@host.
func (c *clientConn) fromUser(from *clientConn, command string, params ...string) {
	msg := proto.New(command, params...)
	msg.Prefix = from.prefix()
	msg.ForcedTrailing = true
	c.send(msg)
}

func (c *clientConn) serve() {
	defer c.srv.removeConn(c)
	defer c.conn.Close()

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 1024)
	for {
		n, err := c.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				idx := bytes.IndexByte(buf, '\n')
				if idx < 0 {
					break
				}
				line := strings.TrimRight(string(buf[:idx]), "\r")
				buf = buf[idx+1:]
				if line == "" {
					continue
				}
				c.handleLine(line)
			}
		}
		if err != nil {
			c.srv.partAllOnQuit(c, "connection closed")
			return
		}
	}
}

func (c *clientConn) handleLine(line string) {
	msg, err := proto.Parse(line)
	if err != nil {
		c.srv.log.Debug("ignoring malformed line", "line", line, "error", err)
		return
	}
	c.srv.dispatch(c, msg)
}
