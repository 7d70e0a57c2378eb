package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ircheck-project/ircheck-go/pkg/irclog"
)

// State is the connection lifecycle state.
type State int

const (
	// StateDisconnected means no socket has been established.
	StateDisconnected State = iota
	// StateConnected means the socket is open.
	StateConnected
	// StateClosed means the socket has been closed and the connection
	// cannot be reused.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnected:
		return "Connected"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ErrClosed indicates an operation on a closed connection.
var ErrClosed = errors.New("connection closed")

// Connection owns exactly one TCP socket to the server under test.
// It is created by Dial and destroyed by Close; there is no reconnect
// at this layer.
type Connection struct {
	conn   net.Conn
	framer *LineFramer

	mu     sync.Mutex
	state  State
	logger irclog.Logger
	connID string
}

// Dial establishes a TCP connection to addr ("host:port").
func Dial(ctx context.Context, addr string) (*Connection, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Connection{
		conn:   conn,
		framer: NewLineFramer(conn),
		state:  StateConnected,
	}, nil
}

// SetLogger configures protocol capture for this connection.
// Pass nil to disable capture.
func (c *Connection) SetLogger(logger irclog.Logger, connID string) {
	c.mu.Lock()
	c.logger = logger
	c.connID = connID
	c.mu.Unlock()
	c.framer.SetLogger(logger, connID)
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RemoteAddr returns the server address.
func (c *Connection) RemoteAddr() string {
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

// WriteLine sends one protocol line. The CRLF terminator is appended.
func (c *Connection) WriteLine(line string) error {
	if c.State() != StateConnected {
		return ErrClosed
	}
	return c.framer.WriteLine(line)
}

// ReadLine returns the next complete line from the server. It blocks
// until a line arrives, the connection fails, or Close is called from
// another goroutine (which unblocks the pending read with an error).
func (c *Connection) ReadLine() (string, error) {
	line, err := c.framer.ReadLine()
	if err != nil && c.State() == StateClosed {
		return "", ErrClosed
	}
	return line, err
}

// Close shuts the socket down. It is idempotent and safe to call
// concurrently with a blocked ReadLine, which it unblocks.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	old := c.state
	c.state = StateClosed
	logger, connID := c.logger, c.connID
	c.mu.Unlock()

	err := c.conn.Close()

	if logger != nil {
		logger.Log(irclog.Event{
			Timestamp:    time.Now(),
			ConnectionID: connID,
			Layer:        irclog.LayerTransport,
			Category:     irclog.CategoryState,
			StateChange: &irclog.StateChangeEvent{
				Entity:   irclog.StateEntityConnection,
				OldState: old.String(),
				NewState: StateClosed.String(),
			},
		})
	}
	return err
}
