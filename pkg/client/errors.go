package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/ircheck-project/ircheck-go/pkg/proto"
)

// RegistrationError reports a failed PASS/NICK/USER handshake.
type RegistrationError struct {
	// Nick is the nickname that was being registered.
	Nick string

	// Code is the rejecting numeric (432, 433, 436, 464), empty when
	// the handshake timed out or the connection dropped.
	Code string

	// Reply is the rejecting server message, when one was received.
	Reply *proto.Message

	// Err is the underlying error for timeout/transport failures.
	Err error
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	if e.Reply != nil {
		return fmt.Sprintf("registration failed for %s: %s %s", e.Nick, e.Code, strings.Join(e.Reply.Params, " "))
	}
	return fmt.Sprintf("registration failed for %s: %v", e.Nick, e.Err)
}

// Unwrap returns the underlying error, if any.
func (e *RegistrationError) Unwrap() error { return e.Err }

// TimeoutError reports that an Expect predicate never matched within
// its deadline. Unmatched carries the messages that were waiting in the
// queue when the deadline expired, serialized for diagnostics.
type TimeoutError struct {
	Wait      time.Duration
	Unmatched []string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if len(e.Unmatched) == 0 {
		return fmt.Sprintf("no matching message within %v (queue empty)", e.Wait)
	}
	return fmt.Sprintf("no matching message within %v; %d unmatched: %s",
		e.Wait, len(e.Unmatched), strings.Join(e.Unmatched, " | "))
}

// ConnectionClosedError reports that the session's connection closed
// while an operation was pending. It is terminal for the session.
type ConnectionClosedError struct {
	Err error
}

// Error implements the error interface.
func (e *ConnectionClosedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection closed: %v", e.Err)
	}
	return "connection closed"
}

// Unwrap returns the underlying error, if any.
func (e *ConnectionClosedError) Unwrap() error { return e.Err }
