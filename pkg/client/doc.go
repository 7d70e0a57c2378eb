// Package client provides the IRC client session the harness drives
// against the server under test.
//
// A Session owns one transport.Connection. A background receive loop
// started at connect time parses every inbound line and appends it to
// the session's inbound queue in arrival order. Foreground test logic
// consumes the queue through Expect, which searches forward for a
// message satisfying a predicate while leaving unrelated traffic queued
// for later Expect calls - delivery is exactly-once per message, in
// FIFO order regardless of predicate order.
//
// The queue is owned exclusively by its session: one producer (the
// receive loop) and one consumer (the scenario step driving the
// session). Cross-session coordination goes through the harness
// barrier primitives, never by sharing queues.
package client
