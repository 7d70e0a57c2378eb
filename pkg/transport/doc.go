// Package transport provides the TCP connection and CRLF line framing
// used to talk to the server under test.
//
// A Connection owns exactly one socket. Lines are framed per RFC 1459:
// CRLF-terminated, at most 512 bytes including the terminator. The
// reader tolerates bare LF terminators and buffers partial lines across
// reads; oversized lines are rejected, never truncated.
//
// No retries happen at this layer - every failure propagates to the
// owning session as a terminal condition.
package transport
