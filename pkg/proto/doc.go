// Package proto implements the IRC wire format defined by RFC 1459 and
// refined by RFC 2812.
//
// A message line has the general shape
//
//	[:prefix] command [params ...] [:trailing]
//
// where the optional prefix names the message source, the command is a
// word or a three-digit numeric reply code, and the trailing parameter
// may contain spaces. Lines are limited to 512 bytes including the CRLF
// terminator.
//
// Parse and Message.String are exact inverses for lines conforming to
// the grammar; all line formatting in the repository goes through this
// package.
package proto
