package proto

import (
	"fmt"
	"strings"
)

// ParseError reports a line that violates the message grammar.
// The offending line is carried verbatim for diagnostics.
type ParseError struct {
	Line   string
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Line, e.Reason)
}

// Parse parses a raw IRC line (without the CRLF terminator) into a
// Message. It fails with *ParseError on an empty line, a missing or
// malformed command token, embedded CR/LF, too many parameters, or a
// line exceeding the 512-byte limit. Oversized lines are rejected,
// never truncated.
func Parse(line string) (*Message, error) {
	if line == "" {
		return nil, &ParseError{Line: line, Reason: "empty line"}
	}
	if len(line) > MaxLineLength-2 {
		return nil, &ParseError{Line: line, Reason: fmt.Sprintf("line length %d exceeds %d bytes", len(line)+2, MaxLineLength)}
	}
	if strings.ContainsAny(line, "\r\n\x00") {
		return nil, &ParseError{Line: line, Reason: "embedded CR, LF or NUL"}
	}

	msg := &Message{}
	rest := line

	// Optional prefix.
	if rest[0] == ':' {
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			return nil, &ParseError{Line: line, Reason: "prefix without command"}
		}
		msg.Prefix = rest[1:sp]
		if msg.Prefix == "" {
			return nil, &ParseError{Line: line, Reason: "empty prefix"}
		}
		rest = skipSpaces(rest[sp+1:])
	}

	// Command token.
	if rest == "" {
		return nil, &ParseError{Line: line, Reason: "missing command"}
	}
	if sp := strings.IndexByte(rest, ' '); sp >= 0 {
		msg.Command = rest[:sp]
		rest = skipSpaces(rest[sp+1:])
	} else {
		msg.Command = rest
		rest = ""
	}
	if err := checkCommand(msg.Command); err != "" {
		return nil, &ParseError{Line: line, Reason: err}
	}

	// Parameters up to the trailing parameter.
	for rest != "" {
		if rest[0] == ':' {
			trailing := rest[1:]
			msg.Params = append(msg.Params, trailing)
			msg.ForcedTrailing = !needsTrailing(trailing)
			break
		}
		if sp := strings.IndexByte(rest, ' '); sp >= 0 {
			msg.Params = append(msg.Params, rest[:sp])
			rest = skipSpaces(rest[sp+1:])
		} else {
			msg.Params = append(msg.Params, rest)
			rest = ""
		}
	}
	if len(msg.Params) > MaxParams {
		return nil, &ParseError{Line: line, Reason: fmt.Sprintf("%d parameters exceeds maximum of %d", len(msg.Params), MaxParams)}
	}

	return msg, nil
}

// String serializes the message back to its wire form, without the CRLF
// terminator. It is the exact inverse of Parse for grammar-conforming
// lines and the single formatting authority for outbound traffic.
// Lines with runs of spaces between tokens parse to the same Message as
// their single-space form and so serialize back canonically, not byte
// for byte.
func (m *Message) String() string {
	var b strings.Builder
	if m.Prefix != "" {
		b.WriteByte(':')
		b.WriteString(m.Prefix)
		b.WriteByte(' ')
	}
	b.WriteString(m.Command)
	for i, p := range m.Params {
		b.WriteByte(' ')
		if i == len(m.Params)-1 && (m.ForcedTrailing || needsTrailing(p)) {
			b.WriteByte(':')
		}
		b.WriteString(p)
	}
	return b.String()
}

// needsTrailing reports whether a final parameter must be serialized in
// ':'-introduced trailing form to survive a round trip.
func needsTrailing(p string) bool {
	return p == "" || p[0] == ':' || strings.IndexByte(p, ' ') >= 0
}

// checkCommand validates the command token, returning a reason string
// when it is malformed. A command starting with a digit must be exactly
// a three-digit numeric reply code.
func checkCommand(cmd string) string {
	if cmd == "" {
		return "missing command"
	}
	digits := 0
	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z'):
		default:
			return fmt.Sprintf("invalid character %q in command", c)
		}
	}
	if digits > 0 {
		if digits != len(cmd) || len(cmd) != 3 {
			return fmt.Sprintf("numeric command %q is not three digits", cmd)
		}
	}
	return ""
}

// skipSpaces treats a run of spaces as one separator, the way servers
// in the wild tokenize.
func skipSpaces(s string) string {
	for s != "" && s[0] == ' ' {
		s = s[1:]
	}
	return s
}
