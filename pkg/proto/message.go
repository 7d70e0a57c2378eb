package proto

import "strings"

// Limits from RFC 1459 §2.3.
const (
	// MaxLineLength is the maximum message length in bytes, including
	// the trailing CRLF.
	MaxLineLength = 512

	// MaxParams is the maximum number of parameters in a message.
	MaxParams = 15
)

// Message is a single parsed IRC protocol message.
type Message struct {
	// Prefix is the message source without the leading ':', empty for
	// messages without a prefix. Typically "nick!user@host" for
	// user-originated messages or a bare server name.
	Prefix string

	// Command is a word command (PRIVMSG, JOIN, ...) or a three-digit
	// numeric reply code. Word commands are case-insensitive on the
	// wire; Parse preserves the original casing.
	Command string

	// Params holds the ordered parameters. When ForcedTrailing is false
	// the final parameter is still serialized in trailing form if it is
	// empty, starts with ':' or contains a space.
	Params []string

	// ForcedTrailing records that the final parameter arrived in
	// ':'-introduced trailing form even though it did not need one.
	// Preserved so serialization round-trips byte for byte.
	ForcedTrailing bool
}

// New builds a message with the given command and parameters.
func New(command string, params ...string) *Message {
	return &Message{Command: command, Params: params}
}

// WithPrefix returns a copy of m carrying the given source prefix.
func (m *Message) WithPrefix(prefix string) *Message {
	c := *m
	c.Prefix = prefix
	return &c
}

// IsNumeric reports whether the command is a three-digit reply code.
func (m *Message) IsNumeric() bool {
	if len(m.Command) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if m.Command[i] < '0' || m.Command[i] > '9' {
			return false
		}
	}
	return true
}

// Param returns the i-th parameter, or "" when absent.
func (m *Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// Trailing returns the final parameter, or "" when the message has none.
func (m *Message) Trailing() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Params[len(m.Params)-1]
}

// Nick returns the nickname portion of the prefix ("nick" in
// "nick!user@host"). For server prefixes this is the full prefix.
func (m *Message) Nick() string {
	nick, _, _ := splitPrefix(m.Prefix)
	return nick
}

// User returns the username portion of the prefix, if present.
func (m *Message) User() string {
	_, user, _ := splitPrefix(m.Prefix)
	return user
}

// Host returns the host portion of the prefix, if present.
func (m *Message) Host() string {
	_, _, host := splitPrefix(m.Prefix)
	return host
}

// splitPrefix breaks a "nick!user@host" prefix into its parts.
// Missing parts come back empty.
func splitPrefix(prefix string) (nick, user, host string) {
	if prefix == "" {
		return "", "", ""
	}
	if bang := strings.IndexByte(prefix, '!'); bang >= 0 {
		nick = prefix[:bang]
		rest := prefix[bang+1:]
		if at := strings.IndexByte(rest, '@'); at >= 0 {
			return nick, rest[:at], rest[at+1:]
		}
		return nick, rest, ""
	}
	if at := strings.IndexByte(prefix, '@'); at >= 0 {
		return prefix[:at], "", prefix[at+1:]
	}
	return prefix, "", ""
}
