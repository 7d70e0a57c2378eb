package mock

import "strconv"

// channel holds the state of one channel. All fields are guarded by
// the server mutex.
type channel struct {
	name    string
	topic   string
	members map[*clientConn]bool
	ops     map[*clientConn]bool
	invited map[string]bool // lowercased nicks with a standing invite

	inviteOnly bool
	topicLock  bool
	key        string
	limit      int
}

func newChannel(name string) *channel {
	return &channel{
		name:    name,
		members: make(map[*clientConn]bool),
		ops:     make(map[*clientConn]bool),
		invited: make(map[string]bool),
	}
}

func (ch *channel) has(c *clientConn) bool { return ch.members[c] }

func (ch *channel) isOp(c *clientConn) bool { return ch.ops[c] }

// memberByNick returns the member with the given nick, or nil.
func (ch *channel) memberByNick(nick string) *clientConn {
	for m := range ch.members {
		if lower(m.nick) == lower(nick) {
			return m
		}
	}
	return nil
}

// broadcast sends a command from one member to every member,
// including the sender.
func (ch *channel) broadcast(from *clientConn, command string, params ...string) {
	for m := range ch.members {
		m.fromUser(from, command, params...)
	}
}

// modeString renders the channel's modes as a MODE reply parameter
// list (e.g. "+tkl", "secret", "10").
func (ch *channel) modeString() []string {
	letters := "+"
	var args []string
	if ch.inviteOnly {
		letters += "i"
	}
	if ch.topicLock {
		letters += "t"
	}
	if ch.key != "" {
		letters += "k"
		args = append(args, ch.key)
	}
	if ch.limit > 0 {
		letters += "l"
		args = append(args, strconv.Itoa(ch.limit))
	}
	return append([]string{letters}, args...)
}

// names renders the 353 member list, prefixing operators with @.
func (ch *channel) names() string {
	out := ""
	for m := range ch.members {
		if out != "" {
			out += " "
		}
		if ch.ops[m] {
			out += "@"
		}
		out += m.nick
	}
	return out
}
