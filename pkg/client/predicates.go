package client

import (
	"strings"

	"github.com/ircheck-project/ircheck-go/pkg/proto"
)

// Predicate decides whether a received message satisfies an
// expectation. Predicates must be pure: Expect may evaluate them any
// number of times against any queued message.
type Predicate func(*proto.Message) bool

// MatchCommand matches a command or numeric, case-insensitively.
func MatchCommand(cmd string) Predicate {
	return func(m *proto.Message) bool {
		return strings.EqualFold(m.Command, cmd)
	}
}

// MatchAnyCommand matches any of the given commands or numerics.
func MatchAnyCommand(cmds ...string) Predicate {
	return func(m *proto.Message) bool {
		for _, c := range cmds {
			if strings.EqualFold(m.Command, c) {
				return true
			}
		}
		return false
	}
}

// MatchFrom matches messages whose prefix nickname is nick.
func MatchFrom(nick string) Predicate {
	return func(m *proto.Message) bool {
		return strings.EqualFold(m.Nick(), nick)
	}
}

// MatchTarget matches messages whose first parameter is target
// (the recipient of PRIVMSG/NOTICE, the channel of KICK/MODE/TOPIC).
func MatchTarget(target string) Predicate {
	return func(m *proto.Message) bool {
		return strings.EqualFold(m.Param(0), target)
	}
}

// MatchTrailingContains matches messages whose trailing parameter
// contains s, case-insensitively.
func MatchTrailingContains(s string) Predicate {
	needle := strings.ToLower(s)
	return func(m *proto.Message) bool {
		return strings.Contains(strings.ToLower(m.Trailing()), needle)
	}
}

// MatchParamsContain matches messages whose joined parameter list
// contains s, case-insensitively.
func MatchParamsContain(s string) Predicate {
	needle := strings.ToLower(s)
	return func(m *proto.Message) bool {
		joined := strings.ToLower(strings.Join(m.Params, " "))
		return strings.Contains(joined, needle)
	}
}

// And matches when every predicate matches.
func And(preds ...Predicate) Predicate {
	return func(m *proto.Message) bool {
		for _, p := range preds {
			if !p(m) {
				return false
			}
		}
		return true
	}
}

// Or matches when at least one predicate matches.
func Or(preds ...Predicate) Predicate {
	return func(m *proto.Message) bool {
		for _, p := range preds {
			if p(m) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(m *proto.Message) bool {
		return !p(m)
	}
}
