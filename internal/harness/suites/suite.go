// Package suites defines the conformance scenarios the harness runs
// against an IRC server: a single-user suite covering registration
// and basic channel operations, and a multi-user suite covering
// message routing, operator privileges and channel modes.
package suites

import (
	"context"
	"errors"

	"github.com/ircheck-project/ircheck-go/internal/harness/engine"
	"github.com/ircheck-project/ircheck-go/pkg/client"
	"github.com/ircheck-project/ircheck-go/pkg/proto"
)

// All returns every suite in run order.
func All() []engine.Suite {
	return []engine.Suite{
		&SingleUserSuite{},
		&MultiUserSuite{},
	}
}

// matchErrorNumeric matches any 4xx/5xx error reply.
func matchErrorNumeric(m *proto.Message) bool {
	return m.IsNumeric() && (m.Command[0] == '4' || m.Command[0] == '5')
}

// joinAndSettle joins a channel and consumes the join burst (JOIN
// echo, optional topic, NAMES) so later expectations start clean.
func joinAndSettle(t *engine.T, s *client.Session, channel string, key ...string) {
	if err := s.Join(channel, key...); err != nil {
		t.Fatalf("join %s: %v", channel, err)
	}
	t.MustExpect(s, client.And(
		client.MatchCommand(proto.CmdJoin),
		client.MatchFrom(s.Nick()),
	), "own JOIN for "+channel)
	t.MustExpect(s, client.MatchCommand(proto.RplEndOfNames), "end of NAMES for "+channel)
}

// expectRegistrationRejected registers a throwaway session expecting
// the given numeric. The session is torn down with the scenario.
func expectRegistrationRejected(ctx context.Context, t *engine.T, nick, code string) {
	s := t.Connect(nick)

	err := s.Register(ctx)
	if err == nil {
		t.Fatalf("registration of %q succeeded, want rejection %s", nick, code)
	}
	var regErr *client.RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("registration of %q failed with %v, want numeric %s", nick, err, code)
	}
	if regErr.Code != code {
		t.Errorf("registration of %q rejected with %s, want %s", nick, regErr.Code, code)
	}
}
