package suites

import (
	"context"

	"github.com/ircheck-project/ircheck-go/internal/harness/engine"
	"github.com/ircheck-project/ircheck-go/pkg/client"
	"github.com/ircheck-project/ircheck-go/pkg/proto"
)

// SingleUserSuite checks behaviors observable with one connection:
// registration, nick handling, joining and parting, topics, modes and
// keepalive.
type SingleUserSuite struct{}

func (s *SingleUserSuite) Name() string { return "single_user" }

func (s *SingleUserSuite) Scenarios() []engine.Scenario {
	return []engine.Scenario{
		{
			Name:        "connect_and_register",
			Description: "TCP connect followed by PASS/NICK/USER handshake yields 001",
			Run: func(ctx context.Context, t *engine.T) {
				sess := t.AddUser(t.NewNick())
				if sess.RegState() != client.Registered {
					t.Errorf("registration state = %v after welcome", sess.RegState())
				}
			},
		},
		{
			Name:        "register_bad_nick",
			Description: "a nickname starting with a digit is rejected with 432",
			Run: func(ctx context.Context, t *engine.T) {
				expectRegistrationRejected(ctx, t, "0badnick", proto.ErrErroneusNickname)
			},
		},
		{
			Name:        "register_nick_in_use",
			Description: "a second registration with an occupied nickname gets 433",
			Sessions:    1,
			Run: func(ctx context.Context, t *engine.T) {
				expectRegistrationRejected(ctx, t, t.Nick(0), proto.ErrNicknameInUse)
			},
		},
		{
			Name:        "nick_change",
			Description: "NICK after registration is echoed with the old nick as prefix",
			Sessions:    1,
			Run: func(ctx context.Context, t *engine.T) {
				sess := t.Session(0)
				oldNick := sess.Nick()
				newNick := t.NewNick()
				if _, err := sess.ChangeNick(newNick); err != nil {
					t.Fatalf("change nick: %v", err)
				}
				change := t.MustExpect(sess, client.And(
					client.MatchCommand(proto.CmdNick),
					client.MatchFrom(oldNick),
				), "NICK echo")
				if change.Param(0) != newNick {
					t.Errorf("NICK echo carries %q, want %q", change.Param(0), newNick)
				}
			},
		},
		{
			Name:        "join_basic",
			Description: "JOIN is echoed and answered with 353/366 naming the joiner",
			Sessions:    1,
			Run: func(ctx context.Context, t *engine.T) {
				sess := t.Session(0)
				ch := t.NewChannel()
				if err := sess.Join(ch); err != nil {
					t.Fatalf("join: %v", err)
				}
				t.MustExpect(sess, client.And(
					client.MatchCommand(proto.CmdJoin),
					client.MatchFrom(sess.Nick()),
				), "JOIN echo")
				names := t.MustExpect(sess, client.MatchCommand(proto.RplNamReply), "353 reply")
				if !client.MatchParamsContain(sess.Nick())(names) {
					t.Errorf("353 %q does not name the joiner", names.String())
				}
				t.MustExpect(sess, client.MatchCommand(proto.RplEndOfNames), "366 reply")
			},
		},
		{
			Name:        "part_basic",
			Description: "PART of a joined channel is echoed back",
			Sessions:    1,
			Run: func(ctx context.Context, t *engine.T) {
				sess := t.Session(0)
				ch := t.NewChannel()
				joinAndSettle(t, sess, ch)
				if err := sess.Part(ch); err != nil {
					t.Fatalf("part: %v", err)
				}
				t.MustExpect(sess, client.And(
					client.MatchCommand(proto.CmdPart),
					client.MatchFrom(sess.Nick()),
					client.MatchTarget(ch),
				), "PART echo")
			},
		},
		{
			Name:        "part_not_joined",
			Description: "PART of a channel the user is not on is rejected",
			Sessions:    1,
			Run: func(ctx context.Context, t *engine.T) {
				sess := t.Session(0)
				if err := sess.Part(t.NewChannel()); err != nil {
					t.Fatalf("part: %v", err)
				}
				t.MustExpect(sess, client.MatchAnyCommand(
					proto.ErrNotOnChannel, proto.ErrNoSuchChannel,
				), "PART rejection")
			},
		},
		{
			Name:        "topic_view_unset",
			Description: "TOPIC on a fresh channel reports no topic (331)",
			Requires:    []string{"topic"},
			Sessions:    1,
			Run: func(ctx context.Context, t *engine.T) {
				sess := t.Session(0)
				ch := t.NewChannel()
				joinAndSettle(t, sess, ch)
				if err := sess.Topic(ch); err != nil {
					t.Fatalf("topic query: %v", err)
				}
				t.MustExpect(sess, client.And(
					client.MatchCommand(proto.RplNoTopic),
					client.MatchParamsContain(ch),
				), "331 reply")
			},
		},
		{
			Name:        "topic_set_and_view",
			Description: "setting a topic broadcasts TOPIC and later queries return 332",
			Requires:    []string{"topic"},
			Sessions:    1,
			Run: func(ctx context.Context, t *engine.T) {
				sess := t.Session(0)
				ch := t.NewChannel()
				joinAndSettle(t, sess, ch)

				if err := sess.SetTopic(ch, "conformance topic"); err != nil {
					t.Fatalf("set topic: %v", err)
				}
				t.MustExpect(sess, client.And(
					client.MatchCommand(proto.CmdTopic),
					client.MatchTrailingContains("conformance topic"),
				), "TOPIC broadcast")

				if err := sess.Topic(ch); err != nil {
					t.Fatalf("topic query: %v", err)
				}
				reply := t.MustExpect(sess, client.MatchCommand(proto.RplTopic), "332 reply")
				if reply.Trailing() != "conformance topic" {
					t.Errorf("332 topic = %q", reply.Trailing())
				}
			},
		},
		{
			Name:        "mode_view",
			Description: "MODE query on a joined channel returns 324",
			Sessions:    1,
			Run: func(ctx context.Context, t *engine.T) {
				sess := t.Session(0)
				ch := t.NewChannel()
				joinAndSettle(t, sess, ch)
				if err := sess.Mode(ch); err != nil {
					t.Fatalf("mode query: %v", err)
				}
				t.MustExpect(sess, client.And(
					client.MatchCommand(proto.RplChannelModeIs),
					client.MatchParamsContain(ch),
				), "324 reply")
			},
		},
		{
			Name:        "privmsg_channel_accepted",
			Description: "PRIVMSG to a joined channel produces no error numeric",
			Sessions:    1,
			Run: func(ctx context.Context, t *engine.T) {
				sess := t.Session(0)
				ch := t.NewChannel()
				joinAndSettle(t, sess, ch)
				if err := sess.Privmsg(ch, "anyone here?"); err != nil {
					t.Fatalf("privmsg: %v", err)
				}
				t.MustNotReceive(sess, matchErrorNumeric, "PRIVMSG to joined channel")
			},
		},
		{
			Name:        "privmsg_self",
			Description: "PRIVMSG to one's own nick is delivered back",
			Requires:    []string{"echo_privmsg"},
			Sessions:    1,
			Run: func(ctx context.Context, t *engine.T) {
				sess := t.Session(0)
				if err := sess.Privmsg(sess.Nick(), "talking to myself"); err != nil {
					t.Fatalf("privmsg: %v", err)
				}
				t.MustExpect(sess, client.And(
					client.MatchCommand(proto.CmdPrivmsg),
					client.MatchTrailingContains("talking to myself"),
				), "self PRIVMSG delivery")
			},
		},
		{
			Name:        "ping_pong",
			Description: "server answers client PING with PONG carrying the token",
			Sessions:    1,
			Run: func(ctx context.Context, t *engine.T) {
				sess := t.Session(0)
				if err := sess.Ping("ircheck-token"); err != nil {
					t.Fatalf("ping: %v", err)
				}
				t.MustExpect(sess, client.And(
					client.MatchCommand(proto.CmdPong),
					client.MatchParamsContain("ircheck-token"),
				), "PONG reply")
			},
		},
	}
}
