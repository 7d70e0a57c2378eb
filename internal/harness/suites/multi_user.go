package suites

import (
	"context"

	"github.com/ircheck-project/ircheck-go/internal/harness/engine"
	"github.com/ircheck-project/ircheck-go/pkg/client"
	"github.com/ircheck-project/ircheck-go/pkg/proto"
)

// MultiUserSuite checks behaviors that need several concurrent
// connections: message routing, broadcast fan-out, operator
// privileges and channel mode enforcement.
type MultiUserSuite struct{}

func (s *MultiUserSuite) Name() string { return "multi_user" }

func (s *MultiUserSuite) Scenarios() []engine.Scenario {
	return []engine.Scenario{
		{
			Name:        "privmsg_user",
			Description: "a private message reaches exactly its addressee",
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				a, b := t.Session(0), t.Session(1)
				if err := a.Privmsg(b.Nick(), "psst"); err != nil {
					t.Fatalf("privmsg: %v", err)
				}
				msg := t.MustExpect(b, client.And(
					client.MatchCommand(proto.CmdPrivmsg),
					client.MatchFrom(a.Nick()),
				), "private message delivery")
				if msg.Trailing() != "psst" {
					t.Errorf("delivered text = %q", msg.Trailing())
				}
				t.MustNotReceive(a, client.MatchCommand(proto.CmdPrivmsg), "sender echo")
			},
		},
		{
			Name:        "privmsg_no_such_nick",
			Description: "PRIVMSG to an unknown nick is answered with 401",
			Sessions:    1,
			Run: func(ctx context.Context, t *engine.T) {
				sess := t.Session(0)
				if err := sess.Privmsg(t.NewNick(), "anyone?"); err != nil {
					t.Fatalf("privmsg: %v", err)
				}
				t.MustExpect(sess, client.MatchCommand(proto.ErrNoSuchNick), "401 reply")
			},
		},
		{
			Name:        "channel_broadcast",
			Description: "a channel message fans out to every member except the sender and non-members",
			Sessions:    4,
			Run: func(ctx context.Context, t *engine.T) {
				a, b, c, outsider := t.Session(0), t.Session(1), t.Session(2), t.Session(3)
				ch := t.NewChannel()
				joinAndSettle(t, a, ch)
				joinAndSettle(t, b, ch)
				joinAndSettle(t, c, ch)
				t.Settle(a, b, c, outsider)

				pred := client.And(
					client.MatchCommand(proto.CmdPrivmsg),
					client.MatchFrom(a.Nick()),
					client.MatchTrailingContains("fan out"),
				)
				for _, receiver := range []*client.Session{b, c} {
					recv := receiver
					t.Go(func() {
						t.Barrier("sent")
						t.MustExpect(recv, pred, "broadcast to "+recv.Nick())
					})
				}

				if err := a.Privmsg(ch, "fan out"); err != nil {
					t.Fatalf("privmsg: %v", err)
				}
				t.Barrier("sent")

				t.MustNotReceive(outsider, pred, "broadcast to non-member")
				t.MustNotReceive(a, pred, "broadcast echo to sender")
			},
		},
		{
			Name:        "no_self_echo",
			Description: "channel traffic is not echoed back to its sender",
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				a, b := t.Session(0), t.Session(1)
				ch := t.NewChannel()
				joinAndSettle(t, a, ch)
				joinAndSettle(t, b, ch)
				t.Settle(a, b)

				if err := a.Privmsg(ch, "once only"); err != nil {
					t.Fatalf("privmsg: %v", err)
				}
				t.MustExpect(b, client.MatchTrailingContains("once only"), "delivery to member")
				t.MustNotReceive(a, client.MatchCommand(proto.CmdPrivmsg), "sender echo")
			},
		},
		{
			Name:        "notice_channel",
			Description: "NOTICE to a channel is delivered like PRIVMSG but never errors",
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				a, b := t.Session(0), t.Session(1)
				ch := t.NewChannel()
				joinAndSettle(t, a, ch)
				joinAndSettle(t, b, ch)
				t.Settle(a, b)

				if err := a.Notice(ch, "heads up"); err != nil {
					t.Fatalf("notice: %v", err)
				}
				t.MustExpect(b, client.And(
					client.MatchCommand(proto.CmdNotice),
					client.MatchTrailingContains("heads up"),
				), "NOTICE delivery")

				// NOTICE to a nonexistent channel must stay silent.
				if err := a.Notice(t.NewChannel(), "void"); err != nil {
					t.Fatalf("notice: %v", err)
				}
				t.MustNotReceive(a, matchErrorNumeric, "NOTICE error reply")
			},
		},
		{
			Name:        "join_visible_to_members",
			Description: "existing members see newcomers' JOIN",
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				a, b := t.Session(0), t.Session(1)
				ch := t.NewChannel()
				joinAndSettle(t, a, ch)

				if err := b.Join(ch); err != nil {
					t.Fatalf("join: %v", err)
				}
				t.MustExpect(a, client.And(
					client.MatchCommand(proto.CmdJoin),
					client.MatchFrom(b.Nick()),
				), "JOIN broadcast")
			},
		},
		{
			Name:        "first_join_operator_status",
			Description: "the first member is channel operator, shown as @ in 353",
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				a, b := t.Session(0), t.Session(1)
				ch := t.NewChannel()
				joinAndSettle(t, a, ch)

				if err := b.Join(ch); err != nil {
					t.Fatalf("join: %v", err)
				}
				names := t.MustExpect(b, client.MatchCommand(proto.RplNamReply), "353 reply")
				if !client.MatchParamsContain("@"+a.Nick())(names) {
					t.Errorf("353 %q lacks operator flag for first joiner", names.String())
				}
			},
		},
		{
			Name:        "nick_change_broadcast",
			Description: "NICK changes reach everyone sharing a channel",
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				a, b := t.Session(0), t.Session(1)
				ch := t.NewChannel()
				joinAndSettle(t, a, ch)
				joinAndSettle(t, b, ch)
				t.Settle(a, b)

				oldNick := a.Nick()
				newNick := t.NewNick()
				if _, err := a.ChangeNick(newNick); err != nil {
					t.Fatalf("change nick: %v", err)
				}
				change := t.MustExpect(b, client.And(
					client.MatchCommand(proto.CmdNick),
					client.MatchFrom(oldNick),
				), "NICK broadcast")
				if change.Param(0) != newNick {
					t.Errorf("NICK broadcast carries %q, want %q", change.Param(0), newNick)
				}
			},
		},
		{
			Name:        "kick_basic",
			Description: "a channel operator can KICK a member, visible to the victim",
			Requires:    []string{"kick"},
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				op, victim := t.Session(0), t.Session(1)
				ch := t.NewChannel()
				joinAndSettle(t, op, ch)
				joinAndSettle(t, victim, ch)
				t.Settle(op, victim)

				if err := op.Kick(ch, victim.Nick(), "tested"); err != nil {
					t.Fatalf("kick: %v", err)
				}
				kick := t.MustExpect(victim, client.And(
					client.MatchCommand(proto.CmdKick),
					client.MatchTarget(ch),
				), "KICK delivery")
				if kick.Param(1) != victim.Nick() {
					t.Errorf("KICK names %q, want %q", kick.Param(1), victim.Nick())
				}

				// Membership is really gone: the victim can no longer
				// speak on the channel.
				if err := victim.Privmsg(ch, "still here"); err != nil {
					t.Fatalf("privmsg after kick: %v", err)
				}
				t.MustExpect(victim, client.MatchAnyCommand(
					proto.ErrCannotSendToChan, proto.ErrNotOnChannel,
				), "PRIVMSG rejection after KICK")
				t.MustNotReceive(op, client.MatchTrailingContains("still here"), "message from kicked user")
			},
		},
		{
			Name:        "kick_without_privilege",
			Description: "KICK from a non-operator is rejected with 482",
			Requires:    []string{"kick"},
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				op, peon := t.Session(0), t.Session(1)
				ch := t.NewChannel()
				joinAndSettle(t, op, ch)
				joinAndSettle(t, peon, ch)
				t.Settle(op, peon)

				if err := peon.Kick(ch, op.Nick(), "coup"); err != nil {
					t.Fatalf("kick: %v", err)
				}
				t.MustExpect(peon, client.MatchCommand(proto.ErrChanOPrivsNeeded), "482 reply")
				t.MustNotReceive(op, client.MatchCommand(proto.CmdKick), "unauthorized KICK")
			},
		},
		{
			Name:        "kick_one_to_n",
			Description: "KICK with comma-separated targets removes each of them",
			Requires:    []string{"kick", "multi-target-kick"},
			Sessions:    3,
			Run: func(ctx context.Context, t *engine.T) {
				op, v1, v2 := t.Session(0), t.Session(1), t.Session(2)
				ch := t.NewChannel()
				joinAndSettle(t, op, ch)
				joinAndSettle(t, v1, ch)
				joinAndSettle(t, v2, ch)
				t.Settle(op, v1, v2)

				if err := op.Kick(ch, v1.Nick()+","+v2.Nick(), "sweep"); err != nil {
					t.Fatalf("kick: %v", err)
				}
				for _, victim := range []*client.Session{v1, v2} {
					t.MustExpect(victim, client.And(
						client.MatchCommand(proto.CmdKick),
						client.MatchParamsContain(victim.Nick()),
					), "KICK delivery to "+victim.Nick())
				}
			},
		},
		{
			Name:        "kick_n_channels",
			Description: "KICK with paired channel and target lists acts pairwise",
			Requires:    []string{"kick", "multi-target-kick"},
			Sessions:    3,
			Run: func(ctx context.Context, t *engine.T) {
				op, v1, v2 := t.Session(0), t.Session(1), t.Session(2)
				ch1, ch2 := t.NewChannel(), t.NewChannel()
				joinAndSettle(t, op, ch1)
				joinAndSettle(t, op, ch2)
				joinAndSettle(t, v1, ch1)
				joinAndSettle(t, v2, ch2)
				t.Settle(op, v1, v2)

				if err := op.Kick(ch1+","+ch2, v1.Nick()+","+v2.Nick(), "pairs"); err != nil {
					t.Fatalf("kick: %v", err)
				}
				k1 := t.MustExpect(v1, client.MatchCommand(proto.CmdKick), "KICK in first channel")
				if k1.Param(0) != ch1 || k1.Param(1) != v1.Nick() {
					t.Errorf("first KICK = %q", k1.String())
				}
				k2 := t.MustExpect(v2, client.MatchCommand(proto.CmdKick), "KICK in second channel")
				if k2.Param(0) != ch2 || k2.Param(1) != v2.Nick() {
					t.Errorf("second KICK = %q", k2.String())
				}
			},
		},
		{
			Name:        "invite",
			Description: "INVITE is confirmed with 341 and delivered to the target",
			Requires:    []string{"invite"},
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				a, b := t.Session(0), t.Session(1)
				ch := t.NewChannel()
				joinAndSettle(t, a, ch)

				if err := a.Invite(b.Nick(), ch); err != nil {
					t.Fatalf("invite: %v", err)
				}
				confirm := t.MustExpect(a, client.MatchCommand(proto.RplInviting), "341 reply")
				if !client.MatchParamsContain(b.Nick())(confirm) ||
					!client.MatchParamsContain(ch)(confirm) {
					t.Errorf("341 = %q, want nick and channel", confirm.String())
				}
				t.MustExpect(b, client.And(
					client.MatchCommand(proto.CmdInvite),
					client.MatchFrom(a.Nick()),
				), "INVITE delivery")
			},
		},
		{
			Name:        "invite_only_enforced",
			Description: "+i blocks joins with 473 until the user is invited",
			Requires:    []string{"invite", "mode.i"},
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				op, guest := t.Session(0), t.Session(1)
				ch := t.NewChannel()
				joinAndSettle(t, op, ch)
				if err := op.Mode(ch, "+i"); err != nil {
					t.Fatalf("mode +i: %v", err)
				}
				t.Settle(op)

				if err := guest.Join(ch); err != nil {
					t.Fatalf("join: %v", err)
				}
				t.MustExpect(guest, client.MatchCommand(proto.ErrInviteOnlyChan), "473 reply")

				// The rejected joiner is not a member and must not see
				// channel traffic.
				if err := op.Privmsg(ch, "members only"); err != nil {
					t.Fatalf("privmsg: %v", err)
				}
				t.MustNotReceive(guest, client.And(
					client.MatchCommand(proto.CmdPrivmsg),
					client.MatchTrailingContains("members only"),
				), "broadcast to rejected joiner")

				if err := op.Invite(guest.Nick(), ch); err != nil {
					t.Fatalf("invite: %v", err)
				}
				t.MustExpect(guest, client.MatchCommand(proto.CmdInvite), "INVITE delivery")

				if err := guest.Join(ch); err != nil {
					t.Fatalf("rejoin: %v", err)
				}
				t.MustExpect(guest, client.MatchCommand(proto.RplEndOfNames), "join after invite")
			},
		},
		{
			Name:        "part_then_rejoin_invite_only",
			Description: "an invite is consumed by joining; rejoining +i needs a fresh one",
			Requires:    []string{"invite", "mode.i"},
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				op, guest := t.Session(0), t.Session(1)
				ch := t.NewChannel()
				joinAndSettle(t, op, ch)
				if err := op.Mode(ch, "+i"); err != nil {
					t.Fatalf("mode +i: %v", err)
				}
				t.Settle(op)

				if err := op.Invite(guest.Nick(), ch); err != nil {
					t.Fatalf("invite: %v", err)
				}
				t.MustExpect(guest, client.MatchCommand(proto.CmdInvite), "INVITE delivery")
				joinAndSettle(t, guest, ch)

				if err := guest.Part(ch); err != nil {
					t.Fatalf("part: %v", err)
				}
				t.MustExpect(guest, client.And(
					client.MatchCommand(proto.CmdPart),
					client.MatchFrom(guest.Nick()),
				), "PART echo")

				if err := guest.Join(ch); err != nil {
					t.Fatalf("rejoin: %v", err)
				}
				t.MustExpect(guest, client.MatchCommand(proto.ErrInviteOnlyChan), "473 on rejoin")
			},
		},
		{
			Name:        "topic_lock",
			Description: "+t restricts TOPIC changes to operators",
			Requires:    []string{"topic", "mode.t"},
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				op, peon := t.Session(0), t.Session(1)
				ch := t.NewChannel()
				joinAndSettle(t, op, ch)
				joinAndSettle(t, peon, ch)
				if err := op.Mode(ch, "+t"); err != nil {
					t.Fatalf("mode +t: %v", err)
				}
				t.Settle(op, peon)

				if err := peon.SetTopic(ch, "unauthorized"); err != nil {
					t.Fatalf("set topic: %v", err)
				}
				t.MustExpect(peon, client.MatchCommand(proto.ErrChanOPrivsNeeded), "482 reply")

				if err := op.SetTopic(ch, "locked topic"); err != nil {
					t.Fatalf("set topic: %v", err)
				}
				t.MustExpect(peon, client.And(
					client.MatchCommand(proto.CmdTopic),
					client.MatchTrailingContains("locked topic"),
				), "TOPIC broadcast")
			},
		},
		{
			Name:        "channel_key",
			Description: "+k rejects keyless joins with 475 and admits the right key",
			Requires:    []string{"mode.k"},
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				op, guest := t.Session(0), t.Session(1)
				ch := t.NewChannel()
				joinAndSettle(t, op, ch)
				if err := op.Mode(ch, "+k", "letmein"); err != nil {
					t.Fatalf("mode +k: %v", err)
				}
				t.Settle(op)

				if err := guest.Join(ch); err != nil {
					t.Fatalf("join: %v", err)
				}
				t.MustExpect(guest, client.MatchCommand(proto.ErrBadChannelKey), "475 reply")

				if err := guest.Join(ch, "letmein"); err != nil {
					t.Fatalf("join with key: %v", err)
				}
				t.MustExpect(guest, client.MatchCommand(proto.RplEndOfNames), "join with key")
			},
		},
		{
			Name:        "operator_grant_revoke",
			Description: "+o confers KICK authority and -o removes it",
			Requires:    []string{"kick", "mode.o"},
			Sessions:    4,
			Run: func(ctx context.Context, t *engine.T) {
				op, deputy, m1, m2 := t.Session(0), t.Session(1), t.Session(2), t.Session(3)
				ch := t.NewChannel()
				joinAndSettle(t, op, ch)
				joinAndSettle(t, deputy, ch)
				joinAndSettle(t, m1, ch)
				joinAndSettle(t, m2, ch)
				t.Settle(op, deputy, m1, m2)

				if err := op.Mode(ch, "+o", deputy.Nick()); err != nil {
					t.Fatalf("mode +o: %v", err)
				}
				t.MustExpect(deputy, client.And(
					client.MatchCommand(proto.CmdMode),
					client.MatchParamsContain("+o"),
				), "+o broadcast")

				if err := deputy.Kick(ch, m1.Nick(), "authorized"); err != nil {
					t.Fatalf("kick: %v", err)
				}
				t.MustExpect(m1, client.MatchCommand(proto.CmdKick), "KICK by new operator")

				if err := op.Mode(ch, "-o", deputy.Nick()); err != nil {
					t.Fatalf("mode -o: %v", err)
				}
				t.MustExpect(deputy, client.And(
					client.MatchCommand(proto.CmdMode),
					client.MatchParamsContain("-o"),
				), "-o broadcast")
				t.Settle(deputy, m2)

				if err := deputy.Kick(ch, m2.Nick(), "overreach"); err != nil {
					t.Fatalf("kick: %v", err)
				}
				t.MustExpect(deputy, client.MatchCommand(proto.ErrChanOPrivsNeeded), "482 after -o")
				t.MustNotReceive(m2, client.MatchCommand(proto.CmdKick), "KICK after -o")
			},
		},
		{
			Name:        "user_limit",
			Description: "+l caps membership with 471 and -l lifts the cap",
			Requires:    []string{"mode.l"},
			Sessions:    2,
			Run: func(ctx context.Context, t *engine.T) {
				op, guest := t.Session(0), t.Session(1)
				ch := t.NewChannel()
				joinAndSettle(t, op, ch)
				if err := op.Mode(ch, "+l", "1"); err != nil {
					t.Fatalf("mode +l: %v", err)
				}
				t.Settle(op)

				if err := guest.Join(ch); err != nil {
					t.Fatalf("join: %v", err)
				}
				t.MustExpect(guest, client.MatchCommand(proto.ErrChannelIsFull), "471 reply")

				if err := op.Mode(ch, "-l"); err != nil {
					t.Fatalf("mode -l: %v", err)
				}
				t.Settle(op)
				if err := guest.Join(ch); err != nil {
					t.Fatalf("rejoin: %v", err)
				}
				t.MustExpect(guest, client.MatchCommand(proto.RplEndOfNames), "join after -l")
			},
		},
	}
}
