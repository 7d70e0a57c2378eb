package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ircheck-project/ircheck-go/pkg/client"
	"github.com/ircheck-project/ircheck-go/pkg/proto"
)

const wait = 5 * time.Second

func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv, err := Start(cfg)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv
}

func connectUser(t *testing.T, srv *Server, nick string) *client.Session {
	t.Helper()
	s, err := client.Connect(context.Background(), srv.Addr(), client.Config{Nick: nick})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Register(context.Background()))
	// Flush the welcome burst.
	s.Collect(context.Background(), 100*time.Millisecond)
	s.DrainUnexpected()
	return s
}

// joinChannel joins and waits for the joiner's own JOIN echo and 366
// before returning. Joins on independent connections are otherwise
// processed in arbitrary order, which decides who gets operator status.
func joinChannel(t *testing.T, s *client.Session, channel string, key ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Join(channel, key...))
	_, err := s.Expect(ctx, client.And(
		client.MatchCommand(proto.CmdJoin), client.MatchFrom(s.Nick())), wait)
	require.NoError(t, err)
	_, err = s.Expect(ctx, client.MatchCommand(proto.RplEndOfNames), wait)
	require.NoError(t, err)
}

// expectModeEcho waits until the server has confirmed a MODE change to
// its setter, so later commands observe the new channel state.
func expectModeEcho(t *testing.T, s *client.Session) {
	t.Helper()
	_, err := s.Expect(context.Background(), client.MatchCommand(proto.CmdMode), wait)
	require.NoError(t, err)
}

func TestRegistration(t *testing.T) {
	srv := startServer(t, Config{})
	s := connectUser(t, srv, "alice")
	assert.Equal(t, client.Registered, s.RegState())
}

func TestRegistrationPassword(t *testing.T) {
	srv := startServer(t, Config{Password: "sekrit"})

	bad, err := client.Connect(context.Background(), srv.Addr(), client.Config{Nick: "eve", Password: "wrong"})
	require.NoError(t, err)
	defer bad.Close()
	err = bad.Register(context.Background())
	var regErr *client.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, proto.ErrPasswdMismatch, regErr.Code)

	good, err := client.Connect(context.Background(), srv.Addr(), client.Config{Nick: "bob", Password: "sekrit"})
	require.NoError(t, err)
	defer good.Close()
	require.NoError(t, good.Register(context.Background()))
}

func TestNickConflicts(t *testing.T) {
	srv := startServer(t, Config{})
	connectUser(t, srv, "taken")

	dup, err := client.Connect(context.Background(), srv.Addr(), client.Config{Nick: "taken"})
	require.NoError(t, err)
	defer dup.Close()
	err = dup.Register(context.Background())
	var regErr *client.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, proto.ErrNicknameInUse, regErr.Code)

	bad, err := client.Connect(context.Background(), srv.Addr(), client.Config{Nick: "9starts-with-digit"})
	require.NoError(t, err)
	defer bad.Close()
	err = bad.Register(context.Background())
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, proto.ErrErroneusNickname, regErr.Code)
}

func TestJoinNamesAndOperator(t *testing.T) {
	srv := startServer(t, Config{})
	a := connectUser(t, srv, "alice")
	b := connectUser(t, srv, "bob")
	ctx := context.Background()

	require.NoError(t, a.Join("#room"))
	_, err := a.Expect(ctx, client.MatchCommand(proto.CmdJoin), wait)
	require.NoError(t, err)
	names, err := a.Expect(ctx, client.MatchCommand(proto.RplNamReply), wait)
	require.NoError(t, err)
	assert.Contains(t, names.Trailing(), "@alice", "first joiner gets operator status")

	require.NoError(t, b.Join("#room"))
	names, err = b.Expect(ctx, client.MatchCommand(proto.RplNamReply), wait)
	require.NoError(t, err)
	assert.Contains(t, names.Trailing(), "bob")

	// alice sees bob's JOIN.
	join, err := a.Expect(ctx, client.MatchCommand(proto.CmdJoin), wait)
	require.NoError(t, err)
	assert.Equal(t, "bob", join.Nick())
}

func TestChannelBroadcastNoSelfEcho(t *testing.T) {
	srv := startServer(t, Config{})
	a := connectUser(t, srv, "alice")
	b := connectUser(t, srv, "bob")
	ctx := context.Background()

	require.NoError(t, a.Join("#room"))
	require.NoError(t, b.Join("#room"))
	_, err := b.Expect(ctx, client.MatchCommand(proto.RplEndOfNames), wait)
	require.NoError(t, err)

	require.NoError(t, a.Privmsg("#room", "hello room"))
	msg, err := b.Expect(ctx, client.MatchCommand(proto.CmdPrivmsg), wait)
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.Nick())
	assert.Equal(t, "hello room", msg.Trailing())

	// The sender gets no echo of its own channel message.
	for _, m := range a.Collect(ctx, 200*time.Millisecond) {
		assert.NotEqual(t, proto.CmdPrivmsg, m.Command, "sender received echo %v", m)
	}
}

func TestTopicLock(t *testing.T) {
	srv := startServer(t, Config{})
	op := connectUser(t, srv, "op")
	peon := connectUser(t, srv, "peon")
	ctx := context.Background()

	joinChannel(t, op, "#room")
	joinChannel(t, peon, "#room")

	require.NoError(t, op.Mode("#room", "+t"))
	expectModeEcho(t, op)

	require.NoError(t, peon.SetTopic("#room", "sneaky"))
	denied, err := peon.Expect(ctx, client.MatchCommand(proto.ErrChanOPrivsNeeded), wait)
	require.NoError(t, err)
	assert.Equal(t, "#room", denied.Param(1))

	require.NoError(t, op.SetTopic("#room", "official topic"))
	topic, err := peon.Expect(ctx, client.MatchCommand(proto.CmdTopic), wait)
	require.NoError(t, err)
	assert.Equal(t, "official topic", topic.Trailing())
}

func TestInviteOnly(t *testing.T) {
	srv := startServer(t, Config{})
	op := connectUser(t, srv, "op")
	guest := connectUser(t, srv, "guest")
	ctx := context.Background()

	joinChannel(t, op, "#club")
	require.NoError(t, op.Mode("#club", "+i"))
	expectModeEcho(t, op)

	require.NoError(t, guest.Join("#club"))
	_, err := guest.Expect(ctx, client.MatchCommand(proto.ErrInviteOnlyChan), wait)
	require.NoError(t, err)

	require.NoError(t, op.Invite("guest", "#club"))
	inviting, err := op.Expect(ctx, client.MatchCommand(proto.RplInviting), wait)
	require.NoError(t, err)
	assert.Equal(t, "guest", inviting.Param(1))
	_, err = guest.Expect(ctx, client.MatchCommand(proto.CmdInvite), wait)
	require.NoError(t, err)

	joinChannel(t, guest, "#club")
}

func TestChannelKeyAndLimit(t *testing.T) {
	srv := startServer(t, Config{})
	op := connectUser(t, srv, "op")
	u1 := connectUser(t, srv, "uone")
	u2 := connectUser(t, srv, "utwo")
	ctx := context.Background()

	joinChannel(t, op, "#gate")
	require.NoError(t, op.Mode("#gate", "+k", "hunter2"))
	expectModeEcho(t, op)

	require.NoError(t, u1.Join("#gate"))
	_, err := u1.Expect(ctx, client.MatchCommand(proto.ErrBadChannelKey), wait)
	require.NoError(t, err)

	joinChannel(t, u1, "#gate", "hunter2")

	require.NoError(t, op.Mode("#gate", "+l", "2"))
	expectModeEcho(t, op)
	require.NoError(t, u2.Join("#gate", "hunter2"))
	_, err = u2.Expect(ctx, client.MatchCommand(proto.ErrChannelIsFull), wait)
	require.NoError(t, err)
}

func TestKickSemantics(t *testing.T) {
	srv := startServer(t, Config{})
	op := connectUser(t, srv, "op")
	victim := connectUser(t, srv, "victim")
	bystander := connectUser(t, srv, "bystand")
	ctx := context.Background()

	joinChannel(t, op, "#room")
	joinChannel(t, victim, "#room")
	joinChannel(t, bystander, "#room")

	// Non-operator kicks are rejected.
	require.NoError(t, victim.Kick("#room", "bystand", "no"))
	_, err := victim.Expect(ctx, client.MatchCommand(proto.ErrChanOPrivsNeeded), wait)
	require.NoError(t, err)

	require.NoError(t, op.Kick("#room", "victim", "gone"))
	kick, err := victim.Expect(ctx, client.MatchCommand(proto.CmdKick), wait)
	require.NoError(t, err)
	assert.Equal(t, "victim", kick.Param(1))
	assert.Equal(t, "gone", kick.Trailing())

	// The kicked user is really gone.
	require.NoError(t, bystander.Privmsg("#room", "still here?"))
	for _, m := range victim.Collect(ctx, 200*time.Millisecond) {
		assert.NotEqual(t, proto.CmdPrivmsg, m.Command)
	}
}

func TestKickMultipleTargets(t *testing.T) {
	srv := startServer(t, Config{})
	op := connectUser(t, srv, "op")
	v1 := connectUser(t, srv, "vone")
	v2 := connectUser(t, srv, "vtwo")
	ctx := context.Background()

	joinChannel(t, op, "#room")
	joinChannel(t, v1, "#room")
	joinChannel(t, v2, "#room")

	require.NoError(t, op.Kick("#room", "vone,vtwo", "sweep"))
	_, err := v1.Expect(ctx, client.And(
		client.MatchCommand(proto.CmdKick), client.MatchParamsContain("vone")), wait)
	require.NoError(t, err)
	_, err = v2.Expect(ctx, client.And(
		client.MatchCommand(proto.CmdKick), client.MatchParamsContain("vtwo")), wait)
	require.NoError(t, err)
}

func TestOperatorGrantRevoke(t *testing.T) {
	srv := startServer(t, Config{})
	op := connectUser(t, srv, "op")
	peer := connectUser(t, srv, "peer")
	mark := connectUser(t, srv, "mark")
	ctx := context.Background()

	joinChannel(t, op, "#room")
	joinChannel(t, peer, "#room")
	joinChannel(t, mark, "#room")

	require.NoError(t, op.Mode("#room", "+o", "peer"))
	grant, err := peer.Expect(ctx, client.And(
		client.MatchCommand(proto.CmdMode), client.MatchParamsContain("+o")), wait)
	require.NoError(t, err)
	assert.Equal(t, "peer", grant.Param(2))

	// The new operator can kick.
	require.NoError(t, peer.Kick("#room", "mark", "authorized"))
	_, err = mark.Expect(ctx, client.MatchCommand(proto.CmdKick), wait)
	require.NoError(t, err)

	require.NoError(t, op.Mode("#room", "-o", "peer"))
	_, err = peer.Expect(ctx, client.And(
		client.MatchCommand(proto.CmdMode), client.MatchParamsContain("-o")), wait)
	require.NoError(t, err)
}

func TestModeQuery(t *testing.T) {
	srv := startServer(t, Config{})
	op := connectUser(t, srv, "op")
	ctx := context.Background()

	require.NoError(t, op.Join("#room"))
	require.NoError(t, op.Mode("#room", "+tk", "pw"))
	require.NoError(t, op.Mode("#room"))

	reply, err := op.Expect(ctx, client.MatchCommand(proto.RplChannelModeIs), wait)
	require.NoError(t, err)
	assert.Contains(t, reply.Param(2), "t")
	assert.Contains(t, reply.Param(2), "k")
}

func TestNickChangeBroadcast(t *testing.T) {
	srv := startServer(t, Config{})
	a := connectUser(t, srv, "alice")
	b := connectUser(t, srv, "bob")
	ctx := context.Background()

	require.NoError(t, a.Join("#room"))
	require.NoError(t, b.Join("#room"))
	b.Expect(ctx, client.MatchCommand(proto.RplEndOfNames), wait)

	_, err := a.ChangeNick("alicia")
	require.NoError(t, err)

	change, err := b.Expect(ctx, client.MatchCommand(proto.CmdNick), wait)
	require.NoError(t, err)
	assert.Equal(t, "alice", change.Nick())
	assert.Equal(t, "alicia", change.Param(0))
}
