package client

import "github.com/ircheck-project/ircheck-go/pkg/proto"

// Convenience wrappers for the commands the harness exercises. All of
// them go through Send, so formatting stays with the codec.

// Join sends JOIN for channel, optionally with a key.
func (s *Session) Join(channel string, key ...string) error {
	if len(key) > 0 && key[0] != "" {
		return s.Send(proto.CmdJoin, channel, key[0])
	}
	return s.Send(proto.CmdJoin, channel)
}

// Part sends PART for channel, optionally with a reason.
func (s *Session) Part(channel string, reason ...string) error {
	if len(reason) > 0 && reason[0] != "" {
		return s.Send(proto.CmdPart, channel, reason[0])
	}
	return s.Send(proto.CmdPart, channel)
}

// Privmsg sends PRIVMSG to target (nick or channel).
func (s *Session) Privmsg(target, text string) error {
	msg := proto.New(proto.CmdPrivmsg, target, text)
	msg.ForcedTrailing = true
	return s.SendMessage(msg)
}

// Notice sends NOTICE to target.
func (s *Session) Notice(target, text string) error {
	msg := proto.New(proto.CmdNotice, target, text)
	msg.ForcedTrailing = true
	return s.SendMessage(msg)
}

// Kick removes targets (a nick or comma-separated nicks) from channel.
func (s *Session) Kick(channel, targets, reason string) error {
	if reason != "" {
		msg := proto.New(proto.CmdKick, channel, targets, reason)
		msg.ForcedTrailing = true
		return s.SendMessage(msg)
	}
	return s.Send(proto.CmdKick, channel, targets)
}

// Invite invites nick to channel.
func (s *Session) Invite(nick, channel string) error {
	return s.Send(proto.CmdInvite, nick, channel)
}

// Topic queries the channel topic.
func (s *Session) Topic(channel string) error {
	return s.Send(proto.CmdTopic, channel)
}

// SetTopic changes the channel topic.
func (s *Session) SetTopic(channel, topic string) error {
	msg := proto.New(proto.CmdTopic, channel, topic)
	msg.ForcedTrailing = true
	return s.SendMessage(msg)
}

// Mode sends MODE for target with optional flags and arguments.
func (s *Session) Mode(target string, args ...string) error {
	return s.Send(proto.CmdMode, append([]string{target}, args...)...)
}

// Ping sends a client-originated PING with the given token.
func (s *Session) Ping(token string) error {
	msg := proto.New(proto.CmdPing, token)
	msg.ForcedTrailing = true
	return s.SendMessage(msg)
}

// ChangeNick sends NICK and optimistically adopts the new nickname.
// Returns the previous nickname.
func (s *Session) ChangeNick(newNick string) (string, error) {
	if err := s.Send(proto.CmdNick, newNick); err != nil {
		return "", err
	}
	s.mu.Lock()
	old := s.nick
	s.nick = newNick
	s.mu.Unlock()
	return old, nil
}
