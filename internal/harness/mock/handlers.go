package mock

import (
	"strconv"
	"strings"

	"github.com/ircheck-project/ircheck-go/pkg/proto"
)

// dispatch handles one parsed command. Channel and client state is
// manipulated under the server mutex; the mock favors simplicity over
// write concurrency.
func (s *Server) dispatch(c *clientConn, msg *proto.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := strings.ToUpper(msg.Command)
	switch cmd {
	case proto.CmdPass:
		s.handlePass(c, msg)
	case proto.CmdNick:
		s.handleNick(c, msg)
	case proto.CmdUser:
		s.handleUser(c, msg)
	case proto.CmdPing:
		s.handlePing(c, msg)
	case proto.CmdQuit:
		s.handleQuit(c, msg)
	case proto.CmdPong:
		// ignored
	default:
		if !c.registered {
			c.reply(proto.ErrNotRegistered, "You have not registered")
			return
		}
		switch cmd {
		case proto.CmdJoin:
			s.handleJoin(c, msg)
		case proto.CmdPart:
			s.handlePart(c, msg)
		case proto.CmdPrivmsg:
			s.handleMessage(c, msg, proto.CmdPrivmsg)
		case proto.CmdNotice:
			s.handleMessage(c, msg, proto.CmdNotice)
		case proto.CmdTopic:
			s.handleTopic(c, msg)
		case proto.CmdMode:
			s.handleMode(c, msg)
		case proto.CmdKick:
			s.handleKick(c, msg)
		case proto.CmdInvite:
			s.handleInvite(c, msg)
		case proto.CmdNames:
			s.handleNames(c, msg)
		default:
			c.reply(proto.ErrUnknownCommand, cmd, "Unknown command")
		}
	}
}

func (s *Server) handlePass(c *clientConn, msg *proto.Message) {
	if c.registered {
		c.reply(proto.ErrAlreadyRegistred, "You may not reregister")
		return
	}
	if msg.Param(0) == "" {
		c.reply(proto.ErrNeedMoreParams, proto.CmdPass, "Not enough parameters")
		return
	}
	c.passOK = msg.Param(0) == s.cfg.Password
}

// validNick enforces the RFC 1459 nickname grammar: a letter followed
// by letters, digits or -[]\`^{}_ with at most nine characters.
func validNick(nick string) bool {
	if nick == "" || len(nick) > 9 {
		return false
	}
	first := nick[0]
	if !(first >= 'a' && first <= 'z' || first >= 'A' && first <= 'Z') {
		return false
	}
	for i := 1; i < len(nick); i++ {
		ch := nick[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case strings.IndexByte("-[]\\`^{}_", ch) >= 0:
		default:
			return false
		}
	}
	return true
}

func (s *Server) handleNick(c *clientConn, msg *proto.Message) {
	nick := msg.Param(0)
	if nick == "" {
		c.reply(proto.ErrNeedMoreParams, proto.CmdNick, "Not enough parameters")
		return
	}
	if !validNick(nick) {
		c.reply(proto.ErrErroneusNickname, nick, "Erroneous nickname")
		return
	}
	if other, ok := s.clients[lower(nick)]; ok && other != c {
		c.reply(proto.ErrNicknameInUse, nick, "Nickname is already in use")
		return
	}

	old := c.nick
	if old != "" {
		delete(s.clients, lower(old))
	}
	c.nick = nick
	s.clients[lower(nick)] = c

	if c.registered {
		// Announce the change to the client and everyone sharing a
		// channel with it, once each.
		notified := map[*clientConn]bool{c: true}
		oldPrefix := old + "!" + c.username + "@" + ServerName
		change := proto.New(proto.CmdNick, nick)
		change.Prefix = oldPrefix
		change.ForcedTrailing = true
		c.send(change)
		for _, ch := range s.channels {
			if !ch.has(c) {
				continue
			}
			for m := range ch.members {
				if !notified[m] {
					notified[m] = true
					m.send(change)
				}
			}
		}
		return
	}
	s.maybeWelcome(c)
}

func (s *Server) handleUser(c *clientConn, msg *proto.Message) {
	if c.registered {
		c.reply(proto.ErrAlreadyRegistred, "You may not reregister")
		return
	}
	if len(msg.Params) < 4 {
		c.reply(proto.ErrNeedMoreParams, proto.CmdUser, "Not enough parameters")
		return
	}
	c.username = msg.Param(0)
	c.realname = msg.Param(3)
	s.maybeWelcome(c)
}

// maybeWelcome completes registration once both NICK and USER were
// accepted, checking the server password first.
func (s *Server) maybeWelcome(c *clientConn) {
	if c.registered || c.nick == "" || c.username == "" {
		return
	}
	if s.cfg.Password != "" && !c.passOK {
		c.reply(proto.ErrPasswdMismatch, "Password incorrect")
		return
	}
	c.registered = true
	c.reply(proto.RplWelcome, "Welcome to the Mock IRC Network "+c.prefix())
	c.reply(proto.RplYourHost, "Your host is "+ServerName)
	c.reply(proto.RplCreated, "This server was created just now")
	c.reply(proto.RplMyInfo, ServerName+" mock o itklo")
}

func (s *Server) handlePing(c *clientConn, msg *proto.Message) {
	token := msg.Param(0)
	pong := proto.New(proto.CmdPong, ServerName, token)
	pong.Prefix = ServerName
	pong.ForcedTrailing = true
	c.send(pong)
}

func (s *Server) handleQuit(c *clientConn, msg *proto.Message) {
	reason := msg.Trailing()
	if reason == "" {
		reason = "Client quit"
	}
	s.partAllLocked(c, reason)
	c.conn.Close()
}

// partAllOnQuit removes a dropped client from every channel. Called
// from the read loop without the server lock held.
func (s *Server) partAllOnQuit(c *clientConn, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partAllLocked(c, reason)
}

func (s *Server) partAllLocked(c *clientConn, reason string) {
	for name, ch := range s.channels {
		if !ch.has(c) {
			continue
		}
		delete(ch.members, c)
		delete(ch.ops, c)
		ch.broadcast(c, proto.CmdQuit, reason)
		if len(ch.members) == 0 {
			delete(s.channels, name)
		}
	}
}

func (s *Server) handleJoin(c *clientConn, msg *proto.Message) {
	name := msg.Param(0)
	if name == "" {
		c.reply(proto.ErrNeedMoreParams, proto.CmdJoin, "Not enough parameters")
		return
	}
	if !strings.HasPrefix(name, "#") && !strings.HasPrefix(name, "&") {
		c.reply(proto.ErrNoSuchChannel, name, "No such channel")
		return
	}

	ch := s.channels[lower(name)]
	if ch == nil {
		ch = newChannel(name)
		s.channels[lower(name)] = ch
	}
	if ch.has(c) {
		return
	}

	if ch.inviteOnly && !ch.invited[lower(c.nick)] {
		c.reply(proto.ErrInviteOnlyChan, ch.name, "Cannot join channel (+i)")
		return
	}
	if ch.key != "" && msg.Param(1) != ch.key {
		c.reply(proto.ErrBadChannelKey, ch.name, "Cannot join channel (+k)")
		return
	}
	if ch.limit > 0 && len(ch.members) >= ch.limit {
		c.reply(proto.ErrChannelIsFull, ch.name, "Cannot join channel (+l)")
		return
	}

	delete(ch.invited, lower(c.nick))
	ch.members[c] = true
	if len(ch.members) == 1 {
		ch.ops[c] = true
	}
	ch.broadcast(c, proto.CmdJoin, ch.name)

	if ch.topic != "" {
		c.reply(proto.RplTopic, ch.name, ch.topic)
	}
	c.reply(proto.RplNamReply, "=", ch.name, ch.names())
	c.reply(proto.RplEndOfNames, ch.name, "End of /NAMES list")
}

func (s *Server) handlePart(c *clientConn, msg *proto.Message) {
	name := msg.Param(0)
	ch := s.channels[lower(name)]
	if ch == nil {
		c.reply(proto.ErrNoSuchChannel, name, "No such channel")
		return
	}
	if !ch.has(c) {
		c.reply(proto.ErrNotOnChannel, ch.name, "You're not on that channel")
		return
	}
	params := []string{ch.name}
	if reason := msg.Trailing(); reason != "" && len(msg.Params) > 1 {
		params = append(params, reason)
	}
	ch.broadcast(c, proto.CmdPart, params...)
	delete(ch.members, c)
	delete(ch.ops, c)
	if len(ch.members) == 0 {
		delete(s.channels, lower(name))
	}
}

// handleMessage covers PRIVMSG and NOTICE. NOTICE never produces
// error numerics.
func (s *Server) handleMessage(c *clientConn, msg *proto.Message, command string) {
	target := msg.Param(0)
	notice := command == proto.CmdNotice
	if target == "" {
		if !notice {
			c.reply(proto.ErrNoRecipient, "No recipient given ("+command+")")
		}
		return
	}
	if len(msg.Params) < 2 {
		if !notice {
			c.reply(proto.ErrNoTextToSend, "No text to send")
		}
		return
	}
	text := msg.Param(1)

	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&") {
		ch := s.channels[lower(target)]
		if ch == nil {
			if !notice {
				c.reply(proto.ErrNoSuchChannel, target, "No such channel")
			}
			return
		}
		if !ch.has(c) {
			if !notice {
				c.reply(proto.ErrCannotSendToChan, ch.name, "Cannot send to channel")
			}
			return
		}
		// Channel traffic is never echoed back to its sender.
		for m := range ch.members {
			if m != c {
				m.fromUser(c, command, ch.name, text)
			}
		}
		return
	}

	dst := s.clients[lower(target)]
	if dst == nil {
		if !notice {
			c.reply(proto.ErrNoSuchNick, target, "No such nick/channel")
		}
		return
	}
	dst.fromUser(c, command, dst.nick, text)
}

func (s *Server) handleTopic(c *clientConn, msg *proto.Message) {
	name := msg.Param(0)
	ch := s.channels[lower(name)]
	if ch == nil {
		c.reply(proto.ErrNoSuchChannel, name, "No such channel")
		return
	}
	if !ch.has(c) {
		c.reply(proto.ErrNotOnChannel, ch.name, "You're not on that channel")
		return
	}

	if len(msg.Params) < 2 {
		if ch.topic == "" {
			c.reply(proto.RplNoTopic, ch.name, "No topic is set")
		} else {
			c.reply(proto.RplTopic, ch.name, ch.topic)
		}
		return
	}

	if ch.topicLock && !ch.isOp(c) {
		c.reply(proto.ErrChanOPrivsNeeded, ch.name, "You're not channel operator")
		return
	}
	ch.topic = msg.Param(1)
	ch.broadcast(c, proto.CmdTopic, ch.name, ch.topic)
}

func (s *Server) handleMode(c *clientConn, msg *proto.Message) {
	target := msg.Param(0)
	if !strings.HasPrefix(target, "#") && !strings.HasPrefix(target, "&") {
		// User modes are out of scope for the mock.
		return
	}
	ch := s.channels[lower(target)]
	if ch == nil {
		c.reply(proto.ErrNoSuchChannel, target, "No such channel")
		return
	}

	if len(msg.Params) < 2 {
		c.reply(proto.RplChannelModeIs, append([]string{ch.name}, ch.modeString()...)...)
		return
	}

	if !ch.isOp(c) {
		c.reply(proto.ErrChanOPrivsNeeded, ch.name, "You're not channel operator")
		return
	}

	flags := msg.Param(1)
	args := msg.Params[2:]
	adding := true
	nextArg := func() string {
		if len(args) == 0 {
			return ""
		}
		a := args[0]
		args = args[1:]
		return a
	}

	for _, letter := range flags {
		switch letter {
		case '+':
			adding = true
		case '-':
			adding = false
		case proto.ModeInviteOnly:
			ch.inviteOnly = adding
			s.announceMode(ch, c, adding, 'i', "")
		case proto.ModeTopicLock:
			ch.topicLock = adding
			s.announceMode(ch, c, adding, 't', "")
		case proto.ModeKey:
			if adding {
				key := nextArg()
				if key == "" {
					c.reply(proto.ErrNeedMoreParams, proto.CmdMode, "Not enough parameters")
					continue
				}
				ch.key = key
				s.announceMode(ch, c, true, 'k', key)
			} else {
				ch.key = ""
				s.announceMode(ch, c, false, 'k', "")
			}
		case proto.ModeUserLimit:
			if adding {
				n, err := strconv.Atoi(nextArg())
				if err != nil || n <= 0 {
					c.reply(proto.ErrNeedMoreParams, proto.CmdMode, "Not enough parameters")
					continue
				}
				ch.limit = n
				s.announceMode(ch, c, true, 'l', strconv.Itoa(n))
			} else {
				ch.limit = 0
				s.announceMode(ch, c, false, 'l', "")
			}
		case proto.ModeOperator:
			nick := nextArg()
			member := ch.memberByNick(nick)
			if member == nil {
				c.reply(proto.ErrUserNotInChannel, nick, ch.name, "They aren't on that channel")
				continue
			}
			if adding {
				ch.ops[member] = true
			} else {
				delete(ch.ops, member)
			}
			s.announceMode(ch, c, adding, 'o', member.nick)
		}
	}
}

func (s *Server) announceMode(ch *channel, from *clientConn, adding bool, letter byte, arg string) {
	sign := "+"
	if !adding {
		sign = "-"
	}
	params := []string{ch.name, sign + string(letter)}
	if arg != "" {
		params = append(params, arg)
	}
	ch.broadcast(from, proto.CmdMode, params...)
}

// handleKick supports both one channel with comma-separated targets
// and pairwise channel/target lists.
func (s *Server) handleKick(c *clientConn, msg *proto.Message) {
	if len(msg.Params) < 2 {
		c.reply(proto.ErrNeedMoreParams, proto.CmdKick, "Not enough parameters")
		return
	}
	channels := strings.Split(msg.Param(0), ",")
	targets := strings.Split(msg.Param(1), ",")
	reason := msg.Param(2)
	if reason == "" {
		reason = c.nick
	}

	pairwise := len(channels) == len(targets) && len(channels) > 1
	for i, target := range targets {
		name := channels[0]
		if pairwise {
			name = channels[i]
		}
		s.kickOne(c, name, target, reason)
	}
}

func (s *Server) kickOne(c *clientConn, name, target, reason string) {
	ch := s.channels[lower(name)]
	if ch == nil {
		c.reply(proto.ErrNoSuchChannel, name, "No such channel")
		return
	}
	if !ch.has(c) {
		c.reply(proto.ErrNotOnChannel, ch.name, "You're not on that channel")
		return
	}
	if !ch.isOp(c) {
		c.reply(proto.ErrChanOPrivsNeeded, ch.name, "You're not channel operator")
		return
	}
	victim := ch.memberByNick(target)
	if victim == nil {
		c.reply(proto.ErrUserNotInChannel, target, ch.name, "They aren't on that channel")
		return
	}
	ch.broadcast(c, proto.CmdKick, ch.name, victim.nick, reason)
	delete(ch.members, victim)
	delete(ch.ops, victim)
	if len(ch.members) == 0 {
		delete(s.channels, lower(name))
	}
}

func (s *Server) handleInvite(c *clientConn, msg *proto.Message) {
	nick := msg.Param(0)
	name := msg.Param(1)
	if nick == "" || name == "" {
		c.reply(proto.ErrNeedMoreParams, proto.CmdInvite, "Not enough parameters")
		return
	}
	target := s.clients[lower(nick)]
	if target == nil {
		c.reply(proto.ErrNoSuchNick, nick, "No such nick/channel")
		return
	}
	ch := s.channels[lower(name)]
	if ch != nil {
		if !ch.has(c) {
			c.reply(proto.ErrNotOnChannel, ch.name, "You're not on that channel")
			return
		}
		if ch.has(target) {
			c.reply(proto.ErrUserOnChannel, target.nick, ch.name, "is already on channel")
			return
		}
		if ch.inviteOnly && !ch.isOp(c) {
			c.reply(proto.ErrChanOPrivsNeeded, ch.name, "You're not channel operator")
			return
		}
		ch.invited[lower(target.nick)] = true
	}
	c.reply(proto.RplInviting, target.nick, name)
	target.fromUser(c, proto.CmdInvite, target.nick, name)
}

func (s *Server) handleNames(c *clientConn, msg *proto.Message) {
	name := msg.Param(0)
	ch := s.channels[lower(name)]
	if ch != nil {
		c.reply(proto.RplNamReply, "=", ch.name, ch.names())
	}
	c.reply(proto.RplEndOfNames, name, "End of /NAMES list")
}
