package proto

// Client-to-server commands exercised by the harness.
const (
	CmdPass    = "PASS"
	CmdNick    = "NICK"
	CmdUser    = "USER"
	CmdJoin    = "JOIN"
	CmdPart    = "PART"
	CmdPrivmsg = "PRIVMSG"
	CmdNotice  = "NOTICE"
	CmdPing    = "PING"
	CmdPong    = "PONG"
	CmdKick    = "KICK"
	CmdInvite  = "INVITE"
	CmdTopic   = "TOPIC"
	CmdMode    = "MODE"
	CmdQuit    = "QUIT"
	CmdNames   = "NAMES"
	CmdError   = "ERROR"
)

// Numeric reply codes (RFC 2812 §5). Codes are kept as their wire
// representation since Message.Command is a string.
const (
	RplWelcome       = "001"
	RplYourHost      = "002"
	RplCreated       = "003"
	RplMyInfo        = "004"
	RplIson          = "303"
	RplChannelModeIs = "324"
	RplNoTopic       = "331"
	RplTopic         = "332"
	RplInviting      = "341"
	RplNamReply      = "353"
	RplEndOfNames    = "366"

	ErrNoSuchNick        = "401"
	ErrNoSuchChannel     = "403"
	ErrCannotSendToChan  = "404"
	ErrNoRecipient       = "411"
	ErrNoTextToSend      = "412"
	ErrUnknownCommand    = "421"
	ErrErroneusNickname  = "432"
	ErrNicknameInUse     = "433"
	ErrNickCollision     = "436"
	ErrUserNotInChannel  = "441"
	ErrNotOnChannel      = "442"
	ErrUserOnChannel     = "443"
	ErrNotRegistered     = "451"
	ErrNeedMoreParams    = "461"
	ErrAlreadyRegistred  = "462"
	ErrPasswdMismatch    = "464"
	ErrChannelIsFull     = "471"
	ErrInviteOnlyChan    = "473"
	ErrBannedFromChan    = "474"
	ErrBadChannelKey     = "475"
	ErrNoPrivileges      = "481"
	ErrChanOPrivsNeeded  = "482"
)

// Channel mode letters from the MODE grammar subset under test.
const (
	ModeInviteOnly    = 'i'
	ModeTopicLock     = 't'
	ModeKey           = 'k'
	ModeOperator      = 'o'
	ModeUserLimit     = 'l'
)
