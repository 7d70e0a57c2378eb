package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ircheck-project/ircheck-go/pkg/irclog"
	"github.com/ircheck-project/ircheck-go/pkg/proto"
	"github.com/ircheck-project/ircheck-go/pkg/transport"
)

// RegState is the registration handshake state.
type RegState int

const (
	// Unregistered means no handshake has been attempted.
	Unregistered RegState = iota
	// RegistrationSent means PASS/NICK/USER went out and the session is
	// waiting for the welcome numeric.
	RegistrationSent
	// Registered means the server accepted the handshake (001).
	Registered
	// RegFailed means the handshake was rejected or timed out.
	RegFailed
)

// String returns the state name.
func (s RegState) String() string {
	switch s {
	case Unregistered:
		return "Unregistered"
	case RegistrationSent:
		return "RegistrationSent"
	case Registered:
		return "Registered"
	case RegFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Defaults for Config fields left zero.
const (
	DefaultRegistrationTimeout = 10 * time.Second
	DefaultQueueLimit          = 1024
)

// Config configures a Session.
type Config struct {
	// Nick is the desired nickname.
	Nick string

	// Username for the USER command. Defaults to Nick.
	Username string

	// Realname for the USER command. Defaults to Nick.
	Realname string

	// Password for the PASS command; empty means no PASS is sent.
	Password string

	// RegistrationTimeout bounds the Register handshake.
	RegistrationTimeout time.Duration

	// QueueLimit caps the inbound queue. When the cap is hit the oldest
	// queued message is dropped and counted.
	QueueLimit int

	// Logger receives protocol capture events. Nil disables capture.
	Logger irclog.Logger

	// Slog is the operational logger. Nil means slog.Default().
	Slog *slog.Logger

	// Scenario labels capture events with the owning scenario name.
	Scenario string
}

// Inbound is one received message with its arrival metadata.
type Inbound struct {
	// Seq is the session-monotonic arrival sequence number.
	Seq uint64

	// Msg is the parsed message.
	Msg *proto.Message

	// At is the arrival time.
	At time.Time
}

// Session drives one connection through registration and exposes the
// send/expect API. Create with Connect; destroy with Close.
//
// The inbound queue is single-producer/single-consumer: exactly one
// goroutine (the scenario step owning the session) may call Expect,
// ExpectAll, Collect or DrainUnexpected at a time.
type Session struct {
	cfg  Config
	id   string
	conn *transport.Connection
	log  *slog.Logger

	mu        sync.Mutex
	regState  RegState
	nick      string
	queue     []Inbound
	seq       uint64
	dropped   int
	parseErrs []string
	closed    bool
	closeErr  error

	notify   chan struct{}
	done     chan struct{}
	loopDone chan struct{}
}

// Connect dials the server and starts the session's receive loop.
// The session is not yet registered; call Register next.
func Connect(ctx context.Context, addr string, cfg Config) (*Session, error) {
	if cfg.Username == "" {
		cfg.Username = cfg.Nick
	}
	if cfg.Realname == "" {
		cfg.Realname = cfg.Nick
	}
	if cfg.RegistrationTimeout <= 0 {
		cfg.RegistrationTimeout = DefaultRegistrationTimeout
	}
	if cfg.QueueLimit <= 0 {
		cfg.QueueLimit = DefaultQueueLimit
	}
	if cfg.Slog == nil {
		cfg.Slog = slog.Default()
	}

	conn, err := transport.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		id:       uuid.NewString(),
		conn:     conn,
		nick:     cfg.Nick,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	s.log = cfg.Slog.With("conn_id", s.id, "nick", cfg.Nick)
	if cfg.Logger != nil {
		conn.SetLogger(&sessionEventLogger{s: s, next: cfg.Logger}, s.id)
	}

	go s.receiveLoop()
	return s, nil
}

// ID returns the session's connection UUID.
func (s *Session) ID() string { return s.id }

// Nick returns the session's current nickname.
func (s *Session) Nick() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nick
}

// RegState returns the registration state.
func (s *Session) RegState() RegState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regState
}

// ParseErrors returns diagnostics for malformed lines received from the
// server. Malformed traffic never matches an Expect but is always
// surfaced here.
func (s *Session) ParseErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.parseErrs))
	copy(out, s.parseErrs)
	return out
}

// Dropped returns the number of messages discarded due to the queue cap.
func (s *Session) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Register performs the PASS/NICK/USER handshake and blocks until the
// welcome numeric (001), a rejection numeric, or the registration
// timeout. On any failure the session transitions to RegFailed and a
// *RegistrationError is returned.
func (s *Session) Register(ctx context.Context) error {
	s.setRegState(RegistrationSent, "handshake sent")

	if s.cfg.Password != "" {
		if err := s.Send(proto.CmdPass, s.cfg.Password); err != nil {
			s.setRegState(RegFailed, "send failed")
			return &RegistrationError{Nick: s.cfg.Nick, Err: err}
		}
	}
	if err := s.Send(proto.CmdNick, s.cfg.Nick); err != nil {
		s.setRegState(RegFailed, "send failed")
		return &RegistrationError{Nick: s.cfg.Nick, Err: err}
	}
	user := proto.New(proto.CmdUser, s.cfg.Username, "0", "*", s.cfg.Realname)
	user.ForcedTrailing = true
	if err := s.SendMessage(user); err != nil {
		s.setRegState(RegFailed, "send failed")
		return &RegistrationError{Nick: s.cfg.Nick, Err: err}
	}

	outcome := MatchAnyCommand(
		proto.RplWelcome,
		proto.ErrErroneusNickname,
		proto.ErrNicknameInUse,
		proto.ErrNickCollision,
		proto.ErrPasswdMismatch,
	)
	msg, err := s.Expect(ctx, outcome, s.cfg.RegistrationTimeout)
	if err != nil {
		s.setRegState(RegFailed, "no welcome")
		return &RegistrationError{Nick: s.cfg.Nick, Err: err}
	}
	if msg.Command != proto.RplWelcome {
		s.setRegState(RegFailed, "rejected "+msg.Command)
		return &RegistrationError{Nick: s.cfg.Nick, Code: msg.Command, Reply: msg}
	}

	s.setRegState(Registered, "welcome received")
	return nil
}

// Send serializes one message and writes it. It never waits for a
// reply.
func (s *Session) Send(command string, params ...string) error {
	return s.SendMessage(proto.New(command, params...))
}

// SendMessage writes a prebuilt message.
func (s *Session) SendMessage(msg *proto.Message) error {
	return s.conn.WriteLine(msg.String())
}

// Expect scans the inbound queue in arrival order for the first message
// satisfying pred, consuming only that message. Non-matching messages
// stay queued for later calls. It blocks until a match arrives, the
// timeout expires (*TimeoutError carrying the unmatched queue), the
// connection closes (*ConnectionClosedError, immediately rather than at
// the deadline), or ctx is canceled.
func (s *Session) Expect(ctx context.Context, pred Predicate, timeout time.Duration) (*proto.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		s.mu.Lock()
		for i := range s.queue {
			if pred(s.queue[i].Msg) {
				msg := s.queue[i].Msg
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				s.mu.Unlock()
				return msg, nil
			}
		}
		if s.closed {
			err := s.closeErr
			s.mu.Unlock()
			return nil, &ConnectionClosedError{Err: err}
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-s.done:
		case <-timer.C:
			return nil, &TimeoutError{Wait: timeout, Unmatched: s.snapshotQueue()}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// ExpectAll waits until every predicate has matched a distinct message,
// in any order, within one shared window. Matched messages are consumed;
// everything else stays queued. The result slice is indexed like preds.
func (s *Session) ExpectAll(ctx context.Context, timeout time.Duration, preds ...Predicate) ([]*proto.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	matched := make([]*proto.Message, len(preds))
	remaining := len(preds)

	for {
		s.mu.Lock()
		i := 0
		for i < len(s.queue) {
			consumed := false
			for p := range preds {
				if matched[p] != nil {
					continue
				}
				if preds[p](s.queue[i].Msg) {
					matched[p] = s.queue[i].Msg
					s.queue = append(s.queue[:i], s.queue[i+1:]...)
					remaining--
					consumed = true
					break
				}
			}
			if !consumed {
				i++
			}
		}
		if remaining == 0 {
			s.mu.Unlock()
			return matched, nil
		}
		if s.closed {
			err := s.closeErr
			s.mu.Unlock()
			return nil, &ConnectionClosedError{Err: err}
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-s.done:
		case <-timer.C:
			return nil, &TimeoutError{Wait: timeout, Unmatched: s.snapshotQueue()}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Collect gathers every message that has arrived by the end of the
// window, consuming them. It always waits out the full window.
func (s *Session) Collect(ctx context.Context, window time.Duration) []*proto.Message {
	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-s.done:
	}
	return s.DrainUnexpected()
}

// DrainUnexpected returns and clears every message never consumed by an
// Expect call, in arrival order. Used for post-scenario diagnostics and
// for asserting that no extra traffic occurred.
func (s *Session) DrainUnexpected() []*proto.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*proto.Message, len(s.queue))
	for i := range s.queue {
		out[i] = s.queue[i].Msg
	}
	s.queue = nil
	return out
}

// Close tears the session down: a best-effort QUIT, then the socket.
// Idempotent. Any pending Expect unblocks with *ConnectionClosedError.
func (s *Session) Close() error {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.mu.Unlock()

	if !alreadyClosed {
		_ = s.Send(proto.CmdQuit, "Leaving")
	}
	err := s.conn.Close()
	<-s.loopDone
	return err
}

// receiveLoop pumps inbound lines into the queue for the session's
// entire lifetime. On a read error it records the terminal condition
// and wakes every pending Expect.
func (s *Session) receiveLoop() {
	defer close(s.loopDone)

	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			s.shutdown(err)
			return
		}

		msg, err := proto.Parse(line)
		if err != nil {
			s.recordParseError(err)
			continue
		}

		// Keepalive: answer server PINGs transparently. The PING still
		// enters the queue as ordinary noise.
		if strings.EqualFold(msg.Command, proto.CmdPing) {
			_ = s.Send(proto.CmdPong, msg.Trailing())
		}

		s.enqueue(msg)
	}
}

func (s *Session) enqueue(msg *proto.Message) {
	s.mu.Lock()
	s.seq++
	if len(s.queue) >= s.cfg.QueueLimit {
		s.queue = s.queue[1:]
		s.dropped++
	}
	s.queue = append(s.queue, Inbound{Seq: s.seq, Msg: msg, At: time.Now()})
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Session) shutdown(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if !errors.Is(err, io.EOF) && !errors.Is(err, transport.ErrClosed) {
		s.closeErr = err
	}
	s.mu.Unlock()
	close(s.done)

	if s.closeErr != nil {
		s.log.Debug("receive loop terminated", "error", err)
	}
}

func (s *Session) recordParseError(err error) {
	s.mu.Lock()
	s.parseErrs = append(s.parseErrs, err.Error())
	s.mu.Unlock()

	s.log.Warn("malformed line from server", "error", err)
	if s.cfg.Logger != nil {
		s.cfg.Logger.Log(irclog.Event{
			Timestamp:    time.Now(),
			ConnectionID: s.id,
			Direction:    irclog.DirectionIn,
			Layer:        irclog.LayerSession,
			Category:     irclog.CategoryError,
			Nick:         s.Nick(),
			Scenario:     s.cfg.Scenario,
			Error: &irclog.ErrorEventData{
				Layer:   irclog.LayerSession,
				Message: err.Error(),
				Context: "parse inbound line",
			},
		})
	}
}

func (s *Session) setRegState(state RegState, reason string) {
	s.mu.Lock()
	old := s.regState
	s.regState = state
	s.mu.Unlock()

	if s.cfg.Logger != nil {
		s.cfg.Logger.Log(irclog.Event{
			Timestamp:    time.Now(),
			ConnectionID: s.id,
			Layer:        irclog.LayerSession,
			Category:     irclog.CategoryState,
			Nick:         s.Nick(),
			Scenario:     s.cfg.Scenario,
			StateChange: &irclog.StateChangeEvent{
				Entity:   irclog.StateEntitySession,
				OldState: old.String(),
				NewState: state.String(),
				Reason:   reason,
			},
		})
	}
}

// snapshotQueue serializes the pending queue for timeout diagnostics.
func (s *Session) snapshotQueue() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.queue))
	for i := range s.queue {
		out[i] = s.queue[i].Msg.String()
	}
	return out
}

// sessionEventLogger decorates transport events with session identity
// before forwarding them to the configured capture logger.
type sessionEventLogger struct {
	s    *Session
	next irclog.Logger
}

func (l *sessionEventLogger) Log(event irclog.Event) {
	event.Nick = l.s.Nick()
	event.Scenario = l.s.cfg.Scenario
	l.next.Log(event)
}
