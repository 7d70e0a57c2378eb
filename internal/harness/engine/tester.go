package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ircheck-project/ircheck-go/pkg/client"
	"github.com/ircheck-project/ircheck-go/pkg/proto"
)

// failNow is the panic value Fatalf uses to unwind a scenario step.
type failNow struct{}

// T is the per-scenario context handed to scenario bodies. It owns the
// scenario's sessions, hands out unique names, coordinates concurrent
// steps, and records assertion outcomes.
//
// Fatalf and the Must helpers unwind the calling goroutine with a
// panic the engine recovers; they must only be called from the
// scenario body or from steps started with Go.
type T struct {
	scenario string
	cfg      Config
	namer    *Namer
	log      *slog.Logger
	ctx      context.Context

	mu       sync.Mutex
	sessions []*client.Session
	nicks    []string
	failed   bool
	errored  bool
	diags    []string

	stepMu      sync.Mutex
	activeSteps int
	barriers    map[string]*barrierState
	wg          sync.WaitGroup
}

type barrierState struct {
	arrived int
	release chan struct{}
}

func newT(ctx context.Context, scenario string, cfg Config, namer *Namer) *T {
	return &T{
		scenario: scenario,
		cfg:      cfg,
		namer:    namer,
		log:      cfg.Slog.With("scenario", scenario),
		ctx:      ctx,
		barriers: make(map[string]*barrierState),
	}
}

// Session returns the i-th pre-registered session.
func (t *T) Session(i int) *client.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[i]
}

// Nick returns the nickname session i registered with.
func (t *T) Nick(i int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nicks[i]
}

// Addr returns the host:port of the server under test, for scenarios
// that manage a connection by hand (e.g. expecting registration to be
// rejected).
func (t *T) Addr() string { return t.cfg.Addr() }

// ClientConfig returns a session config carrying the target's
// password and the scenario's protocol logger.
func (t *T) ClientConfig(nick string) client.Config {
	return client.Config{
		Nick:     nick,
		Password: t.cfg.Password,
		Logger:   t.cfg.Logger,
		Slog:     t.log,
		Scenario: t.scenario,
	}
}

// NewNick returns a fresh run-unique nickname.
func (t *T) NewNick() string { return t.namer.Nick() }

// NewChannel returns a fresh run-unique channel name.
func (t *T) NewChannel() string { return t.namer.Channel() }

// AddUser connects and registers an extra session mid-scenario. The
// session is torn down with the rest. Failure aborts the scenario
// with an Error verdict.
func (t *T) AddUser(nick string) *client.Session {
	s, err := t.setupUser(nick)
	if err != nil {
		t.errorNow("add user %s: %v", nick, err)
	}
	return s
}

// Connect dials the server without registering, for scenarios that
// drive the registration exchange by hand. A dial failure is a harness
// error, not a conformance failure. The session is torn down with the
// rest.
func (t *T) Connect(nick string) *client.Session {
	s, err := client.Connect(t.ctx, t.cfg.Addr(), t.ClientConfig(nick))
	if err != nil {
		t.errorNow("connect %s: %v", t.cfg.Addr(), err)
	}
	t.mu.Lock()
	t.sessions = append(t.sessions, s)
	t.nicks = append(t.nicks, nick)
	t.mu.Unlock()
	return s
}

// setupUser dials, registers and settles one session. Sessions are
// tracked before registration so teardown reaches them on every path.
func (t *T) setupUser(nick string) (*client.Session, error) {
	s, err := client.Connect(t.ctx, t.cfg.Addr(), t.ClientConfig(nick))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", t.cfg.Addr(), err)
	}

	t.mu.Lock()
	t.sessions = append(t.sessions, s)
	t.nicks = append(t.nicks, nick)
	t.mu.Unlock()

	if err := s.Register(t.ctx); err != nil {
		return nil, fmt.Errorf("register %s: %w", nick, err)
	}

	// Let the welcome burst (MOTD, LUSERS) drain out of the queue.
	s.Collect(t.ctx, t.cfg.SettleWindow)
	s.DrainUnexpected()
	return s, nil
}

// Logf records operational detail. It does not affect the verdict.
func (t *T) Logf(format string, args ...any) {
	t.log.Debug(fmt.Sprintf(format, args...))
}

// Errorf records a failed assertion and lets the scenario continue.
func (t *T) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.log.Debug("assertion failed", "detail", msg)
	t.mu.Lock()
	t.failed = true
	t.diags = append(t.diags, msg)
	t.mu.Unlock()
}

// Fatalf records a failed assertion and unwinds the current step.
func (t *T) Fatalf(format string, args ...any) {
	t.Errorf(format, args...)
	panic(failNow{})
}

// errorNow records a harness-level error (rather than a server
// conformance failure) and unwinds the current step.
func (t *T) errorNow(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.log.Debug("scenario error", "detail", msg)
	t.mu.Lock()
	t.errored = true
	t.diags = append(t.diags, msg)
	t.mu.Unlock()
	panic(failNow{})
}

// MustExpect waits for a message matching pred on s, failing the
// scenario when none arrives within the configured expect timeout.
// what names the expectation in diagnostics.
func (t *T) MustExpect(s *client.Session, pred client.Predicate, what string) *proto.Message {
	msg, err := s.Expect(t.ctx, pred, t.cfg.ExpectTimeout)
	if err != nil {
		var toErr *client.TimeoutError
		if errors.As(err, &toErr) {
			t.Fatalf("%s: no matching message within %v (queued: %v)", what, toErr.Wait, toErr.Unmatched)
		}
		var closedErr *client.ConnectionClosedError
		if errors.As(err, &closedErr) {
			t.Fatalf("%s: connection closed while waiting: %v", what, err)
		}
		t.errorNow("%s: %v", what, err)
	}
	return msg
}

// MustExpectAll waits for messages matching every predicate in any
// arrival order within one expect window.
func (t *T) MustExpectAll(s *client.Session, what string, preds ...client.Predicate) []*proto.Message {
	msgs, err := s.ExpectAll(t.ctx, t.cfg.ExpectTimeout, preds...)
	if err != nil {
		var toErr *client.TimeoutError
		if errors.As(err, &toErr) {
			t.Fatalf("%s: messages missing after %v (queued: %v)", what, toErr.Wait, toErr.Unmatched)
		}
		t.errorNow("%s: %v", what, err)
	}
	return msgs
}

// MustNotReceive collects traffic on s over the settle window and
// fails when any collected message matches pred.
func (t *T) MustNotReceive(s *client.Session, pred client.Predicate, what string) {
	for _, msg := range s.Collect(t.ctx, t.cfg.SettleWindow) {
		if pred(msg) {
			t.Errorf("%s: unexpectedly received %q", what, msg.String())
		}
	}
}

// Settle waits the settle window on each session and discards
// whatever queued up, so later expectations start from silence.
func (t *T) Settle(sessions ...*client.Session) {
	for _, s := range sessions {
		s.Collect(t.ctx, t.cfg.SettleWindow)
		s.DrainUnexpected()
	}
}

// Send sends a command on s, aborting the scenario when the write
// fails.
func (t *T) Send(s *client.Session, command string, params ...string) {
	if err := s.Send(command, params...); err != nil {
		t.errorNow("send %s: %v", command, err)
	}
}

// SendMessage sends a prebuilt message on s.
func (t *T) SendMessage(s *client.Session, msg *proto.Message) {
	if err := s.SendMessage(msg); err != nil {
		t.errorNow("send %s: %v", msg.Command, err)
	}
}

// Go runs step on its own goroutine as a concurrent scenario step.
// The engine waits for all steps before recording the verdict; panics
// inside steps are recovered like panics in the body.
func (t *T) Go(step func()) {
	t.beginStep()
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.endStep()
		defer t.recoverStep()
		step()
	}()
}

// Barrier blocks until every other concurrent step has either reached
// the same label or completed. It is bounded by the scenario timeout.
func (t *T) Barrier(label string) {
	t.stepMu.Lock()
	b := t.barriers[label]
	if b == nil {
		b = &barrierState{release: make(chan struct{})}
		t.barriers[label] = b
	}
	b.arrived++
	if b.arrived >= t.activeSteps {
		close(b.release)
		delete(t.barriers, label)
	}
	release := b.release
	t.stepMu.Unlock()

	select {
	case <-release:
	case <-t.ctx.Done():
		t.errorNow("barrier %q: %v", label, t.ctx.Err())
	}
}

func (t *T) beginStep() {
	t.stepMu.Lock()
	t.activeSteps++
	t.stepMu.Unlock()
}

// endStep retires a step and releases any barrier that was only
// waiting on it.
func (t *T) endStep() {
	t.stepMu.Lock()
	t.activeSteps--
	for label, b := range t.barriers {
		if b.arrived >= t.activeSteps {
			close(b.release)
			delete(t.barriers, label)
		}
	}
	t.stepMu.Unlock()
}

// recoverStep absorbs the failNow sentinel and converts any other
// panic into an Error verdict.
func (t *T) recoverStep() {
	switch v := recover(); v {
	case nil, failNow{}:
	default:
		t.mu.Lock()
		t.errored = true
		t.diags = append(t.diags, fmt.Sprintf("panic: %v", v))
		t.mu.Unlock()
		t.log.Error("scenario panicked", "panic", v)
	}
}

// closeAll tears down every session. Safe to call more than once.
func (t *T) closeAll() {
	t.mu.Lock()
	sessions := t.sessions
	t.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// diagnostics returns the recorded diagnostics plus any malformed
// lines the sessions saw.
func (t *T) diagnostics() []string {
	t.mu.Lock()
	diags := append([]string(nil), t.diags...)
	sessions := t.sessions
	nicks := t.nicks
	t.mu.Unlock()

	for i, s := range sessions {
		for _, pe := range s.ParseErrors() {
			diags = append(diags, fmt.Sprintf("session %s: %s", nicks[i], pe))
		}
	}
	return diags
}

func (t *T) verdict() Verdict {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.errored:
		return Error
	case t.failed:
		return Fail
	default:
		return Pass
	}
}
