package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ircheck-project/ircheck-go/internal/harness/mock"
	"github.com/ircheck-project/ircheck-go/internal/harness/profile"
	"github.com/ircheck-project/ircheck-go/pkg/client"
	"github.com/ircheck-project/ircheck-go/pkg/proto"
)

// stubSuite lets tests run hand-built scenario lists.
type stubSuite struct {
	name      string
	scenarios []Scenario
}

func (s *stubSuite) Name() string          { return s.name }
func (s *stubSuite) Scenarios() []Scenario { return s.scenarios }

func startMock(t *testing.T) *mock.Server {
	t.Helper()
	srv, err := mock.Start(mock.Config{})
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv
}

func mockConfig(srv *mock.Server) Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            srv.Port(),
		ScenarioTimeout: 15 * time.Second,
	}
}

func verdictOf(t *testing.T, sr SuiteResult, name string) ScenarioResult {
	t.Helper()
	for _, res := range sr.Results {
		if res.Name == name {
			return res
		}
	}
	t.Fatalf("no result for scenario %q", name)
	return ScenarioResult{}
}

func TestRunSuiteVerdicts(t *testing.T) {
	srv := startMock(t)
	e := New(mockConfig(srv))

	suite := &stubSuite{
		name: "verdicts",
		scenarios: []Scenario{
			{
				Name:     "passing",
				Sessions: 1,
				Run: func(ctx context.Context, t *T) {
					ch := t.NewChannel()
					t.Send(t.Session(0), proto.CmdJoin, ch)
					t.MustExpect(t.Session(0), client.MatchCommand(proto.RplEndOfNames), "end of names")
				},
			},
			{
				Name:     "failing",
				Sessions: 1,
				Run: func(ctx context.Context, t *T) {
					t.Errorf("server sent the wrong thing")
				},
			},
			{
				Name:     "panicking",
				Sessions: 1,
				Run: func(ctx context.Context, t *T) {
					panic("scenario bug")
				},
			},
		},
	}

	sr := e.RunSuite(context.Background(), suite)
	require.Len(t, sr.Results, 3)

	assert.Equal(t, Pass, verdictOf(t, sr, "passing").Verdict)
	assert.Empty(t, verdictOf(t, sr, "passing").Diagnostics)

	failing := verdictOf(t, sr, "failing")
	assert.Equal(t, Fail, failing.Verdict)
	assert.Contains(t, failing.Diagnostics, "server sent the wrong thing")

	panicking := verdictOf(t, sr, "panicking")
	assert.Equal(t, Error, panicking.Verdict)
	require.NotEmpty(t, panicking.Diagnostics)
	assert.Contains(t, panicking.Diagnostics[0], "panic: scenario bug")

	passed, failed, errored, skipped := sr.Counts()
	assert.Equal(t, [4]int{1, 1, 1, 0}, [4]int{passed, failed, errored, skipped})
}

func TestProfileSkip(t *testing.T) {
	srv := startMock(t)
	cfg := mockConfig(srv)
	p, err := profile.Parse([]byte("features: [kick]\nmodes: [t]"))
	require.NoError(t, err)
	cfg.Profile = p
	e := New(cfg)

	ran := false
	suite := &stubSuite{
		name: "skipping",
		scenarios: []Scenario{
			{
				Name:     "needs_invite",
				Sessions: 1,
				Requires: []string{"invite", "mode.i"},
				Run:      func(ctx context.Context, t *T) { ran = true },
			},
			{
				Name:     "needs_kick",
				Sessions: 1,
				Requires: []string{"kick"},
				Run:      func(ctx context.Context, t *T) {},
			},
		},
	}

	sr := e.RunSuite(context.Background(), suite)
	skippedRes := verdictOf(t, sr, "needs_invite")
	assert.Equal(t, Skip, skippedRes.Verdict)
	assert.Contains(t, skippedRes.Diagnostics[0], "invite")
	assert.False(t, ran, "skipped scenario must not run")
	assert.Equal(t, Pass, verdictOf(t, sr, "needs_kick").Verdict)
}

func TestScenarioTimeout(t *testing.T) {
	srv := startMock(t)
	cfg := mockConfig(srv)
	cfg.ScenarioTimeout = 500 * time.Millisecond
	e := New(cfg)

	suite := &stubSuite{
		name: "timeouts",
		scenarios: []Scenario{
			{
				Name:     "stuck",
				Sessions: 1,
				Run: func(ctx context.Context, t *T) {
					// Wait for a message that never comes, far past
					// the scenario timeout.
					t.Session(0).Expect(ctx, client.MatchCommand(proto.CmdKick), time.Minute)
				},
			},
		},
	}

	start := time.Now()
	sr := e.RunSuite(context.Background(), suite)
	elapsed := time.Since(start)

	res := verdictOf(t, sr, "stuck")
	assert.Equal(t, Error, res.Verdict)
	assert.Contains(t, res.Diagnostics, "scenario timeout")
	assert.Less(t, elapsed, 10*time.Second, "timeout must cut the scenario short")
}

func TestUnreachableServerAbortsSuite(t *testing.T) {
	e := New(Config{Host: "127.0.0.1", Port: 1, ScenarioTimeout: 5 * time.Second})

	body := func(ctx context.Context, t *T) {}
	suite := &stubSuite{
		name: "unreachable",
		scenarios: []Scenario{
			{Name: "first", Sessions: 1, Run: body},
			{Name: "second", Sessions: 1, Run: body},
			{Name: "third", Sessions: 1, Run: body},
		},
	}

	sr := e.RunSuite(context.Background(), suite)
	require.Len(t, sr.Results, 3)
	assert.Equal(t, Error, verdictOf(t, sr, "first").Verdict)
	for _, name := range []string{"second", "third"} {
		res := verdictOf(t, sr, name)
		assert.Equal(t, Error, res.Verdict)
		assert.Contains(t, res.Diagnostics, "not run: server unreachable")
	}
}

func TestConnectFailureInBodyIsError(t *testing.T) {
	e := New(Config{Host: "127.0.0.1", Port: 1, ScenarioTimeout: 5 * time.Second})

	suite := &stubSuite{
		name: "dial",
		scenarios: []Scenario{
			{
				Name:     "manual_connect",
				Sessions: 0,
				Run: func(ctx context.Context, t *T) {
					t.Connect("nobody")
				},
			},
		},
	}

	// A dial failure is a harness problem, never a conformance Fail.
	sr := e.RunSuite(context.Background(), suite)
	res := verdictOf(t, sr, "manual_connect")
	assert.Equal(t, Error, res.Verdict)
	require.NotEmpty(t, res.Diagnostics)
	assert.Contains(t, res.Diagnostics[0], "connect")
}

func TestReachedServerNeverAborts(t *testing.T) {
	srv := startMock(t)
	e := New(mockConfig(srv))

	suite := &stubSuite{
		name: "first-ok",
		scenarios: []Scenario{
			{Name: "ok", Sessions: 1, Run: func(ctx context.Context, t *T) {}},
		},
	}
	sr := e.RunSuite(context.Background(), suite)
	require.Equal(t, Pass, verdictOf(t, sr, "ok").Verdict)

	// Server goes away mid-run: later scenarios error individually
	// but the engine keeps going.
	srv.Close()
	suite2 := &stubSuite{
		name: "after-close",
		scenarios: []Scenario{
			{Name: "late1", Sessions: 1, Run: func(ctx context.Context, t *T) {}},
			{Name: "late2", Sessions: 1, Run: func(ctx context.Context, t *T) {}},
		},
	}
	sr2 := e.RunSuite(context.Background(), suite2)
	for _, res := range sr2.Results {
		assert.Equal(t, Error, res.Verdict)
		assert.NotContains(t, res.Diagnostics, "not run: server unreachable")
	}
}

func TestBarrierRendezvous(t *testing.T) {
	srv := startMock(t)
	e := New(mockConfig(srv))

	var mu sync.Mutex
	var order []string
	mark := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	suite := &stubSuite{
		name: "barriers",
		scenarios: []Scenario{
			{
				Name:     "rendezvous",
				Sessions: 0,
				Run: func(ctx context.Context, t *T) {
					t.Go(func() {
						mark("a-before")
						t.Barrier("ready")
						mark("a-after")
					})
					t.Go(func() {
						time.Sleep(100 * time.Millisecond)
						mark("b-before")
						t.Barrier("ready")
						mark("b-after")
					})
					mark("body-before")
					t.Barrier("ready")
					mark("body-after")
				},
			},
		},
	}

	sr := e.RunSuite(context.Background(), suite)
	require.Equal(t, Pass, verdictOf(t, sr, "rendezvous").Verdict)

	pos := make(map[string]int)
	for i, s := range order {
		pos[s] = i
	}
	for _, before := range []string{"a-before", "b-before", "body-before"} {
		for _, after := range []string{"a-after", "b-after", "body-after"} {
			assert.Less(t, pos[before], pos[after], "%s must precede %s", before, after)
		}
	}
}

func TestBarrierReleasesWhenStepCompletes(t *testing.T) {
	srv := startMock(t)
	e := New(mockConfig(srv))

	suite := &stubSuite{
		name: "barriers",
		scenarios: []Scenario{
			{
				Name:     "early_exit",
				Sessions: 0,
				Run: func(ctx context.Context, t *T) {
					// This step never reaches the barrier; its
					// completion must release the body anyway.
					t.Go(func() {})
					t.Barrier("sync")
				},
			},
		},
	}

	sr := e.RunSuite(context.Background(), suite)
	assert.Equal(t, Pass, verdictOf(t, sr, "early_exit").Verdict)
}

func TestNamerUniqueness(t *testing.T) {
	n := NewNamer()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		nick := n.Nick()
		assert.False(t, seen[nick], "duplicate nick %q", nick)
		assert.LessOrEqual(t, len(nick), 9, "nick %q exceeds RFC length", nick)
		seen[nick] = true

		ch := n.Channel()
		assert.False(t, seen[ch], "duplicate channel %q", ch)
		seen[ch] = true
	}
}
