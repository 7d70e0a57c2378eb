package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// teardownGrace bounds how long the engine waits for scenario
// goroutines to unwind after their sessions were force-closed.
const teardownGrace = 5 * time.Second

// Engine runs suites of conformance scenarios.
type Engine struct {
	cfg   Config
	namer *Namer
	log   *slog.Logger

	mu          sync.Mutex
	reached     bool
	unreachable bool
	results     []ScenarioResult
}

// New creates an engine for the given target.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:   cfg,
		namer: NewNamer(),
		log:   cfg.Slog.With("component", "engine"),
	}
}

// RunSuite executes every scenario of the suite in order. A scenario
// failure never aborts the suite; the engine only stops early when no
// scenario has ever reached the server and another connect fails.
func (e *Engine) RunSuite(ctx context.Context, suite Suite) SuiteResult {
	sr := SuiteResult{Suite: suite.Name()}
	e.log.Info("running suite", "suite", suite.Name())

	for _, sc := range suite.Scenarios() {
		if e.isUnreachable() {
			sr.Results = append(sr.Results, e.record(ScenarioResult{
				Name:        sc.Name,
				Suite:       suite.Name(),
				Verdict:     Error,
				VerdictText: Error.String(),
				Diagnostics: []string{"not run: server unreachable"},
			}))
			continue
		}
		res := e.runScenario(ctx, suite.Name(), sc)
		sr.Results = append(sr.Results, e.record(res))
	}
	return sr
}

// Results returns every result recorded so far, across suites.
func (e *Engine) Results() []ScenarioResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ScenarioResult(nil), e.results...)
}

func (e *Engine) record(res ScenarioResult) ScenarioResult {
	e.mu.Lock()
	e.results = append(e.results, res)
	e.mu.Unlock()
	return res
}

func (e *Engine) isUnreachable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unreachable
}

func (e *Engine) markReached() {
	e.mu.Lock()
	e.reached = true
	e.mu.Unlock()
}

// markConnectFailed flips the engine into the unreachable state when
// no scenario has ever managed to connect.
func (e *Engine) markConnectFailed() {
	e.mu.Lock()
	if !e.reached {
		e.unreachable = true
	}
	e.mu.Unlock()
}

func (e *Engine) runScenario(ctx context.Context, suiteName string, sc Scenario) ScenarioResult {
	start := time.Now()
	res := ScenarioResult{Name: sc.Name, Suite: suiteName}
	finish := func(v Verdict, diags []string) ScenarioResult {
		res.Verdict = v
		res.VerdictText = v.String()
		res.Diagnostics = diags
		res.Duration = time.Since(start)
		e.log.Info("scenario finished",
			"scenario", sc.Name, "verdict", v.String(), "duration", res.Duration)
		return res
	}

	if unmet := e.cfg.Profile.Unmet(sc.Requires); len(unmet) > 0 {
		return finish(Skip, []string{
			fmt.Sprintf("profile does not claim: %s", strings.Join(unmet, ", ")),
		})
	}

	sctx, cancel := context.WithTimeout(ctx, e.cfg.ScenarioTimeout)
	defer cancel()

	t := newT(sctx, sc.Name, e.cfg, e.namer)
	defer t.closeAll()

	for i := 0; i < sc.Sessions; i++ {
		nick := e.namer.Nick()
		if _, err := t.setupUser(nick); err != nil {
			if i == 0 && len(t.sessions) == 0 {
				e.markConnectFailed()
			}
			return finish(Error, append(t.diagnostics(),
				fmt.Sprintf("session setup failed: %v", err)))
		}
	}
	if sc.Sessions > 0 {
		e.markReached()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		func() {
			t.beginStep()
			defer t.endStep()
			defer t.recoverStep()
			sc.Run(sctx, t)
		}()
		t.wg.Wait()
	}()

	select {
	case <-done:
	case <-sctx.Done():
		// Force-close the sessions so blocked Expect calls unwind,
		// then give the goroutines a moment to finish.
		t.closeAll()
		select {
		case <-done:
		case <-time.After(teardownGrace):
			e.log.Error("scenario goroutines leaked past teardown", "scenario", sc.Name)
		}
		return finish(Error, append(t.diagnostics(), "scenario timeout"))
	}

	return finish(t.verdict(), t.diagnostics())
}
