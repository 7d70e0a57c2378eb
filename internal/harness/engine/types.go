// Package engine orchestrates conformance scenarios against an IRC
// server. It registers the sessions each scenario asks for, runs the
// scenario body under a per-scenario timeout, recovers panics, and
// guarantees every session is closed on every exit path.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ircheck-project/ircheck-go/internal/harness/profile"
	"github.com/ircheck-project/ircheck-go/pkg/irclog"
)

// Verdict is the outcome of a single scenario.
type Verdict int

const (
	// Pass means every assertion in the scenario held.
	Pass Verdict = iota
	// Fail means an assertion about server behavior did not hold.
	Fail
	// Error means the scenario could not be carried out: setup
	// failure, panic, or timeout.
	Error
	// Skip means the conformance profile does not claim a behavior
	// the scenario requires.
	Skip
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Error:
		return "error"
	case Skip:
		return "skip"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Scenario is one conformance check.
type Scenario struct {
	// Name identifies the scenario in results (e.g. "join_basic").
	Name string

	// Description explains what the scenario validates.
	Description string

	// Sessions is the number of registered sessions the engine sets
	// up before Run is called.
	Sessions int

	// Requires lists profile requirement keys; the scenario is
	// skipped when the profile does not claim them all.
	Requires []string

	// Run is the scenario body.
	Run func(ctx context.Context, t *T)
}

// ScenarioResult records the outcome of one scenario.
type ScenarioResult struct {
	Name        string        `json:"name"`
	Suite       string        `json:"suite"`
	Verdict     Verdict       `json:"-"`
	VerdictText string        `json:"verdict"`
	Diagnostics []string      `json:"diagnostics,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// SuiteResult aggregates the results of one suite.
type SuiteResult struct {
	Suite   string           `json:"suite"`
	Results []ScenarioResult `json:"results"`
}

// Counts returns the number of passed, failed, errored and skipped
// scenarios.
func (r *SuiteResult) Counts() (passed, failed, errored, skipped int) {
	for _, res := range r.Results {
		switch res.Verdict {
		case Pass:
			passed++
		case Fail:
			failed++
		case Error:
			errored++
		case Skip:
			skipped++
		}
	}
	return
}

// Suite is a named collection of scenarios. The engine is
// suite-agnostic.
type Suite interface {
	Name() string
	Scenarios() []Scenario
}

// Config holds engine configuration.
type Config struct {
	// Host and Port locate the server under test.
	Host string
	Port int

	// Password is sent as PASS during registration when non-empty.
	Password string

	// Profile filters scenarios by claimed behavior. Nil means
	// everything is claimed.
	Profile *profile.Profile

	// ScenarioTimeout bounds each scenario including setup and
	// teardown. Zero means DefaultScenarioTimeout.
	ScenarioTimeout time.Duration

	// ExpectTimeout is the default wait used by T.MustExpect.
	// Zero means DefaultExpectTimeout.
	ExpectTimeout time.Duration

	// SettleWindow is how long the engine collects post-registration
	// noise (MOTD, LUSERS) before handing sessions to the scenario.
	// Zero means DefaultSettleWindow.
	SettleWindow time.Duration

	// Logger captures protocol events. Nil disables capture.
	Logger irclog.Logger

	// Slog is the operational logger. Nil means slog.Default().
	Slog *slog.Logger
}

const (
	// DefaultScenarioTimeout bounds one scenario end to end.
	DefaultScenarioTimeout = 30 * time.Second

	// DefaultExpectTimeout is how long MustExpect waits for a match.
	DefaultExpectTimeout = 5 * time.Second

	// DefaultSettleWindow is the post-registration noise window.
	DefaultSettleWindow = 200 * time.Millisecond
)

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.ScenarioTimeout <= 0 {
		cfg.ScenarioTimeout = DefaultScenarioTimeout
	}
	if cfg.ExpectTimeout <= 0 {
		cfg.ExpectTimeout = DefaultExpectTimeout
	}
	if cfg.SettleWindow <= 0 {
		cfg.SettleWindow = DefaultSettleWindow
	}
	if cfg.Profile == nil {
		cfg.Profile = profile.Default()
	}
	if cfg.Slog == nil {
		cfg.Slog = slog.Default()
	}
	return cfg
}

// Addr returns the host:port of the server under test.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
