// Package runner wires the engine, suites, profile and reporting into
// a single entry point for running a conformance check.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ircheck-project/ircheck-go/internal/harness/engine"
	"github.com/ircheck-project/ircheck-go/internal/harness/profile"
	"github.com/ircheck-project/ircheck-go/internal/harness/reporter"
	"github.com/ircheck-project/ircheck-go/internal/harness/suites"
	"github.com/ircheck-project/ircheck-go/pkg/irclog"
)

// Config holds runner configuration.
type Config struct {
	// Host and Port locate the IRC server under test.
	Host string
	Port int

	// Password is sent as PASS during registration when non-empty.
	Password string

	// ProfileFile is the path to a YAML conformance profile. Empty
	// means every behavior is assumed claimed.
	ProfileFile string

	// Pattern filters scenarios by substring match on their name.
	Pattern string

	// ScenarioTimeout bounds each scenario (0 = engine default).
	ScenarioTimeout time.Duration

	// Verbose enables diagnostic output for passing scenarios.
	Verbose bool

	// Output is where the report is written. Nil means os.Stdout.
	Output io.Writer

	// OutputFormat is "text", "json" or "junit".
	OutputFormat string

	// ProtocolLogger captures protocol events. Nil disables capture.
	ProtocolLogger irclog.Logger

	// Slog is the operational logger. Nil means slog.Default().
	Slog *slog.Logger
}

// Runner executes conformance suites and reports the results.
type Runner struct {
	cfg     Config
	profile *profile.Profile
	log     *slog.Logger
}

// New creates a runner, loading the conformance profile if one was
// given.
func New(cfg Config) (*Runner, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("runner: host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("runner: invalid port %d", cfg.Port)
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "text"
	}
	if cfg.Slog == nil {
		cfg.Slog = slog.Default()
	}

	p := profile.Default()
	if cfg.ProfileFile != "" {
		var err error
		p, err = profile.Load(cfg.ProfileFile)
		if err != nil {
			return nil, err
		}
	}

	return &Runner{cfg: cfg, profile: p, log: cfg.Slog.With("component", "runner")}, nil
}

// Run executes every suite and writes the report. The returned Run
// carries the aggregated results; err is only non-nil for harness
// problems, not conformance failures.
func (r *Runner) Run(ctx context.Context) (*reporter.Run, error) {
	e := engine.New(engine.Config{
		Host:            r.cfg.Host,
		Port:            r.cfg.Port,
		Password:        r.cfg.Password,
		Profile:         r.profile,
		ScenarioTimeout: r.cfg.ScenarioTimeout,
		Logger:          r.cfg.ProtocolLogger,
		Slog:            r.cfg.Slog,
	})

	run := reporter.NewRun(fmt.Sprintf("%s:%d", r.cfg.Host, r.cfg.Port))
	r.log.Info("starting conformance run",
		"run_id", run.RunID, "target", run.Target, "profile", r.profile.Name)

	for _, suite := range suites.All() {
		s := filterSuite(suite, r.cfg.Pattern)
		if len(s.Scenarios()) == 0 {
			continue
		}
		run.Add(e.RunSuite(ctx, s))
	}
	run.Finish()

	rep, err := r.reporter()
	if err != nil {
		return run, err
	}
	rep.ReportRun(run)
	return run, nil
}

func (r *Runner) reporter() (reporter.Reporter, error) {
	switch r.cfg.OutputFormat {
	case "text":
		return reporter.NewTextReporter(r.cfg.Output, r.cfg.Verbose), nil
	case "json":
		return reporter.NewJSONReporter(r.cfg.Output, true), nil
	case "junit":
		return reporter.NewJUnitReporter(r.cfg.Output), nil
	default:
		return nil, fmt.Errorf("runner: unknown output format %q", r.cfg.OutputFormat)
	}
}

// filteredSuite narrows a suite to scenarios matching a pattern.
type filteredSuite struct {
	name      string
	scenarios []engine.Scenario
}

func (s *filteredSuite) Name() string                 { return s.name }
func (s *filteredSuite) Scenarios() []engine.Scenario { return s.scenarios }

func filterSuite(suite engine.Suite, pattern string) engine.Suite {
	if pattern == "" {
		return suite
	}
	f := &filteredSuite{name: suite.Name()}
	for _, sc := range suite.Scenarios() {
		if strings.Contains(sc.Name, pattern) {
			f.scenarios = append(f.scenarios, sc)
		}
	}
	return f
}

// RunAllSuites is the one-call entry point: run every suite against
// host:port with defaults and return the flat scenario results.
func RunAllSuites(ctx context.Context, host string, port int) ([]engine.ScenarioResult, error) {
	r, err := New(Config{Host: host, Port: port, Output: io.Discard})
	if err != nil {
		return nil, err
	}
	run, err := r.Run(ctx)
	if err != nil {
		return nil, err
	}
	var results []engine.ScenarioResult
	for _, sr := range run.Suites {
		results = append(results, sr.Results...)
	}
	return results, nil
}
