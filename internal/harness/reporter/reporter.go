// Package reporter formats conformance run results.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ircheck-project/ircheck-go/internal/harness/engine"
)

// Run aggregates everything one invocation produced.
type Run struct {
	RunID    string               `json:"run_id"`
	Target   string               `json:"target"`
	Started  time.Time            `json:"started"`
	Duration time.Duration        `json:"-"`
	Suites   []engine.SuiteResult `json:"suites"`
}

// NewRun starts a run record for the given target.
func NewRun(target string) *Run {
	return &Run{
		RunID:   uuid.NewString(),
		Target:  target,
		Started: time.Now(),
	}
}

// Add appends a suite result.
func (r *Run) Add(sr engine.SuiteResult) {
	r.Suites = append(r.Suites, sr)
}

// Finish stamps the run duration.
func (r *Run) Finish() {
	r.Duration = time.Since(r.Started)
}

// Counts sums verdicts across all suites.
func (r *Run) Counts() (passed, failed, errored, skipped int) {
	for _, sr := range r.Suites {
		p, f, e, s := sr.Counts()
		passed += p
		failed += f
		errored += e
		skipped += s
	}
	return
}

// Failed reports whether any scenario failed or errored.
func (r *Run) Failed() bool {
	_, failed, errored, _ := r.Counts()
	return failed > 0 || errored > 0
}

// Reporter formats and outputs run results.
type Reporter interface {
	// ReportRun reports a completed run.
	ReportRun(run *Run)
}

// TextReporter outputs human-readable text reports.
type TextReporter struct {
	writer  io.Writer
	verbose bool
}

// NewTextReporter creates a new text reporter. Verbose mode prints
// diagnostics for passing scenarios too.
func NewTextReporter(w io.Writer, verbose bool) *TextReporter {
	return &TextReporter{writer: w, verbose: verbose}
}

// ReportRun reports run results in text format.
func (r *TextReporter) ReportRun(run *Run) {
	fmt.Fprintf(r.writer, "Run %s against %s\n", run.RunID, run.Target)

	for _, sr := range run.Suites {
		fmt.Fprintf(r.writer, "\n=== Suite: %s ===\n", sr.Suite)
		for _, res := range sr.Results {
			r.reportScenario(res)
		}
	}

	passed, failed, errored, skipped := run.Counts()
	total := passed + failed + errored + skipped
	fmt.Fprintf(r.writer, "\n--- Summary ---\n")
	fmt.Fprintf(r.writer, "Total:    %d\n", total)
	fmt.Fprintf(r.writer, "Passed:   %d\n", passed)
	fmt.Fprintf(r.writer, "Failed:   %d\n", failed)
	fmt.Fprintf(r.writer, "Errored:  %d\n", errored)
	fmt.Fprintf(r.writer, "Skipped:  %d\n", skipped)
	fmt.Fprintf(r.writer, "Duration: %s\n", run.Duration.Round(time.Millisecond))

	if executed := passed + failed + errored; executed > 0 {
		rate := float64(passed) / float64(executed) * 100
		fmt.Fprintf(r.writer, "Pass Rate: %.1f%%\n", rate)
	}
}

func (r *TextReporter) reportScenario(res engine.ScenarioResult) {
	fmt.Fprintf(r.writer, "[%s] %s (%s)\n",
		strings.ToUpper(res.Verdict.String()), res.Name,
		res.Duration.Round(time.Millisecond))

	if r.verbose || res.Verdict == engine.Fail || res.Verdict == engine.Error ||
		res.Verdict == engine.Skip {
		for _, d := range res.Diagnostics {
			fmt.Fprintf(r.writer, "       %s\n", d)
		}
	}
}

// JSONReporter outputs JSON-formatted reports.
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(w io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{writer: w, pretty: pretty}
}

// jsonRun is the JSON shape of a run.
type jsonRun struct {
	RunID    string               `json:"run_id"`
	Target   string               `json:"target"`
	Started  time.Time            `json:"started"`
	Duration string               `json:"duration"`
	Total    int                  `json:"total"`
	Passed   int                  `json:"passed"`
	Failed   int                  `json:"failed"`
	Errored  int                  `json:"errored"`
	Skipped  int                  `json:"skipped"`
	Suites   []engine.SuiteResult `json:"suites"`
}

// ReportRun reports run results in JSON format.
func (r *JSONReporter) ReportRun(run *Run) {
	passed, failed, errored, skipped := run.Counts()
	jr := jsonRun{
		RunID:    run.RunID,
		Target:   run.Target,
		Started:  run.Started,
		Duration: run.Duration.Round(time.Millisecond).String(),
		Total:    passed + failed + errored + skipped,
		Passed:   passed,
		Failed:   failed,
		Errored:  errored,
		Skipped:  skipped,
		Suites:   run.Suites,
	}

	var data []byte
	var err error
	if r.pretty {
		data, err = json.MarshalIndent(jr, "", "  ")
	} else {
		data, err = json.Marshal(jr)
	}
	if err != nil {
		fmt.Fprintf(r.writer, `{"error": "failed to marshal: %s"}`, err)
		return
	}
	fmt.Fprintln(r.writer, string(data))
}

// JUnitReporter outputs JUnit XML for CI integration.
type JUnitReporter struct {
	writer io.Writer
}

// NewJUnitReporter creates a new JUnit reporter.
func NewJUnitReporter(w io.Writer) *JUnitReporter {
	return &JUnitReporter{writer: w}
}

// ReportRun reports run results in JUnit XML format. Fail verdicts
// become <failure>, Error verdicts <error>, Skip verdicts <skipped>.
func (r *JUnitReporter) ReportRun(run *Run) {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("\n")
	fmt.Fprintf(&b, `<testsuites name="ircheck %s" time="%.3f">`,
		escapeXML(run.RunID), run.Duration.Seconds())
	b.WriteString("\n")

	for _, sr := range run.Suites {
		_, failed, errored, skipped := sr.Counts()
		var suiteTime time.Duration
		for _, res := range sr.Results {
			suiteTime += res.Duration
		}
		fmt.Fprintf(&b, `  <testsuite name="%s" tests="%d" failures="%d" errors="%d" skipped="%d" time="%.3f">`,
			escapeXML(sr.Suite), len(sr.Results), failed, errored, skipped,
			suiteTime.Seconds())
		b.WriteString("\n")

		for _, res := range sr.Results {
			fmt.Fprintf(&b, `    <testcase name="%s" classname="%s" time="%.3f">`,
				escapeXML(res.Name), escapeXML(sr.Suite), res.Duration.Seconds())
			b.WriteString("\n")

			switch res.Verdict {
			case engine.Skip:
				fmt.Fprintf(&b, `      <skipped message="%s"/>`, escapeXML(firstLine(res.Diagnostics)))
				b.WriteString("\n")
			case engine.Fail:
				fmt.Fprintf(&b, `      <failure message="%s">`, escapeXML(firstLine(res.Diagnostics)))
				writeDiagnostics(&b, res.Diagnostics)
				b.WriteString("      </failure>\n")
			case engine.Error:
				fmt.Fprintf(&b, `      <error message="%s">`, escapeXML(firstLine(res.Diagnostics)))
				writeDiagnostics(&b, res.Diagnostics)
				b.WriteString("      </error>\n")
			}

			b.WriteString("    </testcase>\n")
		}
		b.WriteString("  </testsuite>\n")
	}
	b.WriteString("</testsuites>\n")

	fmt.Fprint(r.writer, b.String())
}

func writeDiagnostics(b *strings.Builder, diags []string) {
	b.WriteString("\n      <![CDATA[")
	for _, d := range diags {
		b.WriteString(d)
		b.WriteString("\n")
	}
	b.WriteString("]]>\n")
}

func firstLine(diags []string) string {
	if len(diags) == 0 {
		return ""
	}
	return diags[0]
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
