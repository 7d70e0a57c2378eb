package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ircheck-project/ircheck-go/internal/harness/engine"
)

func sampleRun() *Run {
	run := NewRun("irc.example.org:6667")
	run.Add(engine.SuiteResult{
		Suite: "single_user",
		Results: []engine.ScenarioResult{
			{Name: "join_basic", Suite: "single_user", Verdict: engine.Pass,
				VerdictText: "pass", Duration: 120 * time.Millisecond},
			{Name: "topic_lock", Suite: "single_user", Verdict: engine.Fail,
				VerdictText: "fail", Duration: 80 * time.Millisecond,
				Diagnostics: []string{"482 reply: no matching message within 5s"}},
			{Name: "invite", Suite: "single_user", Verdict: engine.Skip,
				VerdictText: "skip",
				Diagnostics: []string{"profile does not claim: invite"}},
			{Name: "stuck", Suite: "single_user", Verdict: engine.Error,
				VerdictText: "error", Duration: 30 * time.Second,
				Diagnostics: []string{"scenario timeout"}},
		},
	})
	run.Finish()
	return run
}

func TestRunAccounting(t *testing.T) {
	run := sampleRun()
	passed, failed, errored, skipped := run.Counts()
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, errored)
	assert.Equal(t, 1, skipped)
	assert.True(t, run.Failed())
	assert.NotEmpty(t, run.RunID)
}

func TestTextReport(t *testing.T) {
	var buf bytes.Buffer
	NewTextReporter(&buf, false).ReportRun(sampleRun())
	out := buf.String()

	assert.Contains(t, out, "=== Suite: single_user ===")
	assert.Contains(t, out, "[PASS] join_basic")
	assert.Contains(t, out, "[FAIL] topic_lock")
	assert.Contains(t, out, "482 reply")
	assert.Contains(t, out, "[SKIP] invite")
	assert.Contains(t, out, "[ERROR] stuck")
	assert.Contains(t, out, "scenario timeout")
	assert.Contains(t, out, "Passed:   1")
	assert.Contains(t, out, "Pass Rate: 33.3%")
}

func TestJSONReport(t *testing.T) {
	var buf bytes.Buffer
	NewJSONReporter(&buf, true).ReportRun(sampleRun())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "irc.example.org:6667", decoded["target"])
	assert.EqualValues(t, 4, decoded["total"])
	assert.EqualValues(t, 1, decoded["failed"])

	suites := decoded["suites"].([]any)
	require.Len(t, suites, 1)
	results := suites[0].(map[string]any)["results"].([]any)
	require.Len(t, results, 4)
	assert.Equal(t, "fail", results[1].(map[string]any)["verdict"])
}

func TestJUnitReport(t *testing.T) {
	var buf bytes.Buffer
	NewJUnitReporter(&buf).ReportRun(sampleRun())
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0"`))
	assert.Contains(t, out, `<testsuite name="single_user" tests="4" failures="1" errors="1" skipped="1"`)
	assert.Contains(t, out, `<testcase name="join_basic"`)
	assert.Contains(t, out, `<failure message="482 reply: no matching message within 5s">`)
	assert.Contains(t, out, `<error message="scenario timeout">`)
	assert.Contains(t, out, `<skipped message="profile does not claim: invite"/>`)
}
