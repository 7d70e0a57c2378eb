package suites

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ircheck-project/ircheck-go/internal/harness/engine"
	"github.com/ircheck-project/ircheck-go/internal/harness/mock"
	"github.com/ircheck-project/ircheck-go/internal/harness/profile"
)

func runAgainstMock(t *testing.T, p *profile.Profile) []engine.SuiteResult {
	t.Helper()
	srv, err := mock.Start(mock.Config{})
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	e := engine.New(engine.Config{
		Host:            "127.0.0.1",
		Port:            srv.Port(),
		Profile:         p,
		ScenarioTimeout: 20 * time.Second,
	})

	var results []engine.SuiteResult
	for _, suite := range All() {
		results = append(results, e.RunSuite(context.Background(), suite))
	}
	return results
}

func TestAllSuitesPassAgainstMock(t *testing.T) {
	if testing.Short() {
		t.Skip("full suite run")
	}
	for _, sr := range runAgainstMock(t, nil) {
		for _, res := range sr.Results {
			assert.Equal(t, engine.Pass, res.Verdict,
				"%s/%s: %v", sr.Suite, res.Name, res.Diagnostics)
		}
	}
}

func TestRestrictedProfileSkips(t *testing.T) {
	if testing.Short() {
		t.Skip("full suite run")
	}
	p, err := profile.Parse([]byte("modes: [t]\nfeatures: [topic, echo_privmsg]"))
	require.NoError(t, err)

	skipped := map[string]bool{}
	for _, sr := range runAgainstMock(t, p) {
		for _, res := range sr.Results {
			require.NotEqual(t, engine.Fail, res.Verdict,
				"%s/%s: %v", sr.Suite, res.Name, res.Diagnostics)
			require.NotEqual(t, engine.Error, res.Verdict,
				"%s/%s: %v", sr.Suite, res.Name, res.Diagnostics)
			if res.Verdict == engine.Skip {
				skipped[res.Name] = true
			}
		}
	}
	assert.True(t, skipped["kick_basic"], "kick requires an unclaimed feature")
	assert.True(t, skipped["invite"], "invite requires an unclaimed feature")
	assert.True(t, skipped["channel_key"], "mode.k is unclaimed")
	assert.False(t, skipped["topic_lock"], "mode.t and topic are claimed")
}

func TestScenarioMetadata(t *testing.T) {
	seen := map[string]bool{}
	for _, suite := range All() {
		require.NotEmpty(t, suite.Name())
		for _, sc := range suite.Scenarios() {
			assert.False(t, seen[sc.Name], "duplicate scenario name %q", sc.Name)
			seen[sc.Name] = true
			assert.NotEmpty(t, sc.Description, "%s lacks a description", sc.Name)
			assert.NotNil(t, sc.Run, "%s lacks a body", sc.Name)
			assert.LessOrEqual(t, sc.Sessions, 4, "%s asks for too many sessions", sc.Name)
		}
	}
}
