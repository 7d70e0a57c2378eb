package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ircheck-project/ircheck-go/pkg/irclog"
)

func writeSampleLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.ilog")
	logger, err := irclog.NewFileLogger(path)
	require.NoError(t, err)

	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	logger.Log(irclog.Event{
		Timestamp:    base,
		ConnectionID: "conn-aaaa-1111",
		Direction:    irclog.DirectionOut,
		Layer:        irclog.LayerTransport,
		Category:     irclog.CategoryMessage,
		Nick:         "alice",
		Scenario:     "join_basic",
		Line:         &irclog.LineEvent{Raw: "JOIN #test", Command: "JOIN"},
	})
	logger.Log(irclog.Event{
		Timestamp:    base.Add(50 * time.Millisecond),
		ConnectionID: "conn-aaaa-1111",
		Direction:    irclog.DirectionIn,
		Layer:        irclog.LayerTransport,
		Category:     irclog.CategoryMessage,
		Nick:         "alice",
		Scenario:     "join_basic",
		Line:         &irclog.LineEvent{Raw: ":alice!a@h JOIN #test", Command: "JOIN"},
	})
	logger.Log(irclog.Event{
		Timestamp:    base.Add(100 * time.Millisecond),
		ConnectionID: "conn-bbbb-2222",
		Direction:    irclog.DirectionIn,
		Layer:        irclog.LayerSession,
		Category:     irclog.CategoryError,
		Nick:         "bob",
		Error:        &irclog.ErrorEventData{Layer: irclog.LayerSession, Message: "malformed line"},
	})
	require.NoError(t, logger.Close())
	return path
}

func TestRunView(t *testing.T) {
	path := writeSampleLog(t)

	var buf bytes.Buffer
	require.NoError(t, RunView(path, irclog.Filter{}, &buf))
	out := buf.String()
	assert.Contains(t, out, "[conn:conn-aaa]")
	assert.Contains(t, out, "Raw: JOIN #test")
	assert.Contains(t, out, "Scenario: join_basic")
	assert.Contains(t, out, "Message: malformed line")
}

func TestRunViewFiltered(t *testing.T) {
	path := writeSampleLog(t)

	out := irclog.DirectionOut
	var buf bytes.Buffer
	require.NoError(t, RunView(path, irclog.Filter{Direction: &out}, &buf))
	assert.Contains(t, buf.String(), "JOIN #test")
	assert.NotContains(t, buf.String(), "malformed line")
}

func TestRunExportJSONL(t *testing.T) {
	path := writeSampleLog(t)
	outFile := filepath.Join(t.TempDir(), "out.jsonl")

	require.NoError(t, RunExport(path, "jsonl", outFile))

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "OUT", first["direction"])
	assert.Equal(t, "JOIN", first["command"])
	assert.Equal(t, "join_basic", first["scenario"])
}

func TestRunExportCSV(t *testing.T) {
	path := writeSampleLog(t)
	outFile := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, RunExport(path, "csv", outFile))

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4, "header plus three events")
	assert.Contains(t, lines[0], "connection_id")
	assert.Contains(t, lines[3], "malformed line")
}

func TestRunExportUnknownFormat(t *testing.T) {
	path := writeSampleLog(t)
	assert.Error(t, RunExport(path, "xml", ""))
}

func TestRunStats(t *testing.T) {
	path := writeSampleLog(t)

	var buf bytes.Buffer
	require.NoError(t, RunStats(path, &buf))
	out := buf.String()
	assert.Contains(t, out, "Total events: 3")
	assert.Contains(t, out, "Errors:       1")
	assert.Contains(t, out, "Connections: 2")
	assert.Contains(t, out, "JOIN")
	assert.Contains(t, out, "nick=alice")
}
