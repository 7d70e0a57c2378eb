package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ircheck-project/ircheck-go/pkg/irclog"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[irclog.Layer]int
	EventsByDirection map[irclog.Direction]int
	EventsByCommand   map[string]int
	Scenarios         map[string]int
	Connections       map[string]*ConnectionStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Nick      string
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := irclog.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[irclog.Layer]int),
		EventsByDirection: make(map[irclog.Direction]int),
		EventsByCommand:   make(map[string]int),
		Scenarios:         make(map[string]int),
		Connections:       make(map[string]*ConnectionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		collect(stats, event)
	}

	printStats(stats, w)
	return nil
}

func collect(stats *Stats, event irclog.Event) {
	stats.TotalEvents++
	stats.EventsByLayer[event.Layer]++
	stats.EventsByDirection[event.Direction]++
	if event.Category == irclog.CategoryError {
		stats.Errors++
	}
	if event.Scenario != "" {
		stats.Scenarios[event.Scenario]++
	}
	if event.Line != nil && event.Line.Command != "" {
		stats.EventsByCommand[event.Line.Command]++
	}

	if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
		stats.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(stats.TimeRange.End) {
		stats.TimeRange.End = event.Timestamp
	}

	conn, ok := stats.Connections[event.ConnectionID]
	if !ok {
		conn = &ConnectionStats{FirstSeen: event.Timestamp}
		stats.Connections[event.ConnectionID] = conn
	}
	conn.Events++
	if event.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = event.Timestamp
	}
	if event.Nick != "" {
		conn.Nick = event.Nick
	}
}

func printStats(stats *Stats, w io.Writer) {
	fmt.Fprintf(w, "Total events: %d\n", stats.TotalEvents)
	if stats.TotalEvents == 0 {
		return
	}

	fmt.Fprintf(w, "Time range:   %s .. %s (%s)\n",
		stats.TimeRange.Start.UTC().Format(time.RFC3339),
		stats.TimeRange.End.UTC().Format(time.RFC3339),
		stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
	fmt.Fprintf(w, "Errors:       %d\n", stats.Errors)

	fmt.Fprintf(w, "\nBy direction:\n")
	for _, d := range []irclog.Direction{irclog.DirectionIn, irclog.DirectionOut} {
		if n := stats.EventsByDirection[d]; n > 0 {
			fmt.Fprintf(w, "  %-4s %d\n", d.String(), n)
		}
	}

	fmt.Fprintf(w, "\nBy layer:\n")
	for _, l := range []irclog.Layer{irclog.LayerTransport, irclog.LayerSession, irclog.LayerHarness} {
		if n := stats.EventsByLayer[l]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", l.String(), n)
		}
	}

	if len(stats.EventsByCommand) > 0 {
		fmt.Fprintf(w, "\nTop commands:\n")
		for _, kv := range sortedCounts(stats.EventsByCommand, 10) {
			fmt.Fprintf(w, "  %-8s %d\n", kv.key, kv.count)
		}
	}

	if len(stats.Scenarios) > 0 {
		fmt.Fprintf(w, "\nScenarios: %d\n", len(stats.Scenarios))
	}

	fmt.Fprintf(w, "\nConnections: %d\n", len(stats.Connections))
	ids := make([]string, 0, len(stats.Connections))
	for id := range stats.Connections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		conn := stats.Connections[id]
		label := id
		if len(label) > 8 {
			label = label[:8]
		}
		fmt.Fprintf(w, "  %s  events=%-5d nick=%s\n", label, conn.Events, conn.Nick)
	}
}

type countEntry struct {
	key   string
	count int
}

func sortedCounts(m map[string]int, limit int) []countEntry {
	entries := make([]countEntry, 0, len(m))
	for k, v := range m {
		entries = append(entries, countEntry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
