// Package commands implements the ircheck-log CLI commands.
package commands

import (
	"fmt"
	"io"

	"github.com/ircheck-project/ircheck-go/pkg/irclog"
)

// RunView prints events matching the filter in human-readable form.
func RunView(path string, filter irclog.Filter, w io.Writer) error {
	reader, err := irclog.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
	return nil
}

// formatEvent writes a human-readable representation of the event.
func formatEvent(w io.Writer, event irclog.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)

	var typeLabel string
	switch {
	case event.Line != nil:
		typeLabel = "Line"
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n",
		ts, connID, event.Direction.String(), event.Layer.String(), typeLabel)

	if event.Nick != "" {
		fmt.Fprintf(w, "  Nick: %s\n", event.Nick)
	}
	if event.Scenario != "" {
		fmt.Fprintf(w, "  Scenario: %s\n", event.Scenario)
	}

	switch {
	case event.Line != nil:
		if event.Line.Command != "" {
			fmt.Fprintf(w, "  Command: %s\n", event.Line.Command)
		}
		fmt.Fprintf(w, "  Raw: %s\n", event.Line.Raw)
	case event.StateChange != nil:
		sc := event.StateChange
		if sc.OldState != "" {
			fmt.Fprintf(w, "  %s: %s -> %s\n", sc.Entity.String(), sc.OldState, sc.NewState)
		} else {
			fmt.Fprintf(w, "  %s: %s\n", sc.Entity.String(), sc.NewState)
		}
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Error != nil:
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
	}

	fmt.Fprintln(w)
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
