package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ircheck-project/ircheck-go/pkg/irclog"
)

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := irclog.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *irclog.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(jsonEvent(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

// jsonEvent flattens an event for line-oriented JSON output.
func jsonEvent(event irclog.Event) map[string]any {
	out := map[string]any{
		"timestamp":     event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		"connection_id": event.ConnectionID,
		"direction":     event.Direction.String(),
		"layer":         event.Layer.String(),
		"category":      event.Category.String(),
	}
	if event.Nick != "" {
		out["nick"] = event.Nick
	}
	if event.Scenario != "" {
		out["scenario"] = event.Scenario
	}
	switch {
	case event.Line != nil:
		out["raw"] = event.Line.Raw
		if event.Line.Command != "" {
			out["command"] = event.Line.Command
		}
	case event.StateChange != nil:
		out["entity"] = event.StateChange.Entity.String()
		out["old_state"] = event.StateChange.OldState
		out["new_state"] = event.StateChange.NewState
		if event.StateChange.Reason != "" {
			out["reason"] = event.StateChange.Reason
		}
	case event.Error != nil:
		out["error"] = event.Error.Message
		if event.Error.Context != "" {
			out["context"] = event.Error.Context
		}
	}
	return out
}

func exportCSV(reader *irclog.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "connection_id", "direction", "layer", "category", "nick", "scenario", "command", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		command := ""
		detail := ""
		switch {
		case event.Line != nil:
			command = event.Line.Command
			detail = event.Line.Raw
		case event.StateChange != nil:
			detail = event.StateChange.NewState
		case event.Error != nil:
			detail = event.Error.Message
		}

		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.ConnectionID,
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			event.Nick,
			event.Scenario,
			command,
			detail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}
