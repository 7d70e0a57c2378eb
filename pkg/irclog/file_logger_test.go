package irclog

import (
	"io"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ilog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	events := []Event{
		{
			Timestamp:    time.Now(),
			ConnectionID: "conn-1",
			Direction:    DirectionOut,
			Layer:        LayerTransport,
			Category:     CategoryMessage,
			Nick:         "alice",
			Line:         &LineEvent{Raw: "NICK alice", Command: "NICK"},
		},
		{
			Timestamp:    time.Now(),
			ConnectionID: "conn-1",
			Direction:    DirectionIn,
			Layer:        LayerTransport,
			Category:     CategoryMessage,
			Line:         &LineEvent{Raw: ":srv 001 alice :Welcome", Command: "001"},
		},
		{
			Timestamp:    time.Now(),
			ConnectionID: "conn-1",
			Layer:        LayerSession,
			Category:     CategoryState,
			StateChange: &StateChangeEvent{
				Entity:   StateEntitySession,
				OldState: "RegistrationSent",
				NewState: "Registered",
			},
		},
	}

	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var got []Event
	for {
		e, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, e)
	}

	if len(got) != len(events) {
		t.Fatalf("read %d events, want %d", len(got), len(events))
	}
	if got[0].Line == nil || got[0].Line.Raw != "NICK alice" {
		t.Errorf("event 0 line = %+v", got[0].Line)
	}
	if got[1].Direction != DirectionIn {
		t.Errorf("event 1 direction = %v", got[1].Direction)
	}
	if got[2].StateChange == nil || got[2].StateChange.NewState != "Registered" {
		t.Errorf("event 2 state change = %+v", got[2].StateChange)
	}
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ilog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	// Logging after close must not panic.
	logger.Log(Event{Timestamp: time.Now()})
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ilog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	for i, conn := range []string{"a", "b", "a", "a", "b"} {
		dir := DirectionOut
		if i%2 == 0 {
			dir = DirectionIn
		}
		logger.Log(Event{
			Timestamp:    time.Now(),
			ConnectionID: conn,
			Direction:    dir,
			Category:     CategoryMessage,
			Line:         &LineEvent{Raw: "PING :x"},
		})
	}
	logger.Close()

	reader, err := NewFilteredReader(path, Filter{ConnectionID: "a"})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		e, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if e.ConnectionID != "a" {
			t.Errorf("filtered event has conn id %q", e.ConnectionID)
		}
		count++
	}
	if count != 3 {
		t.Errorf("filter matched %d events, want 3", count)
	}
}
