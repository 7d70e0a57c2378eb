// Package irclog provides structured protocol capture for the harness.
//
// This package defines the Logger interface and Event types for
// recording protocol-level traffic at multiple layers (transport lines,
// session state changes, errors). It is separate from operational
// logging (slog) - protocol capture produces a complete machine-readable
// trace of every line exchanged with the server under test.
//
// # Basic Usage
//
// Components accept a Logger; pass nil or NoopLogger to disable capture:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = irclog.NewSlogAdapter(slog.Default())
//
//	// For archival: write to a binary file
//	cfg.ProtocolLogger, _ = irclog.NewFileLogger("run.ilog")
//
//	// Both at once
//	cfg.ProtocolLogger = irclog.NewMultiLogger(
//	    irclog.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events, conventionally with an
// .ilog extension. The ircheck-log CLI tool provides viewing, export,
// and statistics over these files.
package irclog
