package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ircheck-project/ircheck-go/pkg/irclog"
	"github.com/ircheck-project/ircheck-go/pkg/proto"
)

// Framing errors.
var (
	// ErrLineTooLong indicates a line exceeds the 512-byte limit.
	ErrLineTooLong = errors.New("line too long")

	// ErrLineEmpty indicates an attempt to write an empty line.
	ErrLineEmpty = errors.New("line is empty")

	// ErrEmbeddedNewline indicates an outbound line contains CR or LF.
	ErrEmbeddedNewline = errors.New("line contains embedded CR or LF")
)

// LineWriter writes CRLF-terminated lines to an underlying writer.
type LineWriter struct {
	w  io.Writer
	mu sync.Mutex

	// Capture support (optional)
	logger irclog.Logger
	connID string
}

// NewLineWriter creates a new line writer.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

// SetLogger configures protocol capture for this writer.
// Pass nil to disable capture.
func (lw *LineWriter) SetLogger(logger irclog.Logger, connID string) {
	lw.logger = logger
	lw.connID = connID
}

// WriteLine writes one line followed by CRLF.
// Thread-safe: can be called from multiple goroutines.
func (lw *LineWriter) WriteLine(line string) error {
	if line == "" {
		return ErrLineEmpty
	}
	if len(line)+2 > proto.MaxLineLength {
		return fmt.Errorf("%w: %d > %d", ErrLineTooLong, len(line)+2, proto.MaxLineLength)
	}
	if strings.ContainsAny(line, "\r\n") {
		return ErrEmbeddedNewline
	}

	lw.mu.Lock()
	defer lw.mu.Unlock()

	// One Write call so lines from concurrent writers never interleave.
	buf := make([]byte, 0, len(line)+2)
	buf = append(buf, line...)
	buf = append(buf, '\r', '\n')
	if _, err := lw.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}

	if lw.logger != nil {
		lw.logger.Log(makeLineEvent(lw.connID, line, irclog.DirectionOut))
	}
	return nil
}

// LineReader reads CRLF-terminated lines from an underlying reader,
// buffering partial lines across reads. Bare LF terminators are
// tolerated; blank lines are skipped.
type LineReader struct {
	r   io.Reader
	buf []byte

	// Capture support (optional)
	logger irclog.Logger
	connID string
}

// NewLineReader creates a new line reader.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: r}
}

// SetLogger configures protocol capture for this reader.
// Pass nil to disable capture.
func (lr *LineReader) SetLogger(logger irclog.Logger, connID string) {
	lr.logger = logger
	lr.connID = connID
}

// ReadLine returns the next complete line without its terminator.
// A line whose length exceeds the protocol limit is rejected with
// ErrLineTooLong rather than truncated.
func (lr *LineReader) ReadLine() (string, error) {
	for {
		if i := bytes.IndexByte(lr.buf, '\n'); i >= 0 {
			raw := lr.buf[:i]
			if len(raw) > 0 && raw[len(raw)-1] == '\r' {
				raw = raw[:len(raw)-1]
			}
			line := string(raw)
			lr.buf = lr.buf[i+1:]

			if len(line)+2 > proto.MaxLineLength {
				return "", fmt.Errorf("%w: %d > %d", ErrLineTooLong, len(line)+2, proto.MaxLineLength)
			}
			if line == "" {
				continue
			}
			if lr.logger != nil {
				lr.logger.Log(makeLineEvent(lr.connID, line, irclog.DirectionIn))
			}
			return line, nil
		}

		// No terminator buffered yet. An unterminated line past the
		// protocol limit can never become valid.
		if len(lr.buf) >= proto.MaxLineLength {
			return "", fmt.Errorf("%w: %d unterminated bytes", ErrLineTooLong, len(lr.buf))
		}

		chunk := make([]byte, 4096)
		n, err := lr.r.Read(chunk)
		if n > 0 {
			lr.buf = append(lr.buf, chunk[:n]...)
			continue
		}
		if err != nil {
			return "", err
		}
	}
}

// makeLineEvent creates a capture event for one protocol line.
func makeLineEvent(connID, line string, direction irclog.Direction) irclog.Event {
	ev := irclog.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    direction,
		Layer:        irclog.LayerTransport,
		Category:     irclog.CategoryMessage,
		Line:         &irclog.LineEvent{Raw: line},
	}
	if msg, err := proto.Parse(line); err == nil {
		ev.Line.Command = msg.Command
	}
	return ev
}

// LineFramer combines line reading and writing.
type LineFramer struct {
	*LineReader
	*LineWriter
}

// NewLineFramer creates a new framer for bidirectional communication.
func NewLineFramer(rw io.ReadWriter) *LineFramer {
	return &LineFramer{
		LineReader: NewLineReader(rw),
		LineWriter: NewLineWriter(rw),
	}
}

// SetLogger configures protocol capture for both reader and writer.
// Pass nil to disable capture.
func (f *LineFramer) SetLogger(logger irclog.Logger, connID string) {
	f.LineReader.SetLogger(logger, connID)
	f.LineWriter.SetLogger(logger, connID)
}
