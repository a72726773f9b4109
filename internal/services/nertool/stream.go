package nertool

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"

	"nerassemble/internal/logging"
)

const stderrTailLimit = 8 << 10

// markerWriter scans a stream for a marker without buffering all of it. The
// last len(marker)-1 bytes of each write are carried over so a marker split
// across writes is still found. A bounded tail is kept for diagnostics.
type markerWriter struct {
	mu     sync.Mutex
	marker []byte
	carry  []byte
	found  bool
	tail   []byte
	limit  int
}

func newMarkerWriter(marker string, limit int) *markerWriter {
	return &markerWriter{marker: []byte(marker), limit: limit}
}

func (m *markerWriter) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.found && len(m.marker) > 0 {
		window := append(m.carry, p...)
		if bytes.Contains(window, m.marker) {
			m.found = true
			m.carry = nil
		} else {
			keep := len(m.marker) - 1
			if keep > len(window) {
				keep = len(window)
			}
			m.carry = append(m.carry[:0:0], window[len(window)-keep:]...)
		}
	}

	m.tail = append(m.tail, p...)
	if over := len(m.tail) - m.limit; over > 0 {
		m.tail = append(m.tail[:0:0], m.tail[over:]...)
	}
	return len(p), nil
}

// Found reports whether the marker has been seen.
func (m *markerWriter) Found() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.found
}

// Tail returns the last bytes written, up to the configured limit.
func (m *markerWriter) Tail() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.tail)
}

// lineLogger forwards complete stdout lines to the debug log.
type lineLogger struct {
	logger  *slog.Logger
	name    string
	pending []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.pending = append(l.pending, p...)
	for {
		idx := bytes.IndexByte(l.pending, '\n')
		if idx < 0 {
			break
		}
		l.emit(string(l.pending[:idx]))
		l.pending = l.pending[idx+1:]
	}
	return len(p), nil
}

func (l *lineLogger) flush() {
	if len(l.pending) > 0 {
		l.emit(string(l.pending))
		l.pending = nil
	}
}

func (l *lineLogger) emit(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	l.logger.Debug("ner tool output", logging.String("tool", l.name), logging.String("line", line))
}
