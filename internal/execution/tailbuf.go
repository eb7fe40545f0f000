package execution

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"

	"lofi/internal/logging"
)

const (
	stderrTailBytes = 64 * 1024
	diagnosticLines = 20
)

// tailBuffer keeps the last capacity bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	cap int
}

func newTailBuffer(capacity int) *tailBuffer {
	return &tailBuffer{buf: make([]byte, 0, capacity), cap: capacity}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case len(p) >= t.cap:
		t.buf = append(t.buf[:0], p[len(p)-t.cap:]...)
	case len(t.buf)+len(p) <= t.cap:
		t.buf = append(t.buf, p...)
	default:
		drop := len(t.buf) + len(p) - t.cap
		t.buf = append(t.buf[:0], t.buf[drop:]...)
		t.buf = append(t.buf, p...)
	}
	return len(p), nil
}

// Tail returns at most n trailing non-empty lines.
func (t *tailBuffer) Tail(n int) string {
	t.mu.Lock()
	text := string(t.buf)
	t.mu.Unlock()

	lines := strings.Split(strings.ReplaceAll(text, "\r", "\n"), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append(kept, line)
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "\n")
}

// lineLogger forwards complete lines to a debug logger. Progress output
// separated by carriage returns is split the same way.
type lineLogger struct {
	mu      sync.Mutex
	logger  *slog.Logger
	pending []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, p...)
	for {
		idx := bytes.IndexAny(l.pending, "\r\n")
		if idx < 0 {
			break
		}
		l.emit(l.pending[:idx])
		l.pending = l.pending[idx+1:]
	}
	if len(l.pending) > stderrTailBytes {
		l.emit(l.pending)
		l.pending = l.pending[:0]
	}
	return len(p), nil
}

func (l *lineLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.emit(l.pending)
	l.pending = nil
}

func (l *lineLogger) emit(line []byte) {
	text := strings.TrimSpace(string(line))
	if text == "" {
		return
	}
	l.logger.Debug("process output", logging.String("line", text))
}
