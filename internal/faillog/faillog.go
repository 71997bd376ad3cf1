// Package faillog appends timestamped failure lines to a text file.
//
// Writes are best effort: a sink that cannot open or write its file drops
// the line and reports at debug level, it never returns an error to callers.
package faillog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TimestampLayout renders as YYYY-MM-DD HH:MM:SS.
const TimestampLayout = "2006-01-02 15:04:05"

// Sink is an append-only failure log. Safe for concurrent use.
type Sink struct {
	mu     sync.Mutex
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// Option customises a Sink.
type Option func(*Sink)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) { s.now = now }
}

// WithLogger sets where dropped writes are reported.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

// New returns a sink writing to path.
func New(path string, opts ...Option) *Sink {
	s := &Sink{path: path, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Entry is one failure log line.
type Entry struct {
	Timestamp time.Time
	Message   string
}

// String renders the entry with its trailing newline.
func (e Entry) String() string {
	return Format(e.Timestamp, e.Message)
}

// Format renders one log line, including the trailing newline.
func Format(ts time.Time, message string) string {
	return fmt.Sprintf("[%s] %s\n", ts.Format(TimestampLayout), message)
}

// Append writes message with the current timestamp.
func (s *Sink) Append(message string) {
	line := Entry{Timestamp: s.now(), Message: message}.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.Debug("failure log unavailable", "path", s.path, "error", err)
			return
		}
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Debug("failure log unavailable", "path", s.path, "error", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		s.logger.Debug("failure log write dropped", "path", s.path, "error", err)
	}
}
