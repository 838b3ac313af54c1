// Package convlog provides asynchronous NDJSON conversation logging.
package convlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Event is one logged conversation message.
type Event struct {
	Timestamp string `json:"ts"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Intent    string `json:"intent,omitempty"`
}

// Config controls conversation logging.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Logger writes conversation events to per-session NDJSON files and an
// optional global stream. Writes happen on a background goroutine; when the
// queue is full events are dropped rather than blocking the chat turn.
type Logger struct {
	cfg    Config
	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	files  map[string]*os.File
	global *os.File
	closed bool
}

// New creates a conversation logger. A disabled config yields a logger whose
// Log is a no-op.
func New(cfg Config) (*Logger, error) {
	l := &Logger{cfg: cfg, done: make(chan struct{})}
	if !cfg.Enabled && !cfg.GlobalEnabled {
		close(l.done)
		return l, nil
	}

	if cfg.Enabled {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create conversation log directory: %w", err)
		}
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0755); err != nil {
			return nil, fmt.Errorf("create global log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.GlobalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open global conversation log: %w", err)
		}
		l.global = f
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}
	l.events = make(chan Event, queueSize)
	l.files = make(map[string]*os.File)

	go l.run()
	return l, nil
}

// Log enqueues an event. Never blocks; drops when the queue is full or the
// logger is closed. In-flight chat turns can outlive shutdown, so a late Log
// must not touch the closed channel.
func (l *Logger) Log(event Event) {
	if l.events == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.events <- event:
	default:
		slog.Warn("Conversation log queue full, dropping event", "session_id", event.SessionID)
	}
}

// Close drains pending events and closes all files.
func (l *Logger) Close() error {
	if l.events == nil {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	close(l.events)
	<-l.done

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if l.global != nil {
		if err := l.global.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *Logger) run() {
	defer close(l.done)
	for event := range l.events {
		data, err := json.Marshal(event)
		if err != nil {
			slog.Warn("Failed to marshal conversation event", "error", err)
			continue
		}
		line := append(data, '\n')

		if l.cfg.Enabled {
			if f := l.sessionFile(event.SessionID); f != nil {
				if _, err := f.Write(line); err != nil {
					slog.Warn("Failed to write conversation log", "session_id", event.SessionID, "error", err)
				}
			}
		}
		if l.global != nil {
			if _, err := l.global.Write(line); err != nil {
				slog.Warn("Failed to write global conversation log", "error", err)
			}
		}
	}
}

func (l *Logger) sessionFile(sessionID string) *os.File {
	if f, ok := l.files[sessionID]; ok {
		return f
	}
	path := filepath.Join(l.cfg.Dir, sanitizeName(sessionID)+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		slog.Warn("Failed to open conversation log file", "session_id", sessionID, "error", err)
		return nil
	}
	l.files[sessionID] = f
	return f
}

// sanitizeName keeps session-derived file names free of path separators.
func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "session"
	}
	return string(out)
}
