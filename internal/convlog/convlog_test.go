package convlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log(Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: "sess-1",
		Role:      "user",
		Content:   "check my leave balance",
	})

	path := filepath.Join(dir, "sess-1.ndjson")
	line := waitForLogLine(t, path)
	var got Event
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.Content != "check my leave balance" {
		t.Fatalf("unexpected content: %q", got.Content)
	}
	if got.Role != "user" {
		t.Fatalf("unexpected role: %q", got.Role)
	}
}

func TestLoggerWritesGlobalStream(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	globalPath := filepath.Join(dir, "all.ndjson")
	logger, err := New(Config{
		GlobalEnabled: true,
		GlobalPath:    globalPath,
		QueueSize:     16,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log(Event{SessionID: "a", Role: "user", Content: "first"})
	logger.Log(Event{SessionID: "b", Role: "assistant", Content: "second"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, _ := os.ReadFile(globalPath)
		if strings.Contains(string(data), "first") && strings.Contains(string(data), "second") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for both sessions in global stream")
}

func TestDisabledLoggerIsNoOp(t *testing.T) {
	t.Parallel()

	logger, err := New(Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Log(Event{SessionID: "s", Content: "dropped"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestLogAfterCloseIsDropped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{Enabled: true, Dir: dir, QueueSize: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Websocket turns can outlast server shutdown, so a late Log must be a
	// silent drop, not a panic.
	logger.Log(Event{SessionID: "late", Role: "assistant", Content: "goodbye"})

	if _, err := os.Stat(filepath.Join(dir, "late.ndjson")); !os.IsNotExist(err) {
		t.Fatalf("expected no log file for event after Close, stat err = %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	logger, err := New(Config{Enabled: true, Dir: t.TempDir(), QueueSize: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"sess-1", "sess-1"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"", "session"},
		{"a b/c", "a_b_c"},
	}
	for _, tc := range cases {
		if got := sanitizeName(tc.in); got != tc.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}
