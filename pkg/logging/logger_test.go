package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"monolithgo/pkg/config"
)

func TestInit(t *testing.T) {
	tempDir := t.TempDir()
	serverLog := filepath.Join(tempDir, "server.log")
	requestLog := filepath.Join(tempDir, "requests.log")
	eventLog := filepath.Join(tempDir, "events.log")

	// A previous run's log is rotated away.
	if err := os.WriteFile(serverLog, []byte("old run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.LogConfig{
		Server:   config.LogSettings{Path: serverLog, Level: "DEBUG"},
		Requests: config.LogSettings{Path: requestLog, Level: "INFO"},
		Events:   config.LogSettings{Path: eventLog},
	}

	prev := slog.Default()
	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() {
		cleanup()
		slog.SetDefault(prev)
		SetEventLogPath("")
	}()

	if _, err := os.Stat(serverLog + ".old"); err != nil {
		t.Error("previous server log was not rotated")
	}
	if _, err := os.Stat(requestLog); os.IsNotExist(err) {
		t.Error("Request log file not created")
	}

	slog.Info("tracking session opened", "data_port", 5000)
	if got := GlobalLogCapture.GetLastLine(); !strings.Contains(got, "tracking session opened") {
		t.Errorf("capture did not see the log line: %q", got)
	}

	data, err := os.ReadFile(serverLog)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "data_port=5000") {
		t.Errorf("server log missing record: %q", data)
	}
}

func TestLogEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	SetEventLogPath(path)
	defer SetEventLogPath("")

	LogEvent("tracking", "measurement started")
	LogEvent("control", "connection lost")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 event lines, got %d", len(lines))
	}
	if !strings.HasSuffix(lines[1], "[control] connection lost") {
		t.Errorf("unexpected event line %q", lines[1])
	}
	if got := GlobalEventCapture.GetLastLine(); got != lines[1] {
		t.Errorf("event capture %q, want %q", got, lines[1])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTrace(t *testing.T) {
	var sb strings.Builder
	logger := slog.New(slog.NewTextHandler(&sb, &slog.HandlerOptions{Level: slog.LevelDebug}))

	EnableTrace = false
	Trace(logger, "frame", "n", 1)
	if sb.Len() != 0 {
		t.Error("trace logged while disabled")
	}

	EnableTrace = true
	defer func() { EnableTrace = false }()
	Trace(logger, "frame", "n", 2)
	if !strings.Contains(sb.String(), "n=2") {
		t.Errorf("trace not logged: %q", sb.String())
	}
}
