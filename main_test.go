package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/onnwee/chatrec/config"
	"github.com/onnwee/chatrec/format"
	"github.com/onnwee/chatrec/message"
	"github.com/onnwee/chatrec/platform"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"config", &config.ConfigError{Reason: "bad flag"}, 2},
		{"access", &platform.AccessError{Platform: "discord", Channel: "1", Err: errors.New("403")}, 3},
		{"fetch", &platform.FetchError{Platform: "slack", Attempts: 3, Err: errors.New("timeout")}, 4},
		{"render", &format.RenderError{Format: "csv", Err: errors.New("disk full")}, 5},
		{"wrapped access", fmt.Errorf("session: %w", &platform.AccessError{Platform: "irc", Channel: "#x", Err: errors.New("banned")}), 3},
		{"unclassified", errors.New("something else"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRunDemoSession(t *testing.T) {
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	out := filepath.Join(t.TempDir(), "demo.json")

	code := run([]string{"--platform", "demo", "--count", "2", "--output", out})
	if code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var msgs []message.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
}

func TestRunInvalidConfig(t *testing.T) {
	if code := run([]string{"--platform", "teletype"}); code != 2 {
		t.Fatalf("run() = %d, want 2 for an unknown platform", code)
	}
}

func TestRunHelp(t *testing.T) {
	if code := run([]string{"--help"}); code != 0 {
		t.Fatalf("run() = %d, want 0 for --help", code)
	}
}
