package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func stubEnv(t *testing.T, values map[string]string) {
	t.Helper()
	orig := lookupEnvFn
	lookupEnvFn = func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnvFn = orig })
}

func TestResolveLevel(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		configured string
		want       slog.Level
		wantErr    bool
	}{
		{name: "default", want: slog.LevelInfo},
		{name: "config", configured: "debug", want: slog.LevelDebug},
		{name: "env wins", env: map[string]string{EnvLevel: "error"}, configured: "debug", want: slog.LevelError},
		{name: "blank env ignored", env: map[string]string{EnvLevel: "  "}, configured: "warn", want: slog.LevelWarn},
		{name: "bad env", env: map[string]string{EnvLevel: "loud"}, wantErr: true},
		{name: "bad config", configured: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubEnv(t, tt.env)
			got, err := ResolveLevel(tt.configured)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Fatalf("ResolveLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewWritesJSONWithRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: slog.LevelInfo, Output: &buf, RunID: "run-1"})
	logger.Debug("hidden")
	logger.Info("[lockctl] running", "hotkey", "Ctrl+Win+J")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1:\n%s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, lines[0])
	}
	if rec["run"] != "run-1" || rec["hotkey"] != "Ctrl+Win+J" {
		t.Fatalf("record = %v", rec)
	}
}

func TestNewUsesTextHandlerOnTerminal(t *testing.T) {
	orig := isTerminalFn
	isTerminalFn = func(*os.File) bool { return true }
	t.Cleanup(func() { isTerminalFn = orig })

	path := filepath.Join(t.TempDir(), "out.log")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	logger := New(Options{Level: slog.LevelInfo, Output: f})
	logger.Info("hello", "k", "v")
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "msg=hello k=v") {
		t.Fatalf("output = %q, want text format", raw)
	}
}

func TestNewTeesWarnings(t *testing.T) {
	cb, entries := newTestCallback()
	logger := New(Options{Level: slog.LevelDebug, Output: &bytes.Buffer{}, Tee: cb, TeeLevel: slog.LevelWarn, RunID: "r"})
	logger.Info("quiet")
	logger.Warn("loud")

	got := entries()
	if len(got) != 1 || got[0].Message != "loud" {
		t.Fatalf("teed = %+v, want one warn entry", got)
	}
}
