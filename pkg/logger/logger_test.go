package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize text logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("json")); err != nil {
		t.Fatalf("failed to initialize json logger: %v", err)
	}
	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
	if err := Sync(); err != nil {
		t.Errorf("failed to sync logger: %v", err)
	}
}

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat("json"), WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("scoring").With(Int64("client_id", 7)).Warn(context.Background(), "unknown metrics",
		Int("count", 2),
		Float64("total", 17),
		Bool("clamped", true),
		Duration("took", time.Millisecond),
		Error(errors.New("boom")),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not json: %v: %s", err, buf.String())
	}
	if entry["msg"] != "unknown metrics" || entry["level"] != "WARN" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry["logger"] != "scoring" {
		t.Errorf("logger name missing: %v", entry)
	}
	if entry["client_id"] != float64(7) || entry["count"] != float64(2) || entry["clamped"] != true {
		t.Errorf("fields missing: %v", entry)
	}
	if entry["error"] != "boom" {
		t.Errorf("error field missing: %v", entry)
	}
	if src, _ := entry["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("source should point at the caller, got %q", src)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	Get().Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level: %s", buf.String())
	}

	if err := SetLevelString("DEBUG"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	Get().Debug(ctx, "shown", String("k", "v"))
	if !strings.Contains(buf.String(), "shown") || !strings.Contains(buf.String(), "k=v") {
		t.Fatalf("debug line missing: %s", buf.String())
	}

	for _, lvl := range []string{"info", "warn", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("level %q: %v", lvl, err)
		}
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestLoggerFatal(t *testing.T) {
	var buf bytes.Buffer
	code := 0
	if err := Init(WithWriter(&buf), WithExit(func(c int) { code = c })); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Fatal(context.Background(), "fatal")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("fatal should log at error level: %s", buf.String())
	}
}
