package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"subscreen/internal/logging"
)

func TestNewJSONFormatRenamesCoreKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("probe", logging.Args(logging.String("video_id", "abc123"))...)

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	for _, key := range []string{"ts", "level", "msg"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("expected key %q in %v", key, payload)
		}
	}
	if payload["video_id"] != "abc123" {
		t.Errorf("expected video_id attr, got %v", payload["video_id"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestComponentLoggerAddsComponentField(t *testing.T) {
	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logging.NewComponentLogger(base, "denylist").Info("hello")

	if !strings.Contains(buf.String(), `"component":"denylist"`) {
		t.Fatalf("missing component field: %s", buf.String())
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Info("dropped")
	logger.Error("dropped too")
}

func TestWarnWithContextInjectsEventType(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logging.WarnWithContext(logger, "redis unreachable", "denylist_fallback")

	if !strings.Contains(buf.String(), `"event_type":"denylist_fallback"`) {
		t.Fatalf("missing event_type: %s", buf.String())
	}
}
