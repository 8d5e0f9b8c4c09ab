package log

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewWithWriter(&buf, "warn", FormatJSON), "hub")

	logger.Info().Msg("hidden")
	logger.Warn().Str("channel", "#go").Msg("shown")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "shown" || entry["component"] != "hub" || entry["channel"] != "#go" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := parseLevel("loud"); got.String() != "info" {
		t.Fatalf("expected info, got %s", got)
	}
	if got := parseLevel("WARNING"); got.String() != "warn" {
		t.Fatalf("expected warn, got %s", got)
	}
}
