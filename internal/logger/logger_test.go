package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.InfoLevel, "json")

	log.Debug().Msg("hidden")
	log.Info().Str("component", "test").Msg("shown")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not one JSON line: %q", buf.String())
	}
	if line["message"] != "shown" || line["component"] != "test" {
		t.Errorf("line = %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestNewPretty(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.InfoLevel, "pretty")
	l.Info().Msg("hello")
	if !bytes.Contains(buf.Bytes(), []byte("hello")) || json.Valid(buf.Bytes()) {
		t.Errorf("unexpected pretty output %q", buf.String())
	}
}
