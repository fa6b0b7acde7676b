package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", "json", &buf)

	For(log, "DB").Debug("connected")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if entry["component"] != "DB" {
		t.Errorf("component = %v, want %q", entry["component"], "DB")
	}
	if entry["msg"] != "connected" {
		t.Errorf("msg = %v, want %q", entry["msg"], "connected")
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log := New("loud", "text", &bytes.Buffer{})
	if log.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want %v", log.GetLevel(), logrus.InfoLevel)
	}
}

func TestNew_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", "text", &buf)
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn line missing: %q", out)
	}
}
