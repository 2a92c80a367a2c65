package core

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
)

func TestLogObserverFormat(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogObserver(log.New(&buf, "", 0), "abc123", false)

	obs.Observe(Observation{Component: "agent", Round: 2, Level: LevelInfo, Step: "publish", Message: "sent"})
	obs.Observe(Observation{Component: "agent", Round: NoRound, Level: LevelDebug, Step: "noise", Message: "hidden"})
	obs.Observe(Observation{Component: "moderator", Round: 0, Level: LevelError, Step: "publish", Message: "failed", Err: errors.New("boom")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "[INFO] agent run=abc123 round=2 publish: sent" {
		t.Fatalf("unexpected line %q", lines[0])
	}
	if lines[1] != "[ERROR] moderator run=abc123 round=0 publish: failed: boom" {
		t.Fatalf("unexpected line %q", lines[1])
	}
}

func TestLogObserverDebug(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogObserver(log.New(&buf, "", 0), "", true)
	obs.Observe(Observation{Component: "listener", Round: NoRound, Level: LevelDebug, Step: "listen", Message: "waiting"})
	if got := strings.TrimSpace(buf.String()); got != "[DEBUG] listener listen: waiting" {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Observe(Observation{Step: "a"})
	r.Observe(Observation{Step: "b"})
	if got := r.Steps(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected steps %v", got)
	}
	if len(r.Observations()) != 2 {
		t.Fatal("expected two observations")
	}
}
