package monitoring

import (
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = format
	})
	Logf("channel %d started")
	if got != "channel %d started" {
		t.Errorf("custom logger saw %q", got)
	}

	// nil installs a no-op, not a nil function.
	SetLogger(nil)
	if Logf == nil {
		t.Fatal("Logf must never be nil")
	}
	Logf("dropped")
}

func TestWarnfSharesSink(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = format
	})
	Warnf("false phase lock")
	if !strings.HasPrefix(got, "WARN: ") {
		t.Errorf("Warnf output = %q, want WARN: prefix", got)
	}
	if !strings.Contains(got, "false phase lock") {
		t.Errorf("Warnf output = %q, want original message", got)
	}
}
