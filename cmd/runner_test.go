package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/evanherd/spotsync/internal/shared"
)

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(RunnerOpts{})

	if r.config == nil {
		t.Error("expected a default config")
	}
	if r.logger == nil {
		t.Error("expected a default logger")
	}
	if r.output == nil {
		t.Error("expected a default output writer")
	}
}

func TestRequireCatalog(t *testing.T) {
	r := NewRunner(RunnerOpts{})

	_, err := r.requireCatalog()
	if !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(RunnerOpts{Output: &buf})

	if err := r.writeJSON(map[string]int{"count": 3}, false); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if got := buf.String(); got != "{\"count\":3}\n" {
		t.Errorf("unexpected output %q", got)
	}

	buf.Reset()
	if err := r.writeJSON(map[string]int{"count": 3}, true); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if !strings.Contains(buf.String(), "  \"count\": 3") {
		t.Errorf("expected indented output, got %q", buf.String())
	}
}

func TestWritePlain(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(RunnerOpts{Output: &buf})

	if err := r.writePlain("hello %s\n", "world"); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if buf.String() != "hello world\n" {
		t.Errorf("unexpected output %q", buf.String())
	}

	buf.Reset()
	if err := r.writePlainln("block"); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if buf.String() != "\nblock\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestRegisterCommands(t *testing.T) {
	r := NewRunner(RunnerOpts{})
	commands := r.register()

	want := map[string]bool{
		"setup": false, "auth": false, "sync": false, "top-artists": false,
		"show-playlist": false, "create-unsorted": false, "playlist": false, "api-info": false,
	}
	for _, cmd := range commands {
		if _, ok := want[cmd.Name]; ok {
			want[cmd.Name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("command %q not registered", name)
		}
	}
}
