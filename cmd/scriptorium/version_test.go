package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestGetVersion tests version string resolution.
// Subtests mutate package-level variables, so they run sequentially.
func TestGetVersion(t *testing.T) {
	t.Run("returns ldflags version when set", func(t *testing.T) {
		original := version
		defer func() { version = original }()

		version = "v1.2.3"
		if got := getVersion(); got != "v1.2.3" {
			t.Errorf("expected 'v1.2.3', got %q", got)
		}
	})

	t.Run("falls back when ldflags version is empty", func(t *testing.T) {
		original := version
		defer func() { version = original }()

		version = ""
		if got := getVersion(); got == "" {
			t.Error("expected non-empty version")
		}
	})
}

// TestGetCommit tests commit hash resolution.
func TestGetCommit(t *testing.T) {
	t.Run("returns ldflags commit when set", func(t *testing.T) {
		original := commit
		defer func() { commit = original }()

		commit = "abc1234"
		if got := getCommit(); got != "abc1234" {
			t.Errorf("expected 'abc1234', got %q", got)
		}
	})

	t.Run("falls back when ldflags commit is empty", func(t *testing.T) {
		original := commit
		defer func() { commit = original }()

		commit = ""
		if got := getCommit(); got == "" {
			t.Error("expected non-empty commit")
		}
	})
}

// TestGetDate tests build date resolution.
func TestGetDate(t *testing.T) {
	t.Run("returns ldflags date when set", func(t *testing.T) {
		original := date
		defer func() { date = original }()

		date = "2025-01-02"
		if got := getDate(); got != "2025-01-02" {
			t.Errorf("expected '2025-01-02', got %q", got)
		}
	})

	t.Run("falls back when ldflags date is empty", func(t *testing.T) {
		original := date
		defer func() { date = original }()

		date = ""
		if got := getDate(); got == "" {
			t.Error("expected non-empty date")
		}
	})
}

// TestNewVersionCmd tests the version command output.
func TestNewVersionCmd(t *testing.T) {
	t.Run("prints version information", func(t *testing.T) {
		originalVersion := version
		originalCommit := commit
		originalDate := date
		defer func() {
			version = originalVersion
			commit = originalCommit
			date = originalDate
		}()

		version = "v0.9.0"
		commit = "deadbee"
		date = "2025-06-01T00:00:00Z"

		cmd := NewVersionCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "scriptorium version v0.9.0") {
			t.Errorf("expected version line, got %q", output)
		}
		if !strings.Contains(output, "commit: deadbee") {
			t.Errorf("expected commit line, got %q", output)
		}
		if !strings.Contains(output, "built:  2025-06-01T00:00:00Z") {
			t.Errorf("expected build date line, got %q", output)
		}
	})
}
