package main

import (
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "scriptorium" {
			t.Errorf("expected use 'scriptorium', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has verbose flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		subcommands := cmd.Commands()
		if len(subcommands) == 0 {
			t.Error("expected subcommands")
		}

		// Check for serve, run, and report commands
		hasServe := false
		hasRun := false
		hasReport := false
		for _, sub := range subcommands {
			if sub.Use == "serve" {
				hasServe = true
			}
			if sub.Use == "run <script> [args...]" {
				hasRun = true
			}
			if sub.Use == "report" {
				hasReport = true
			}
		}
		if !hasServe {
			t.Error("expected serve subcommand")
		}
		if !hasRun {
			t.Error("expected run subcommand")
		}
		if !hasReport {
			t.Error("expected report subcommand")
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}

// TestExitCodeError tests the error that carries script exit codes.
func TestExitCodeError(t *testing.T) {
	t.Parallel()

	err := &exitCodeError{script: "check.py", code: 3}
	want := "check.py exited with code 3"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
