package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/scriptorium/internal/reporter"
)

// runReport executes the report command with the given stdin content and
// returns whatever reached stdout along with the execution error.
func runReport(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	cmd := NewReportCmd()
	cmd.SetIn(strings.NewReader(input))
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

// TestNewReportCmd tests the report command creation.
func TestNewReportCmd(t *testing.T) {
	t.Parallel()

	cmd := NewReportCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "report" {
			t.Errorf("expected use 'report', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})
}

// TestRunReportCmd tests the two-line report contract.
func TestRunReportCmd(t *testing.T) {
	t.Parallel()

	t.Run("writes facts line then compact echo line", func(t *testing.T) {
		t.Parallel()

		output, err := runReport(t, `  {"b": [true, null], "a": 1}  `)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(output, "\n") {
			t.Fatalf("expected newline-terminated output, got %q", output)
		}

		lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected exactly 2 lines, got %d: %q", len(lines), output)
		}

		var facts map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &facts); err != nil {
			t.Fatalf("facts line is not valid JSON: %v", err)
		}
		if len(facts) != 3 {
			t.Errorf("expected exactly 3 fact keys, got %d: %v", len(facts), facts)
		}
		if facts["curdir"] != "." {
			t.Errorf("expected curdir '.', got %v", facts["curdir"])
		}
		name, ok := facts["name"].(string)
		if !ok || name == "" {
			t.Errorf("expected non-empty platform name, got %v", facts["name"])
		}
		switch count := facts["cpu_count"].(type) {
		case nil:
			// Unknown CPU count is reported as null.
		case float64:
			if count < 1 {
				t.Errorf("expected positive cpu_count, got %v", count)
			}
		default:
			t.Errorf("expected numeric or null cpu_count, got %T", facts["cpu_count"])
		}

		if lines[1] != `{"a":1,"b":[true,null]}` {
			t.Errorf("expected compact echo line, got %q", lines[1])
		}
	})

	t.Run("echoes a bare number", func(t *testing.T) {
		t.Parallel()

		output, err := runReport(t, "42")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected exactly 2 lines, got %d", len(lines))
		}
		if lines[1] != "42" {
			t.Errorf("expected echo '42', got %q", lines[1])
		}
	})

	t.Run("echoes null", func(t *testing.T) {
		t.Parallel()

		output, err := runReport(t, "null")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected exactly 2 lines, got %d", len(lines))
		}
		if lines[1] != "null" {
			t.Errorf("expected echo 'null', got %q", lines[1])
		}
	})

	t.Run("preserves large integers exactly", func(t *testing.T) {
		t.Parallel()

		output, err := runReport(t, "9007199254740993")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
		if lines[1] != "9007199254740993" {
			t.Errorf("expected integer preserved beyond 2^53, got %q", lines[1])
		}
	})

	t.Run("does not escape html characters", func(t *testing.T) {
		t.Parallel()

		output, err := runReport(t, `"<a>&"`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
		if lines[1] != `"<a>&"` {
			t.Errorf("expected unescaped echo, got %q", lines[1])
		}
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		output, err := runReport(t, "")
		if !errors.Is(err, reporter.ErrEmptyInput) {
			t.Errorf("expected ErrEmptyInput, got %v", err)
		}
		if output != "" {
			t.Errorf("expected no stdout on failure, got %q", output)
		}
	})

	t.Run("rejects whitespace only input", func(t *testing.T) {
		t.Parallel()

		output, err := runReport(t, "  \n\t ")
		if !errors.Is(err, reporter.ErrEmptyInput) {
			t.Errorf("expected ErrEmptyInput, got %v", err)
		}
		if output != "" {
			t.Errorf("expected no stdout on failure, got %q", output)
		}
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		t.Parallel()

		output, err := runReport(t, "not json")
		if err == nil {
			t.Fatal("expected error for malformed input")
		}
		if !strings.Contains(err.Error(), "invalid JSON input") {
			t.Errorf("expected diagnostic message, got %v", err)
		}
		if output != "" {
			t.Errorf("expected no stdout on failure, got %q", output)
		}
	})

	t.Run("rejects trailing data after first value", func(t *testing.T) {
		t.Parallel()

		output, err := runReport(t, `{"a": 1} {"b": 2}`)
		if !errors.Is(err, reporter.ErrTrailingData) {
			t.Errorf("expected ErrTrailingData, got %v", err)
		}
		if output != "" {
			t.Errorf("expected no stdout on failure, got %q", output)
		}
	})

	t.Run("rejects positional arguments", func(t *testing.T) {
		t.Parallel()

		output, err := runReport(t, "42", "extra")
		if err == nil {
			t.Fatal("expected error for positional argument")
		}
		if output != "" {
			t.Errorf("expected no stdout on failure, got %q", output)
		}
	})
}
