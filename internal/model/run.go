package model

import (
	"encoding/json"
	"time"
)

// runStatusUnknownStr is the string representation for unknown status values.
const runStatusUnknownStr = "unknown"

// RunStatus classifies the outcome of a script execution.
type RunStatus string

// Run status constants.
const (
	// RunStatusUnknown represents an unclassified outcome.
	RunStatusUnknown RunStatus = ""
	// RunStatusOK represents a run that exited with code 0.
	RunStatusOK RunStatus = "ok"
	// RunStatusFailed represents a run that exited non-zero or was
	// killed by a signal.
	RunStatusFailed RunStatus = "failed"
	// RunStatusTimedOut represents a run that exceeded the run timeout.
	RunStatusTimedOut RunStatus = "timed_out"
)

// String returns the string representation of the RunStatus.
func (s RunStatus) String() string {
	if s == RunStatusUnknown {
		return runStatusUnknownStr
	}
	return string(s)
}

// IsValid returns true if this is a known run status.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusOK, RunStatusFailed, RunStatusTimedOut:
		return true
	default:
		return false
	}
}

// ParseRunStatus converts a string to RunStatus.
func ParseRunStatus(s string) RunStatus {
	switch s {
	case "ok":
		return RunStatusOK
	case "failed":
		return RunStatusFailed
	case "timed_out":
		return RunStatusTimedOut
	default:
		return RunStatusUnknown
	}
}

// RunRequest is the JSON body accepted by the run endpoints. Data is
// re-serialized and written to the script's stdin; Args are appended to
// the interpreter command line after the script path.
type RunRequest struct {
	// Data is the JSON value handed to the script on stdin. A missing
	// field is treated as JSON null.
	Data json.RawMessage `json:"data"`

	// Args are extra command line arguments for the script.
	Args []string `json:"args,omitempty"`
}

// InputBytes returns the stdin payload for this request. A request
// without data yields the JSON literal null, mirroring what an empty
// payload deserializes to.
func (r *RunRequest) InputBytes() []byte {
	if len(r.Data) == 0 {
		return []byte("null")
	}
	return []byte(r.Data)
}

// ScriptResult is the captured outcome of one script execution.
type ScriptResult struct {
	// Stdout is everything the script wrote to standard output.
	Stdout string `json:"stdout"`

	// Stderr is everything the script wrote to standard error.
	Stderr string `json:"stderr"`

	// ExitCode is the script's exit code, or -1 when the process was
	// terminated by a signal or never ran.
	ExitCode int `json:"exit_code"`

	// TimedOut reports whether the run was killed by the run timeout.
	TimedOut bool `json:"timed_out"`

	// Cached reports whether this result was served from the result
	// cache instead of a fresh execution.
	Cached bool `json:"cached,omitempty"`

	// DurationMS is the wall-clock execution time in milliseconds.
	// Zero for cache hits.
	DurationMS int64 `json:"duration_ms"`
}

// Status classifies the result for display and filtering.
func (r *ScriptResult) Status() RunStatus {
	switch {
	case r.TimedOut:
		return RunStatusTimedOut
	case r.ExitCode == 0:
		return RunStatusOK
	default:
		return RunStatusFailed
	}
}

// Succeeded reports whether the script exited cleanly.
func (r *ScriptResult) Succeeded() bool {
	return r.Status() == RunStatusOK
}

// Duration returns the execution time as a time.Duration.
func (r *ScriptResult) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// RunRecord is a ScriptResult persisted to the run history database,
// together with the identifying request attributes. The embedded
// ScriptResult fields flatten into the JSON representation.
type RunRecord struct {
	// ID is the database row ID. Zero until the record is inserted.
	ID int64 `json:"id,omitempty"`

	// Script is the script name the run executed.
	Script string `json:"script"`

	// Args are the extra arguments the run was invoked with.
	Args []string `json:"args,omitempty"`

	// InputSHA256 is the hex SHA-256 of the stdin payload. Storing the
	// digest instead of the payload keeps the history table small and
	// avoids persisting potentially sensitive input.
	InputSHA256 string `json:"input_sha256,omitempty"`

	ScriptResult

	// CreatedAt is when the run finished.
	CreatedAt time.Time `json:"created_at"`
}
