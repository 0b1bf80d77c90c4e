package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrEmptyListenAddr is returned when the listen address is empty.
	ErrEmptyListenAddr = errors.New("invalid listen address: must not be empty")

	// ErrEmptyScriptsDir is returned when the scripts directory is empty.
	ErrEmptyScriptsDir = errors.New("invalid scripts directory: must not be empty")

	// ErrEmptyInterpreter is returned when no interpreter command is set.
	// Without an interpreter there is no way to execute scripts.
	ErrEmptyInterpreter = errors.New("invalid interpreter: must not be empty")

	// ErrInvalidScriptExt is returned when the script extension does not
	// start with a dot or names no extension at all.
	ErrInvalidScriptExt = errors.New("invalid script extension: must start with '.' followed by at least one character")

	// ErrInvalidMaxConcurrentRuns is returned when the concurrency limit
	// is not positive. Zero would block every run forever.
	ErrInvalidMaxConcurrentRuns = errors.New("invalid max concurrent runs: must be positive")

	// ErrInvalidRunTimeout is returned when the run timeout is not
	// positive. A zero timeout would kill every run immediately.
	ErrInvalidRunTimeout = errors.New("invalid run timeout: must be positive")

	// ErrInvalidScanInterval is returned when the rescan interval is not
	// positive. A zero interval would spin the rescan loop.
	ErrInvalidScanInterval = errors.New("invalid scan interval: must be positive")

	// ErrInvalidMaxOutputBytes is returned when the output cap is not
	// positive. Runs need at least some room to report output.
	ErrInvalidMaxOutputBytes = errors.New("invalid max output bytes: must be positive")

	// ErrInvalidMaxClients is returned when the connection limit is not
	// positive. Zero would make the listener refuse every connection.
	ErrInvalidMaxClients = errors.New("invalid max clients: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used at a
	// time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
