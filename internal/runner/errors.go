package runner

import "errors"

var (
	// ErrInterpreterNotFound is returned when the configured interpreter
	// is not on PATH.
	ErrInterpreterNotFound = errors.New("interpreter not found")

	// ErrRunTimeout is returned when a script outlives the run timeout
	// and is killed.
	ErrRunTimeout = errors.New("script execution timed out")

	// ErrOutputTooLarge is returned when a script writes more than the
	// configured maximum to stdout or stderr.
	ErrOutputTooLarge = errors.New("script output too large")

	// ErrOutputNotUTF8 is returned when captured output is not valid UTF-8.
	ErrOutputNotUTF8 = errors.New("script output is not valid UTF-8")
)
