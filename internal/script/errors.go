package script

import "errors"

var (
	// ErrInvalidName is returned when a script name is empty, contains a
	// path separator, or does not carry the configured extension.
	ErrInvalidName = errors.New("invalid script name")

	// ErrScriptNotFound is returned when a script name is not in the store.
	ErrScriptNotFound = errors.New("script not found")

	// ErrScriptExists is returned when creating a script whose name is
	// already taken.
	ErrScriptExists = errors.New("script already exists")
)
