package reporter

import "errors"

var (
	// ErrEmptyInput is returned when the input contains no JSON value.
	ErrEmptyInput = errors.New("empty input: expected a JSON value")

	// ErrTrailingData is returned when non-whitespace data follows the
	// first JSON value. The filter accepts exactly one value.
	ErrTrailingData = errors.New("trailing data after JSON value")
)
