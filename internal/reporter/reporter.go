package reporter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/scriptorium/internal/hostfacts"
)

// Run reads all of r, parses it as a single JSON value, and writes two
// newline-terminated lines to w: the host facts object, then the
// re-serialized input value.
//
// Nothing is written to w until the input has parsed successfully, so
// a non-nil error guarantees that w received no output.
//
// Design decision: numbers are decoded as json.Number rather than
// float64 so the echo line preserves integer literals beyond 2^53
// exactly. Round-tripping through float64 would silently alter them.
func Run(r io.Reader, w io.Writer) error {
	input, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	value, err := decodeSingleValue(input)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(hostfacts.Collect()); err != nil {
		return fmt.Errorf("failed to write host facts: %w", err)
	}
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("failed to write input echo: %w", err)
	}
	return nil
}

// decodeSingleValue parses input as exactly one JSON value. Empty or
// whitespace-only input yields ErrEmptyInput; any non-whitespace bytes
// after the first value yield ErrTrailingData.
func decodeSingleValue(input []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("invalid JSON input: %w", err)
	}

	// A second decode must hit clean EOF, otherwise the input held
	// more than one document.
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return value, nil
}
