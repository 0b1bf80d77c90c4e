// Package reporter implements the stdin-to-stdout JSON filter behind
// the report command.
//
// The filter reads the entirety of its input, parses it as exactly one
// JSON value, and writes two lines: the host facts object and the
// re-serialization of the parsed input. Invalid input produces an
// error and no output, so a consumer that sees a first line can trust
// it is a well-formed facts object.
//
// The filter is deliberately free of options. It takes no flags and
// reads no environment; its behavior is fully determined by its input.
package reporter
