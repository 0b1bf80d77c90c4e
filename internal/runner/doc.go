// Package runner executes scripts as interpreter subprocesses.
//
// The Engine resolves script names through the script store, feeds the
// request input to the child process on stdin, and captures stdout and
// stderr with a byte bound. A weighted semaphore caps how many child
// processes exist at once across all callers, and each run is killed
// when it outlives the configured timeout.
//
// Successful results are stored in the result cache keyed by script
// name, arguments, and input, and validated against the script's
// modification time on the way out.
package runner
