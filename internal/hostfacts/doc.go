// Package hostfacts collects facts about the host the process runs on.
//
// The facts are intentionally minimal: the current-directory marker,
// the OS family, and the logical CPU count. They are printed as the
// first output line of the report command and embedded in the service
// health response.
//
// Collection never fails and never panics. Facts that cannot be
// determined are reported as absent (a nil CPU count serializes to
// JSON null) rather than aborting the program.
package hostfacts
