// Package model defines the core data structures used throughout scriptorium.
//
// This package contains the following main types:
//   - Script: Metadata about a runnable script in the scripts directory
//   - RunRequest: The JSON payload handed to a script on stdin
//   - ScriptResult: Captured output and exit status of one execution
//   - RunRecord: A ScriptResult persisted to the run history database
//   - HostFacts: Facts about the host the process is running on
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (script, runner, database, report, server)
// need to use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for API responses and
// database storage.
package model
