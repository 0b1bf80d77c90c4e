// Package cache provides an in-memory result cache for script runs.
//
// Results are keyed by a digest of the script name, its arguments, and
// the exact input bytes. An entry is only served while the script file
// is unchanged (same modification time) and younger than the configured
// TTL, so editing a script invalidates its cached results immediately
// and idle entries age out.
package cache
