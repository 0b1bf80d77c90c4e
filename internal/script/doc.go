// Package script provides the directory-backed store of runnable scripts.
//
// A Store owns a single directory and tracks the files in it that carry
// the configured extension. All name handling flows through an
// in-memory set: user-supplied names are validated and checked against
// the set, so a request can never address a file outside the scripts
// directory.
//
// The set is refreshed by Scan, either on demand or periodically via
// Watch, which is how the service notices scripts added or removed
// behind its back.
package script
