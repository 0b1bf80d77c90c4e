// Package database provides SQLite-based storage for run history.
//
// This package implements the RunDB, which stores one record per script
// execution: the script name, arguments, a digest of the input, the
// captured output, and timing. The serve command inserts records as
// runs finish; the history command and the /api/runs endpoints read
// them back.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of
// other databases because:
//  1. No external dependencies - the database is a single file
//  2. CGO-free implementation allows easy cross-compilation
//  3. Sufficient performance for our use case
//  4. WAL mode provides good concurrent read performance
package database
