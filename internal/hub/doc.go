// Package hub fans service events out to Server-Sent Events subscribers.
//
// The Hub owns the subscriber set from a single goroutine (Run), which
// removes the need for locking around registration, unregistration, and
// broadcast. Slow subscribers are skipped rather than allowed to stall
// the rest, and every subscriber channel is closed when Run's context
// ends so open /api/events connections terminate during shutdown.
package hub
