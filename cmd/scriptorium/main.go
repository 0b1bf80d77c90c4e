// Package main provides the entry point for the scriptorium CLI.
//
// Scriptorium turns a directory of scripts into a small HTTP service:
// scripts receive JSON on stdin and their output, exit code, and timing
// are returned as JSON, cached, recorded, and announced over SSE.
//
// Usage:
//
//	scriptorium serve
//	scriptorium run <script> [args...]
//	scriptorium report < input.json
//
// See --help for all available options.
package main

// main is the entry point for scriptorium.
func main() {
	Execute()
}
