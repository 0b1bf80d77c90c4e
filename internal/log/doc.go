// Package log provides sanitized logging functionality built on top of
// the standard slog package.
//
// This package extends slog to provide:
//   - Automatic masking of sensitive values (cookies, tokens, secrets)
//   - Truncation of oversized string attributes (script payloads)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Sanitization
//
// The SanitizingHandler rewrites attributes in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (passwords, tokens, keys)
//   - Session identifiers and authentication tokens
//   - String attributes longer than MaxAttrBytes are truncated, so a
//     script that prints megabytes of output cannot flood the log
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	// Create a sanitized logger
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("run finished",
//	    "token", "abc123",     // Will be masked to "***REDACTED***"
//	    "stdout", longOutput,  // Will be truncated to MaxAttrBytes
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
