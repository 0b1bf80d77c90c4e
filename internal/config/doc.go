// Package config provides configuration structures and utilities for
// scriptorium. It defines the options for the HTTP service, script
// execution limits, the result cache, and run history persistence,
// together with config file discovery and loading.
package config
