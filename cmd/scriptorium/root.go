// Package main provides the entry point for the scriptorium CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for scriptorium.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scriptorium",
		Short: "Script runner with an HTTP API and run history",
		Long: `Scriptorium turns a directory of scripts into a small HTTP service.

Scripts are executed through a configurable interpreter with a JSON
document piped to stdin. Captured stdout, stderr, exit code, and timing
come back as JSON, get cached, recorded in a local history database,
and announced to subscribers over Server-Sent Events.

Run 'scriptorium serve' to start the service, 'scriptorium run' for a
one-shot execution, and 'scriptorium history' to inspect recorded runs.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		var ec *exitCodeError
		if errors.As(err, &ec) {
			// The report already showed the failure; just mirror the code.
			os.Exit(ec.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitCodeError carries a script's exit code from the run command to
// Execute so the process can mirror it without printing a second
// diagnostic.
type exitCodeError struct {
	script string
	code   int
}

// Error implements the error interface.
func (e *exitCodeError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.script, e.code)
}
