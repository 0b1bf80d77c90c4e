package main

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/nao1215/scriptorium/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/scriptorium.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new scriptorium configuration file",
		Long: `Init creates a new .scriptorium configuration file in the current directory.

The generated file includes:
- Default settings for the scripts directory and interpreter
- Commented examples for timeouts, caching, and the HTTP listener
- Documentation for all available options

Examples:
  # Create .scriptorium in current directory
  scriptorium init

  # Create config file at a specific path
  scriptorium init -o myconfig.yaml

  # Force overwrite existing file
  scriptorium init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			if !confirmOverwrite(cmd, outputPath) {
				return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
			}
		}
	}

	// Read template from embedded filesystem
	content, err := configTemplate.ReadFile("templates/scriptorium.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write configuration file
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure the service, for example:")
	fmt.Fprintln(out, "  - scripts_dir and interpreter for your script collection")
	fmt.Fprintln(out, "  - run_timeout and cache_ttl")
	fmt.Fprintln(out, "  - listen_addr and max_clients for the HTTP service")

	return nil
}

// confirmOverwrite asks interactively before replacing path. Any
// prompt failure, including non-interactive stdin, counts as a
// refusal, so scripted callers must pass --force.
func confirmOverwrite(cmd *cobra.Command, path string) bool {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Overwrite %s", path),
		IsConfirm: true,
		Stdin:     io.NopCloser(cmd.InOrStdin()),
		Stdout:    nopWriteCloser{cmd.OutOrStdout()},
	}
	if _, err := prompt.Run(); err != nil {
		return false
	}
	return true
}

// nopWriteCloser adapts the command output stream to promptui, which
// wants a WriteCloser it never actually closes.
type nopWriteCloser struct {
	io.Writer
}

// Close implements io.Closer.
func (nopWriteCloser) Close() error { return nil }
