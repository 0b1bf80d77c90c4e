package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/scriptorium/internal/cache"
	"github.com/nao1215/scriptorium/internal/config"
	"github.com/nao1215/scriptorium/internal/database"
	"github.com/nao1215/scriptorium/internal/model"
	"github.com/nao1215/scriptorium/internal/report"
	"github.com/nao1215/scriptorium/internal/runner"
	"github.com/nao1215/scriptorium/internal/script"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script> [args...]",
		Short: "Run one script and print a run report",
		Long: `Run executes a single script through the configured interpreter and
prints a report of the captured stdout, stderr, exit code, and timing.

The script receives a JSON document on stdin: the --input file when
given, piped stdin when present, and the JSON literal null otherwise.
Positional arguments after the script name are passed to the script;
use -- before arguments that start with a dash.

The run is recorded in the history database unless --no-save is given
or history is disabled in the configuration file. A non-zero script
exit code is part of the report, not a command failure; pass
--exit-status to mirror it as the process exit code.

Examples:
  # Run a script with two arguments
  scriptorium run greet.py Alice Bob

  # Pipe a JSON document to the script's stdin
  echo '{"rows": 500}' | scriptorium run export.py

  # Read the input document from a file and save the report
  scriptorium run -i input.json -o report.md --markdown export.py

  # Propagate the script's exit code for shell scripting
  scriptorium run --exit-status --quiet check.py && echo healthy`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRunCmd,
	}

	// Input flags
	cmd.Flags().StringP("input", "i", "",
		"File holding the JSON document piped to the script's stdin")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRunTimeout,
		"Wall-clock limit for the script execution")

	// Script location flags
	cmd.Flags().StringP("scripts-dir", "d", config.DefaultScriptsDir,
		"Directory holding the runnable scripts")
	cmd.Flags().String("interpreter", config.DefaultInterpreter,
		"Interpreter command used to execute the script")
	cmd.Flags().StringSlice("interpreter-args", config.DefaultInterpreterArgs(),
		"Arguments placed before the script path on the interpreter command line")
	cmd.Flags().String("ext", config.DefaultScriptExt,
		"Script file extension, including the dot")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output a JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output a Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to the specified file path (creates directories if needed)")
	cmd.Flags().BoolP("quiet", "q", false,
		"Suppress the report output")

	// Behavior flags
	cmd.Flags().Bool("no-cache", false,
		"Bypass the run result cache")
	cmd.Flags().Bool("no-save", false,
		"Skip recording the run in the history database")
	cmd.Flags().Bool("exit-status", false,
		"Exit with the script's exit code instead of 0")

	// History and configuration
	cmd.Flags().String("db-dir", "",
		"Directory for the run history database (default: XDG data directory)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .scriptorium in current or home directory)")

	return cmd
}

// runOptions holds the run command flags that do not live in Config.
type runOptions struct {
	inputPath      string
	outputPath     string
	jsonOutput     bool
	markdownOutput bool
	quiet          bool
	noCache        bool
	noSave         bool
	exitStatus     bool
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	opts, err := parseRunOptions(cmd)
	if err != nil {
		return err
	}
	if opts.jsonOutput && opts.markdownOutput {
		return config.ErrConflictingReportFormats
	}

	// Set up structured logging
	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling so Ctrl+C kills the script
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runOnce(ctx, cmd, cfg, opts, args, logger)
}

// buildRunConfig creates a Config from defaults, the configuration
// file, and the run command flags, in that order.
func buildRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	if err := applyConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	var err error

	if cmd.Flags().Changed("scripts-dir") {
		if cfg.ScriptsDir, err = cmd.Flags().GetString("scripts-dir"); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("interpreter") {
		if cfg.Interpreter, err = cmd.Flags().GetString("interpreter"); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("interpreter-args") {
		if cfg.InterpreterArgs, err = cmd.Flags().GetStringSlice("interpreter-args"); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("ext") {
		if cfg.ScriptExt, err = cmd.Flags().GetString("ext"); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("timeout") {
		if cfg.RunTimeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("db-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// parseRunOptions reads the run-specific flags.
func parseRunOptions(cmd *cobra.Command) (runOptions, error) {
	var opts runOptions
	var err error

	if opts.inputPath, err = cmd.Flags().GetString("input"); err != nil {
		return opts, err
	}
	if opts.outputPath, err = cmd.Flags().GetString("output"); err != nil {
		return opts, err
	}
	if opts.jsonOutput, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdownOutput, err = cmd.Flags().GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.quiet, err = cmd.Flags().GetBool("quiet"); err != nil {
		return opts, err
	}
	if opts.noCache, err = cmd.Flags().GetBool("no-cache"); err != nil {
		return opts, err
	}
	if opts.noSave, err = cmd.Flags().GetBool("no-save"); err != nil {
		return opts, err
	}
	if opts.exitStatus, err = cmd.Flags().GetBool("exit-status"); err != nil {
		return opts, err
	}

	return opts, nil
}

// runOnce executes one script and reports the result.
func runOnce(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts runOptions, args []string, logger *slog.Logger) error {
	name, scriptArgs := args[0], args[1:]

	input, err := readRunInput(cmd, opts.inputPath)
	if err != nil {
		return err
	}
	if !json.Valid(input) {
		return errors.New("input is not a valid JSON document")
	}

	store, err := script.NewStore(cfg.ScriptsDir, cfg.ScriptExt, logger)
	if err != nil {
		return fmt.Errorf("failed to open scripts directory: %w", err)
	}
	if _, err := store.Scan(ctx); err != nil {
		return fmt.Errorf("failed to scan scripts directory: %w", err)
	}

	engineOpts := []runner.Option{
		runner.WithInterpreter(cfg.Interpreter, cfg.InterpreterArgs...),
		runner.WithTimeout(cfg.RunTimeout),
		runner.WithMaxConcurrent(cfg.MaxConcurrentRuns),
		runner.WithMaxOutputBytes(cfg.MaxOutputBytes),
		runner.WithLogger(logger),
	}
	if !opts.noCache {
		engineOpts = append(engineOpts, runner.WithCache(cache.New(cfg.CacheTTL)))
	}
	engine := runner.NewEngine(store, engineOpts...)

	if err := engine.VerifyInterpreter(); err != nil {
		return err
	}

	result, err := engine.Run(ctx, name, scriptArgs, input)
	if err != nil {
		return err
	}

	record := &model.RunRecord{
		Script:       name,
		Args:         scriptArgs,
		InputSHA256:  runner.InputDigest(input),
		ScriptResult: result,
		CreatedAt:    time.Now(),
	}

	if cfg.HistoryEnabled && !opts.noSave {
		if err := saveRunRecord(ctx, cfg, record, logger); err != nil {
			logger.Warn("failed to record run", "script", name, "error", err)
		}
	}

	if !opts.quiet {
		if err := writeRunReport(cmd, opts, record); err != nil {
			return err
		}
	}

	if opts.exitStatus && record.ExitCode != 0 {
		code := record.ExitCode
		// Synthetic codes (signal kills report -1) have no shell
		// equivalent; collapse them to a plain failure.
		if code < 0 {
			code = 1
		}
		return &exitCodeError{script: name, code: code}
	}
	return nil
}

// readRunInput resolves the stdin payload for a run: the --input file
// when given, piped stdin when present, and the JSON literal null
// otherwise.
func readRunInput(cmd *cobra.Command, inputPath string) ([]byte, error) {
	if inputPath != "" {
		data, err := os.ReadFile(inputPath) //nolint:gosec // User-provided input path is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		return data, nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		info, err := f.Stat()
		if err != nil || info.Mode()&os.ModeCharDevice != 0 {
			// Interactive terminal; do not block waiting for input.
			return []byte("null"), nil
		}
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []byte("null"), nil
	}
	return data, nil
}

// saveRunRecord opens the history database, inserts the record, and
// fills in its assigned ID.
func saveRunRecord(ctx context.Context, cfg *config.Config, record *model.RunRecord, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	id, err := db.InsertRun(ctx, record)
	if err != nil {
		return err
	}
	record.ID = id

	logger.Debug("run recorded", "script", record.Script, "id", id)
	return nil
}

// writeRunReport writes the record in the requested format to the
// --output file or standard output.
func writeRunReport(cmd *cobra.Command, opts runOptions, record *model.RunRecord) error {
	output, cleanup, err := openReportOutput(cmd, opts.outputPath)
	if err != nil {
		return err
	}
	defer cleanup()

	writer, err := newReportWriter(output, opts.jsonOutput, opts.markdownOutput)
	if err != nil {
		return err
	}
	if _, err := writer.WriteResult(record); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// openReportOutput resolves the report destination. Files are created
// with 0600 permissions because run output carries whatever the script
// printed.
func openReportOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided report path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // Best effort close
}

// newReportWriter picks the report format. JSON and Markdown are
// mutually exclusive; the default is the human-readable writer.
func newReportWriter(output io.Writer, jsonOutput, markdownOutput bool) (report.Writer, error) {
	if jsonOutput && markdownOutput {
		return nil, config.ErrConflictingReportFormats
	}

	switch {
	case jsonOutput:
		return report.NewJSONWriter(output, report.WithPrettyPrint()), nil
	case markdownOutput:
		return report.NewMarkdownWriter(output), nil
	default:
		return report.NewSimpleWriter(output), nil
	}
}
