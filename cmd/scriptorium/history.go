package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/scriptorium/internal/config"
	"github.com/nao1215/scriptorium/internal/database"
	"github.com/nao1215/scriptorium/internal/model"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is how many runs the history command shows when
// no --limit is given.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// This command lists run records stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [script-name]",
		Short: "Show recorded script runs",
		Long: `History lists runs recorded by the serve and run commands, newest
first. With a script name it shows only that script's runs.

Records carry the captured stdout and stderr, the exit code, timing,
the arguments, and a digest of the stdin payload, so past runs can be
inspected long after the output scrolled away.

Examples:
  # Show the latest runs across all scripts
  scriptorium history

  # Show the latest runs of one script
  scriptorium history export.py

  # Show only failed and timed-out runs
  scriptorium history --failed-only

  # Summarize which scripts have recorded runs
  scriptorium history --list-scripts

  # Full records as JSON
  scriptorium history --json -n 100`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Listing flags
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to show (0 shows all)")
	cmd.Flags().Bool("failed-only", false,
		"Show only runs that failed or timed out")
	cmd.Flags().BoolP("list-scripts", "L", false,
		"List scripts with recorded runs instead of individual runs")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output records in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output records in Markdown format")

	// Database location
	cmd.Flags().String("db-dir", "",
		"Directory for the run history database (default: XDG data directory)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .scriptorium in current or home directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	if err := applyConfigFile(cmd, cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("db-dir") {
		var err error
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return err
		}
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	failedOnly, err := cmd.Flags().GetBool("failed-only")
	if err != nil {
		return err
	}
	listScripts, err := cmd.Flags().GetBool("list-scripts")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	var scriptName string
	if len(args) > 0 {
		scriptName = args[0]
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if listScripts {
		return listScriptSummaries(ctx, db, cmd.OutOrStdout())
	}

	records, err := db.ListRuns(ctx, scriptName, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if failedOnly {
		records = filterFailedRuns(records)
	}

	writer, err := newReportWriter(cmd.OutOrStdout(), jsonOutput, markdownOutput)
	if err != nil {
		return err
	}
	if _, err := writer.WriteHistory(records); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// listScriptSummaries prints every script with recorded runs, most
// recently run first.
func listScriptSummaries(ctx context.Context, db *database.RunDB, w io.Writer) error {
	scripts, err := db.ListScripts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scripts: %w", err)
	}

	if len(scripts) == 0 {
		fmt.Fprintln(w, "No runs recorded in the database.")
		fmt.Fprintln(w, "\nUse 'scriptorium run <script>' or the HTTP API to execute scripts.")
		return nil
	}

	fmt.Fprintf(w, "Scripts with recorded runs (%d):\n\n", len(scripts))
	fmt.Fprintf(w, "  %-32s  %6s  %s\n", "SCRIPT", "RUNS", "LAST RUN")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 62))

	for _, s := range scripts {
		fmt.Fprintf(w, "  %-32s  %6d  %s\n",
			s.Script,
			s.Count,
			s.LastRunAt.Format("2006-01-02 15:04:05"),
		)
	}

	fmt.Fprintln(w, "\nUse 'scriptorium history <script>' to see the runs of one script.")
	return nil
}

// filterFailedRuns keeps only records whose run did not succeed.
func filterFailedRuns(records []*model.RunRecord) []*model.RunRecord {
	filtered := make([]*model.RunRecord, 0, len(records))
	for _, record := range records {
		if !record.Succeeded() {
			filtered = append(filtered, record)
		}
	}
	return filtered
}
