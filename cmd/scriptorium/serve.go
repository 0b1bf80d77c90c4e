package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/scriptorium/internal/cache"
	"github.com/nao1215/scriptorium/internal/config"
	"github.com/nao1215/scriptorium/internal/database"
	"github.com/nao1215/scriptorium/internal/hub"
	"github.com/nao1215/scriptorium/internal/log"
	"github.com/nao1215/scriptorium/internal/runner"
	"github.com/nao1215/scriptorium/internal/script"
	"github.com/nao1215/scriptorium/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scriptorium HTTP service",
		Long: `Serve starts the HTTP service over a directory of scripts.

The service exposes a JSON API for listing, creating, updating, and
deleting scripts, running one script or all of them, reading the run
history, and subscribing to events (script changes, finished runs) over
Server-Sent Events.

Scripts execute through the configured interpreter with the request's
JSON document piped to stdin. Results are cached per input for the
cache TTL and recorded in a local SQLite database unless history is
disabled.

Examples:
  # Serve ./scripts on the default port
  scriptorium serve

  # Serve shell scripts from a custom directory
  scriptorium serve -d /opt/jobs --interpreter bash --ext .sh

  # Custom port with a tighter run timeout
  scriptorium serve -a :8080 -t 10s

  # Use a custom configuration file
  scriptorium serve -c myconfig.yaml

Configuration file (.scriptorium) example:
  scripts_dir: "./scripts"
  interpreter: "python3"
  run_timeout: "30s"
  max_concurrent_runs: 4`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	// Listener flags
	cmd.Flags().StringP("addr", "a", config.DefaultListenAddr,
		"Address the HTTP service binds to (host:port)")
	cmd.Flags().Int("max-clients", config.DefaultMaxClients,
		"Maximum number of concurrently served HTTP connections")

	// Script execution flags
	cmd.Flags().StringP("scripts-dir", "d", config.DefaultScriptsDir,
		"Directory scanned for runnable scripts")
	cmd.Flags().String("interpreter", config.DefaultInterpreter,
		"Interpreter command used to execute scripts")
	cmd.Flags().StringSlice("interpreter-args", config.DefaultInterpreterArgs(),
		"Arguments placed before the script path on the interpreter command line")
	cmd.Flags().String("ext", config.DefaultScriptExt,
		"Script file extension accepted by the scanner, including the dot")
	cmd.Flags().Int("max-concurrent", config.DefaultMaxConcurrentRuns,
		"Maximum number of scripts executing at the same time")
	cmd.Flags().DurationP("run-timeout", "t", config.DefaultRunTimeout,
		"Wall-clock limit for one script execution")
	cmd.Flags().Int64("max-output-bytes", config.DefaultMaxOutputBytes,
		"Maximum captured bytes per output stream")

	// Cache and rescan flags
	cmd.Flags().Duration("cache-ttl", config.DefaultCacheTTL,
		"How long cached run results stay valid (0 disables the cache)")
	cmd.Flags().Duration("scan-interval", config.DefaultScanInterval,
		"Period of the background scripts directory rescan")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Disable recording finished runs to the history database")
	cmd.Flags().String("db-dir", "",
		"Directory for the run history database (default: XDG data directory)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .scriptorium in current or home directory)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	cfg.Verbose = getVerboseFlag(cmd)
	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, shutting down...")
		cancel()
	}()

	return runServe(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates a structured logger based on verbosity setting.
// The handler sanitizes secret-looking attributes before writing.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewLogger(os.Stderr, verbose)
}

// applyConfigFile merges the configuration file into cfg. A file named
// with --config must exist; the default search locations may be empty.
func applyConfigFile(cmd *cobra.Command, cfg *config.Config) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg.ConfigFilePath = path

	configPath := config.FindConfigFile(path)
	if configPath == "" {
		if path != "" {
			return fmt.Errorf("configuration file not found: %s", path)
		}
		return nil
	}

	cf, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	if err := cf.ApplyTo(cfg); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return nil
}

// buildServeConfig creates a Config from defaults, the configuration
// file, and cobra command flags, in that order. Flags are applied only
// when set on the command line; reading every flag unconditionally
// would reset file values back to the flag defaults.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	if err := applyConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	var err error

	if cmd.Flags().Changed("addr") {
		if cfg.ListenAddr, err = cmd.Flags().GetString("addr"); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("max-clients") {
		if cfg.MaxClients, err = cmd.Flags().GetInt("max-clients"); err != nil {
			return nil, err
		}
	}

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

	if cmd.Flags().Changed("max-concurrent") {
		if cfg.MaxConcurrentRuns, err = cmd.Flags().GetInt("max-concurrent"); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("run-timeout") {
		if cfg.RunTimeout, err = cmd.Flags().GetDuration("run-timeout"); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("max-output-bytes") {
		if cfg.MaxOutputBytes, err = cmd.Flags().GetInt64("max-output-bytes"); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("cache-ttl") {
		if cfg.CacheTTL, err = cmd.Flags().GetDuration("cache-ttl"); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("scan-interval") {
		if cfg.ScanInterval, err = cmd.Flags().GetDuration("scan-interval"); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("no-history") {
		noHistory, err := cmd.Flags().GetBool("no-history")
		if err != nil {
			return nil, err
		}
		cfg.HistoryEnabled = !noHistory
	}

	if cmd.Flags().Changed("db-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// runServe wires the store, engine, database, hub, and HTTP server
// together and runs them until ctx is canceled.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := script.NewStore(cfg.ScriptsDir, cfg.ScriptExt, logger)
	if err != nil {
		return fmt.Errorf("failed to open scripts directory: %w", err)
	}

	names, err := store.Scan(ctx)
	if err != nil {
		return fmt.Errorf("initial script scan failed: %w", err)
	}

	resultCache := cache.New(cfg.CacheTTL)
	engine := runner.NewEngine(store,
		runner.WithInterpreter(cfg.Interpreter, cfg.InterpreterArgs...),
		runner.WithTimeout(cfg.RunTimeout),
		runner.WithMaxConcurrent(cfg.MaxConcurrentRuns),
		runner.WithMaxOutputBytes(cfg.MaxOutputBytes),
		runner.WithCache(resultCache),
		runner.WithLogger(logger),
	)

	// A missing interpreter should fail startup, not every later run.
	if err := engine.VerifyInterpreter(); err != nil {
		return err
	}

	var db *database.RunDB
	if cfg.HistoryEnabled {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("run history enabled", "path", db.Path())
	} else {
		logger.Info("run history disabled")
	}

	eventHub := hub.New(hub.WithLogger(logger))
	srv := server.New(cfg, store, engine, db, eventHub, logger)

	logger.Info("starting service",
		"addr", cfg.ListenAddr,
		"scriptsDir", store.Dir(),
		"scripts", len(names),
		"interpreter", cfg.Interpreter,
	)

	fmt.Printf("Scriptorium listening on %s\n", cfg.ListenAddr)
	fmt.Printf("Serving %d scripts from %s (%s via %s)\n\n",
		len(names), store.Dir(), cfg.ScriptExt, cfg.Interpreter)
	fmt.Println("Press Ctrl+C to stop.")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		eventHub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		return store.Watch(ctx, cfg.ScanInterval, func(names []string) {
			eventHub.Broadcast(hub.Event{
				Type:  hub.EventScriptsScanned,
				Count: len(names),
			})
			if expired := resultCache.Sweep(); expired > 0 {
				logger.Debug("swept result cache", "expired", expired)
			}
		})
	})

	g.Go(func() error {
		return srv.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("service stopped")
	return nil
}
