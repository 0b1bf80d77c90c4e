package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values mirror the behavior of the original service where
// applicable and are chosen to be safe on a typical development host.
const (
	// DefaultListenAddr is the address the HTTP service binds to.
	// Port 3000 matches the original service default.
	DefaultListenAddr = ":3000"

	// DefaultScriptsDir is the directory scanned for runnable scripts.
	// A relative path keeps the default usable in a fresh checkout;
	// deployments should point this at an absolute path.
	DefaultScriptsDir = "./scripts"

	// DefaultInterpreter is the command used to execute scripts.
	// The bare name is resolved via PATH at startup so the same config
	// works across hosts with different installation prefixes.
	DefaultInterpreter = "python3"

	// DefaultScriptExt is the file extension the script scanner accepts.
	// Files with other extensions in the scripts directory are ignored.
	DefaultScriptExt = ".py"

	// DefaultMaxConcurrentRuns bounds simultaneous script executions.
	// 4 keeps a small host responsive while still allowing fan-out runs
	// to make progress. Higher values trade memory and CPU for speed.
	DefaultMaxConcurrentRuns = 4

	// DefaultRunTimeout is the wall-clock limit for one script execution.
	// 30 seconds is generous for report-style scripts while preventing
	// a hung interpreter from pinning a semaphore slot forever.
	DefaultRunTimeout = 30 * time.Second

	// DefaultCacheTTL is how long a cached run result stays valid.
	// Results are additionally invalidated when the script file changes,
	// so the TTL only bounds staleness of the input-keyed cache.
	DefaultCacheTTL = 30 * time.Second

	// DefaultScanInterval is the period of the background rescan of the
	// scripts directory. 5 seconds keeps the visible script list fresh
	// without meaningful filesystem load.
	DefaultScanInterval = 5 * time.Second

	// DefaultMaxOutputBytes limits how much stdout/stderr is captured
	// per run. 10MB is far beyond report-style output while preventing
	// memory exhaustion from a runaway script.
	DefaultMaxOutputBytes = 10 * 1024 * 1024 // 10MB

	// DefaultMaxClients bounds concurrently served HTTP connections.
	// The listener refuses connections beyond this, protecting the run
	// semaphore queue from unbounded growth under load.
	DefaultMaxClients = 64

	// AppName is the application name used for XDG directory paths.
	AppName = "scriptorium"
)

// DefaultInterpreterArgs returns the default arguments placed before
// the script path on the interpreter command line. "-u" forces
// unbuffered stdio so output is captured even when a run times out.
func DefaultInterpreterArgs() []string {
	return []string{"-u"}
}

// Config holds all configuration options for scriptorium.
// This struct is populated from defaults, an optional config file, and
// CLI flags, then passed through the application via dependency
// injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., ServerConfig, RunnerConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// ListenAddr is the "host:port" the HTTP service binds to.
	ListenAddr string

	// ScriptsDir is the directory holding runnable scripts. The
	// directory is the source of truth: scripts appear and disappear
	// from the API as files are added and removed.
	ScriptsDir string

	// Interpreter is the command used to execute scripts ("python3").
	// It is resolved via PATH at service startup and the service fails
	// fast when it cannot be found.
	Interpreter string

	// InterpreterArgs are arguments placed before the script path on
	// the interpreter command line.
	InterpreterArgs []string

	// ScriptExt is the file extension accepted by the script scanner,
	// including the leading dot.
	ScriptExt string

	// MaxConcurrentRuns bounds simultaneous script executions across
	// all requests. Additional runs wait on a semaphore.
	MaxConcurrentRuns int

	// RunTimeout is the wall-clock limit for one script execution.
	// Runs exceeding it are killed and reported as timed out.
	RunTimeout time.Duration

	// CacheTTL is how long cached run results stay valid. Zero or
	// negative disables the result cache.
	CacheTTL time.Duration

	// ScanInterval is the period of the background scripts rescan.
	ScanInterval time.Duration

	// MaxOutputBytes limits captured stdout/stderr per run.
	MaxOutputBytes int64

	// MaxClients bounds concurrently served HTTP connections.
	MaxClients int

	// HistoryEnabled controls whether finished runs are recorded in
	// the run history database.
	HistoryEnabled bool

	// DBDir is the directory for the run history database. Defaults to
	// the XDG data directory.
	DBDir string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty,
	// the tool searches for .scriptorium in the current directory and
	// then in the user's home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values via the config file or CLI flags.
//
// Design decision: We use a constructor function instead of relying on
// zero values because most defaults are non-zero (timeouts, ports,
// concurrency limits). This also serves as documentation of the defaults.
func NewConfig() *Config {
	return &Config{
		ListenAddr:        DefaultListenAddr,
		ScriptsDir:        DefaultScriptsDir,
		Interpreter:       DefaultInterpreter,
		InterpreterArgs:   DefaultInterpreterArgs(),
		ScriptExt:         DefaultScriptExt,
		MaxConcurrentRuns: DefaultMaxConcurrentRuns,
		RunTimeout:        DefaultRunTimeout,
		CacheTTL:          DefaultCacheTTL,
		ScanInterval:      DefaultScanInterval,
		MaxOutputBytes:    DefaultMaxOutputBytes,
		MaxClients:        DefaultMaxClients,
		HistoryEnabled:    true,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for scriptorium.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/scriptorium
// On macOS: ~/Library/Application Support/scriptorium
// On Windows: %LOCALAPPDATA%\scriptorium
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for scriptorium.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/scriptorium
// On macOS: ~/Library/Application Support/scriptorium
// On Windows: %APPDATA%\scriptorium
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for scriptorium.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.cache/scriptorium
// On macOS: ~/Library/Caches/scriptorium
// On Windows: %LOCALAPPDATA%\scriptorium\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after flag parsing, before anything starts.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return ErrEmptyListenAddr
	}

	if c.ScriptsDir == "" {
		return ErrEmptyScriptsDir
	}

	if c.Interpreter == "" {
		return ErrEmptyInterpreter
	}

	// The scanner matches on the extension; without the leading dot it
	// would silently match nothing.
	if !strings.HasPrefix(c.ScriptExt, ".") || len(c.ScriptExt) < 2 {
		return ErrInvalidScriptExt
	}

	if c.MaxConcurrentRuns <= 0 {
		return ErrInvalidMaxConcurrentRuns
	}

	if c.RunTimeout <= 0 {
		return ErrInvalidRunTimeout
	}

	if c.ScanInterval <= 0 {
		return ErrInvalidScanInterval
	}

	if c.MaxOutputBytes <= 0 {
		return ErrInvalidMaxOutputBytes
	}

	if c.MaxClients <= 0 {
		return ErrInvalidMaxClients
	}

	return nil
}
