package config

import (
	"fmt"
	"time"
)

// File represents the structure of the .scriptorium configuration file.
// Every field is optional; absent fields leave the corresponding Config
// value untouched. Durations are written as Go duration strings
// ("30s", "2m") because YAML has no native duration type.
type File struct {
	// ListenAddr is the "host:port" the HTTP service binds to.
	ListenAddr *string `yaml:"listen_addr,omitempty"`

	// ScriptsDir is the directory holding runnable scripts.
	ScriptsDir *string `yaml:"scripts_dir,omitempty"`

	// Interpreter is the command used to execute scripts.
	Interpreter *string `yaml:"interpreter,omitempty"`

	// InterpreterArgs are arguments placed before the script path.
	InterpreterArgs *[]string `yaml:"interpreter_args,omitempty"`

	// ScriptExt is the accepted script file extension.
	ScriptExt *string `yaml:"script_ext,omitempty"`

	// MaxConcurrentRuns bounds simultaneous script executions.
	MaxConcurrentRuns *int `yaml:"max_concurrent_runs,omitempty"`

	// RunTimeout is the per-run wall-clock limit as a duration string.
	RunTimeout *string `yaml:"run_timeout,omitempty"`

	// CacheTTL is the result cache lifetime as a duration string.
	CacheTTL *string `yaml:"cache_ttl,omitempty"`

	// ScanInterval is the rescan period as a duration string.
	ScanInterval *string `yaml:"scan_interval,omitempty"`

	// MaxOutputBytes limits captured stdout/stderr per run.
	MaxOutputBytes *int64 `yaml:"max_output_bytes,omitempty"`

	// MaxClients bounds concurrently served HTTP connections.
	MaxClients *int `yaml:"max_clients,omitempty"`

	// HistoryEnabled controls run history recording.
	HistoryEnabled *bool `yaml:"history_enabled,omitempty"`

	// DBDir is the directory for the run history database.
	DBDir *string `yaml:"db_dir,omitempty"`
}

// ApplyTo copies every value present in the file onto cfg. Fields the
// file does not mention keep whatever cfg already holds, so the merge
// order defaults < file < flags falls out of the call order.
func (f *File) ApplyTo(cfg *Config) error {
	if f.ListenAddr != nil {
		cfg.ListenAddr = *f.ListenAddr
	}
	if f.ScriptsDir != nil {
		cfg.ScriptsDir = *f.ScriptsDir
	}
	if f.Interpreter != nil {
		cfg.Interpreter = *f.Interpreter
	}
	if f.InterpreterArgs != nil {
		cfg.InterpreterArgs = append([]string(nil), (*f.InterpreterArgs)...)
	}
	if f.ScriptExt != nil {
		cfg.ScriptExt = *f.ScriptExt
	}
	if f.MaxConcurrentRuns != nil {
		cfg.MaxConcurrentRuns = *f.MaxConcurrentRuns
	}
	if f.RunTimeout != nil {
		d, err := parseDuration("run_timeout", *f.RunTimeout)
		if err != nil {
			return err
		}
		cfg.RunTimeout = d
	}
	if f.CacheTTL != nil {
		d, err := parseDuration("cache_ttl", *f.CacheTTL)
		if err != nil {
			return err
		}
		cfg.CacheTTL = d
	}
	if f.ScanInterval != nil {
		d, err := parseDuration("scan_interval", *f.ScanInterval)
		if err != nil {
			return err
		}
		cfg.ScanInterval = d
	}
	if f.MaxOutputBytes != nil {
		cfg.MaxOutputBytes = *f.MaxOutputBytes
	}
	if f.MaxClients != nil {
		cfg.MaxClients = *f.MaxClients
	}
	if f.HistoryEnabled != nil {
		cfg.HistoryEnabled = *f.HistoryEnabled
	}
	if f.DBDir != nil {
		cfg.DBDir = *f.DBDir
	}
	return nil
}

// parseDuration parses a duration string from the config file, naming
// the offending field in the error.
func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s in config file: %w", field, err)
	}
	return d, nil
}
