package runner

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/nao1215/scriptorium/internal/cache"
	"github.com/nao1215/scriptorium/internal/model"
	"github.com/nao1215/scriptorium/internal/script"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// waitDelay is how long a finished run may spend flushing its pipes
// after the context ends before the copier is forcibly unstuck. Orphaned
// grandchildren can hold the pipes open past the kill.
const waitDelay = 2 * time.Second

// Engine executes scripts with a shared concurrency budget.
//
// Design decision: The semaphore lives on the Engine rather than in the
// HTTP layer because:
//  1. The budget must hold across all callers, CLI one-shots included
//  2. Fan-out runs spawn one goroutine per script, but only this many
//     child processes may exist at once
//  3. Acquisition is context-aware, so canceled requests stop waiting
type Engine struct {
	// store resolves script names to paths.
	store *script.Store
	// cache holds recent results. Disabled caches store nothing.
	cache *cache.Cache
	// sem bounds concurrent child processes.
	sem *semaphore.Weighted
	// logger records run activity.
	logger *slog.Logger

	// interpreter is the executable that runs scripts.
	interpreter string
	// interpreterArgs are passed before the script path.
	interpreterArgs []string
	// timeout is the per-run wall clock limit.
	timeout time.Duration
	// maxOutputBytes bounds each captured stream.
	maxOutputBytes int64
	// maxConcurrent is the semaphore weight.
	maxConcurrent int
}

// Option configures an Engine.
type Option func(*Engine)

// WithInterpreter sets the interpreter executable and the arguments
// passed before the script path.
func WithInterpreter(name string, args ...string) Option {
	return func(e *Engine) {
		e.interpreter = name
		e.interpreterArgs = args
	}
}

// WithTimeout sets the per-run wall clock limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxConcurrent sets how many child processes may run at once.
// Default is 4 if not specified.
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrent = n
		}
	}
}

// WithMaxOutputBytes sets the capture bound for each of stdout and stderr.
func WithMaxOutputBytes(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxOutputBytes = n
		}
	}
}

// WithCache attaches a result cache.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithLogger sets a custom logger for run activity.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine over the given store. Without options it
// runs `python3 -u`, allows 4 concurrent runs of 30 seconds each,
// captures 10 MiB per stream, and caches nothing.
func NewEngine(store *script.Store, opts ...Option) *Engine {
	e := &Engine{
		store:           store,
		cache:           cache.New(0),
		interpreter:     "python3",
		interpreterArgs: []string{"-u"},
		timeout:         30 * time.Second,
		maxOutputBytes:  10 << 20,
		maxConcurrent:   4,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.sem = semaphore.NewWeighted(int64(e.maxConcurrent))

	return e
}

// VerifyInterpreter checks that the configured interpreter is on PATH.
// The serve command calls it once at startup so a missing interpreter
// fails fast instead of failing every run.
func (e *Engine) VerifyInterpreter() error {
	if _, err := exec.LookPath(e.interpreter); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInterpreterNotFound, e.interpreter, err)
	}
	return nil
}

// InputDigest returns the hex sha256 of the input bytes. History
// records store it instead of the input itself.
func InputDigest(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

// Run executes one script with the given arguments, writing input to
// its stdin. It returns the captured result or an error for timeouts,
// oversized output, non-UTF-8 output, or an unknown script name.
// A non-zero exit code is not an error; it is part of the result.
func (e *Engine) Run(ctx context.Context, name string, args []string, input []byte) (model.ScriptResult, error) {
	path, err := e.store.Path(name)
	if err != nil {
		return model.ScriptResult{}, err
	}
	info, err := e.store.Stat(name)
	if err != nil {
		return model.ScriptResult{}, err
	}

	key := cache.Key(name, args, input)
	if cached, ok := e.cache.Get(key, info.ModTime); ok {
		cached.Cached = true
		e.logger.Debug("served run from cache", "script", name)
		return cached, nil
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return model.ScriptResult{}, fmt.Errorf("failed to acquire run slot: %w", err)
	}
	defer e.sem.Release(1)

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	argv := make([]string, 0, len(e.interpreterArgs)+1+len(args))
	argv = append(argv, e.interpreterArgs...)
	argv = append(argv, path)
	argv = append(argv, args...)

	stdout := &boundedBuffer{limit: e.maxOutputBytes}
	stderr := &boundedBuffer{limit: e.maxOutputBytes}

	cmd := exec.CommandContext(runCtx, e.interpreter, argv...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	e.logger.Debug("running script",
		"script", name,
		"args", args,
		"input_sha256", InputDigest(input),
	)

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return model.ScriptResult{}, fmt.Errorf("%w: %s after %s", ErrRunTimeout, name, e.timeout)
	case ctx.Err() != nil:
		return model.ScriptResult{}, fmt.Errorf("run canceled: %w", ctx.Err())
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return model.ScriptResult{}, fmt.Errorf("failed to run script %s: %w", name, runErr)
		}
		// -1 when the process was killed by a signal.
		exitCode = exitErr.ExitCode()
	}

	if stdout.overflowed || stderr.overflowed {
		return model.ScriptResult{}, fmt.Errorf("%w: %s wrote more than %d bytes", ErrOutputTooLarge, name, e.maxOutputBytes)
	}
	if !utf8.Valid(stdout.buf.Bytes()) || !utf8.Valid(stderr.buf.Bytes()) {
		return model.ScriptResult{}, fmt.Errorf("%w: %s", ErrOutputNotUTF8, name)
	}

	result := model.ScriptResult{
		Stdout:     stdout.buf.String(),
		Stderr:     stderr.buf.String(),
		ExitCode:   exitCode,
		DurationMS: duration.Milliseconds(),
	}

	e.cache.Put(key, info.ModTime, result)

	e.logger.Debug("script finished",
		"script", name,
		"exit_code", exitCode,
		"duration_ms", result.DurationMS,
	)
	return result, nil
}

// RunAll executes the named scripts concurrently against the same
// arguments and input. Each script gets its own goroutine; the
// semaphore bounds actual child processes.
//
// Per-script failures never abort the batch. They fold into the result
// map as a ScriptResult with an "Error: ..." stderr and exit code -1,
// so one broken script cannot hide the results of the others.
func (e *Engine) RunAll(ctx context.Context, names []string, args []string, input []byte) map[string]model.ScriptResult {
	e.logger.Info("starting fan-out run",
		"total_scripts", len(names),
		"max_concurrent", e.maxConcurrent,
	)

	results := make(map[string]model.ScriptResult, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			result, err := e.Run(gctx, name, args, input)
			if err != nil {
				e.logger.Warn("script run failed",
					"script", name,
					"error", err,
				)
				result = foldRunError(err)
			}

			mu.Lock()
			results[name] = result
			mu.Unlock()

			// Failures are folded into the result map so the other
			// scripts keep running.
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines always return nil

	e.logger.Info("fan-out run complete", "total_scripts", len(names))
	return results
}

// foldRunError converts a run failure into the result shape the fan-out
// endpoint returns.
func foldRunError(err error) model.ScriptResult {
	return model.ScriptResult{
		Stderr:   "Error: " + err.Error(),
		ExitCode: -1,
		TimedOut: errors.Is(err, ErrRunTimeout),
	}
}

// boundedBuffer stores up to limit bytes and keeps draining afterward,
// so a chatty child process never blocks on a full pipe. Overflow is
// checked after the process exits.
type boundedBuffer struct {
	limit      int64
	buf        bytes.Buffer
	overflowed bool
}

// Write implements io.Writer.
func (b *boundedBuffer) Write(p []byte) (int, error) {
	remain := b.limit - int64(b.buf.Len())
	switch {
	case remain <= 0:
		b.overflowed = true
	case int64(len(p)) > remain:
		b.overflowed = true
		b.buf.Write(p[:remain])
	default:
		b.buf.Write(p)
	}
	return len(p), nil
}
