package script

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/scriptorium/internal/model"
)

// Store manages a directory of runnable scripts. It keeps an in-memory
// set of known script names so request handlers never resolve
// user-supplied names against the filesystem directly.
//
// Design decision: Names are checked against the set populated by Scan
// rather than stat'ed ad hoc because:
//  1. Membership lookup cannot be tricked into path traversal
//  2. Listing scripts does not touch the disk on every request
//  3. A background rescan keeps the set fresh when files change
type Store struct {
	// dir is the absolute path of the scripts directory.
	dir string
	// ext is the required file extension, including the leading dot.
	ext string
	// logger records scan activity.
	logger *slog.Logger

	mu    sync.RWMutex
	names map[string]struct{}
}

// NewStore creates a Store rooted at dir, tracking files with the given
// extension. The directory is created if it does not exist. The store
// starts empty; call Scan to populate it.
// If logger is nil, slog.Default() is used.
func NewStore(dir, ext string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("scripts directory is empty")
	}
	if len(ext) < 2 || !strings.HasPrefix(ext, ".") {
		return nil, fmt.Errorf("script extension must start with a dot: %q", ext)
	}
	if logger == nil {
		logger = slog.Default()
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scripts directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create scripts directory: %w", err)
	}

	return &Store{
		dir:    absDir,
		ext:    ext,
		logger: logger,
		names:  make(map[string]struct{}),
	}, nil
}

// Dir returns the absolute path of the scripts directory.
func (s *Store) Dir() string {
	return s.dir
}

// Scan reads the scripts directory and replaces the in-memory name set
// with what is on disk. It returns the sorted script names.
func (s *Store) Scan(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scripts directory: %w", err)
	}

	names := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, s.ext) || len(name) == len(s.ext) {
			continue
		}
		names[name] = struct{}{}
	}

	s.mu.Lock()
	s.names = names
	s.mu.Unlock()

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	s.logger.Debug("scanned scripts directory", "dir", s.dir, "count", len(sorted))
	return sorted, nil
}

// List returns the sorted names of all known scripts.
func (s *Store) List() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.names))
	for name := range s.names {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of known scripts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Path resolves a known script name to its absolute path. Unknown names
// return ErrScriptNotFound; a name never reaches the filesystem unless
// it was seen by Scan or created through the store.
func (s *Store) Path(name string) (string, error) {
	s.mu.RLock()
	_, ok := s.names[name]
	s.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Stat returns metadata for a known script. The modification time feeds
// cache validation.
func (s *Store) Stat(name string) (model.Script, error) {
	path, err := s.Path(name)
	if err != nil {
		return model.Script{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.Script{}, fmt.Errorf("failed to stat script %s: %w", name, err)
	}
	return model.Script{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Create validates the name and writes a new script file. It fails with
// ErrScriptExists when the name is already taken.
func (s *Store) Create(name, code string) error {
	if err := s.validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.names[name]; ok {
		return fmt.Errorf("%w: %s", ErrScriptExists, name)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), []byte(code), 0644); err != nil {
		return fmt.Errorf("failed to write script %s: %w", name, err)
	}
	s.names[name] = struct{}{}
	return nil
}

// Update overwrites the code of an existing script. It fails with
// ErrScriptNotFound when the name is unknown.
func (s *Store) Update(name, code string) error {
	if err := s.validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.names[name]; !ok {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), []byte(code), 0644); err != nil {
		return fmt.Errorf("failed to write script %s: %w", name, err)
	}
	return nil
}

// Delete removes a script file and forgets its name.
func (s *Store) Delete(name string) error {
	if err := s.validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.names[name]; !ok {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to remove script %s: %w", name, err)
	}
	delete(s.names, name)
	return nil
}

// Watch rescans the directory at the given interval until ctx is
// canceled. After each successful rescan it invokes fn with the sorted
// names, when fn is non-nil. Scan failures are logged and the loop
// continues.
func (s *Store) Watch(ctx context.Context, interval time.Duration, fn func(names []string)) error {
	if interval <= 0 {
		return fmt.Errorf("scan interval must be positive: %v", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			names, err := s.Scan(ctx)
			if err != nil {
				s.logger.Warn("background script scan failed", "error", err)
				continue
			}
			if fn != nil {
				fn(names)
			}
		}
	}
}

// validateName enforces the naming rules for user-supplied script
// names: no path separators, the configured extension, and a non-empty
// stem.
func (s *Store) validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	if !strings.HasSuffix(name, s.ext) {
		return fmt.Errorf("%w: %q must end with %s", ErrInvalidName, name, s.ext)
	}
	if len(name) == len(s.ext) {
		return fmt.Errorf("%w: %q is missing a file name", ErrInvalidName, name)
	}
	return nil
}
