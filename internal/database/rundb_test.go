package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/scriptorium/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*RunDB, func()) {
	t.Helper()

	tmpDir := t.TempDir()

	db, err := Open(tmpDir, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return db, cleanup
}

// testRecord builds a run record with recognizable values.
func testRecord(script string) *model.RunRecord {
	return &model.RunRecord{
		Script:      script,
		Args:        []string{"--fast", "-n", "3"},
		InputSHA256: "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		ScriptResult: model.ScriptResult{
			Stdout:     "42\n",
			Stderr:     "",
			ExitCode:   0,
			DurationMS: 37,
		},
	}
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		dbPath := filepath.Join(dbDir, "scriptorium.db")
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("expected Path() = %q, got %q", dbPath, db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")

		opts := Options{
			CreateIfNotExists: false,
			EnableWAL:         true,
		}

		_, err := Open(dbDir, opts)
		if err == nil {
			t.Fatal("expected error when CreateIfNotExists=false and database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected informative error, got %q", err.Error())
		}

		// Verify database directory was NOT created
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created when CreateIfNotExists=false")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		ctx := context.Background()

		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}

		id, err := db1.InsertRun(ctx, testRecord("persist.py"))
		if err != nil {
			t.Fatalf("failed to insert record: %v", err)
		}
		db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database with CreateIfNotExists=false: %v", err)
		}
		defer db2.Close()

		retrieved, err := db2.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		if retrieved == nil {
			t.Error("expected record to persist across reopen")
		}
	})

	t.Run("CreateIfNotExists=false with directory but no db file", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "empty-dir")
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}

		opts := Options{
			CreateIfNotExists: false,
			EnableWAL:         true,
		}

		if _, err := Open(dbDir, opts); err == nil {
			t.Fatal("expected error when directory exists but database file does not")
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()

	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

// TestInsertAndGetRun tests run record round trips.
func TestInsertAndGetRun(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("insert and retrieve record", func(t *testing.T) {
		record := testRecord("roundtrip.py")
		record.Stderr = "warning: deprecated\n"
		record.TimedOut = true
		record.Cached = true

		id, err := db.InsertRun(ctx, record)
		if err != nil {
			t.Fatalf("failed to insert record: %v", err)
		}
		if id == 0 {
			t.Error("expected non-zero ID")
		}

		retrieved, err := db.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		if retrieved == nil {
			t.Fatal("expected record, got nil")
		}

		if retrieved.ID != id {
			t.Errorf("expected ID %d, got %d", id, retrieved.ID)
		}
		if retrieved.Script != "roundtrip.py" {
			t.Errorf("expected script roundtrip.py, got %q", retrieved.Script)
		}
		if len(retrieved.Args) != 3 || retrieved.Args[0] != "--fast" {
			t.Errorf("args mismatch: %v", retrieved.Args)
		}
		if retrieved.InputSHA256 != record.InputSHA256 {
			t.Errorf("input digest mismatch: %q", retrieved.InputSHA256)
		}
		if retrieved.Stdout != "42\n" {
			t.Errorf("expected stdout %q, got %q", "42\n", retrieved.Stdout)
		}
		if retrieved.Stderr != "warning: deprecated\n" {
			t.Errorf("stderr mismatch: %q", retrieved.Stderr)
		}
		if !retrieved.TimedOut {
			t.Error("expected TimedOut to round trip as true")
		}
		if !retrieved.Cached {
			t.Error("expected Cached to round trip as true")
		}
		if retrieved.DurationMS != 37 {
			t.Errorf("expected duration 37ms, got %d", retrieved.DurationMS)
		}
		if retrieved.CreatedAt.IsZero() {
			t.Error("expected a populated creation timestamp")
		}
	})

	t.Run("record without args round trips", func(t *testing.T) {
		record := testRecord("noargs.py")
		record.Args = nil

		id, err := db.InsertRun(ctx, record)
		if err != nil {
			t.Fatalf("failed to insert record: %v", err)
		}

		retrieved, err := db.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		if len(retrieved.Args) != 0 {
			t.Errorf("expected no args, got %v", retrieved.Args)
		}
	})

	t.Run("returns nil for non-existent record", func(t *testing.T) {
		retrieved, err := db.GetRun(ctx, 99999)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if retrieved != nil {
			t.Error("expected nil for non-existent record")
		}
	})
}

// TestListRuns tests history queries.
func TestListRuns(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	// Three runs of alpha.py and one of beta.py.
	var ids []int64
	for _, script := range []string{"alpha.py", "alpha.py", "beta.py", "alpha.py"} {
		id, err := db.InsertRun(ctx, testRecord(script))
		if err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
		ids = append(ids, id)
	}

	t.Run("lists all runs newest first", func(t *testing.T) {
		records, err := db.ListRuns(ctx, "", 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(records) != 4 {
			t.Fatalf("expected 4 records, got %d", len(records))
		}
		if records[0].ID != ids[3] {
			t.Errorf("expected newest record first, got ID %d", records[0].ID)
		}
		if records[3].ID != ids[0] {
			t.Errorf("expected oldest record last, got ID %d", records[3].ID)
		}
	})

	t.Run("filters by script", func(t *testing.T) {
		records, err := db.ListRuns(ctx, "alpha.py", 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		for _, record := range records {
			if record.Script != "alpha.py" {
				t.Errorf("expected alpha.py, got %q", record.Script)
			}
		}
	})

	t.Run("honors the limit", func(t *testing.T) {
		records, err := db.ListRuns(ctx, "", 2)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].ID != ids[3] {
			t.Errorf("expected newest record first, got ID %d", records[0].ID)
		}
	})

	t.Run("unknown script yields empty list", func(t *testing.T) {
		records, err := db.ListRuns(ctx, "ghost.py", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected empty list, got %d records", len(records))
		}
	})
}

// TestListScripts tests the per-script summary.
func TestListScripts(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	for _, script := range []string{"a.py", "a.py", "b.py"} {
		if _, err := db.InsertRun(ctx, testRecord(script)); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
	}

	summaries, err := db.ListScripts(ctx)
	if err != nil {
		t.Fatalf("failed to list scripts: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 scripts, got %d", len(summaries))
	}

	counts := make(map[string]int64, len(summaries))
	for _, s := range summaries {
		counts[s.Script] = s.Count
		if s.LastRunAt.IsZero() {
			t.Errorf("expected last run time for %s", s.Script)
		}
	}
	if counts["a.py"] != 2 {
		t.Errorf("expected 2 runs of a.py, got %d", counts["a.py"])
	}
	if counts["b.py"] != 1 {
		t.Errorf("expected 1 run of b.py, got %d", counts["b.py"])
	}
}

// TestCountRuns tests the total counter.
func TestCountRuns(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	count, err := db.CountRuns(ctx)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 runs in a fresh database, got %d", count)
	}

	for range 3 {
		if _, err := db.InsertRun(ctx, testRecord("counted.py")); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
	}

	count, err = db.CountRuns(ctx)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 runs, got %d", count)
	}
}
