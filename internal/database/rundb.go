package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/scriptorium/internal/model"
)

// dbFileName is the SQLite file created under the data directory.
const dbFileName = "scriptorium.db"

// RunDB provides SQLite-based storage for run history.
//
// Design decision: We keep the full captured stdout and stderr in the
// record rather than only a digest because:
//  1. The history command replays past output without re-running anything
//  2. Output is already bounded by the runner's capture limit
//  3. A single file stays trivial to back up or delete
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB under the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; multiple connections buy nothing
	// here and invite SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// Path returns the location of the SQLite file.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- Run records store one row per script execution
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		script TEXT NOT NULL,
		args TEXT,
		input_sha256 TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		stdout TEXT NOT NULL,
		stderr TEXT NOT NULL,
		timed_out INTEGER NOT NULL DEFAULT 0,
		cached INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_script ON runs(script);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// InsertRun stores a finished run and returns its database ID.
func (rdb *RunDB) InsertRun(ctx context.Context, record *model.RunRecord) (int64, error) {
	argsJSON, err := json.Marshal(record.Args)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize args: %w", err)
	}

	query := `
	INSERT INTO runs (script, args, input_sha256, exit_code, stdout, stderr, timed_out, cached, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := rdb.db.ExecContext(ctx, query,
		record.Script,
		string(argsJSON),
		record.InputSHA256,
		record.ExitCode,
		record.Stdout,
		record.Stderr,
		record.TimedOut,
		record.Cached,
		record.DurationMS,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run record: %w", err)
	}

	return result.LastInsertId()
}

// GetRun retrieves a run record by ID. It returns (nil, nil) when no
// record exists.
func (rdb *RunDB) GetRun(ctx context.Context, id int64) (*model.RunRecord, error) {
	query := `
	SELECT id, script, args, input_sha256, exit_code, stdout, stderr, timed_out, cached, duration_ms, created_at
	FROM runs
	WHERE id = ?
	`

	record, err := scanRunRecord(rdb.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run record: %w", err)
	}
	return record, nil
}

// ListRuns retrieves run records newest first. An empty script matches
// all scripts; a non-positive limit means no limit.
func (rdb *RunDB) ListRuns(ctx context.Context, script string, limit int) ([]*model.RunRecord, error) {
	query := `
	SELECT id, script, args, input_sha256, exit_code, stdout, stderr, timed_out, cached, duration_ms, created_at
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if script != "" {
		query += " AND script = ?"
		args = append(args, script)
	}

	query += " ORDER BY created_at DESC, id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list run records: %w", err)
	}
	defer rows.Close()

	var records []*model.RunRecord
	for rows.Next() {
		record, err := scanRunRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// ScriptRunCount summarizes the stored history of one script.
type ScriptRunCount struct {
	// Script is the script name.
	Script string `json:"script"`

	// Count is how many runs are stored for the script.
	Count int64 `json:"count"`

	// LastRunAt is when the script last ran.
	LastRunAt time.Time `json:"last_run_at"`
}

// ListScripts returns the distinct script names with their run counts,
// most recently run first.
func (rdb *RunDB) ListScripts(ctx context.Context) ([]ScriptRunCount, error) {
	query := `
	SELECT script, COUNT(*), MAX(created_at)
	FROM runs
	GROUP BY script
	ORDER BY MAX(created_at) DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	defer rows.Close()

	var results []ScriptRunCount
	for rows.Next() {
		var src ScriptRunCount
		var lastRun string

		if err := rows.Scan(&src.Script, &src.Count, &lastRun); err != nil {
			return nil, fmt.Errorf("failed to scan script summary: %w", err)
		}
		src.LastRunAt = parseTimestamp(lastRun)
		results = append(results, src)
	}

	return results, rows.Err()
}

// CountRuns returns the total number of stored run records.
func (rdb *RunDB) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	if err := rdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRunRecord reads one runs row. Booleans are stored as 0/1 integers
// and converted here; database/sql does not convert them itself.
func scanRunRecord(row rowScanner) (*model.RunRecord, error) {
	var record model.RunRecord
	var argsJSON sql.NullString
	var timedOut, cached int
	var createdAt string

	err := row.Scan(
		&record.ID,
		&record.Script,
		&argsJSON,
		&record.InputSHA256,
		&record.ExitCode,
		&record.Stdout,
		&record.Stderr,
		&timedOut,
		&cached,
		&record.DurationMS,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	record.TimedOut = timedOut == 1
	record.Cached = cached == 1
	record.CreatedAt = parseTimestamp(createdAt)

	if argsJSON.Valid && argsJSON.String != "" {
		if err := json.Unmarshal([]byte(argsJSON.String), &record.Args); err != nil {
			return nil, fmt.Errorf("failed to parse args: %w", err)
		}
	}

	return &record, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending
// on configuration. If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
