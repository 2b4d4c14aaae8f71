package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/oabscraper/internal/model"
)

// FileName is the name of the ledger file inside the database directory.
const FileName = "oabscraper.db"

// ErrRunNotFound is returned when a run ID is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// RunDB provides SQLite-based storage for run history.
// Every run gets one row in runs and one row per attempted record in
// record_results. Rows are only ever appended or, for the run row, updated
// when the run finishes.
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

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the ledger in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a scrape first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite: mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
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

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- One row per scraping run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		base_url TEXT NOT NULL,
		output_file TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		last_page INTEGER DEFAULT 0,
		pages_visited INTEGER DEFAULT 0,
		pages_failed TEXT,
		processed INTEGER DEFAULT 0,
		persisted INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		aborted INTEGER DEFAULT 0,
		abort_reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- One row per attempted record
	CREATE TABLE IF NOT EXISTS record_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		page INTEGER NOT NULL,
		label TEXT NOT NULL,
		url TEXT NOT NULL,
		challenge TEXT NOT NULL,
		persisted INTEGER NOT NULL,
		kind TEXT NOT NULL,
		step TEXT,
		message TEXT,
		duration_ms INTEGER,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_run ON record_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_results_kind ON record_results(kind);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// StartRun inserts a run row for report and stores the new ID in report.RunID.
func (rdb *RunDB) StartRun(ctx context.Context, report *model.RunReport) (int64, error) {
	query := `
	INSERT INTO runs (base_url, output_file, started_at)
	VALUES (?, ?, ?)
	`

	result, err := rdb.db.ExecContext(ctx, query,
		report.BaseURL,
		report.OutputFile,
		formatTimestamp(report.StartedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	report.RunID = id
	return id, nil
}

// FinishRun stores the final counters of report.
func (rdb *RunDB) FinishRun(ctx context.Context, report *model.RunReport) error {
	pagesJSON, err := json.Marshal(report.PagesFailed)
	if err != nil {
		return fmt.Errorf("failed to serialize failed pages: %w", err)
	}

	query := `
	UPDATE runs SET
		finished_at = ?,
		last_page = ?,
		pages_visited = ?,
		pages_failed = ?,
		processed = ?,
		persisted = ?,
		failed = ?,
		aborted = ?,
		abort_reason = ?
	WHERE id = ?
	`

	result, err := rdb.db.ExecContext(ctx, query,
		formatTimestamp(report.FinishedAt),
		report.LastPage,
		report.PagesVisited,
		string(pagesJSON),
		report.Processed,
		report.Persisted,
		report.FailedCount(),
		report.Aborted,
		report.AbortReason,
		report.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, report.RunID)
	}
	return nil
}

// InsertRecordResult appends the outcome of one record to run runID.
func (rdb *RunDB) InsertRecordResult(ctx context.Context, runID int64, res model.RecordResult) error {
	query := `
	INSERT INTO record_results (run_id, page, label, url, challenge, persisted, kind, step, message, duration_ms, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := rdb.db.ExecContext(ctx, query,
		runID,
		res.Page,
		res.Ref.Label,
		res.Ref.URL,
		res.Challenge.String(),
		res.Persisted,
		res.Kind.String(),
		res.Step,
		res.Message,
		res.Duration.Milliseconds(),
		formatTimestamp(res.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record result: %w", err)
	}
	return nil
}

// GetRun rebuilds the report of run id, failures included.
func (rdb *RunDB) GetRun(ctx context.Context, id int64) (*model.RunReport, error) {
	query := `
	SELECT id, base_url, output_file, started_at, finished_at, last_page, pages_visited,
		pages_failed, processed, persisted, aborted, abort_reason
	FROM runs
	WHERE id = ?
	`

	var (
		report      model.RunReport
		startedAt   string
		finishedAt  sql.NullString
		pagesJSON   sql.NullString
		abortReason sql.NullString
	)
	err := rdb.db.QueryRowContext(ctx, query, id).Scan(
		&report.RunID,
		&report.BaseURL,
		&report.OutputFile,
		&startedAt,
		&finishedAt,
		&report.LastPage,
		&report.PagesVisited,
		&pagesJSON,
		&report.Processed,
		&report.Persisted,
		&report.Aborted,
		&abortReason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	report.StartedAt = parseTimestamp(startedAt)
	report.FinishedAt = parseTimestamp(finishedAt.String)
	report.AbortReason = abortReason.String
	if pagesJSON.Valid && pagesJSON.String != "" && pagesJSON.String != "null" {
		if err := json.Unmarshal([]byte(pagesJSON.String), &report.PagesFailed); err != nil {
			return nil, fmt.Errorf("failed to parse failed pages: %w", err)
		}
	}

	failures, err := rdb.GetRecordResults(ctx, id, true)
	if err != nil {
		return nil, err
	}
	report.Failures = failures

	return &report, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (rdb *RunDB) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	query := `
	SELECT id, base_url, started_at, finished_at, processed, persisted, failed, aborted
	FROM runs
	ORDER BY id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []model.RunSummary
	for rows.Next() {
		var meta model.RunSummary
		var startedAt string
		var finishedAt sql.NullString

		if err := rows.Scan(
			&meta.ID,
			&meta.BaseURL,
			&startedAt,
			&finishedAt,
			&meta.Processed,
			&meta.Persisted,
			&meta.Failed,
			&meta.Aborted,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.FinishedAt = parseTimestamp(finishedAt.String)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRecordResults returns the record outcomes of run runID in insertion
// order. With failedOnly set, persisted records are left out.
func (rdb *RunDB) GetRecordResults(ctx context.Context, runID int64, failedOnly bool) ([]model.RecordResult, error) {
	query := `
	SELECT page, label, url, challenge, persisted, kind, step, message, duration_ms, timestamp
	FROM record_results
	WHERE run_id = ?
	`
	if failedOnly {
		query += " AND persisted = 0"
	}
	query += " ORDER BY id"

	rows, err := rdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query record results: %w", err)
	}
	defer rows.Close()

	results := make([]model.RecordResult, 0)
	for rows.Next() {
		var (
			res        model.RecordResult
			challenge  string
			kind       string
			step       sql.NullString
			message    sql.NullString
			durationMS sql.NullInt64
			timestamp  string
		)

		if err := rows.Scan(
			&res.Page,
			&res.Ref.Label,
			&res.Ref.URL,
			&challenge,
			&res.Persisted,
			&kind,
			&step,
			&message,
			&durationMS,
			&timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record result: %w", err)
		}

		res.Challenge = model.ParseChallengeState(challenge)
		res.Kind = model.ParseFailureKind(kind)
		res.Step = step.String
		res.Message = message.String
		res.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		res.Timestamp = parseTimestamp(timestamp)
		results = append(results, res)
	}

	return results, rows.Err()
}

// Sink returns a receiver that appends record outcomes to run runID.
func (rdb *RunDB) Sink(runID int64) *RunSink {
	return &RunSink{db: rdb, runID: runID}
}

// RunSink forwards record outcomes of one run to the ledger.
type RunSink struct {
	db    *RunDB
	runID int64
}

// RecordResult stores res.
func (s *RunSink) RecordResult(ctx context.Context, res model.RecordResult) error {
	return s.db.InsertRecordResult(ctx, s.runID, res)
}

// formatTimestamp stores times in UTC with nanosecond precision.
// The zero time is stored as an empty string.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
