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

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/htmlcs/internal/model"
)

// FileName is the database file name inside the data directory.
const FileName = "htmlcs.db"

// ErrNotAnnotated is returned when saving a file without a parsed report.
var ErrNotAnnotated = errors.New("file has no sniff report")

// timeLayout is how timestamps are written.
const timeLayout = "2006-01-02 15:04:05.000"

// ReportDB stores sniff reports in SQLite.
type ReportDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ReportDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open opens or creates the ReportDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ReportDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a scan first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; concurrent pipeline workers share
	// this single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ReportDB{
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
func (rdb *ReportDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *ReportDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ReportDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sniff_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		path TEXT NOT NULL,
		standard TEXT NOT NULL,
		title TEXT,
		timestamp DATETIME NOT NULL,
		report_json TEXT NOT NULL,
		summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_path ON sniff_reports(path);
	CREATE INDEX IF NOT EXISTS idx_reports_run ON sniff_reports(run_id);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON sniff_reports(timestamp);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// StoredReport is a report read back from the database.
type StoredReport struct {
	ID        int64
	RunID     string
	Path      string
	Title     string
	Timestamp time.Time

	// Options are the sniff options the report was produced with.
	Options model.Options

	// Report is the parsed sniffer output.
	Report *model.Report
}

// Key returns the path reports are stored under: absolute and cleaned,
// so every spelling of a file maps to the same rows.
func Key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// SaveReport stores the annotation of file under runID, keyed by
// Key(file.Path).
func (rdb *ReportDB) SaveReport(ctx context.Context, runID string, file *model.File) (int64, error) {
	if !file.Annotated() {
		return 0, fmt.Errorf("%w: %s", ErrNotAnnotated, file.Path)
	}

	reportJSON, err := json.Marshal(file.HTMLCS)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, err := json.Marshal(file.Report().Summary().Counts)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize summary: %w", err)
	}

	ts := file.DateSniffed
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `
	INSERT INTO sniff_reports (run_id, path, standard, title, timestamp, report_json, summary)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := rdb.db.ExecContext(ctx, query,
		runID,
		Key(file.Path),
		string(file.HTMLCS.Options.Standard),
		file.Title,
		ts.UTC().Format(timeLayout),
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}

	return result.LastInsertId()
}

const selectReport = `
	SELECT id, run_id, path, title, timestamp, report_json
	FROM sniff_reports
`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*StoredReport, error) {
	var (
		stored     StoredReport
		title      sql.NullString
		timestamp  string
		reportJSON string
	)
	if err := s.Scan(&stored.ID, &stored.RunID, &stored.Path, &title, &timestamp, &reportJSON); err != nil {
		return nil, err
	}
	stored.Title = title.String
	stored.Timestamp = parseTimestamp(timestamp)

	var annotation model.Annotation
	if err := json.Unmarshal([]byte(reportJSON), &annotation); err != nil {
		return nil, fmt.Errorf("failed to parse report %d: %w", stored.ID, err)
	}
	stored.Options = annotation.Options
	stored.Report = annotation.Report
	if stored.Report == nil {
		stored.Report = &model.Report{}
	}
	return &stored, nil
}

// queryOne returns the single report selected by query, nil when none.
func (rdb *ReportDB) queryOne(ctx context.Context, query string, args ...any) (*StoredReport, error) {
	stored, err := scanReport(rdb.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return stored, nil
}

// GetLatestReport retrieves the most recent report for path.
// It returns nil without error when path has no report.
func (rdb *ReportDB) GetLatestReport(ctx context.Context, path string) (*StoredReport, error) {
	return rdb.queryOne(ctx, selectReport+`
	WHERE path = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1`, Key(path))
}

// GetLatest retrieves the most recently stored report of any file.
// It returns nil without error when the database is empty.
func (rdb *ReportDB) GetLatest(ctx context.Context) (*StoredReport, error) {
	return rdb.queryOne(ctx, selectReport+`
	ORDER BY timestamp DESC, id DESC
	LIMIT 1`)
}

// GetReportByID retrieves a report by its database ID.
// It returns nil without error when the ID does not exist.
func (rdb *ReportDB) GetReportByID(ctx context.Context, id int64) (*StoredReport, error) {
	return rdb.queryOne(ctx, selectReport+`
	WHERE id = ?`, id)
}

// GetHistory retrieves all reports for path, newest first.
func (rdb *ReportDB) GetHistory(ctx context.Context, path string) ([]*StoredReport, error) {
	rows, err := rdb.db.QueryContext(ctx, selectReport+`
	WHERE path = ?
	ORDER BY timestamp DESC, id DESC`, Key(path))
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var reports []*StoredReport
	for rows.Next() {
		stored, err := scanReport(rows)
		if err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, stored)
	}

	return reports, rows.Err()
}

// ReportMetadata contains summary information about a stored report.
// This is used for displaying history without loading the full report.
type ReportMetadata struct {
	// ID is the unique identifier of the report in the database.
	ID int64

	// RunID identifies the scan the report belongs to.
	RunID string

	// Path is the sniffed file.
	Path string

	// Standard is the accessibility standard used.
	Standard string

	// Timestamp is when the file was sniffed.
	Timestamp time.Time

	// Summary counts messages keyed "ERRORS", "WARNINGS", "NOTICES".
	Summary map[string]int
}

// GetHistoryWithMetadata retrieves report metadata for path, newest first.
// This is more efficient than GetHistory when only metadata is needed.
func (rdb *ReportDB) GetHistoryWithMetadata(ctx context.Context, path string) ([]ReportMetadata, error) {
	query := `
	SELECT id, run_id, path, standard, timestamp, summary
	FROM sniff_reports
	WHERE path = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, Key(path))
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var results []ReportMetadata
	for rows.Next() {
		var meta ReportMetadata
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.RunID, &meta.Path, &meta.Standard, &timestamp, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)

		meta.Summary = make(map[string]int)
		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.Summary); err != nil {
				meta.Summary = make(map[string]int)
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListFiles returns every path that has a stored report.
func (rdb *ReportDB) ListFiles(ctx context.Context) ([]string, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT DISTINCT path FROM sniff_reports
	ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		paths = append(paths, path)
	}

	return paths, rows.Err()
}

// Run summarises one scan.
type Run struct {
	ID      string
	Started time.Time
	Files   int
}

// ListRuns returns the most recent runs, newest first.
func (rdb *ReportDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT run_id, MIN(timestamp) AS started, COUNT(*)
	FROM sniff_reports
	GROUP BY run_id
	ORDER BY started DESC, MAX(id) DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started string
		if err := rows.Scan(&run.ID, &started, &run.Files); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Started = parseTimestamp(started)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
