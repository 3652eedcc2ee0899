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

	"github.com/nao1215/a11yscan/internal/model"
)

// FileName is the database file created in the data directory.
const FileName = "a11yscan.db"

// ErrReportNotFound is returned when no archived report has the given scan id.
var ErrReportNotFound = errors.New("scan report not found")

// ReportDB archives scan reports in SQLite so that scans of the same URL
// can be compared over time. Payment sessions are never stored here.
type ReportDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures ReportDB behavior.
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

// Open opens or creates the archive in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ReportDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ReportDB{db: db, dbPath: dbPath}

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

func (rdb *ReportDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scan_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL,
		scanned_at INTEGER NOT NULL,
		score INTEGER NOT NULL,
		risk_level TEXT NOT NULL,
		summary TEXT,
		report_json TEXT NOT NULL,
		archived_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_url ON scan_reports(url);
	CREATE INDEX IF NOT EXISTS idx_reports_scanned_at ON scan_reports(scanned_at);
	`
	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveScanReport archives a report. Saving a scan id twice keeps the first copy.
func (rdb *ReportDB) SaveScanReport(ctx context.Context, report *model.ScanReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	query := `
	INSERT INTO scan_reports (scan_id, url, scanned_at, score, risk_level, summary, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(scan_id) DO NOTHING
	`
	_, err = rdb.db.ExecContext(ctx, query,
		report.ScanID,
		report.URL,
		report.Timestamp.UnixNano(),
		report.Score,
		string(report.Risk.Level),
		string(summaryJSON),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}
	return nil
}

// GetLatestScanReports returns up to n reports for url, newest first.
func (rdb *ReportDB) GetLatestScanReports(ctx context.Context, url string, n int) ([]*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE url = ?
	ORDER BY scanned_at DESC, id DESC
	LIMIT ?
	`
	rows, err := rdb.db.QueryContext(ctx, query, url, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan reports: %w", err)
	}
	defer rows.Close()

	var reports []*model.ScanReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		var report model.ScanReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}

// GetScanReport returns the archived report with the given scan id.
func (rdb *ReportDB) GetScanReport(ctx context.Context, scanID string) (*model.ScanReport, error) {
	var reportJSON string
	err := rdb.db.QueryRowContext(ctx,
		`SELECT report_json FROM scan_reports WHERE scan_id = ?`, scanID,
	).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// ListScannedTargets returns every archived URL in lexical order.
func (rdb *ReportDB) ListScannedTargets(ctx context.Context) ([]string, error) {
	rows, err := rdb.db.QueryContext(ctx, `SELECT DISTINCT url FROM scan_reports ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

// ScanReportMetadata summarizes an archived report without loading its
// findings.
type ScanReportMetadata struct {
	ID         int64
	ScanID     string
	URL        string
	Timestamp  time.Time
	Score      int
	Risk       model.RiskLevel
	Summary    model.SeveritySummary
	ArchivedAt time.Time
}

// GetScanHistory returns metadata for every archived scan of url, newest first.
func (rdb *ReportDB) GetScanHistory(ctx context.Context, url string) ([]ScanReportMetadata, error) {
	query := `
	SELECT id, scan_id, url, scanned_at, score, risk_level, summary, archived_at
	FROM scan_reports
	WHERE url = ?
	ORDER BY scanned_at DESC, id DESC
	`
	rows, err := rdb.db.QueryContext(ctx, query, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var results []ScanReportMetadata
	for rows.Next() {
		var (
			meta       ScanReportMetadata
			scannedAt  int64
			risk       string
			summary    sql.NullString
			archivedAt string
		)
		if err := rows.Scan(&meta.ID, &meta.ScanID, &meta.URL, &scannedAt, &meta.Score, &risk, &summary, &archivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = time.Unix(0, scannedAt).UTC()
		meta.Risk = model.RiskLevel(risk)
		meta.ArchivedAt = parseTimestamp(archivedAt)
		if summary.Valid && summary.String != "" {
			// A damaged summary leaves zero counts.
			_ = json.Unmarshal([]byte(summary.String), &meta.Summary) //nolint:errcheck
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// timestampFormats are the formats SQLite may return for DATETIME columns,
// most specific first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
