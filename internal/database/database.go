// Package database stores deletion history and scan summaries in SQLite.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mobile-clean/internal/model"
)

// Actions recorded per cleanup target.
const (
	ActionDelete  = "DELETE"
	ActionMissing = "MISSING"
	ActionError   = "ERROR"
	ActionSkip    = "SKIP"
	ActionDryRun  = "DRY_RUN"
)

// DeletionDB manages the SQLite database for deletion history.
type DeletionDB struct {
	db *sql.DB
}

// DeletionRecord is one row of the deletions table.
type DeletionRecord struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id"`
	Flow         string    `json:"flow"`
	Action       string    `json:"action"`
	Path         string    `json:"path"`
	FileName     string    `json:"file_name"`
	Category     string    `json:"category"`
	Reason       string    `json:"reason,omitempty"`
	Size         int64     `json:"size"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// ScanRecord summarizes one finished or failed scan.
type ScanRecord struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Flow       string    `json:"flow"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Files      int       `json:"files"`
	Bytes      int64     `json:"bytes"`
	Truncated  bool      `json:"truncated"`
	Error      string    `json:"error,omitempty"`
}

// NewDeletionDB opens or creates the database at dbPath and applies the
// schema.
func NewDeletionDB(dbPath string) (*DeletionDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto makes the driver parse DATETIME columns into time.Time
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Exec instead of Ping so the file is created right away
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	ddb := &DeletionDB{db: db}
	if err = ddb.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return ddb, nil
}

func (d *DeletionDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deletions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		session_id TEXT,
		flow TEXT NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		category TEXT NOT NULL,
		reason TEXT,
		size INTEGER NOT NULL,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_timestamp ON deletions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_action ON deletions(action);
	CREATE INDEX IF NOT EXISTS idx_path ON deletions(path);
	CREATE INDEX IF NOT EXISTS idx_category ON deletions(category);
	CREATE INDEX IF NOT EXISTS idx_session ON deletions(session_id);
	CREATE INDEX IF NOT EXISTS idx_size ON deletions(size);

	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		flow TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		files INTEGER NOT NULL,
		bytes INTEGER NOT NULL,
		truncated INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordDeletion inserts one cleanup outcome for file.
func (d *DeletionDB) RecordDeletion(sessionID, action string, file model.Descriptor, errorMsg string) error {
	_, err := d.db.Exec(`
	INSERT INTO deletions (
		timestamp, session_id, flow, action, path, file_name,
		category, reason, size, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		time.Now().UTC(),
		nullString(sessionID),
		file.Category.Flow().String(),
		action,
		file.Path,
		fileName(file),
		file.Category.String(),
		nullString(file.Reason),
		file.Size,
		nullString(errorMsg),
	)
	return err
}

// RecordScan stores a scan summary.
func (d *DeletionDB) RecordScan(s ScanRecord) error {
	_, err := d.db.Exec(`
	INSERT INTO scans (session_id, flow, started_at, finished_at, files, bytes, truncated, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.SessionID, s.Flow, s.StartedAt.UTC(), s.FinishedAt.UTC(),
		s.Files, s.Bytes, s.Truncated, nullString(s.Error),
	)
	return err
}

func fileName(file model.Descriptor) string {
	if file.Name != "" {
		return file.Name
	}
	return filepath.Base(file.Path)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Close closes the database connection.
func (d *DeletionDB) Close() error {
	return d.db.Close()
}

// Vacuum compacts the database file.
func (d *DeletionDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// GetDatabaseStats reports row counts, file size and the record date range.
func (d *DeletionDB) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalRecords, totalScans int64
	if err := d.db.QueryRow("SELECT COUNT(*) FROM deletions").Scan(&totalRecords); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM scans").Scan(&totalScans); err != nil {
		return nil, err
	}
	stats["total_records"] = totalRecords
	stats["total_scans"] = totalScans

	var pageCount, pageSize int64
	if err := d.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats["database_size_bytes"] = pageCount * pageSize

	// aggregates lose the column type, so the driver hands back strings
	var oldest, newest sql.NullString
	err := d.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM deletions").Scan(&oldest, &newest)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if t, ok := parseTimestamp(oldest); ok {
		stats["oldest_record"] = t
	}
	if t, ok := parseTimestamp(newest); ok {
		stats["newest_record"] = t
	}

	return stats, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseTimestamp(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
