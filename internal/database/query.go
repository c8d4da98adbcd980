package database

import (
	"database/sql"
	"time"
)

const deletionColumns = `
	id, timestamp, session_id, flow, action, path, file_name,
	category, reason, size, error_message`

// GetRecentDeletions returns the N most recent deletion events.
func (d *DeletionDB) GetRecentDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(`SELECT `+deletionColumns+`
	FROM deletions
	ORDER BY timestamp DESC, id DESC
	LIMIT ?`, limit)
}

// GetDeletionsByDateRange returns deletions within a time range.
func (d *DeletionDB) GetDeletionsByDateRange(start, end time.Time) ([]DeletionRecord, error) {
	return d.queryDeletions(`SELECT `+deletionColumns+`
	FROM deletions
	WHERE timestamp BETWEEN ? AND ?
	ORDER BY timestamp DESC, id DESC`, start.UTC(), end.UTC())
}

// GetDeletionsByCategory returns rows for one category key, e.g. "log_files".
func (d *DeletionDB) GetDeletionsByCategory(category string) ([]DeletionRecord, error) {
	return d.queryDeletions(`SELECT `+deletionColumns+`
	FROM deletions
	WHERE category = ?
	ORDER BY timestamp DESC, id DESC`, category)
}

// GetDeletionsBySession returns the rows written by one cleanup session in
// insertion order.
func (d *DeletionDB) GetDeletionsBySession(sessionID string) ([]DeletionRecord, error) {
	return d.queryDeletions(`SELECT `+deletionColumns+`
	FROM deletions
	WHERE session_id = ?
	ORDER BY id ASC`, sessionID)
}

// GetDeletionsByPath returns deletions matching a LIKE pattern.
func (d *DeletionDB) GetDeletionsByPath(pathPattern string) ([]DeletionRecord, error) {
	return d.queryDeletions(`SELECT `+deletionColumns+`
	FROM deletions
	WHERE path LIKE ?
	ORDER BY timestamp DESC, id DESC`, pathPattern)
}

// GetDeletionsByAction returns deletions filtered by action type.
func (d *DeletionDB) GetDeletionsByAction(action string) ([]DeletionRecord, error) {
	return d.queryDeletions(`SELECT `+deletionColumns+`
	FROM deletions
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC`, action)
}

// GetLargestDeletions returns the N largest actual deletions.
func (d *DeletionDB) GetLargestDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(`SELECT `+deletionColumns+`
	FROM deletions
	WHERE action = 'DELETE'
	ORDER BY size DESC
	LIMIT ?`, limit)
}

// GetTotalSpaceFreed returns total bytes deleted in a time range.
func (d *DeletionDB) GetTotalSpaceFreed(start, end time.Time) (int64, error) {
	var total int64
	err := d.db.QueryRow(`
	SELECT COALESCE(SUM(size), 0)
	FROM deletions
	WHERE action = 'DELETE' AND timestamp BETWEEN ? AND ?
	`, start.UTC(), end.UTC()).Scan(&total)
	return total, err
}

// GetDeletionCountByCategory counts actual deletions per category key.
func (d *DeletionDB) GetDeletionCountByCategory() (map[string]int, error) {
	return d.countBy(`
	SELECT category, COUNT(*)
	FROM deletions
	WHERE action = 'DELETE'
	GROUP BY category`)
}

// GetDeletionCountByAction counts rows per action.
func (d *DeletionDB) GetDeletionCountByAction() (map[string]int, error) {
	return d.countBy(`
	SELECT action, COUNT(*)
	FROM deletions
	GROUP BY action`)
}

func (d *DeletionDB) countBy(query string, args ...interface{}) (map[string]int, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// DeletionStats holds aggregated statistics.
type DeletionStats struct {
	TotalDeletions  int            `json:"total_deletions"`
	TotalMissing    int            `json:"total_missing"`
	TotalSkipped    int            `json:"total_skipped"`
	TotalErrors     int            `json:"total_errors"`
	TotalDryRun     int            `json:"total_dry_run"`
	TotalSpaceFreed int64          `json:"total_space_freed"`
	ByCategory      map[string]int `json:"by_category"`
	ByAction        map[string]int `json:"by_action"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
}

// GetDeletionStats returns statistics for the last days days.
func (d *DeletionDB) GetDeletionStats(days int) (*DeletionStats, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)

	stats := &DeletionStats{StartDate: since, EndDate: now}

	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'DELETE' THEN 1 END),
			COUNT(CASE WHEN action = 'MISSING' THEN 1 END),
			COUNT(CASE WHEN action = 'SKIP' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END),
			COUNT(CASE WHEN action = 'DRY_RUN' THEN 1 END)
		FROM deletions
		WHERE timestamp >= ?
	`, since).Scan(&stats.TotalDeletions, &stats.TotalMissing, &stats.TotalSkipped, &stats.TotalErrors, &stats.TotalDryRun)
	if err != nil {
		return nil, err
	}

	if stats.TotalSpaceFreed, err = d.GetTotalSpaceFreed(since, now); err != nil {
		return nil, err
	}
	if stats.ByCategory, err = d.GetDeletionCountByCategory(); err != nil {
		return nil, err
	}
	if stats.ByAction, err = d.GetDeletionCountByAction(); err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteOldRecords removes deletion rows older than the given number of days.
func (d *DeletionDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	result, err := d.db.Exec(`DELETE FROM deletions WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetRecentDeletionsPaginated returns one page of history with the total
// row count.
func (d *DeletionDB) GetRecentDeletionsPaginated(limit, offset int) ([]DeletionRecord, int, error) {
	var totalCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM deletions").Scan(&totalCount); err != nil {
		return nil, 0, err
	}
	records, err := d.queryDeletions(`SELECT `+deletionColumns+`
	FROM deletions
	ORDER BY timestamp DESC, id DESC
	LIMIT ? OFFSET ?`, limit, offset)
	return records, totalCount, err
}

// GetDeletionsByActionPaginated returns one page of rows for an action.
func (d *DeletionDB) GetDeletionsByActionPaginated(action string, limit, offset int) ([]DeletionRecord, int, error) {
	var totalCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM deletions WHERE action = ?", action).Scan(&totalCount); err != nil {
		return nil, 0, err
	}
	records, err := d.queryDeletions(`SELECT `+deletionColumns+`
	FROM deletions
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ? OFFSET ?`, action, limit, offset)
	return records, totalCount, err
}

// GetRecentScans returns the N most recent scan summaries.
func (d *DeletionDB) GetRecentScans(limit int) ([]ScanRecord, error) {
	rows, err := d.db.Query(`
	SELECT id, session_id, flow, started_at, finished_at, files, bytes, truncated, error
	FROM scans
	ORDER BY started_at DESC, id DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var s ScanRecord
		var errMsg sql.NullString
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Flow, &s.StartedAt, &s.FinishedAt,
			&s.Files, &s.Bytes, &s.Truncated, &errMsg); err != nil {
			return nil, err
		}
		s.Error = errMsg.String
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DeletionDB) queryDeletions(query string, args ...interface{}) ([]DeletionRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DeletionRecord
	for rows.Next() {
		var r DeletionRecord
		var sessionID, fileName, reason, errMsg sql.NullString

		if err := rows.Scan(
			&r.ID, &r.Timestamp, &sessionID, &r.Flow, &r.Action, &r.Path, &fileName,
			&r.Category, &reason, &r.Size, &errMsg,
		); err != nil {
			return nil, err
		}

		r.SessionID = sessionID.String
		r.FileName = fileName.String
		r.Reason = reason.String
		r.ErrorMessage = errMsg.String
		records = append(records, r)
	}
	return records, rows.Err()
}
