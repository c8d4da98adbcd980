package mediaindex

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"mobile-clean/internal/model"
)

// SQLiteIndex stores the catalogue in a SQLite file.
type SQLiteIndex struct {
	db *sql.DB
}

// Open opens or creates the catalogue at path.
func Open(path string) (*SQLiteIndex, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create media index directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open media index: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS media (
		path TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		size INTEGER NOT NULL,
		date_added DATETIME NOT NULL,
		mime_type TEXT NOT NULL,
		kind TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_media_kind ON media(kind, date_added);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply media schema: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

// Query returns the records of one kind, newest first.
func (s *SQLiteIndex) Query(ctx context.Context, kind model.Category) ([]Record, error) {
	if !IsMediaKind(kind) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT path, name, size, date_added, mime_type
	FROM media
	WHERE kind = ?
	ORDER BY date_added DESC, path ASC`, kind.String())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r := Record{Kind: kind}
		if err := rows.Scan(&r.Path, &r.Name, &r.Size, &r.DateAdded, &r.MimeType); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", kind, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Replace swaps the whole catalogue for records in one transaction.
func (s *SQLiteIndex) Replace(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM media"); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO media (path, name, size, date_added, mime_type, kind)
	VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Path, r.Name, r.Size, r.DateAdded.UTC(), r.MimeType, r.Kind.String()); err != nil {
			return fmt.Errorf("insert %s: %w", r.Path, err)
		}
	}
	return tx.Commit()
}

// Delete drops the records for paths and returns how many existed.
func (s *SQLiteIndex) Delete(ctx context.Context, paths []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM media WHERE path = ?")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var n int64
	for _, p := range paths {
		res, err := stmt.ExecContext(ctx, p)
		if err != nil {
			return 0, fmt.Errorf("delete %s: %w", p, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Count returns the number of catalogued files.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media").Scan(&n)
	return n, err
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
