package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mobile-clean/internal/model"
)

func openTestDB(t *testing.T) *DeletionDB {
	t.Helper()
	db, err := NewDeletionDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func junkFile(path string, size int64) model.Descriptor {
	return model.Descriptor{
		Path:     path,
		Name:     filepath.Base(path),
		Size:     size,
		Category: model.LogFiles,
		Reason:   "suffix:.log",
	}
}

func TestDatabaseCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "history.db")

	db, err := NewDeletionDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file not created at %s", dbPath)
	}
}

func TestWALModeEnabled(t *testing.T) {
	db := openTestDB(t)

	var journalMode string
	if err := db.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	var synchronous int
	if err := db.db.QueryRow("PRAGMA synchronous").Scan(&synchronous); err != nil {
		t.Fatalf("Failed to query synchronous: %v", err)
	}
	if synchronous != 1 {
		t.Errorf("Expected synchronous=1 (NORMAL), got %d", synchronous)
	}
}

func TestSchemaCreation(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"deletions", "scans", "schema_version"} {
		var name string
		err := db.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s missing: %v", table, err)
		}
	}

	for _, idx := range []string{"idx_timestamp", "idx_action", "idx_category", "idx_session"} {
		var name string
		err := db.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&name)
		if err != nil {
			t.Errorf("Index %s missing: %v", idx, err)
		}
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	for i := 0; i < 2; i++ {
		db, err := NewDeletionDB(dbPath)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		db.Close()
	}
}

func TestRecordDeletion(t *testing.T) {
	db := openTestDB(t)

	file := junkFile("/storage/emulated/0/logs/app.log", 4096)
	if err := db.RecordDeletion("sess-1", ActionDelete, file, ""); err != nil {
		t.Fatalf("RecordDeletion failed: %v", err)
	}

	records, err := db.GetRecentDeletions(10)
	if err != nil {
		t.Fatalf("GetRecentDeletions failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.SessionID != "sess-1" || r.Action != ActionDelete || r.Path != file.Path {
		t.Errorf("unexpected record: %+v", r)
	}
	if r.FileName != "app.log" || r.Category != "log_files" || r.Flow != "junk" {
		t.Errorf("unexpected descriptor fields: %+v", r)
	}
	if r.Reason != "suffix:.log" || r.Size != 4096 || r.ErrorMessage != "" {
		t.Errorf("unexpected detail fields: %+v", r)
	}
	if time.Since(r.Timestamp) > time.Minute {
		t.Errorf("timestamp not recent: %v", r.Timestamp)
	}
}

func TestNullFieldHandling(t *testing.T) {
	db := openTestDB(t)

	file := model.Descriptor{Path: "/s/Download/a.zip", Size: 2048, Category: model.Zip}
	if err := db.RecordDeletion("", ActionError, file, "permission denied"); err != nil {
		t.Fatalf("RecordDeletion failed: %v", err)
	}

	records, err := db.GetDeletionsByAction(ActionError)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.SessionID != "" || r.Reason != "" {
		t.Errorf("expected empty nullable fields, got %+v", r)
	}
	if r.FileName != "a.zip" || r.Flow != "large" {
		t.Errorf("unexpected fields: %+v", r)
	}
	if r.ErrorMessage != "permission denied" {
		t.Errorf("error message = %q", r.ErrorMessage)
	}
}

func TestQueryMethods(t *testing.T) {
	db := openTestDB(t)

	rows := []struct {
		action string
		file   model.Descriptor
	}{
		{ActionDelete, junkFile("/s/a.log", 100)},
		{ActionDelete, junkFile("/s/b.log", 5000)},
		{ActionMissing, junkFile("/s/c.log", 300)},
		{ActionSkip, junkFile("/etc/d.log", 400)},
		{ActionDelete, model.Descriptor{Path: "/s/Movies/e.mp4", Size: 900000, Category: model.Video}},
		{ActionDryRun, junkFile("/s/f.log", 600)},
	}
	for _, r := range rows {
		if err := db.RecordDeletion("sess", r.action, r.file, ""); err != nil {
			t.Fatalf("insert %s: %v", r.file.Path, err)
		}
	}
	if err := db.RecordDeletion("other", ActionDelete, junkFile("/s/g.log", 10), ""); err != nil {
		t.Fatal(err)
	}

	t.Run("by category", func(t *testing.T) {
		got, err := db.GetDeletionsByCategory("video")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Path != "/s/Movies/e.mp4" {
			t.Errorf("unexpected: %+v", got)
		}
	})

	t.Run("by session keeps insertion order", func(t *testing.T) {
		got, err := db.GetDeletionsBySession("sess")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(rows) {
			t.Fatalf("expected %d rows, got %d", len(rows), len(got))
		}
		for i, r := range rows {
			if got[i].Path != r.file.Path {
				t.Errorf("row %d = %s, want %s", i, got[i].Path, r.file.Path)
			}
		}
	})

	t.Run("by path", func(t *testing.T) {
		got, err := db.GetDeletionsByPath("/s/Movies/%")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1, got %d", len(got))
		}
	})

	t.Run("largest only counts deletes", func(t *testing.T) {
		got, err := db.GetLargestDeletions(2)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].Size != 900000 || got[1].Size != 5000 {
			t.Errorf("unexpected: %+v", got)
		}
	})

	t.Run("space freed", func(t *testing.T) {
		total, err := db.GetTotalSpaceFreed(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if want := int64(100 + 5000 + 900000 + 10); total != want {
			t.Errorf("total = %d, want %d", total, want)
		}
	})

	t.Run("counts", func(t *testing.T) {
		byAction, err := db.GetDeletionCountByAction()
		if err != nil {
			t.Fatal(err)
		}
		if byAction[ActionDelete] != 4 || byAction[ActionMissing] != 1 || byAction[ActionDryRun] != 1 {
			t.Errorf("byAction = %v", byAction)
		}
		byCategory, err := db.GetDeletionCountByCategory()
		if err != nil {
			t.Fatal(err)
		}
		if byCategory["log_files"] != 3 || byCategory["video"] != 1 {
			t.Errorf("byCategory = %v", byCategory)
		}
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := db.GetDeletionStats(7)
		if err != nil {
			t.Fatal(err)
		}
		if stats.TotalDeletions != 4 || stats.TotalMissing != 1 || stats.TotalSkipped != 1 || stats.TotalDryRun != 1 {
			t.Errorf("stats = %+v", stats)
		}
		if stats.TotalErrors != 0 {
			t.Errorf("errors = %d", stats.TotalErrors)
		}
	})
}

func TestPaginationMethods(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 25; i++ {
		action := ActionDelete
		if i%5 == 0 {
			action = ActionError
		}
		if err := db.RecordDeletion("p", action, junkFile(fmt.Sprintf("/s/%02d.log", i), int64(i+100)), ""); err != nil {
			t.Fatal(err)
		}
	}

	page, total, err := db.GetRecentDeletionsPaginated(10, 20)
	if err != nil {
		t.Fatal(err)
	}
	if total != 25 || len(page) != 5 {
		t.Errorf("total=%d page=%d", total, len(page))
	}

	page, total, err = db.GetDeletionsByActionPaginated(ActionError, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(page) != 2 {
		t.Errorf("total=%d page=%d", total, len(page))
	}
}

func TestRecordScan(t *testing.T) {
	db := openTestDB(t)

	start := time.Now().Add(-time.Minute)
	scans := []ScanRecord{
		{SessionID: "a", Flow: "junk", StartedAt: start, FinishedAt: start.Add(time.Second), Files: 12, Bytes: 4096},
		{SessionID: "b", Flow: "junk", StartedAt: start.Add(10 * time.Second), FinishedAt: start.Add(20 * time.Second), Files: 1, Bytes: 600 << 20, Truncated: true},
		{SessionID: "c", Flow: "large", StartedAt: start.Add(30 * time.Second), FinishedAt: start.Add(31 * time.Second), Error: "media index unavailable"},
	}
	for _, s := range scans {
		if err := db.RecordScan(s); err != nil {
			t.Fatalf("RecordScan: %v", err)
		}
	}

	got, err := db.GetRecentScans(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 scans, got %d", len(got))
	}
	if got[0].SessionID != "c" || got[0].Error != "media index unavailable" {
		t.Errorf("newest scan = %+v", got[0])
	}
	if !got[1].Truncated || got[1].Bytes != 600<<20 {
		t.Errorf("truncated scan = %+v", got[1])
	}
	if got[2].Truncated || got[2].Files != 12 {
		t.Errorf("oldest scan = %+v", got[2])
	}
}

func TestConcurrentReadWrite(t *testing.T) {
	db := openTestDB(t)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			errs <- db.RecordDeletion("c", ActionDelete, junkFile(fmt.Sprintf("/s/%d.log", i), 200), "")
		}(i)
		go func() {
			defer wg.Done()
			_, err := db.GetRecentDeletions(5)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent op failed: %v", err)
		}
	}
}

func TestDatabaseStats(t *testing.T) {
	db := openTestDB(t)

	stats, err := db.GetDatabaseStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats["total_records"].(int64) != 0 {
		t.Errorf("expected empty database")
	}
	if _, ok := stats["oldest_record"]; ok {
		t.Errorf("empty database should have no oldest_record")
	}

	if err := db.RecordDeletion("s", ActionDelete, junkFile("/s/a.log", 200), ""); err != nil {
		t.Fatal(err)
	}
	stats, err = db.GetDatabaseStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats["total_records"].(int64) != 1 {
		t.Errorf("total_records = %v", stats["total_records"])
	}
	if stats["database_size_bytes"].(int64) <= 0 {
		t.Errorf("database_size_bytes = %v", stats["database_size_bytes"])
	}
	if _, ok := stats["newest_record"].(time.Time); !ok {
		t.Errorf("newest_record missing: %v", stats)
	}
}

func TestDeleteOldRecordsAndVacuum(t *testing.T) {
	db := openTestDB(t)

	if err := db.RecordDeletion("s", ActionDelete, junkFile("/s/a.log", 200), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := db.db.Exec(`INSERT INTO deletions (timestamp, flow, action, path, category, size)
		VALUES (?, 'junk', 'DELETE', '/s/old.log', 'log_files', 10)`, time.Now().UTC().AddDate(0, 0, -60)); err != nil {
		t.Fatal(err)
	}

	n, err := db.DeleteOldRecords(30)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}
	if err := db.Vacuum(); err != nil {
		t.Errorf("Vacuum: %v", err)
	}
}

func TestDatabaseErrorHandling(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// parent of the database path is a regular file
	_, err := NewDeletionDB(filepath.Join(blocker, "history.db"))
	if err == nil {
		t.Fatal("expected error when parent is a file")
	}

	db := openTestDB(t)
	db.db.Close()
	if err := db.RecordDeletion("s", ActionDelete, junkFile("/s/a.log", 1), ""); err == nil {
		t.Error("expected error on closed database")
	}
}
