// Command mobile-clean-query inspects the deletion history database.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"mobile-clean/internal/classify"
	"mobile-clean/internal/config"
	"mobile-clean/internal/database"
	"mobile-clean/internal/exitcodes"
)

func main() {
	dbPath := flag.String("db", config.DefaultDatabasePath, "Path to history database")
	recent := flag.Int("recent", 0, "Show N most recent records")
	stats := flag.Bool("stats", false, "Show deletion statistics")
	category := flag.String("category", "", "Filter by category key (log_files, video, ...)")
	action := flag.String("action", "", "Filter by action (DELETE, MISSING, SKIP, ERROR, DRY_RUN)")
	sessionID := flag.String("session", "", "Show one cleanup session")
	pathPattern := flag.String("path", "", "Filter by path pattern (SQL LIKE syntax)")
	largest := flag.Int("largest", 0, "Show N largest deletions")
	scans := flag.Int("scans", 0, "Show N most recent scans")
	prune := flag.Int("prune", 0, "Delete records older than N days, then vacuum")
	days := flag.Int("days", 30, "Number of days for statistics")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	db, err := database.NewDeletionDB(*dbPath)
	if err != nil {
		log.Printf("ERROR: Failed to open database %s: %v", *dbPath, err)
		os.Exit(exitcodes.RuntimeError)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	q := query{db: db, out: os.Stdout, json: *jsonOutput}
	switch {
	case *stats:
		err = q.stats(*days)
	case *recent > 0:
		err = q.records("", func() ([]database.DeletionRecord, error) { return db.GetRecentDeletions(*recent) })
	case *category != "":
		err = q.records("Records in category: "+*category, func() ([]database.DeletionRecord, error) {
			return db.GetDeletionsByCategory(*category)
		})
	case *action != "":
		err = q.records("Records with action: "+*action, func() ([]database.DeletionRecord, error) {
			return db.GetDeletionsByAction(*action)
		})
	case *sessionID != "":
		err = q.records("Session "+*sessionID, func() ([]database.DeletionRecord, error) {
			return db.GetDeletionsBySession(*sessionID)
		})
	case *pathPattern != "":
		err = q.records("Records matching path pattern: "+*pathPattern, func() ([]database.DeletionRecord, error) {
			return db.GetDeletionsByPath(*pathPattern)
		})
	case *largest > 0:
		err = q.records(fmt.Sprintf("Largest %d deletions:", *largest), func() ([]database.DeletionRecord, error) {
			return db.GetLargestDeletions(*largest)
		})
	case *scans > 0:
		err = q.scans(*scans)
	case *prune > 0:
		err = q.prune(*prune)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  mobile-clean-query --recent 10            # 10 most recent records")
		fmt.Println("  mobile-clean-query --stats --days 7       # statistics for the last week")
		fmt.Println("  mobile-clean-query --category log_files   # log file deletions")
		fmt.Println("  mobile-clean-query --action ERROR         # failed deletions")
		fmt.Println("  mobile-clean-query --path '%/Download/%'  # deletions from Download")
		fmt.Println("  mobile-clean-query --largest 10           # 10 largest deletions")
		fmt.Println("  mobile-clean-query --scans 5              # 5 most recent scans")
		os.Exit(exitcodes.InvalidConfig)
	}
	if err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(exitcodes.RuntimeError)
	}
}

type query struct {
	db   *database.DeletionDB
	out  io.Writer
	json bool
}

func (q query) emitJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(q.out, string(data))
	return err
}

func (q query) records(title string, fetch func() ([]database.DeletionRecord, error)) error {
	records, err := fetch()
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}
	if q.json {
		return q.emitJSON(records)
	}
	if title != "" {
		fmt.Fprintf(q.out, "%s\n\n", title)
	}
	printRecords(q.out, records)
	return nil
}

func (q query) stats(days int) error {
	stats, err := q.db.GetDeletionStats(days)
	if err != nil {
		return fmt.Errorf("get statistics: %w", err)
	}
	if q.json {
		return q.emitJSON(stats)
	}

	fmt.Fprintf(q.out, "Deletion Statistics (Last %d days)\n", days)
	fmt.Fprintf(q.out, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(q.out, "Total Deletions:  %d\n", stats.TotalDeletions)
	fmt.Fprintf(q.out, "Total Missing:    %d\n", stats.TotalMissing)
	fmt.Fprintf(q.out, "Total Skipped:    %d\n", stats.TotalSkipped)
	fmt.Fprintf(q.out, "Total Errors:     %d\n", stats.TotalErrors)
	fmt.Fprintf(q.out, "Total Dry Run:    %d\n", stats.TotalDryRun)
	fmt.Fprintf(q.out, "Space Freed:      %s\n\n", humanize.IBytes(uint64(stats.TotalSpaceFreed)))

	printCounts(q.out, "By Category:", stats.ByCategory)
	printCounts(q.out, "By Action:", stats.ByAction)
	return nil
}

func (q query) scans(limit int) error {
	scans, err := q.db.GetRecentScans(limit)
	if err != nil {
		return fmt.Errorf("query scans: %w", err)
	}
	if q.json {
		return q.emitJSON(scans)
	}
	if len(scans) == 0 {
		fmt.Fprintln(q.out, "No scans found")
		return nil
	}
	w := tabwriter.NewWriter(q.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Started\tFlow\tFiles\tSize\tDuration\tNote")
	for _, s := range scans {
		note := s.Error
		if note == "" && s.Truncated {
			note = "budget reached"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			s.StartedAt.Format("2006-01-02 15:04:05"), s.Flow, s.Files,
			humanize.IBytes(uint64(s.Bytes)), s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond), note)
	}
	return w.Flush()
}

func (q query) prune(days int) error {
	n, err := q.db.DeleteOldRecords(days)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	if err := q.db.Vacuum(); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	fmt.Fprintf(q.out, "Removed %d records older than %d days\n", n, days)
	return nil
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-15s %d\n", k, counts[k])
	}
	fmt.Fprintln(w)
}

func printRecords(out io.Writer, records []database.DeletionRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tAction\tCategory\tReason\tSize\tPath")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t--------\t------\t----\t----")

	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Action, r.Category,
			classify.ParseReason(r.Reason).ToHumanReadable(), humanize.IBytes(uint64(r.Size)), r.Path)
	}
	_ = w.Flush()
}
