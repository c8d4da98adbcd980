package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mobile-clean/internal/cleanup"
	"mobile-clean/internal/events"
	"mobile-clean/internal/exitcodes"
	"mobile-clean/internal/limiter"
	"mobile-clean/internal/model"
	"mobile-clean/internal/scan"
	"mobile-clean/internal/session"
)

var junkCategories []string

var junkCmd = &cobra.Command{
	Use:   "junk",
	Short: "Find and remove caches, logs, temp files and stale packages",
}

var junkScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List junk files without deleting anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		sess, res, err := runJunkScan(cmd, a)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), sess.Snapshot())
		}
		printGroups(cmd.OutOrStdout(), sess.Snapshot())
		if res.Truncated {
			fmt.Fprintln(cmd.OutOrStdout(), warnStyle.render("Scan stopped early: size budget reached"))
		}
		return nil
	},
}

var junkCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Scan for junk and delete it",
	Long: `Scan for junk and delete every file found. --category limits the
deletion to the named categories (app_cache, apk_files, log_files,
temp_files, other).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		sess, _, err := runJunkScan(cmd, a)
		if err != nil {
			return err
		}
		if err := selectCategories(sess, junkCategories); err != nil {
			return withCode(exitcodes.InvalidConfig, err)
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()
		listener := events.Multi(session.NewCleanSession(), progressPrinter(os.Stderr, isTerminal(os.Stderr)))
		res := a.engine().CleanJunk(ctx, sess.Selected(), listener)
		return reportClean(cmd, res, a.cfg.Clean.DryRun)
	},
}

func init() {
	junkCleanCmd.Flags().StringSliceVar(&junkCategories, "category", nil, "Only delete these junk categories")
	junkCmd.AddCommand(junkScanCmd)
	junkCmd.AddCommand(junkCleanCmd)
}

func runJunkScan(cmd *cobra.Command, a *app) (*session.ScanSession, scan.Result, error) {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	scanner, err := scan.NewJunkScanner(a.cfg, limiter.Millis(*a.cfg.Scan.RootDelayMS), a.logger)
	if err != nil {
		return nil, scan.Result{}, withCode(exitcodes.InvalidConfig, err)
	}
	sess := session.NewScanSession()
	res := scanner.Run(ctx, events.Multi(sess, progressPrinter(os.Stderr, isTerminal(os.Stderr))))
	if res.Err != nil {
		return nil, res, withCode(exitcodes.ForError(res.Err), fmt.Errorf("junk scan: %w", res.Err))
	}
	return sess, res, nil
}

// selectCategories narrows the post-scan selection (everything) to names.
func selectCategories(sess *session.ScanSession, names []string) error {
	if len(names) == 0 {
		return nil
	}
	keep := make(map[model.Category]bool, len(names))
	for _, n := range names {
		cat, ok := model.ParseCategory(n)
		if !ok || cat.Flow() != model.FlowJunk {
			return fmt.Errorf("unknown junk category %q", n)
		}
		keep[cat] = true
	}
	for _, cat := range model.JunkCategories() {
		if keep[cat] {
			continue
		}
		if err := sess.ToggleCategory(cat); err != nil {
			return err
		}
	}
	return nil
}

func reportClean(cmd *cobra.Command, res cleanup.Result, dry bool) error {
	if jsonOutput {
		if err := printJSON(cmd.OutOrStdout(), cleanReport(res, dry)); err != nil {
			return err
		}
	} else {
		printCleanResult(cmd.OutOrStdout(), res, dry)
	}

	if res.Err != nil {
		return withCode(exitcodes.ForError(res.Err), fmt.Errorf("clean: %w", res.Err))
	}
	errs := make([]error, 0, len(res.Failed))
	for _, f := range res.Failed {
		errs = append(errs, f.Err)
	}
	if code := exitcodes.ForFailures(errs); code != exitcodes.Success {
		return withCode(code, fmt.Errorf("%d of %d targets not deleted", len(res.Failed), len(res.Failed)+res.DeletedCount))
	}
	return nil
}

type failureReport struct {
	Path   string `json:"path"`
	Action string `json:"action"`
	Error  string `json:"error,omitempty"`
}

type cleanReportJSON struct {
	SessionID    string          `json:"session_id"`
	DryRun       bool            `json:"dry_run"`
	DeletedCount int             `json:"deleted_count"`
	DeletedSize  int64           `json:"deleted_size"`
	Deleted      []string        `json:"deleted"`
	Failed       []failureReport `json:"failed,omitempty"`
	Error        string          `json:"error,omitempty"`
}

func cleanReport(res cleanup.Result, dry bool) cleanReportJSON {
	out := cleanReportJSON{
		SessionID:    res.SessionID,
		DryRun:       dry,
		DeletedCount: res.DeletedCount,
		DeletedSize:  res.DeletedSize,
		Deleted:      res.Deleted,
	}
	for _, f := range res.Failed {
		fr := failureReport{Path: f.Path, Action: f.Action}
		if f.Err != nil {
			fr.Error = f.Err.Error()
		}
		out.Failed = append(out.Failed, fr)
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}
