package main

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mobile-clean/internal/events"
	"mobile-clean/internal/exitcodes"
	"mobile-clean/internal/filter"
	"mobile-clean/internal/model"
	"mobile-clean/internal/scan"
	"mobile-clean/internal/session"
)

var (
	largeType string
	largeSize string
	largeTime string
	assumeYes bool
)

var largeCmd = &cobra.Command{
	Use:   "large",
	Short: "Find and remove large media, documents, archives and downloads",
}

var largeScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List large files matching the filter",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		files, err := runLargeScan(cmd, a)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), files)
		}
		printFiles(cmd.OutOrStdout(), files)
		return nil
	},
}

var largeCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete every large file matching the filter",
	Long: `Delete every large file matching the filter. Without --yes (and
without --dry-run) the matching files are only listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		files, err := runLargeScan(cmd, a)
		if err != nil {
			return err
		}
		if !assumeYes && !a.cfg.Clean.DryRun {
			printFiles(cmd.OutOrStdout(), files)
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.render("Re-run with --yes to delete these files."))
			return nil
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()
		listener := events.Multi(session.NewCleanSession(), progressPrinter(os.Stderr, isTerminal(os.Stderr)))
		res := a.engine().DeleteLarge(ctx, files, listener)
		return reportClean(cmd, res, a.cfg.Clean.DryRun)
	},
}

func init() {
	for _, c := range []*cobra.Command{largeScanCmd, largeCleanCmd} {
		c.Flags().StringVar(&largeType, "type", filter.AllTypes, "File type: "+strings.Join(filter.TypeLabels(), ", "))
		c.Flags().StringVar(&largeSize, "size", filter.AllSize, "Size threshold: "+strings.Join(filter.SizeLabels(), ", "))
		c.Flags().StringVar(&largeTime, "time", filter.AllTime, "Age window: "+strings.Join(filter.TimeLabels(), ", "))
	}
	largeCleanCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Delete without listing first")
	largeCmd.AddCommand(largeScanCmd)
	largeCmd.AddCommand(largeCleanCmd)
}

// parseFilter validates labels against the filter vocabulary. Category keys
// such as "video" are accepted for the type axis.
func parseFilter(typ, size, age string) (filter.Filter, error) {
	f := filter.Default()
	switch {
	case typ == "" || typ == filter.All:
	case slices.Contains(filter.TypeLabels(), typ):
		f.Type = typ
	default:
		cat, ok := model.ParseCategory(typ)
		if !ok || cat.Flow() != model.FlowLarge {
			return f, fmt.Errorf("unknown type %q", typ)
		}
		f.Type = cat.Label()
	}
	if size != "" && size != filter.All {
		if !slices.Contains(filter.SizeLabels(), size) {
			return f, fmt.Errorf("unknown size %q", size)
		}
		f.Size = size
	}
	if age != "" && age != filter.All {
		if !slices.Contains(filter.TimeLabels(), age) {
			return f, fmt.Errorf("unknown time window %q", age)
		}
		f.Time = age
	}
	return f, nil
}

func runLargeScan(cmd *cobra.Command, a *app) ([]model.Descriptor, error) {
	f, err := parseFilter(largeType, largeSize, largeTime)
	if err != nil {
		return nil, withCode(exitcodes.InvalidConfig, err)
	}
	a.openIndex()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	files, err := scan.NewLargeScanner(a.cfg, a.mediaIndex(), a.logger).Scan(ctx)
	if err != nil {
		if len(files) == 0 {
			return nil, withCode(exitcodes.ForError(err), fmt.Errorf("large scan: %w", err))
		}
		a.logger.Warnw("Large scan incomplete", "error", err, "files", len(files))
	}
	return filter.Apply(files, f, time.Now()), nil
}
