package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mobile-clean/internal/events"
	"mobile-clean/internal/exitcodes"
	"mobile-clean/internal/scan"
	"mobile-clean/internal/session"
)

var (
	imageDays []string
	imageAll  bool
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Review and delete photos by the day they were taken",
}

var imagesScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List catalogued images grouped by day",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		sess, err := runImageScan(cmd, a)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), sess.Snapshot())
		}
		printImageGroups(cmd.OutOrStdout(), sess.Snapshot())
		return nil
	},
}

var imagesCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete the images of the given days",
	Long: `Delete the images of every --day, or all images with --all. Without
--yes (and without --dry-run) the selection is only listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		sess, err := runImageScan(cmd, a)
		if err != nil {
			return err
		}
		if err := selectImages(sess, imageAll, imageDays); err != nil {
			return withCode(exitcodes.InvalidConfig, err)
		}
		files := sess.Selected()
		if !assumeYes && !a.cfg.Clean.DryRun {
			printFiles(cmd.OutOrStdout(), files)
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.render("Re-run with --yes to delete these images."))
			return nil
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()
		listener := events.Multi(session.NewCleanSession(), progressPrinter(os.Stderr, isTerminal(os.Stderr)))
		res := a.engine().DeleteImages(ctx, files, a.catalog(), listener)
		return reportClean(cmd, res, a.cfg.Clean.DryRun)
	},
}

func init() {
	imagesCleanCmd.Flags().StringSliceVar(&imageDays, "day", nil, "Day to delete, as "+session.DayLayout+" (repeatable)")
	imagesCleanCmd.Flags().BoolVar(&imageAll, "all", false, "Delete every catalogued image")
	imagesCleanCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Delete without listing first")
	imagesCmd.AddCommand(imagesScanCmd)
	imagesCmd.AddCommand(imagesCleanCmd)
}

func runImageScan(cmd *cobra.Command, a *app) (*session.ImageSession, error) {
	a.openIndex()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	files, err := scan.NewImageScanner(a.mediaIndex(), a.logger).Scan(ctx)
	if err != nil {
		return nil, withCode(exitcodes.ForError(err), fmt.Errorf("image scan: %w", err))
	}
	sess := session.NewImageSession()
	sess.SetImages(files)
	return sess, nil
}

// selectImages selects everything when all is set, otherwise every image of
// the given days.
func selectImages(sess *session.ImageSession, all bool, days []string) error {
	if all {
		if !sess.AllSelected() {
			sess.ToggleAll()
		}
		return nil
	}
	if len(days) == 0 {
		return fmt.Errorf("nothing selected, pass --day or --all")
	}
	for _, day := range days {
		if !sess.ToggleDay(day) {
			return fmt.Errorf("no images on %q", day)
		}
	}
	return nil
}

func printImageGroups(w io.Writer, snap session.ImageSnapshot) {
	fmt.Fprintln(w, headerStyle.render(fmt.Sprintf("Images: %d files, %s",
		snap.TotalCount, humanize.IBytes(uint64(snap.TotalSize)))))
	if snap.TotalCount == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, g := range snap.Groups {
		fmt.Fprintf(tw, "  %s\t%d files\t%s\n", g.Date, len(g.Files), humanize.IBytes(uint64(g.Size)))
	}
	_ = tw.Flush()
}
