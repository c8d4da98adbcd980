package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"mobile-clean/internal/cleanup"
	"mobile-clean/internal/disk"
	"mobile-clean/internal/events"
	"mobile-clean/internal/model"
	"mobile-clean/internal/session"
)

var (
	clrGreen  = lipgloss.AdaptiveColor{Light: "#16a34a", Dark: "#4ade80"}
	clrYellow = lipgloss.AdaptiveColor{Light: "#ca8a04", Dark: "#facc15"}
	clrOrange = lipgloss.AdaptiveColor{Light: "#ea580c", Dark: "#fb923c"}
	clrRed    = lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"}
	clrCyan   = lipgloss.AdaptiveColor{Light: "#0891b2", Dark: "#22d3ee"}
	clrMuted  = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
)

// style renders through lipgloss only when color is enabled.
type style struct {
	lipgloss.Style
}

var colorEnabled = true

func (s style) render(text string) string {
	if !colorEnabled {
		return text
	}
	return s.Render(text)
}

var (
	headerStyle  = style{lipgloss.NewStyle().Bold(true).Foreground(clrCyan)}
	okStyle      = style{lipgloss.NewStyle().Foreground(clrGreen)}
	warnStyle    = style{lipgloss.NewStyle().Foreground(clrYellow)}
	errorStyle   = style{lipgloss.NewStyle().Bold(true).Foreground(clrRed)}
	mutedStyle   = style{lipgloss.NewStyle().Foreground(clrMuted)}
	dryRunBanner = style{lipgloss.NewStyle().Bold(true).Foreground(clrOrange)}
)

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func initStyles() {
	colorEnabled = !noColor && os.Getenv("NO_COLOR") == "" && isTerminal(os.Stdout)
}

func statusStyle(s disk.Status) style {
	switch s {
	case disk.Excellent, disk.Good:
		return okStyle
	case disk.Warning:
		return warnStyle
	default:
		return errorStyle
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// progressPrinter redraws one status line on stderr while a scan or clean
// runs. It is silent when stderr is not a terminal.
func progressPrinter(w io.Writer, enabled bool) events.Func {
	return func(e events.Event) {
		if !enabled {
			return
		}
		switch ev := e.(type) {
		case events.ScanProgress:
			fmt.Fprintf(w, "\r\033[K%s %s", mutedStyle.render(fmt.Sprintf("[%3d%%] scanning", ev.Percent)), ev.Path)
		case events.CleanProgress:
			fmt.Fprintf(w, "\r\033[K%s %s", mutedStyle.render(fmt.Sprintf("[%3d%%] deleting", ev.Percent)), ev.Name)
		case events.ScanCompleted, events.ScanError, events.CleanCompleted, events.CleanError:
			fmt.Fprint(w, "\r\033[K")
		}
	}
}

func printGroups(w io.Writer, snap session.Snapshot) {
	fmt.Fprintln(w, headerStyle.render(fmt.Sprintf("Junk found: %d files, %s",
		snap.TotalCount, humanize.IBytes(uint64(snap.TotalSize)))))
	if snap.TotalCount == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, g := range snap.Groups {
		if len(g.Files) == 0 {
			continue
		}
		fmt.Fprintf(tw, "  %s\t%d files\t%s\n", g.Label, len(g.Files), humanize.IBytes(uint64(g.Size)))
	}
	_ = tw.Flush()
}

func printFiles(w io.Writer, files []model.Descriptor) {
	if len(files) == 0 {
		fmt.Fprintln(w, mutedStyle.render("No files found"))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSIZE\tMODIFIED\tPATH")
	for _, f := range files {
		modified := "-"
		if !f.Timestamp.IsZero() {
			modified = humanize.Time(f.Timestamp)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Category.Label(), humanize.IBytes(uint64(f.Size)), modified, f.Path)
	}
	_ = tw.Flush()
	fmt.Fprintln(w, headerStyle.render(fmt.Sprintf("%d files, %s", len(files), humanize.IBytes(uint64(model.TotalSize(files))))))
}

func printCleanResult(w io.Writer, res cleanup.Result, dry bool) {
	size := humanize.IBytes(uint64(res.DeletedSize))
	line := fmt.Sprintf("Deleted %d files, freed %s", res.DeletedCount, size)
	if dry {
		fmt.Fprintln(w, dryRunBanner.render("DRY RUN: nothing was deleted"))
		line = fmt.Sprintf("Would delete %d files, %s", res.DeletedCount, size)
	}
	fmt.Fprintln(w, okStyle.render(line))
	for _, f := range res.Failed {
		fmt.Fprintf(w, "  %s %s: %v\n", warnStyle.render(f.Action), filepath.Base(f.Path), f.Err)
	}
	if res.Err != nil {
		fmt.Fprintln(w, errorStyle.render("Stopped: "+res.Err.Error()))
	}
	fmt.Fprintln(w, mutedStyle.render("session "+res.SessionID))
}

func printUsage(w io.Writer, u disk.Usage) {
	bar := usageBar(u.UsedPercent, 30)
	fmt.Fprintf(w, "%s\n", headerStyle.render(u.Path))
	fmt.Fprintf(w, "  %s %s\n", statusStyle(u.Status).render(bar), statusStyle(u.Status).render(u.Status.String()))
	fmt.Fprintf(w, "  %s used of %s, %s free (%.1f%%)\n",
		humanize.Bytes(u.Used), humanize.Bytes(u.Total), humanize.Bytes(u.Free), u.UsedPercent)
}

func usageBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
