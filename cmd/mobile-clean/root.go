package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mobile-clean/internal/cleanup"
	"mobile-clean/internal/config"
	"mobile-clean/internal/database"
	"mobile-clean/internal/exitcodes"
	"mobile-clean/internal/limiter"
	"mobile-clean/internal/logging"
	"mobile-clean/internal/mediaindex"
	"mobile-clean/internal/safety"
)

var (
	configPath string
	dryRun     bool
	debug      bool
	jsonOutput bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "mobile-clean",
	Short: "Reclaim space on a mobile storage volume",
	Long: `mobile-clean finds junk (caches, logs, temp files, stale APKs) and
large files (media, documents, archives, downloads) under a storage root
and deletes the ones you select. Photos can also be reviewed by day.`,
	Version:       version + " (" + commit + ")",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (defaults plus MOBILECLEAN_* environment when empty)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Report what would be deleted without deleting")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Show detailed operation logs")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(junkCmd)
	rootCmd.AddCommand(largeCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(autoCmd)
	rootCmd.AddCommand(tokenCmd)
}

// exitError carries a process exit code out of a RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil && code == exitcodes.Success {
		return nil
	}
	if err == nil {
		err = fmt.Errorf("exit status %d", code)
	}
	return &exitError{code: code, err: err}
}

func execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitcodes.Success
	}
	fmt.Fprintln(os.Stderr, errorStyle.render("Error: "+err.Error()))
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitcodes.RuntimeError
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
	db     *database.DeletionDB
	index  *mediaindex.SQLiteIndex
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default()
	}
	return config.Load(configPath)
}

// newApp loads configuration and opens the history database. Commands that
// need the media index call openIndex.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, withCode(exitcodes.InvalidConfig, fmt.Errorf("load config: %w", err))
	}
	if dryRun {
		cfg.Clean.DryRun = true
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	initStyles()

	logger, err := logging.New(cfg.Logging, "stderr")
	if err != nil {
		return nil, withCode(exitcodes.InvalidConfig, fmt.Errorf("init logging: %w", err))
	}

	a := &app{cfg: cfg, logger: logger}
	a.db, err = database.NewDeletionDB(cfg.DatabasePath)
	if err != nil {
		// history is an audit trail, not a precondition for cleaning
		logger.Warnw("History database unavailable", "path", cfg.DatabasePath, "error", err)
		a.db = nil
	}
	return a, nil
}

func (a *app) openIndex() {
	idx, err := mediaindex.Open(a.cfg.MediaIndexPath)
	if err != nil {
		a.logger.Warnw("Media index unavailable, media categories will be empty", "path", a.cfg.MediaIndexPath, "error", err)
		return
	}
	a.index = idx
}

// mediaIndex returns the index as the scanner's interface, nil when closed.
func (a *app) mediaIndex() mediaindex.Index {
	if a.index == nil {
		return nil
	}
	return a.index
}

// catalog returns the index as the engine's catalogue, nil when closed.
func (a *app) catalog() cleanup.Catalog {
	if a.index == nil {
		return nil
	}
	return a.index
}

func (a *app) engine() *cleanup.Engine {
	validator := safety.NewValidator(a.cfg.AllowedRoots(), a.cfg.ProtectedPaths)
	return cleanup.NewEngine(validator, a.db, limiter.Millis(*a.cfg.Clean.ItemDelayMS), a.logger, a.cfg.Clean.DryRun)
}

func (a *app) close() {
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.logger.Errorw("Failed to close media index", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Errorw("Failed to close database", "error", err)
		}
	}
	_ = a.logger.Sync()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
