package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mobile-clean/internal/api"
	"mobile-clean/internal/disk"
	"mobile-clean/internal/exitcodes"
	"mobile-clean/internal/limiter"
	"mobile-clean/internal/mediaindex"
	"mobile-clean/internal/metrics"
	"mobile-clean/internal/scan"
	"mobile-clean/internal/scheduler"
)

var (
	autoOnce     bool
	tokenSubject string
	tokenRoles   []string
	tokenTTL     time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show capacity of the storage root",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		u, err := disk.Stat(cmd.Context(), a.cfg.StorageRoot)
		if err != nil {
			return withCode(exitcodes.RuntimeError, err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), u)
		}
		printUsage(cmd.OutOrStdout(), u)
		return nil
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the media catalogue used by large-file scans",
}

var indexRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the media catalogue from the storage root",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		a.openIndex()
		if a.index == nil {
			return withCode(exitcodes.RuntimeError, fmt.Errorf("cannot open media index %s", a.cfg.MediaIndexPath))
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		start := time.Now()
		ix := &mediaindex.Indexer{Store: a.index, Logger: a.logger, SkipDir: mediaindex.HiddenDir}
		n, err := ix.Refresh(ctx, a.cfg.StorageRoot)
		if err != nil {
			return withCode(exitcodes.ForError(err), fmt.Errorf("refresh index: %w", err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.render(fmt.Sprintf("Indexed %d media files in %s", n, time.Since(start).Round(time.Millisecond))))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP and WebSocket API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		a.openIndex()

		junk, err := scan.NewJunkScanner(a.cfg, limiter.Millis(*a.cfg.Scan.RootDelayMS), a.logger)
		if err != nil {
			return withCode(exitcodes.InvalidConfig, err)
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()
		startMetrics(a)
		defer stopMetrics(a)

		srv := api.New(api.Deps{
			Junk:        junk,
			Large:       scan.NewLargeScanner(a.cfg, a.mediaIndex(), a.logger),
			Images:      scan.NewImageScanner(a.mediaIndex(), a.logger),
			Catalog:     a.catalog(),
			Engine:      a.engine(),
			DB:          a.db,
			StorageRoot: a.cfg.StorageRoot,
			Logger:      a.logger,
		}, api.Options{
			Address:        a.cfg.API.Address,
			RateLimitRPS:   float64(a.cfg.API.RateLimitRPS),
			RateLimitBurst: a.cfg.API.RateLimitBurst,
			JWTSecret:      a.cfg.API.JWTSecret,
		})
		if err := srv.ListenAndServe(ctx); err != nil {
			return withCode(exitcodes.RuntimeError, err)
		}
		return nil
	},
}

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Scan and clean junk on the configured interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		junk, err := scan.NewJunkScanner(a.cfg, limiter.Millis(*a.cfg.Scan.RootDelayMS), a.logger)
		if err != nil {
			return withCode(exitcodes.InvalidConfig, err)
		}
		s := &scheduler.Scheduler{
			Scanner:     junk,
			Engine:      a.engine(),
			DB:          a.db,
			StorageRoot: a.cfg.StorageRoot,
			Interval:    a.cfg.Interval(),
			Logger:      a.logger,
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		if a.cfg.Clean.DryRun {
			a.logger.Infow("DRY RUN MODE: no files will be deleted")
		}
		if autoOnce {
			c, err := s.RunOnce(ctx)
			if err != nil {
				return withCode(exitcodes.ForError(err), err)
			}
			return reportClean(cmd, c.Clean, a.cfg.Clean.DryRun)
		}

		startMetrics(a)
		defer stopMetrics(a)
		a.logger.Infow("Scheduler starting", "interval", a.cfg.Interval().String())
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return withCode(exitcodes.RuntimeError, err)
		}
		a.logger.Infow("Scheduler stopped")
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token signed with api.jwt_secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return withCode(exitcodes.InvalidConfig, err)
		}
		if cfg.API.JWTSecret == "" {
			return withCode(exitcodes.InvalidConfig, errors.New("api.jwt_secret is not set"))
		}
		tok, err := api.NewTokenManager(cfg.API.JWTSecret).Generate(tokenSubject, tokenRoles, tokenTTL)
		if err != nil {
			return withCode(exitcodes.InvalidConfig, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	indexCmd.AddCommand(indexRefreshCmd)
	autoCmd.Flags().BoolVar(&autoOnce, "once", false, "Run one cycle and exit")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "cli", "Token subject")
	tokenCmd.Flags().StringSliceVar(&tokenRoles, "role", []string{api.RoleViewer}, "Roles: viewer, operator")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}

func startMetrics(a *app) {
	if a.cfg.Prometheus.Port <= 0 {
		return
	}
	metrics.Init()
	metrics.StartServer(a.cfg.PrometheusAddress(), a.logger)
}

func stopMetrics(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metrics.Shutdown(ctx, a.logger)
}
