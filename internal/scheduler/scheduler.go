// Package scheduler runs unattended junk cleanups: scan, select everything
// found, clean, and repeat on an interval.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"mobile-clean/internal/cleanup"
	"mobile-clean/internal/database"
	"mobile-clean/internal/disk"
	"mobile-clean/internal/metrics"
	"mobile-clean/internal/model"
	"mobile-clean/internal/scan"
	"mobile-clean/internal/session"
)

// Logger is the subset of *zap.SugaredLogger used by the scheduler.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// Scheduler ties a junk scanner to a deletion engine.
type Scheduler struct {
	Scanner     *scan.JunkScanner
	Engine      *cleanup.Engine
	DB          *database.DeletionDB
	StorageRoot string
	Interval    time.Duration
	Logger      Logger
}

// Cycle is the outcome of one RunOnce.
type Cycle struct {
	SessionID string
	Scan      scan.Result
	Clean     cleanup.Result
	Usage     *disk.Usage
}

// RunOnce performs one scan-and-clean cycle. A failed scan skips the clean.
func (s *Scheduler) RunOnce(ctx context.Context) (Cycle, error) {
	if s.Scanner == nil || s.Engine == nil {
		return Cycle{}, errors.New("scheduler is missing a scanner or engine")
	}
	if err := ctx.Err(); err != nil {
		return Cycle{}, err
	}

	c := Cycle{SessionID: uuid.NewString()}
	c.Usage = s.updateStorage(ctx)

	sess := session.NewScanSession()
	c.Scan = s.Scanner.Run(ctx, sess)
	s.recordScan(c.SessionID, c.Scan)
	if c.Scan.Err != nil {
		return c, c.Scan.Err
	}

	selected := sess.Selected()
	c.Clean = s.Engine.CleanJunk(cleanup.WithSessionID(ctx, c.SessionID), selected, session.NewCleanSession())
	if c.Clean.Err != nil {
		return c, c.Clean.Err
	}

	s.Logger.Infow("Cycle complete",
		"session", c.SessionID,
		"candidates", c.Scan.Count,
		"deleted", c.Clean.DeletedCount,
		"freed_bytes", c.Clean.DeletedSize,
		"failed", len(c.Clean.Failed),
		"truncated", c.Scan.Truncated,
		"dry_run", s.Engine.DryRun(),
	)
	return c, nil
}

// Run calls RunOnce immediately and then every Interval until ctx is done.
// Cycle errors are logged, not returned.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}

	if _, err := s.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.Logger.Errorw("Error running cycle", "error", err)
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Infow("Scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.Logger.Errorw("Error running cycle", "error", err)
			}
		}
	}
}

func (s *Scheduler) updateStorage(ctx context.Context) *disk.Usage {
	if s.StorageRoot == "" {
		return nil
	}
	u, err := disk.Stat(ctx, s.StorageRoot)
	if err != nil {
		s.Logger.Warnw("Failed to read storage usage", "path", s.StorageRoot, "error", err)
		return nil
	}
	metrics.UpdateStorage(u)
	s.Logger.Infow("Storage status", "path", u.Path, "used_percent", u.UsedPercent, "status", u.Status.String())
	return &u
}

func (s *Scheduler) recordScan(sessionID string, r scan.Result) {
	if s.DB == nil {
		return
	}
	rec := database.ScanRecord{
		SessionID:  sessionID,
		Flow:       model.FlowJunk.String(),
		StartedAt:  r.Started,
		FinishedAt: r.Finished,
		Files:      r.Count,
		Bytes:      r.Size,
		Truncated:  r.Truncated,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	if err := s.DB.RecordScan(rec); err != nil {
		s.Logger.Errorw("Failed to record scan", "session", sessionID, "error", err)
	}
}
