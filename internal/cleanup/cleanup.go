// Package cleanup deletes the files a consumer selected and reports progress
// through a CleanListener. Every target is checked by a safety.Validator and
// every outcome is written to the deletion history when one is configured.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"mobile-clean/internal/database"
	"mobile-clean/internal/events"
	"mobile-clean/internal/fsops"
	"mobile-clean/internal/limiter"
	"mobile-clean/internal/metrics"
	"mobile-clean/internal/model"
	"mobile-clean/internal/safety"
)

// Logger is the subset of *zap.SugaredLogger used by the engine.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// MissingPolicy decides how a target that no longer exists is counted.
type MissingPolicy int

const (
	// MissingCountsAsDeleted counts a vanished file as deleted. Used by the
	// junk flow, where the goal is that the file is gone.
	MissingCountsAsDeleted MissingPolicy = iota
	// MissingNotCounted requires the file to exist before removal. Used by
	// the large-file flow.
	MissingNotCounted
)

func (p MissingPolicy) flow() model.Flow {
	if p == MissingNotCounted {
		return model.FlowLarge
	}
	return model.FlowJunk
}

// Failure is one target that was not deleted.
type Failure struct {
	Path   string
	Action string
	Err    error
}

// Result aggregates one clean run.
type Result struct {
	SessionID    string
	DeletedCount int
	DeletedSize  int64
	Success      bool
	// Deleted lists the paths counted as deleted, in processing order.
	Deleted  []string
	Failed   []Failure
	Err      error
	Duration time.Duration
}

type sessionKey struct{}

// WithSessionID makes Clean record its history rows under id, so a scan and
// the clean that follows it share one session.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

func sessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey{}).(string)
	return id, ok && id != ""
}

// Engine removes descriptors from disk.
type Engine struct {
	fs        fsops.FS
	validator *safety.Validator
	db        *database.DeletionDB
	pacer     limiter.Pacer
	logger    Logger
	dryRun    bool

	// NewSessionID names each run in the history. Defaults to a random UUID.
	NewSessionID func() string
}

// NewEngine returns an engine using the real filesystem. db may be nil.
func NewEngine(validator *safety.Validator, db *database.DeletionDB, pacer limiter.Pacer, logger Logger, dryRun bool) *Engine {
	if pacer == nil {
		pacer = limiter.Noop{}
	}
	return &Engine{
		fs:           fsops.OSFS{},
		validator:    validator,
		db:           db,
		pacer:        pacer,
		logger:       logger,
		dryRun:       dryRun,
		NewSessionID: uuid.NewString,
	}
}

// SetFS swaps the filesystem, e.g. for fsops.FakeFS in tests.
func (e *Engine) SetFS(f fsops.FS) {
	e.fs = f
}

// SetValidator swaps the safety validator.
func (e *Engine) SetValidator(v *safety.Validator) {
	e.validator = v
}

// DryRun reports whether the engine only simulates removals.
func (e *Engine) DryRun() bool {
	return e.dryRun
}

// CleanJunk deletes junk-flow selections.
func (e *Engine) CleanJunk(ctx context.Context, files []model.Descriptor, l events.CleanListener) Result {
	return e.Clean(ctx, files, MissingCountsAsDeleted, l)
}

// DeleteLarge deletes large-file selections.
func (e *Engine) DeleteLarge(ctx context.Context, files []model.Descriptor, l events.CleanListener) Result {
	return e.Clean(ctx, files, MissingNotCounted, l)
}

// Catalog is the media catalogue rows are dropped from after their files
// are deleted.
type Catalog interface {
	Delete(ctx context.Context, paths []string) (int, error)
}

// DeleteImages deletes image selections like DeleteLarge, then drops the
// deleted files from catalog. Dry runs leave the catalogue untouched.
func (e *Engine) DeleteImages(ctx context.Context, files []model.Descriptor, catalog Catalog, l events.CleanListener) Result {
	res := e.DeleteLarge(ctx, files, l)
	if e.dryRun || catalog == nil || len(res.Deleted) == 0 {
		return res
	}
	n, err := catalog.Delete(context.WithoutCancel(ctx), res.Deleted)
	if err != nil {
		metrics.RecordError()
		e.logger.Errorw("Failed to drop deleted images from catalogue",
			"session", res.SessionID,
			"paths", len(res.Deleted),
			"error", err,
		)
		return res
	}
	e.logger.Debugw("Dropped catalogue records", "session", res.SessionID, "records", n)
	return res
}

// Clean processes files in order. Per-file failures are recorded and the
// batch continues. Cancellation or a panic stops the batch and is reported
// through OnCleanError instead of OnCleanCompleted.
func (e *Engine) Clean(ctx context.Context, files []model.Descriptor, policy MissingPolicy, l events.CleanListener) (res Result) {
	start := time.Now()
	if id, ok := sessionID(ctx); ok {
		res.SessionID = id
	} else {
		res.SessionID = e.NewSessionID()
	}
	flow := policy.flow()

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("clean panicked: %v", r)
			e.logger.Errorw("Cleanup panicked", "session", res.SessionID, "panic", r)
			l.OnCleanError(res.Err)
		}
		res.Duration = time.Since(start)
		res.Success = res.DeletedCount > 0
		metrics.RecordClean(flow.String(), res.Duration)
	}()

	e.logger.Infow("Starting cleanup",
		"session", res.SessionID,
		"flow", flow.String(),
		"total_candidates", len(files),
		"dry_run", e.dryRun,
	)
	l.OnCleanStarted()

	n := len(files)
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return e.abort(res, l, err)
		}
		l.OnCleanProgress(i*100/n, f.Name)
		if err := e.pacer.Wait(ctx); err != nil {
			return e.abort(res, l, err)
		}

		action, counted, err := e.deleteOne(f, policy)
		e.record(res.SessionID, action, f, err)

		if counted {
			res.DeletedCount++
			res.DeletedSize += f.Size
			res.Deleted = append(res.Deleted, f.Path)
		} else {
			res.Failed = append(res.Failed, Failure{Path: f.Path, Action: action, Err: err})
		}
	}

	e.logger.Infow("Cleanup complete",
		"session", res.SessionID,
		"success", res.DeletedCount,
		"errors", len(res.Failed),
		"space_freed_bytes", res.DeletedSize,
		"space_freed_mb", res.DeletedSize/1024/1024,
	)
	l.OnCleanCompleted(res.DeletedCount, res.DeletedSize)
	return res
}

func (e *Engine) abort(res Result, l events.CleanListener, err error) Result {
	res.Err = err
	e.logger.Warnw("Cleanup aborted",
		"session", res.SessionID,
		"deleted", res.DeletedCount,
		"error", err,
	)
	l.OnCleanError(err)
	return res
}

// errMissing marks a target that no longer exists under MissingNotCounted.
var errMissing = errors.New("file no longer exists")

// deleteOne returns the history action, whether the target counts as
// deleted, and the failure cause if any.
func (e *Engine) deleteOne(f model.Descriptor, policy MissingPolicy) (string, bool, error) {
	if e.validator != nil {
		if err := e.validator.ValidateDeleteTarget(f.Path); err != nil {
			return database.ActionSkip, false, err
		}
	}

	info, err := e.fs.Lstat(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if policy == MissingCountsAsDeleted {
				return database.ActionMissing, true, nil
			}
			return database.ActionMissing, false, errMissing
		}
		return database.ActionError, false, err
	}

	if e.dryRun {
		return database.ActionDryRun, true, nil
	}

	if info.IsDir() {
		err = e.removeTree(f.Path)
	} else {
		err = e.fs.Remove(f.Path)
	}
	if err != nil {
		return database.ActionError, false, err
	}
	return database.ActionDelete, true, nil
}

// removeTree removes children before their directory. A failed child does
// not stop the attempt on its parent.
func (e *Engine) removeTree(dir string) error {
	var errs []error
	entries, err := e.fs.ReadDir(dir)
	if err != nil {
		errs = append(errs, err)
	}
	for _, entry := range entries {
		child := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if err := e.removeTree(child); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := e.fs.Remove(child); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.fs.Remove(dir); err != nil {
		return errors.Join(append([]error{err}, errs...)...)
	}
	return nil
}

func (e *Engine) record(sessionID, action string, f model.Descriptor, cause error) {
	kv := []interface{}{
		"action", action,
		"path", f.Path,
		"size", f.Size,
		"category", f.Category.String(),
		"session", sessionID,
	}
	if f.Reason != "" {
		kv = append(kv, "reason", f.Reason)
	}

	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
		kv = append(kv, "error", errMsg)
		e.logger.Warnw("Cleanup target not deleted", kv...)
	} else {
		e.logger.Infow("Cleanup action", kv...)
	}

	metrics.RecordOutcome(action, f.Category.String(), f.Size, action == database.ActionDelete)

	if e.db == nil {
		return
	}
	if err := e.db.RecordDeletion(sessionID, action, f, errMsg); err != nil {
		e.logger.Errorw("Failed to record to database", "path", f.Path, "error", err)
	}
}
