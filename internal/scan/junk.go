// Package scan runs the two discovery flows: the budgeted, event-driven junk
// scan over a fixed list of roots, and the one-shot large-file scan.
package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"mobile-clean/internal/classify"
	"mobile-clean/internal/config"
	"mobile-clean/internal/events"
	"mobile-clean/internal/limiter"
	"mobile-clean/internal/metrics"
	"mobile-clean/internal/model"
	"mobile-clean/internal/walk"
)

// Logger is the subset of *zap.SugaredLogger used by the scanners.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// ErrStorageRoot is reported when the first root cannot be scanned at all.
var ErrStorageRoot = errors.New("storage root is not a readable directory")

// BudgetPolicy decides what happens to the remaining roots once the junk
// size budget is exceeded. The root being walked always stops.
type BudgetPolicy int

const (
	// BudgetContinue still visits later roots; each stops after its first
	// new file while the total stays over budget.
	BudgetContinue BudgetPolicy = iota
	// BudgetHalt skips every remaining root.
	BudgetHalt
)

// ParseBudgetPolicy maps the config value to a policy.
func ParseBudgetPolicy(s string) (BudgetPolicy, error) {
	switch s {
	case "", config.BudgetContinue:
		return BudgetContinue, nil
	case config.BudgetHalt:
		return BudgetHalt, nil
	}
	return BudgetContinue, fmt.Errorf("unknown budget policy %q", s)
}

// Result is the aggregate of one junk scan.
type Result struct {
	Count     int
	Size      int64
	Truncated bool
	Roots     []string
	Err       error
	Started   time.Time
	Finished  time.Time
}

// JunkScanner walks Roots in order and reports junk files as it finds them.
// A scanner may be reused; each Run starts from scratch.
type JunkScanner struct {
	Roots      []string
	Walker     *walk.Walker
	Classifier *classify.Junk
	Budget     int64
	Policy     BudgetPolicy
	Pacer      limiter.Pacer
	Logger     Logger
}

// NewJunkScanner wires a scanner from configuration. Pass limiter.Noop{}
// as pacer to disable the pause between roots.
func NewJunkScanner(cfg *config.Config, pacer limiter.Pacer, logger Logger) (*JunkScanner, error) {
	policy, err := ParseBudgetPolicy(cfg.Scan.BudgetPolicy)
	if err != nil {
		return nil, err
	}
	exclude := walk.AnyExcluder(
		walk.SubstringExcluder(cfg.ExcludeDirSubstrings...),
		walk.GlobExcluder(cfg.ExcludeGlobs...),
	)
	w := walk.New(exclude, logger)
	w.MaxDepth = cfg.Scan.MaxDepth

	return &JunkScanner{
		Roots:      Roots(cfg),
		Walker:     w,
		Classifier: classify.NewJunk(),
		Budget:     cfg.Scan.BudgetBytes,
		Policy:     policy,
		Pacer:      pacer,
		Logger:     logger,
	}, nil
}

// Roots returns the junk scan roots: the storage root, then each configured
// cache dir and well-known path that exists and can be listed.
func Roots(cfg *config.Config) []string {
	all := cfg.ScanRoots()
	roots := []string{all[0]}
	for _, r := range all[1:] {
		if readableDir(r) {
			roots = append(roots, r)
		}
	}
	return roots
}

func readableDir(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	return err == nil && info.IsDir()
}

// Run performs one scan. Every call starts with OnScanStarted and ends with
// exactly one terminal callback:
// OnScanCompleted, or OnScanError when the storage root is unusable, the
// context is cancelled, or a collaborator panics.
func (s *JunkScanner) Run(ctx context.Context, l events.ScanListener) (res Result) {
	res.Started = time.Now()
	defer func() {
		res.Finished = time.Now()
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("junk scan panicked: %v", r)
			s.Logger.Errorw("Junk scan panicked", "panic", r)
			l.OnScanError(res.Err)
		}
		outcome := "completed"
		if res.Err != nil {
			outcome = "error"
		}
		metrics.RecordScan(model.FlowJunk.String(), outcome, res.Finished.Sub(res.Started), res.Truncated)
	}()

	if len(s.Roots) == 0 || !readableDir(s.Roots[0]) {
		root := ""
		if len(s.Roots) > 0 {
			root = s.Roots[0]
		}
		res.Err = fmt.Errorf("%w: %q", ErrStorageRoot, root)
		s.Logger.Errorw("Junk scan cannot start", "root", root, "error", res.Err)
		l.OnScanStarted()
		l.OnScanError(res.Err)
		return res
	}

	fail := func(err error) Result {
		res.Err = err
		s.Logger.Warnw("Junk scan aborted", "files", res.Count, "bytes", res.Size, "error", err)
		l.OnScanError(err)
		return res
	}

	l.OnScanStarted()
	s.Logger.Infow("Junk scan started", "roots", len(s.Roots), "budget_bytes", s.Budget)

	seen := make(map[string]struct{})
	n := len(s.Roots)
	for i, root := range s.Roots {
		if i > 0 {
			if res.Truncated && s.Policy == BudgetHalt {
				s.Logger.Infow("Size budget exceeded, skipping remaining roots", "skipped", n-i)
				break
			}
			if err := s.Pacer.Wait(ctx); err != nil {
				return fail(err)
			}
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		l.OnScanProgress(i*100/n, root)
		res.Roots = append(res.Roots, root)
		before := res.Count

		for entry := range s.Walker.Walk(root) {
			if ctx.Err() != nil {
				break
			}
			d, ok := s.Classifier.ClassifyEntry(entry)
			if !ok {
				continue
			}
			// roots overlap, a path is reported once per scan
			if _, dup := seen[d.Path]; dup {
				continue
			}
			seen[d.Path] = struct{}{}

			l.OnFileFound(d)
			metrics.RecordFileFound(d.Category.String(), d.Size)
			res.Count++
			res.Size += d.Size

			if res.Size > s.Budget {
				res.Truncated = true
				break
			}
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		s.Logger.Debugw("Root scanned", "root", root, "found", res.Count-before, "total_bytes", res.Size)
	}

	s.Logger.Infow("Junk scan completed", "files", res.Count, "bytes", res.Size, "truncated", res.Truncated)
	l.OnScanCompleted(res.Count, res.Size)
	return res
}
