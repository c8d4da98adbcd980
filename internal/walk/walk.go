// Package walk enumerates regular files below a root directory, depth first,
// with a depth cap and a pluggable directory exclusion predicate.
package walk

import (
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"mobile-clean/internal/model"
)

// DefaultMaxDepth is the deepest directory level that is still listed. The
// root itself is depth 0.
const DefaultMaxDepth = 4

// Logger is the subset of *zap.SugaredLogger used by the walker.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugw(string, ...interface{}) {}

// ExcludeFunc reports whether a directory should be pruned.
type ExcludeFunc func(name, path string) bool

// Walker produces lazy file sequences. A Walker holds no per-walk state, so
// each call to Walk starts from scratch.
type Walker struct {
	MaxDepth int
	Exclude  ExcludeFunc
	Logger   Logger
}

// New returns a walker with the default depth cap.
func New(exclude ExcludeFunc, logger Logger) *Walker {
	return &Walker{
		MaxDepth: DefaultMaxDepth,
		Exclude:  exclude,
		Logger:   logger,
	}
}

// Walk yields the regular files below root. Breaking out of the range loop
// stops the whole walk. Directories that cannot be read are skipped.
// Symbolic links are never followed.
func (w *Walker) Walk(root string) iter.Seq[model.Entry] {
	return func(yield func(model.Entry) bool) {
		w.walkDir(filepath.Clean(root), 0, yield)
	}
}

// walkDir returns false once the consumer has asked to stop.
func (w *Walker) walkDir(dir string, depth int, yield func(model.Entry) bool) bool {
	if depth > w.maxDepth() {
		return true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger().Debugw("Skipping unreadable directory", "path", dir, "error", err)
		return true
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}

		if entry.IsDir() {
			if w.Exclude != nil && w.Exclude(entry.Name(), path) {
				continue
			}
			if !w.walkDir(path, depth+1, yield) {
				return false
			}
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			w.logger().Debugw("Skipping unreadable file", "path", path, "error", err)
			continue
		}

		e := model.Entry{
			Path:    path,
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if !yield(e) {
			return false
		}
	}
	return true
}

func (w *Walker) maxDepth() int {
	if w.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return w.MaxDepth
}

func (w *Walker) logger() Logger {
	if w.Logger == nil {
		return nopLogger{}
	}
	return w.Logger
}

// DefaultExcludedSubstrings are matched case-insensitively against directory
// names.
var DefaultExcludedSubstrings = []string{"proc", "sys", "dev", "system", "root"}

// SubstringExcluder prunes directories whose name contains any of subs,
// ignoring case.
func SubstringExcluder(subs ...string) ExcludeFunc {
	lowered := make([]string, 0, len(subs))
	for _, s := range subs {
		if s = strings.TrimSpace(s); s != "" {
			lowered = append(lowered, strings.ToLower(s))
		}
	}
	return func(name, _ string) bool {
		n := strings.ToLower(name)
		for _, s := range lowered {
			if strings.Contains(n, s) {
				return true
			}
		}
		return false
	}
}

// GlobExcluder prunes directories whose slash-separated absolute path matches
// any doublestar pattern. Invalid patterns never match.
func GlobExcluder(patterns ...string) ExcludeFunc {
	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if doublestar.ValidatePattern(p) {
			valid = append(valid, p)
		}
	}
	return func(_, path string) bool {
		slashed := filepath.ToSlash(path)
		relative := strings.TrimPrefix(slashed, "/")
		for _, p := range valid {
			if ok, _ := doublestar.Match(p, slashed); ok {
				return true
			}
			if ok, _ := doublestar.Match(p, relative); ok {
				return true
			}
		}
		return false
	}
}

// AnyExcluder prunes a directory when any of the predicates does.
func AnyExcluder(preds ...ExcludeFunc) ExcludeFunc {
	return func(name, path string) bool {
		for _, p := range preds {
			if p != nil && p(name, path) {
				return true
			}
		}
		return false
	}
}
