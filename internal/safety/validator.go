// Package safety decides whether a path may be deleted. Every removal made
// by the cleanup engine passes through Validator.ValidateDeleteTarget first.
package safety

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath    = errors.New("invalid path")
	ErrProtectedPath  = errors.New("protected path")
	ErrOutsideAllowed = errors.New("outside allowed roots")
	ErrRootTarget     = errors.New("refusing to delete an allowed root")
	ErrTraversal      = errors.New("path traversal detected")
	ErrSymlinkEscape  = errors.New("symlink escape detected")
)

// Validator holds the roots deletions must stay under and the paths they
// must never touch.
type Validator struct {
	AllowedRoots   []string
	ProtectedPaths []string
}

// NewValidator normalizes the allowed roots and appends extraProtected to
// the built-in protected set.
func NewValidator(allowed []string, extraProtected []string) *Validator {
	return &Validator{
		AllowedRoots:   normalizeRoots(allowed),
		ProtectedPaths: defaultProtected(extraProtected),
	}
}

// ValidateDeleteTarget returns nil when path may be removed, or one of the
// package's sentinel errors.
func (v *Validator) ValidateDeleteTarget(path string) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}

	if IsProtectedPath(p, v.ProtectedPaths) {
		return ErrProtectedPath
	}

	if !IsWithinAllowedRoots(p, v.AllowedRoots) {
		return ErrOutsideAllowed
	}

	for _, r := range v.AllowedRoots {
		if p == r {
			return ErrRootTarget
		}
	}

	if DetectTraversal(path) {
		return ErrTraversal
	}

	escaped, err := DetectSymlinkEscape(p, v.AllowedRoots)
	if err != nil {
		// a missing target cannot escape; the delete itself reports it
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if escaped {
		return ErrSymlinkEscape
	}

	return nil
}

// NormalizePath converts path to absolute, cleaned form.
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrInvalidPath
	}
	return filepath.Clean(abs), nil
}

// DetectTraversal reports any ".." segment in raw input.
func DetectTraversal(raw string) bool {
	for _, p := range strings.Split(filepath.ToSlash(raw), "/") {
		if p == ".." {
			return true
		}
	}
	return false
}

// IsWithinAllowedRoots checks if path is at or below any allowed root.
func IsWithinAllowedRoots(path string, allowedRoots []string) bool {
	p := filepath.Clean(path)
	for _, r := range allowedRoots {
		if hasPathPrefix(p, r) {
			return true
		}
	}
	return false
}

// DetectSymlinkEscape resolves symlinks in cleanAbs and reports whether the
// result leaves every allowed root. Roots are resolved too, so a root that
// itself sits behind a link (e.g. /sdcard) still matches.
func DetectSymlinkEscape(cleanAbs string, allowedRoots []string) (bool, error) {
	resolved, err := filepath.EvalSymlinks(cleanAbs)
	if err != nil {
		return false, err
	}
	resolvedAbs, err := filepath.Abs(resolved)
	if err != nil {
		return false, err
	}
	resolvedClean := filepath.Clean(resolvedAbs)

	roots := make([]string, 0, 2*len(allowedRoots))
	for _, r := range allowedRoots {
		roots = append(roots, r)
		if rr, err := filepath.EvalSymlinks(r); err == nil {
			roots = append(roots, filepath.Clean(rr))
		}
	}
	return !IsWithinAllowedRoots(resolvedClean, roots), nil
}

// IsProtectedPath checks path against the protected set. "/" is always
// protected.
func IsProtectedPath(path string, protected []string) bool {
	p := filepath.Clean(path)
	if p == string(os.PathSeparator) {
		return true
	}
	for _, prot := range protected {
		if hasPathPrefix(p, prot) {
			return true
		}
	}
	return false
}

// hasPathPrefix treats "/" as a prefix of "/" only, so protecting the
// filesystem root does not protect everything.
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if prefix == string(os.PathSeparator) {
		return path == prefix
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}

func normalizeRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if strings.TrimSpace(r) == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		out = append(out, filepath.Clean(abs))
	}
	return out
}

// DefaultProtected is the built-in protected set: system trees of both a
// Linux host and an Android device, plus the tool's own state directories.
var DefaultProtected = []string{
	"/",
	"/proc",
	"/sys",
	"/dev",
	"/system",
	"/vendor",
	"/data/data",
	"/etc",
	"/bin",
	"/usr",
	"/boot",
	"/lib",
	"/lib64",
	"/sbin",
	"/var/lib/mobile-clean",
	"/etc/mobile-clean",
}

func defaultProtected(extra []string) []string {
	out := make([]string, 0, len(DefaultProtected)+len(extra))
	out = append(out, DefaultProtected...)
	for _, e := range extra {
		if strings.TrimSpace(e) != "" {
			out = append(out, e)
		}
	}
	return out
}
