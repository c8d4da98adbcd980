// Package classify maps enumerated files to cleanup categories. Rules are
// evaluated in a fixed order and the first match wins.
package classify

import (
	"strings"
	"unicode/utf8"

	"mobile-clean/internal/model"
)

// OversizedDownload is the size above which a file under a download
// directory counts as junk.
const OversizedDownload int64 = 10 * 1024 * 1024

// Match is the outcome of classifying one file. Rule names the condition
// that fired, e.g. "path:/cache/".
type Match struct {
	Category model.Category
	Rule     string
}

// OK reports whether the file was classified.
func (m Match) OK() bool {
	return m.Category != model.None
}

type junkRule struct {
	category model.Category
	match    func(name, path string, size int64) string
}

// Junk evaluates the junk rule set.
type Junk struct {
	rules []junkRule
}

// NewJunk returns the junk classifier with the standard rule order:
// app cache, APKs, logs, temp files, then everything else.
func NewJunk() *Junk {
	return &Junk{rules: []junkRule{
		{model.AppCache, matchAppCache},
		{model.ApkFiles, matchApk},
		{model.LogFiles, matchLog},
		{model.TempFiles, matchTemp},
		{model.Other, matchOther},
	}}
}

// Classify returns the first matching category for a file. Files not larger
// than the junk floor are rejected before any rule runs.
func (j *Junk) Classify(name, path string, size int64) Match {
	if size <= model.JunkFloor {
		return Match{}
	}
	name = strings.ToLower(name)
	path = strings.ToLower(path)
	for _, r := range j.rules {
		if rule := r.match(name, path, size); rule != "" {
			return Match{Category: r.category, Rule: rule}
		}
	}
	return Match{}
}

// ClassifyEntry classifies an enumerated entry and builds its descriptor.
func (j *Junk) ClassifyEntry(e model.Entry) (model.Descriptor, bool) {
	m := j.Classify(e.Name, e.Path, e.Size)
	if !m.OK() {
		return model.Descriptor{}, false
	}
	return model.NewDescriptor(e, m.Category, m.Rule), true
}

func pathContains(path string, subs ...string) string {
	for _, s := range subs {
		if strings.Contains(path, s) {
			return "path:" + s
		}
	}
	return ""
}

func nameSuffix(name string, exts ...string) string {
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return "suffix:" + e
		}
	}
	return ""
}

func namePrefix(name string, prefixes ...string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return "prefix:" + p
		}
	}
	return ""
}

func firstOf(results ...string) string {
	for _, r := range results {
		if r != "" {
			return r
		}
	}
	return ""
}

func matchAppCache(name, path string, _ int64) string {
	if r := pathContains(path, "/cache/", "/app_cache/", "/webview/"); r != "" {
		return r
	}
	if r := nameSuffix(name, ".cache"); r != "" {
		return r
	}
	if strings.Contains(name, "cache") {
		return "name:cache"
	}
	return ""
}

func matchApk(name, _ string, _ int64) string {
	return nameSuffix(name, ".apk", ".xapk", ".apks")
}

func matchLog(name, path string, _ int64) string {
	if r := nameSuffix(name, ".log", ".crash"); r != "" {
		return r
	}
	if r := namePrefix(name, "log"); r != "" {
		return r
	}
	if r := pathContains(path, "/logs/"); r != "" {
		return r
	}
	if strings.HasSuffix(name, ".txt") && strings.Contains(path, "log") {
		return "txt:log"
	}
	return ""
}

func matchTemp(name, path string, _ int64) string {
	return firstOf(
		nameSuffix(name, ".tmp", ".temp"),
		namePrefix(name, "tmp", "temp"),
		pathContains(path, "/temp/", "/.temp", "/temporary/", "/.thumbnails/"),
	)
}

func matchOther(name, path string, size int64) string {
	if r := firstOf(
		nameSuffix(name, ".bak", ".old", ".swp", ".swo"),
		namePrefix(name, "~"),
	); r != "" {
		return r
	}
	if strings.Contains(name, "backup") {
		return "name:backup"
	}
	if strings.HasPrefix(name, ".") && utf8.RuneCountInString(name) > 10 {
		return "hidden"
	}
	if r := pathContains(path, "/trash/", "/recycle/"); r != "" {
		return r
	}
	if size > OversizedDownload && strings.Contains(path, "/download") {
		return "oversized:/download"
	}
	return ""
}
