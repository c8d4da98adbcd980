// Package filter narrows large-file scan results by type, size and age.
// Filters are plain values; applying one never mutates its input.
package filter

import (
	"time"

	"mobile-clean/internal/model"
)

const (
	AllTypes = "All types"
	AllSize  = "All Size"
	AllTime  = "All Time"

	// All is accepted as a sentinel on every axis.
	All = "All"
)

const mib int64 = 1024 * 1024

var sizeThresholds = []struct {
	label string
	bytes int64
}{
	{">1MB", 1 * mib},
	{">5MB", 5 * mib},
	{">10MB", 10 * mib},
	{">20MB", 20 * mib},
	{">50MB", 50 * mib},
	{">100MB", 100 * mib},
	{">200MB", 200 * mib},
	{">500MB", 500 * mib},
}

const day = 24 * time.Hour

var timeWindows = []struct {
	label  string
	window time.Duration
}{
	{"Within 1 day", day},
	{"Within 1 week", 7 * day},
	{"Within 1 month", 30 * day},
	{"Within 3 month", 90 * day},
	{"Within 6 month", 180 * day},
}

// Filter selects files on three independent axes. Empty strings behave like
// the sentinels.
type Filter struct {
	Type string `json:"type"`
	Size string `json:"size"`
	Time string `json:"time"`
}

// Default passes everything.
func Default() Filter {
	return Filter{Type: AllTypes, Size: AllSize, Time: AllTime}
}

// Apply returns the files matching every axis of f, in input order. now is
// the reference instant for the time axis.
func Apply(files []model.Descriptor, f Filter, now time.Time) []model.Descriptor {
	threshold := SizeThreshold(f.Size)
	window := TimeWindow(f.Time)
	cat, byType := typeCategory(f.Type)

	out := make([]model.Descriptor, 0, len(files))
	for _, file := range files {
		if byType && file.Category != cat {
			continue
		}
		if file.Size <= threshold {
			continue
		}
		if window > 0 && file.Timestamp.Before(now.Add(-window)) {
			continue
		}
		out = append(out, file)
	}
	return out
}

// Matches reports whether one file passes f.
func (f Filter) Matches(file model.Descriptor, now time.Time) bool {
	return len(Apply([]model.Descriptor{file}, f, now)) == 1
}

// IsDefault reports whether f passes everything.
func (f Filter) IsDefault() bool {
	_, byType := typeCategory(f.Type)
	return !byType && SizeThreshold(f.Size) == 0 && TimeWindow(f.Time) == 0
}

// Intersect combines two filters. A non-sentinel axis of b overrides a, the
// larger size threshold and the narrower time window win, and conflicting
// types yield a's type.
func Intersect(a, b Filter) Filter {
	out := a
	if _, ok := typeCategory(b.Type); ok {
		if _, aok := typeCategory(a.Type); !aok {
			out.Type = b.Type
		}
	}
	if SizeThreshold(b.Size) > SizeThreshold(a.Size) {
		out.Size = b.Size
	}
	bw, aw := TimeWindow(b.Time), TimeWindow(a.Time)
	if bw > 0 && (aw == 0 || bw < aw) {
		out.Time = b.Time
	}
	return out
}

// SizeThreshold returns the strict lower bound for a size label. Sentinels
// and unknown labels yield 0.
func SizeThreshold(label string) int64 {
	for _, s := range sizeThresholds {
		if s.label == label {
			return s.bytes
		}
	}
	return 0
}

// TimeWindow returns the age window for a time label. Sentinels and unknown
// labels yield 0, meaning no limit.
func TimeWindow(label string) time.Duration {
	for _, w := range timeWindows {
		if w.label == label {
			return w.window
		}
	}
	return 0
}

func typeCategory(label string) (model.Category, bool) {
	switch label {
	case "", AllTypes, All:
		return model.None, false
	}
	for _, c := range model.LargeCategories() {
		if c.Label() == label {
			return c, true
		}
	}
	return model.None, false
}

// TypeLabels lists the type axis vocabulary, sentinel first.
func TypeLabels() []string {
	out := []string{AllTypes}
	for _, c := range model.LargeCategories() {
		out = append(out, c.Label())
	}
	return out
}

// SizeLabels lists the size axis vocabulary, sentinel first.
func SizeLabels() []string {
	out := []string{AllSize}
	for _, s := range sizeThresholds {
		out = append(out, s.label)
	}
	return out
}

// TimeLabels lists the time axis vocabulary, sentinel first.
func TimeLabels() []string {
	out := []string{AllTime}
	for _, w := range timeWindows {
		out = append(out, w.label)
	}
	return out
}
