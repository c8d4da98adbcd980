package session

import (
	"sync"
	"time"

	"mobile-clean/internal/filter"
	"mobile-clean/internal/model"
)

// LargeSession holds a large-file scan result, the active filter and the
// selection. Selection is keyed by path and survives filter changes.
type LargeSession struct {
	mu       sync.RWMutex
	files    []model.Descriptor
	filter   filter.Filter
	selected map[string]bool

	// Now is the reference time for the filter's time windows.
	Now func() time.Time
}

// NewLargeSession returns an empty session with the default filter.
func NewLargeSession() *LargeSession {
	return &LargeSession{
		filter:   filter.Default(),
		selected: make(map[string]bool),
		Now:      time.Now,
	}
}

// SetFiles replaces the result set. Selected paths that are still present
// stay selected.
func (l *LargeSession) SetFiles(files []model.Descriptor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files = append([]model.Descriptor(nil), files...)
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.Path] = true
	}
	for p := range l.selected {
		if !present[p] {
			delete(l.selected, p)
		}
	}
}

// Files returns every file regardless of filter.
func (l *LargeSession) Files() []model.Descriptor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.withSelection(l.files)
}

func (l *LargeSession) SetFilter(f filter.Filter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter = f
}

func (l *LargeSession) Filter() filter.Filter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.filter
}

// Visible returns the files passing the current filter with Selected set.
func (l *LargeSession) Visible() []model.Descriptor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.withSelection(l.visible())
}

// Toggle flips the selection of path and reports whether it is now
// selected. Unknown paths are ignored.
func (l *LargeSession) Toggle(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.files {
		if f.Path == path {
			if l.selected[path] {
				delete(l.selected, path)
				return false
			}
			l.selected[path] = true
			return true
		}
	}
	return false
}

// SelectAllVisible adds every visible file to the selection.
func (l *LargeSession) SelectAllVisible() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.visible() {
		l.selected[f.Path] = true
	}
}

func (l *LargeSession) ClearSelection() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = make(map[string]bool)
}

// SelectedVisible returns the files that are both selected and visible.
// Only these are handed to the deletion engine.
func (l *LargeSession) SelectedVisible() []model.Descriptor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.Descriptor
	for _, f := range l.visible() {
		if l.selected[f.Path] {
			f.Selected = true
			out = append(out, f)
		}
	}
	return out
}

// Remove drops deleted paths from the files and the selection.
func (l *LargeSession) Remove(paths []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	gone := make(map[string]bool, len(paths))
	for _, p := range paths {
		gone[p] = true
		delete(l.selected, p)
	}
	kept := l.files[:0]
	for _, f := range l.files {
		if !gone[f.Path] {
			kept = append(kept, f)
		}
	}
	l.files = kept
}

func (l *LargeSession) visible() []model.Descriptor {
	return filter.Apply(l.files, l.filter, l.Now())
}

func (l *LargeSession) withSelection(files []model.Descriptor) []model.Descriptor {
	out := make([]model.Descriptor, len(files))
	for i, f := range files {
		f.Selected = l.selected[f.Path]
		out[i] = f
	}
	return out
}
