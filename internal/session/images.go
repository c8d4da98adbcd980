package session

import (
	"sort"
	"sync"
	"time"

	"mobile-clean/internal/model"
)

// DayLayout is the key format of a DayGroup.
const DayLayout = "2006-01-02"

// DayGroup is the images of one calendar day.
type DayGroup struct {
	Date          string             `json:"date"`
	Files         []model.Descriptor `json:"files"`
	Size          int64              `json:"size"`
	SelectedCount int                `json:"selected_count"`
	SelectedSize  int64              `json:"selected_size"`
}

// ImageSnapshot is a copy of an image session, newest day first.
type ImageSnapshot struct {
	Groups        []DayGroup `json:"groups"`
	TotalCount    int        `json:"total_count"`
	TotalSize     int64      `json:"total_size"`
	SelectedCount int        `json:"selected_count"`
	SelectedSize  int64      `json:"selected_size"`
	AllSelected   bool       `json:"all_selected"`
}

// ImageSession holds catalogue images grouped by the day they were taken.
// Nothing is selected initially.
type ImageSession struct {
	mu       sync.RWMutex
	files    []model.Descriptor
	selected map[string]bool

	// Location decides where a day starts.
	Location *time.Location
}

func NewImageSession() *ImageSession {
	return &ImageSession{
		selected: make(map[string]bool),
		Location: time.Local,
	}
}

// SetImages replaces the images. files are expected newest first; that
// order is kept inside each day. Selected paths that are still present
// stay selected.
func (s *ImageSession) SetImages(files []model.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append([]model.Descriptor(nil), files...)
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.Path] = true
	}
	for p := range s.selected {
		if !present[p] {
			delete(s.selected, p)
		}
	}
}

// Toggle flips one image and reports whether the path was found.
func (s *ImageSession) Toggle(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.Path == path {
			if s.selected[path] {
				delete(s.selected, path)
			} else {
				s.selected[path] = true
			}
			return true
		}
	}
	return false
}

// ToggleDay selects every image of date, or clears them all if they were
// already all selected. It reports whether the day exists.
func (s *ImageSession) ToggleDay(date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var day []string
	all := true
	for _, f := range s.files {
		if s.dayOf(f) == date {
			day = append(day, f.Path)
			all = all && s.selected[f.Path]
		}
	}
	if len(day) == 0 {
		return false
	}
	for _, p := range day {
		if all {
			delete(s.selected, p)
		} else {
			s.selected[p] = true
		}
	}
	return true
}

// ToggleAll selects every image unless all are already selected, in which
// case it clears the selection. It returns the resulting AllSelected.
func (s *ImageSession) ToggleAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.allSelected() {
		s.selected = make(map[string]bool)
		return false
	}
	for _, f := range s.files {
		s.selected[f.Path] = true
	}
	return s.allSelected()
}

func (s *ImageSession) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]bool)
}

// AllSelected reports whether there are images and every one is selected.
func (s *ImageSession) AllSelected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allSelected()
}

// Selected returns the selected images, newest day first.
func (s *ImageSession) Selected() []model.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Descriptor
	for _, g := range s.groups() {
		for _, f := range g.Files {
			if f.Selected {
				out = append(out, f)
			}
		}
	}
	return out
}

func (s *ImageSession) SelectedSize() int64 {
	return model.TotalSize(s.Selected())
}

// Remove drops deleted paths from the images and the selection.
func (s *ImageSession) Remove(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gone := make(map[string]bool, len(paths))
	for _, p := range paths {
		gone[p] = true
		delete(s.selected, p)
	}
	kept := s.files[:0]
	for _, f := range s.files {
		if !gone[f.Path] {
			kept = append(kept, f)
		}
	}
	s.files = kept
}

func (s *ImageSession) Snapshot() ImageSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := ImageSnapshot{
		Groups:      s.groups(),
		AllSelected: s.allSelected(),
	}
	for _, g := range snap.Groups {
		snap.TotalCount += len(g.Files)
		snap.TotalSize += g.Size
		snap.SelectedCount += g.SelectedCount
		snap.SelectedSize += g.SelectedSize
	}
	return snap
}

func (s *ImageSession) groups() []DayGroup {
	index := make(map[string]int)
	var out []DayGroup
	for _, f := range s.files {
		f.Selected = s.selected[f.Path]
		day := s.dayOf(f)
		i, ok := index[day]
		if !ok {
			i = len(out)
			index[day] = i
			out = append(out, DayGroup{Date: day})
		}
		g := &out[i]
		g.Files = append(g.Files, f)
		g.Size += f.Size
		if f.Selected {
			g.SelectedCount++
			g.SelectedSize += f.Size
		}
	}
	// the layout sorts lexically
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func (s *ImageSession) allSelected() bool {
	if len(s.files) == 0 {
		return false
	}
	for _, f := range s.files {
		if !s.selected[f.Path] {
			return false
		}
	}
	return true
}

func (s *ImageSession) dayOf(f model.Descriptor) string {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return f.Timestamp.In(loc).Format(DayLayout)
}
