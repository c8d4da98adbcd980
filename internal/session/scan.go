package session

import (
	"sync"

	"mobile-clean/internal/model"
)

// Group is the files of one junk category.
type Group struct {
	Category      model.Category     `json:"category"`
	Label         string             `json:"label"`
	Files         []model.Descriptor `json:"files"`
	Size          int64              `json:"size"`
	SelectedCount int                `json:"selected_count"`
	SelectedSize  int64              `json:"selected_size"`
}

// Snapshot is a deep copy of a scan session.
type Snapshot struct {
	Status        Status  `json:"status"`
	Groups        []Group `json:"groups"`
	TotalCount    int     `json:"total_count"`
	TotalSize     int64   `json:"total_size"`
	SelectedCount int     `json:"selected_count"`
	SelectedSize  int64   `json:"selected_size"`
}

// ScanSession collects junk scan results. It implements
// events.ScanListener; once the scan completes every file is selected.
type ScanSession struct {
	mu         sync.RWMutex
	state      State
	files      map[model.Category][]model.Descriptor
	totalSize  int64
	totalCount int
}

// NewScanSession returns an idle session.
func NewScanSession() *ScanSession {
	return &ScanSession{
		state: Idle{},
		files: make(map[model.Category][]model.Descriptor),
	}
}

func (s *ScanSession) OnScanStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Scanning{}
	s.files = make(map[model.Category][]model.Descriptor)
	s.totalSize = 0
	s.totalCount = 0
}

func (s *ScanSession) OnScanProgress(percent int, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Scanning{Progress: percent, Path: path}
}

func (s *ScanSession) OnFileFound(d model.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.Selected = false
	s.files[d.Category] = append(s.files[d.Category], d)
	s.totalSize += d.Size
	s.totalCount++
}

func (s *ScanSession) OnScanCompleted(totalFiles int, totalSize int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Completed{Count: totalFiles, Size: totalSize}
	s.setAll(true)
}

func (s *ScanSession) OnScanError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Failed{Err: err}
}

// State returns the current lifecycle state.
func (s *ScanSession) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Scanning reports whether a scan is in progress.
func (s *ScanSession) Scanning() bool {
	_, ok := s.State().(Scanning)
	return ok
}

func (s *ScanSession) TotalSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalSize
}

func (s *ScanSession) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalCount
}

// ToggleFile flips the selection of the file at path. It reports whether
// the path was found.
func (s *ScanSession) ToggleFile(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.quiesced(); err != nil {
		return false, err
	}
	for cat, files := range s.files {
		for i := range files {
			if files[i].Path == path {
				s.files[cat][i].Selected = !files[i].Selected
				return true, nil
			}
		}
	}
	return false, nil
}

// ToggleCategory selects every file in cat, or clears them all if they were
// already all selected.
func (s *ScanSession) ToggleCategory(cat model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.quiesced(); err != nil {
		return err
	}
	files := s.files[cat]
	all := len(files) > 0
	for _, f := range files {
		if !f.Selected {
			all = false
			break
		}
	}
	for i := range files {
		files[i].Selected = !all
	}
	return nil
}

func (s *ScanSession) SelectAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.quiesced(); err != nil {
		return err
	}
	s.setAll(true)
	return nil
}

func (s *ScanSession) ClearSelection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.quiesced(); err != nil {
		return err
	}
	s.setAll(false)
	return nil
}

// Selected returns the selected files in category order.
func (s *ScanSession) Selected() []model.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Descriptor
	for _, cat := range model.JunkCategories() {
		for _, f := range s.files[cat] {
			if f.Selected {
				out = append(out, f)
			}
		}
	}
	return out
}

func (s *ScanSession) SelectedSize() int64 {
	return model.TotalSize(s.Selected())
}

// Remove drops the given paths, typically after they were deleted.
func (s *ScanSession) Remove(paths []string) {
	if len(paths) == 0 {
		return
	}
	gone := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		gone[p] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for cat, files := range s.files {
		kept := files[:0]
		for _, f := range files {
			if _, ok := gone[f.Path]; ok {
				s.totalSize -= f.Size
				s.totalCount--
				continue
			}
			kept = append(kept, f)
		}
		s.files[cat] = kept
	}
}

// Snapshot returns a copy that is safe to read after the session changes.
func (s *ScanSession) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Status:     StatusOf(s.state),
		TotalCount: s.totalCount,
		TotalSize:  s.totalSize,
	}
	for _, cat := range model.JunkCategories() {
		g := Group{
			Category: cat,
			Label:    cat.Label(),
			Files:    append([]model.Descriptor{}, s.files[cat]...),
		}
		for _, f := range g.Files {
			g.Size += f.Size
			if f.Selected {
				g.SelectedCount++
				g.SelectedSize += f.Size
			}
		}
		snap.SelectedCount += g.SelectedCount
		snap.SelectedSize += g.SelectedSize
		snap.Groups = append(snap.Groups, g)
	}
	return snap
}

func (s *ScanSession) quiesced() error {
	if _, ok := s.state.(Scanning); ok {
		return ErrBusy
	}
	return nil
}

func (s *ScanSession) setAll(v bool) {
	for _, files := range s.files {
		for i := range files {
			files[i].Selected = v
		}
	}
}
