// Package mediaindex is the catalogue of image, video and audio files that
// the large-file scan queries instead of walking storage. On a device this
// role is played by the platform media store; here it is a SQLite table
// kept current by Indexer.
package mediaindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"mobile-clean/internal/model"
)

// ErrUnsupportedKind is returned when querying a non-media category.
var ErrUnsupportedKind = errors.New("category is not a media kind")

// Record is one catalogued media file.
type Record struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	DateAdded time.Time `json:"date_added"`
	MimeType  string    `json:"mime_type"`
	Kind      model.Category
}

// Index answers per-kind queries. Kind is Image, Video or Audio.
type Index interface {
	Query(ctx context.Context, kind model.Category) ([]Record, error)
}

// IsMediaKind reports whether cat is served by the index.
func IsMediaKind(cat model.Category) bool {
	switch cat {
	case model.Image, model.Video, model.Audio:
		return true
	}
	return false
}

// Memory is an in-memory Index. Errors maps a kind to the error its query
// returns, which lets tests exercise per-kind failures.
type Memory struct {
	mu      sync.RWMutex
	records []Record
	Errors  map[model.Category]error
}

// NewMemory returns an index holding records.
func NewMemory(records ...Record) *Memory {
	return &Memory{records: records}
}

// Add appends records.
func (m *Memory) Add(records ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
}

func (m *Memory) Query(ctx context.Context, kind model.Category) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !IsMediaKind(kind) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	if err := m.Errors[kind]; err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateAdded.After(out[j].DateAdded) })
	return out, nil
}

// Replace swaps the held records, so Memory can also back an Indexer.
func (m *Memory) Replace(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]Record(nil), records...)
	return nil
}

// Delete drops the records for paths and returns how many existed.
func (m *Memory) Delete(ctx context.Context, paths []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	gone := make(map[string]bool, len(paths))
	for _, p := range paths {
		gone[p] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	for _, r := range m.records {
		if !gone[r.Path] {
			kept = append(kept, r)
		}
	}
	n := len(m.records) - len(kept)
	m.records = kept
	return n, nil
}
