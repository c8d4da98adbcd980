package mediaindex

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"

	"mobile-clean/internal/model"
)

// Logger is the subset of *zap.SugaredLogger used by the indexer.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
}

// Store is what the indexer writes to.
type Store interface {
	Replace(ctx context.Context, records []Record) error
}

// Indexer rebuilds the catalogue from a storage walk.
type Indexer struct {
	Store  Store
	Logger Logger
	// SkipDir prunes directories by name, e.g. hidden ones.
	SkipDir func(name string) bool
}

// KindForMIME maps a detected MIME type to a media category.
func KindForMIME(mime string) model.Category {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return model.Image
	case strings.HasPrefix(mime, "video/"):
		return model.Video
	case strings.HasPrefix(mime, "audio/"):
		return model.Audio
	}
	return model.None
}

// Refresh walks root in parallel, detects each file's MIME type from its
// content and replaces the catalogue with the media files found. It returns
// the number of records written.
func (ix *Indexer) Refresh(ctx context.Context, root string) (int, error) {
	var (
		mu      sync.Mutex
		records []Record
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			ix.Logger.Debugw("Skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if path != root && ix.SkipDir != nil && ix.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() == 0 {
			return nil
		}
		mt, err := mimetype.DetectFile(path)
		if err != nil {
			ix.Logger.Debugw("MIME detection failed", "path", path, "error", err)
			return nil
		}
		kind := KindForMIME(mt.String())
		if kind == model.None {
			return nil
		}

		r := Record{
			Path:      path,
			Name:      d.Name(),
			Size:      info.Size(),
			DateAdded: info.ModTime(),
			MimeType:  mt.String(),
			Kind:      kind,
		}
		mu.Lock()
		records = append(records, r)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return 0, err
	}

	// walk order is nondeterministic
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })

	if err := ix.Store.Replace(ctx, records); err != nil {
		return 0, err
	}
	ix.Logger.Infow("Media index refreshed", "root", root, "records", len(records))
	return len(records), nil
}

// HiddenDir skips dot-directories.
func HiddenDir(name string) bool {
	return strings.HasPrefix(name, ".")
}
