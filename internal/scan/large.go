package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"mobile-clean/internal/classify"
	"mobile-clean/internal/config"
	"mobile-clean/internal/fsops"
	"mobile-clean/internal/mediaindex"
	"mobile-clean/internal/metrics"
	"mobile-clean/internal/model"
)

// LargeScanner collects large-file candidates in one synchronous pass.
type LargeScanner struct {
	StorageRoot  string
	DownloadsDir string
	Index        mediaindex.Index
	Classifier   *classify.Large
	FS           fsops.FS
	Logger       Logger
}

// NewLargeScanner wires a scanner from configuration.
func NewLargeScanner(cfg *config.Config, index mediaindex.Index, logger Logger) *LargeScanner {
	return &LargeScanner{
		StorageRoot:  cfg.StorageRoot,
		DownloadsDir: cfg.DownloadsDir,
		Index:        index,
		Classifier:   classify.NewLarge(),
		FS:           fsops.OSFS{},
		Logger:       logger,
	}
}

// Scan returns images, videos, audio, documents, downloads and archives, in
// that order. On failure the descriptors gathered so far are returned along
// with the error.
func (s *LargeScanner) Scan(ctx context.Context) (out []model.Descriptor, err error) {
	start := time.Now()
	defer func() {
		outcome := "completed"
		if err != nil {
			outcome = "error"
		}
		for _, d := range out {
			metrics.RecordFileFound(d.Category.String(), d.Size)
		}
		metrics.RecordScan(model.FlowLarge.String(), outcome, time.Since(start), false)
	}()

	for _, kind := range []model.Category{model.Image, model.Video, model.Audio} {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, s.media(ctx, kind)...)
	}

	docs, zips, err := s.archivesAndDocs(ctx)
	out = append(out, docs...)
	if err != nil {
		s.Logger.Errorw("Large file scan failed", "stage", "docs", "error", err)
		return append(out, zips...), err
	}

	downloads, err := s.downloads()
	out = append(out, downloads...)
	out = append(out, zips...)
	if err != nil {
		s.Logger.Errorw("Large file scan failed", "stage", "downloads", "error", err)
		return out, err
	}

	s.Logger.Infow("Large file scan completed", "files", len(out), "bytes", model.TotalSize(out),
		"duration", time.Since(start))
	return out, nil
}

func (s *LargeScanner) media(ctx context.Context, kind model.Category) []model.Descriptor {
	if s.Index == nil {
		return nil
	}
	records, err := s.Index.Query(ctx, kind)
	if err != nil {
		s.Logger.Warnw("Media query failed", "kind", kind.String(), "error", err)
		return nil
	}

	var out []model.Descriptor
	for _, r := range records {
		if !s.Classifier.Passes(kind, r.Size) {
			continue
		}
		if _, err := s.FS.Lstat(r.Path); err != nil {
			s.Logger.Debugw("Dropping stale media record", "path", r.Path, "error", err)
			continue
		}
		entry := model.Entry{Path: r.Path, Name: r.Name, Size: r.Size, ModTime: r.DateAdded}
		out = append(out, model.NewDescriptor(entry, kind, "mime:"+r.MimeType))
	}
	return out
}

// skipLargeDir prunes hidden directories and the per-app Android tree.
func skipLargeDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.EqualFold(name, "Android")
}

// archivesAndDocs walks the storage root once for both extension classes.
func (s *LargeScanner) archivesAndDocs(ctx context.Context) (docs, zips []model.Descriptor, err error) {
	info, err := s.FS.Lstat(s.StorageRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("storage root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %q", ErrStorageRoot, s.StorageRoot)
	}

	var mu sync.Mutex
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, s.StorageRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.Logger.Debugw("Skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if path != s.StorageRoot && skipLargeDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		cat := s.Classifier.ForName(d.Name())
		if cat == model.None {
			return nil
		}
		fi, err := d.Info()
		if err != nil || !s.Classifier.Passes(cat, fi.Size()) {
			return nil
		}

		desc := model.NewDescriptor(model.Entry{
			Path:    path,
			Name:    d.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		}, cat, "ext:"+strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Name())), "."))

		mu.Lock()
		if cat == model.Docs {
			docs = append(docs, desc)
		} else {
			zips = append(zips, desc)
		}
		mu.Unlock()
		return nil
	})

	// fastwalk visits directories concurrently
	sortByPath(docs)
	sortByPath(zips)
	return docs, zips, err
}

func (s *LargeScanner) downloads() ([]model.Descriptor, error) {
	if s.DownloadsDir == "" {
		return nil, nil
	}
	entries, err := s.FS.ReadDir(s.DownloadsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("downloads dir: %w", err)
	}

	var out []model.Descriptor
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		fi, err := e.Info()
		if err != nil || !s.Classifier.Passes(model.Download, fi.Size()) {
			continue
		}
		out = append(out, model.NewDescriptor(model.Entry{
			Path:    filepath.Join(s.DownloadsDir, e.Name()),
			Name:    e.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		}, model.Download, "dir:download"))
	}
	return out, nil
}

func sortByPath(ds []model.Descriptor) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Path < ds[j].Path })
}
