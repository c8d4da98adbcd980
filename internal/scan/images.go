package scan

import (
	"context"
	"errors"
	"time"

	"mobile-clean/internal/fsops"
	"mobile-clean/internal/mediaindex"
	"mobile-clean/internal/metrics"
	"mobile-clean/internal/model"
)

// ErrNoIndex is returned by ImageScanner.Scan without a media index.
var ErrNoIndex = errors.New("no media index configured")

// ImageScanner lists every catalogued image that still exists, newest
// first. Unlike the large-file flow it applies no size threshold.
type ImageScanner struct {
	Index  mediaindex.Index
	FS     fsops.FS
	Logger Logger
}

// NewImageScanner wires a scanner over index.
func NewImageScanner(index mediaindex.Index, logger Logger) *ImageScanner {
	return &ImageScanner{Index: index, FS: fsops.OSFS{}, Logger: logger}
}

// Scan returns the images. A record without a date takes the file's
// modification time.
func (s *ImageScanner) Scan(ctx context.Context) (out []model.Descriptor, err error) {
	start := time.Now()
	defer func() {
		outcome := "completed"
		if err != nil {
			outcome = "error"
		}
		metrics.RecordScan(model.FlowImages.String(), outcome, time.Since(start), false)
	}()

	if s.Index == nil {
		return nil, ErrNoIndex
	}
	records, err := s.Index.Query(ctx, model.Image)
	if err != nil {
		s.Logger.Errorw("Image query failed", "error", err)
		return nil, err
	}

	for _, r := range records {
		info, err := s.FS.Lstat(r.Path)
		if err != nil {
			s.Logger.Debugw("Dropping stale image record", "path", r.Path, "error", err)
			continue
		}
		taken := r.DateAdded
		if taken.IsZero() {
			taken = info.ModTime()
		}
		entry := model.Entry{Path: r.Path, Name: r.Name, Size: r.Size, ModTime: taken}
		out = append(out, model.NewDescriptor(entry, model.Image, "mime:"+r.MimeType))
	}

	s.Logger.Infow("Image scan completed", "files", len(out), "bytes", model.TotalSize(out),
		"duration", time.Since(start))
	return out, nil
}
