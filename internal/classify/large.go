package classify

import (
	"path/filepath"
	"strings"

	"mobile-clean/internal/model"
)

// DocExtensions and ZipExtensions are matched against the lower-cased
// extension without the leading dot.
var (
	DocExtensions = []string{"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "txt"}
	ZipExtensions = []string{"zip", "rar", "7z", "tar", "gz"}
)

// Large evaluates the extension-based part of the large-file rule set. The
// media categories come from the media index and only need Passes.
type Large struct {
	byExt map[string]model.Category
}

// NewLarge returns the large-file classifier.
func NewLarge() *Large {
	byExt := make(map[string]model.Category, len(DocExtensions)+len(ZipExtensions))
	for _, e := range DocExtensions {
		byExt[e] = model.Docs
	}
	for _, e := range ZipExtensions {
		byExt[e] = model.Zip
	}
	return &Large{byExt: byExt}
}

// ForExtension returns Docs or Zip for an extension, with or without the
// leading dot, and None otherwise.
func (l *Large) ForExtension(ext string) model.Category {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return model.None
	}
	return l.byExt[ext]
}

// ForName classifies a file name by its extension.
func (l *Large) ForName(name string) model.Category {
	return l.ForExtension(filepath.Ext(name))
}

// Passes reports whether size strictly exceeds the category threshold.
func (l *Large) Passes(cat model.Category, size int64) bool {
	if cat.Flow() != model.FlowLarge {
		return false
	}
	return size > cat.MinSize()
}
