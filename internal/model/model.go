// Package model holds the file descriptor and category types shared by the
// scanning, filtering and deletion packages.
package model

import (
	"path/filepath"
	"time"
)

// Flow identifies which cleanup flow a category belongs to. FlowImages
// reuses the Image category and owns none of its own.
type Flow int

const (
	FlowNone Flow = iota
	FlowJunk
	FlowLarge
	FlowImages
)

func (f Flow) String() string {
	switch f {
	case FlowJunk:
		return "junk"
	case FlowLarge:
		return "large"
	case FlowImages:
		return "images"
	default:
		return "none"
	}
}

// Category is the closed classification label assigned at discovery time.
type Category int

const (
	None Category = iota

	// Junk flow
	AppCache
	ApkFiles
	LogFiles
	TempFiles
	Other

	// Large-file flow
	Image
	Video
	Audio
	Docs
	Download
	Zip
)

// JunkFloor is the global size floor of the junk flow. A junk file must be
// strictly larger.
const JunkFloor int64 = 100

type categoryInfo struct {
	label   string
	key     string
	flow    Flow
	minSize int64
}

var categories = map[Category]categoryInfo{
	None:      {label: "None", key: "none", flow: FlowNone},
	AppCache:  {label: "App Cache", key: "app_cache", flow: FlowJunk},
	ApkFiles:  {label: "Apk Files", key: "apk_files", flow: FlowJunk},
	LogFiles:  {label: "Log Files", key: "log_files", flow: FlowJunk},
	TempFiles: {label: "Temp Files", key: "temp_files", flow: FlowJunk},
	Other:     {label: "Other", key: "other", flow: FlowJunk},
	Image:     {label: "Image", key: "image", flow: FlowLarge, minSize: 1024},
	Video:     {label: "Video", key: "video", flow: FlowLarge, minSize: 10240},
	Audio:     {label: "Audio", key: "audio", flow: FlowLarge, minSize: 1024},
	Docs:      {label: "Docs", key: "docs", flow: FlowLarge, minSize: 1024},
	Download:  {label: "Download", key: "download", flow: FlowLarge, minSize: 1024},
	Zip:       {label: "Zip", key: "zip", flow: FlowLarge, minSize: 1024},
}

// JunkCategories lists the junk categories in display order.
func JunkCategories() []Category {
	return []Category{AppCache, ApkFiles, LogFiles, TempFiles, Other}
}

// LargeCategories lists the large-file categories in display order.
func LargeCategories() []Category {
	return []Category{Image, Video, Audio, Docs, Download, Zip}
}

// Label returns the fixed display label.
func (c Category) Label() string {
	return categories[c].label
}

// String returns the stable machine key used in logs, metrics and storage.
func (c Category) String() string {
	if info, ok := categories[c]; ok {
		return info.key
	}
	return "none"
}

// Flow reports which flow the category belongs to.
func (c Category) Flow() Flow {
	return categories[c].flow
}

// MinSize returns the threshold a file must strictly exceed. For junk
// categories this is the global junk floor.
func (c Category) MinSize() int64 {
	info := categories[c]
	if info.flow == FlowJunk {
		return JunkFloor
	}
	return info.minSize
}

// ParseCategory maps a machine key or display label back to a category.
func ParseCategory(s string) (Category, bool) {
	for c, info := range categories {
		if s == info.key || s == info.label {
			return c, c != None
		}
	}
	return None, false
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, _ := ParseCategory(string(b))
	*c = parsed
	return nil
}

// Entry is a regular file produced by the path enumerator, before
// classification.
type Entry struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Descriptor is a classified cleanup candidate. Path is the identity key.
type Descriptor struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
	Reason    string    `json:"reason,omitempty"`
	Selected  bool      `json:"selected"`
}

// NewDescriptor builds a descriptor from an enumerated entry.
func NewDescriptor(e Entry, cat Category, reason string) Descriptor {
	name := e.Name
	if name == "" {
		name = filepath.Base(e.Path)
	}
	return Descriptor{
		Path:      e.Path,
		Name:      name,
		Size:      e.Size,
		Timestamp: e.ModTime,
		Category:  cat,
		Reason:    reason,
	}
}

// TotalSize sums descriptor sizes.
func TotalSize(files []Descriptor) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}
