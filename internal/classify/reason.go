package classify

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Reason is a parsed rule label as stored on a descriptor, e.g.
// "suffix:.apk" becomes Reason{Kind: "suffix", Value: ".apk"}.
type Reason struct {
	Kind  string
	Value string
}

// ParseReason splits a rule label. Labels without a colon ("hidden") have an
// empty Value.
func ParseReason(rule string) Reason {
	kind, value, _ := strings.Cut(rule, ":")
	return Reason{Kind: kind, Value: value}
}

// HasReason reports whether the label named a rule at all.
func (r Reason) HasReason() bool {
	return r.Kind != ""
}

// ToLogString formats the reason for structured logging.
func (r Reason) ToLogString() string {
	if !r.HasReason() {
		return "unknown"
	}
	if r.Value == "" {
		return r.Kind
	}
	return r.Kind + "=" + r.Value
}

// ToHumanReadable formats the reason for display.
func (r Reason) ToHumanReadable() string {
	switch r.Kind {
	case "path":
		return fmt.Sprintf("Located under %s", r.Value)
	case "suffix":
		return fmt.Sprintf("Name ends with %s", r.Value)
	case "prefix":
		return fmt.Sprintf("Name starts with %s", r.Value)
	case "name":
		return fmt.Sprintf("Name contains %q", r.Value)
	case "txt":
		return "Text file in a log directory"
	case "hidden":
		return "Long hidden file name"
	case "oversized":
		return fmt.Sprintf("Larger than %s in %s", humanize.IBytes(uint64(OversizedDownload)), r.Value)
	case "mime":
		return fmt.Sprintf("Media of type %s", r.Value)
	case "ext":
		return fmt.Sprintf("File type .%s", r.Value)
	case "dir":
		return fmt.Sprintf("Directly in the %s folder", r.Value)
	case "":
		return "Unknown reason"
	}
	return r.ToLogString()
}

// GetPrimaryReason returns the rule kind, used for grouping.
func (r Reason) GetPrimaryReason() string {
	if !r.HasReason() {
		return "unknown"
	}
	return r.Kind
}
