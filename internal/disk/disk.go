// Package disk reports capacity of the filesystem that holds a storage root.
package disk

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	gdisk "github.com/shirou/gopsutil/v4/disk"
)

// Status buckets used space the way the device storage screen does.
type Status int

const (
	Excellent Status = iota
	Good
	Warning
	Critical
)

func (s Status) String() string {
	switch s {
	case Excellent:
		return "excellent"
	case Good:
		return "good"
	case Warning:
		return "warning"
	default:
		return "critical"
	}
}

// Statuses lists every status in ascending severity.
func Statuses() []Status {
	return []Status{Excellent, Good, Warning, Critical}
}

// StatusFor maps a used percentage to its bucket: below 50 is Excellent,
// below 80 Good, below 95 Warning, anything else Critical.
func StatusFor(usedPercent float64) Status {
	switch {
	case usedPercent < 50:
		return Excellent
	case usedPercent < 80:
		return Good
	case usedPercent < 95:
		return Warning
	default:
		return Critical
	}
}

// Usage is one capacity reading.
type Usage struct {
	Path        string  `json:"path"`
	Fstype      string  `json:"fstype"`
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
	Status      Status  `json:"-"`
	StatusLabel string  `json:"status"`
}

// String renders the reading for terminals, e.g. "12 GB free of 64 GB (81.2% used, warning)".
func (u Usage) String() string {
	return fmt.Sprintf("%s free of %s (%.1f%% used, %s)",
		humanize.Bytes(u.Free), humanize.Bytes(u.Total), u.UsedPercent, u.Status)
}

// Stat reads the capacity of the filesystem containing path.
func Stat(ctx context.Context, path string) (Usage, error) {
	st, err := gdisk.UsageWithContext(ctx, path)
	if err != nil {
		return Usage{}, fmt.Errorf("disk usage of %s: %w", path, err)
	}
	return fromStat(path, st), nil
}

func fromStat(path string, st *gdisk.UsageStat) Usage {
	u := Usage{
		Path:        path,
		Fstype:      st.Fstype,
		Total:       st.Total,
		Free:        st.Free,
		Used:        st.Used,
		UsedPercent: st.UsedPercent,
	}
	u.Status = StatusFor(u.UsedPercent)
	u.StatusLabel = u.Status.String()
	return u
}
