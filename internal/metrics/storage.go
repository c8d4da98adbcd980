package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mobile-clean/internal/disk"
)

var (
	ErrorsTotal prometheus.Counter

	StorageTotalBytes  *prometheus.GaugeVec
	StorageFreeBytes   *prometheus.GaugeVec
	StorageUsedPercent *prometheus.GaugeVec

	// StorageStatus is 1 for the current status label of a path and 0 for
	// the others.
	StorageStatus *prometheus.GaugeVec
)

func initStorageMetrics() {
	ErrorsTotal = NewCounter(
		"errors_total",
		"Errors outside per-file deletion failures.",
	)
	StorageTotalBytes = NewGaugeVec(
		"storage_total_bytes",
		"Capacity of the filesystem holding the path.",
		[]string{"path"},
	)
	StorageFreeBytes = NewGaugeVec(
		"storage_free_bytes",
		"Free bytes on the filesystem holding the path.",
		[]string{"path"},
	)
	StorageUsedPercent = NewGaugeVec(
		"storage_used_percent",
		"Used percentage of the filesystem holding the path.",
		[]string{"path"},
	)
	StorageStatus = NewGaugeVec(
		"storage_status",
		"Storage health bucket of the path.",
		[]string{"path", "status"},
	)
}

func registerStorageMetrics() {
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(StorageTotalBytes)
	prometheus.MustRegister(StorageFreeBytes)
	prometheus.MustRegister(StorageUsedPercent)
	prometheus.MustRegister(StorageStatus)
}

// UpdateStorage publishes a capacity reading.
func UpdateStorage(u disk.Usage) {
	Init()
	StorageTotalBytes.WithLabelValues(u.Path).Set(float64(u.Total))
	StorageFreeBytes.WithLabelValues(u.Path).Set(float64(u.Free))
	StorageUsedPercent.WithLabelValues(u.Path).Set(u.UsedPercent)
	for _, s := range disk.Statuses() {
		v := 0.0
		if s == u.Status {
			v = 1
		}
		StorageStatus.WithLabelValues(u.Path, s.String()).Set(v)
	}
}

// RecordError counts an error outside per-file deletion failures.
func RecordError() {
	Init()
	ErrorsTotal.Inc()
}
