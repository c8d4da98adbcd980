package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	CleanDuration *prometheus.HistogramVec

	// BytesFreedTotal and FilesDeletedTotal only count successful removals.
	BytesFreedTotal   *prometheus.CounterVec
	FilesDeletedTotal *prometheus.CounterVec

	// DeletionOutcomesTotal counts every target by history action
	// (DELETE, MISSING, ERROR, SKIP, DRY_RUN).
	DeletionOutcomesTotal *prometheus.CounterVec

	DeletedFileSize prometheus.Histogram

	CleanLastRunTimestamp prometheus.Gauge
)

func initCleanupMetrics() {
	CleanDuration = NewDurationHistogramVec(
		"clean_duration_seconds",
		"Duration of clean runs in seconds.",
		[]string{"flow"},
	)
	BytesFreedTotal = NewCounterVec(
		"bytes_freed_total",
		"Bytes freed, by category.",
		[]string{"category"},
	)
	FilesDeletedTotal = NewCounterVec(
		"files_deleted_total",
		"Files deleted, by category.",
		[]string{"category"},
	)
	DeletionOutcomesTotal = NewCounterVec(
		"deletion_outcomes_total",
		"Cleanup targets processed, by outcome.",
		[]string{"action"},
	)
	DeletedFileSize = NewBytesHistogram(
		"deleted_file_size_bytes",
		"Size distribution of deleted files.",
	)
	CleanLastRunTimestamp = NewGauge(
		"clean_last_run_timestamp",
		"Unix time of the last finished clean run.",
	)
}

func registerCleanupMetrics() {
	prometheus.MustRegister(CleanDuration)
	prometheus.MustRegister(BytesFreedTotal)
	prometheus.MustRegister(FilesDeletedTotal)
	prometheus.MustRegister(DeletionOutcomesTotal)
	prometheus.MustRegister(DeletedFileSize)
	prometheus.MustRegister(CleanLastRunTimestamp)
}

// RecordOutcome counts one processed target. Freed bytes are only added for
// real deletions.
func RecordOutcome(action, category string, size int64, freed bool) {
	Init()
	DeletionOutcomesTotal.WithLabelValues(action).Inc()
	if !freed {
		return
	}
	FilesDeletedTotal.WithLabelValues(category).Inc()
	BytesFreedTotal.WithLabelValues(category).Add(float64(size))
	DeletedFileSize.Observe(float64(size))
}

// RecordClean records a finished clean run.
func RecordClean(flow string, elapsed time.Duration) {
	Init()
	CleanDuration.WithLabelValues(flow).Observe(elapsed.Seconds())
	CleanLastRunTimestamp.Set(float64(time.Now().Unix()))
}
