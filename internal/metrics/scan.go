package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ScansTotal counts finished scans by flow and outcome (completed, error).
	ScansTotal *prometheus.CounterVec

	ScanDuration *prometheus.HistogramVec

	// FilesFoundTotal and BytesFoundTotal count candidates per category key.
	FilesFoundTotal *prometheus.CounterVec
	BytesFoundTotal *prometheus.CounterVec

	// ScanTruncatedTotal counts junk scans cut short by the size budget.
	ScanTruncatedTotal prometheus.Counter

	ScanLastRunTimestamp prometheus.Gauge
)

func initScanMetrics() {
	ScansTotal = NewCounterVec(
		"scans_total",
		"Scans finished, by flow and outcome.",
		[]string{"flow", "outcome"},
	)
	ScanDuration = NewDurationHistogramVec(
		"scan_duration_seconds",
		"Duration of scans in seconds.",
		[]string{"flow"},
	)
	FilesFoundTotal = NewCounterVec(
		"scan_files_found_total",
		"Cleanup candidates found, by category.",
		[]string{"category"},
	)
	BytesFoundTotal = NewCounterVec(
		"scan_bytes_found_total",
		"Bytes of cleanup candidates found, by category.",
		[]string{"category"},
	)
	ScanTruncatedTotal = NewCounter(
		"scan_truncated_total",
		"Junk scans stopped early by the size budget.",
	)
	ScanLastRunTimestamp = NewGauge(
		"scan_last_run_timestamp",
		"Unix time of the last finished scan.",
	)
}

func registerScanMetrics() {
	prometheus.MustRegister(ScansTotal)
	prometheus.MustRegister(ScanDuration)
	prometheus.MustRegister(FilesFoundTotal)
	prometheus.MustRegister(BytesFoundTotal)
	prometheus.MustRegister(ScanTruncatedTotal)
	prometheus.MustRegister(ScanLastRunTimestamp)
}

// RecordFileFound counts one candidate.
func RecordFileFound(category string, size int64) {
	Init()
	FilesFoundTotal.WithLabelValues(category).Inc()
	BytesFoundTotal.WithLabelValues(category).Add(float64(size))
}

// RecordScan records a finished scan.
func RecordScan(flow, outcome string, elapsed time.Duration, truncated bool) {
	Init()
	ScansTotal.WithLabelValues(flow, outcome).Inc()
	ScanDuration.WithLabelValues(flow).Observe(elapsed.Seconds())
	if truncated {
		ScanTruncatedTotal.Inc()
	}
	ScanLastRunTimestamp.Set(float64(time.Now().Unix()))
}
