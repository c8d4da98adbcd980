package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mobileclean"

var (
	// DurationBuckets span 10ms to 5min: a scan of a cache dir up to a full
	// storage walk.
	DurationBuckets = []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300}

	// BytesBuckets span 1KB to 1GB.
	BytesBuckets = []float64{1024, 10240, 102400, 1048576, 10485760, 104857600, 1073741824}

	// APIBuckets span 5ms to 10s.
	APIBuckets = []float64{0.005, 0.05, 0.1, 0.5, 1, 5, 10}
)

func fqName(name string) string {
	return prometheus.BuildFQName(namespace, "", name)
}

// NewDurationHistogramVec creates a labeled histogram of seconds.
func NewDurationHistogramVec(name, help string, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    fqName(name),
		Help:    help,
		Buckets: DurationBuckets,
	}, labels)
}

// NewBytesHistogram creates a histogram of byte sizes.
func NewBytesHistogram(name, help string) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    fqName(name),
		Help:    help,
		Buckets: BytesBuckets,
	})
}

func NewCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: fqName(name), Help: help})
}

func NewCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: fqName(name), Help: help}, labels)
}

func NewGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Name: fqName(name), Help: help})
}

func NewGaugeVec(name, help string, labels []string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: fqName(name), Help: help}, labels)
}
