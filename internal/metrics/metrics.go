// Package metrics exposes Prometheus metrics for scans, cleans, storage
// capacity and the HTTP API.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Logger is the subset of *zap.SugaredLogger used by the metrics server.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

var (
	initOnce    sync.Once
	serverMutex sync.Mutex
	currentSrv  *http.Server
)

// Init creates and registers every metric. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		initScanMetrics()
		initCleanupMetrics()
		initStorageMetrics()
		initAPIMetrics()

		registerScanMetrics()
		registerCleanupMetrics()
		registerStorageMetrics()
		registerAPIMetrics()

		// expose zero values before the first run
		ScanLastRunTimestamp.Set(0)
		CleanLastRunTimestamp.Set(0)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartServer serves /metrics and /health on addr in the background.
// Calling it while a server is running is a no-op.
func StartServer(addr string, logger Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Infow("Metrics server already running", "addr", currentSrv.Addr)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	currentSrv = srv

	go func() {
		logger.Infow("Metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("Metrics server failed", "addr", addr, "error", err)
			ErrorsTotal.Inc()
		}
	}()
}

// Shutdown stops the server started by StartServer.
func Shutdown(ctx context.Context, logger Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv == nil {
		return
	}
	if err := currentSrv.Shutdown(ctx); err != nil {
		logger.Errorw("Metrics server shutdown failed", "error", err)
		ErrorsTotal.Inc()
	}
	currentSrv = nil
}
