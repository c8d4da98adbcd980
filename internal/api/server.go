// Package api serves the cleanup engine over HTTP: junk scans and cleans
// run in the background and stream their events to WebSocket subscribers,
// large-file and image scans return their result directly.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"mobile-clean/internal/cleanup"
	"mobile-clean/internal/database"
	"mobile-clean/internal/events"
	"mobile-clean/internal/scan"
	"mobile-clean/internal/session"
)

const (
	ReadTimeout     = 15 * time.Second
	WriteTimeout    = 60 * time.Second
	IdleTimeout     = 60 * time.Second
	ShutdownTimeout = 10 * time.Second
)

// Logger is the subset of *zap.SugaredLogger used by the API.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// Deps are the engine components the API drives. DB, Images and Catalog
// may be nil.
type Deps struct {
	Junk        *scan.JunkScanner
	Large       *scan.LargeScanner
	Images      *scan.ImageScanner
	Catalog     cleanup.Catalog
	Engine      *cleanup.Engine
	DB          *database.DeletionDB
	StorageRoot string
	Logger      Logger
}

// Options configure the HTTP layer.
type Options struct {
	Address        string
	RateLimitRPS   float64
	RateLimitBurst int
	// JWTSecret enables bearer-token auth when non-empty.
	JWTSecret string
}

// Server owns the sessions shared by all clients. Only one scan or clean
// runs at a time; concurrent requests get 409 Conflict.
type Server struct {
	deps    Deps
	opts    Options
	logger  Logger
	hub     *Hub
	tokens  *TokenManager
	limiter *rateLimiter

	scanSess  *session.ScanSession
	cleanSess *session.CleanSession
	largeSess *session.LargeSession
	imageSess *session.ImageSession

	op sync.Mutex

	mu        sync.Mutex
	lastClean *cleanSummary

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type cleanSummary struct {
	SessionID    string    `json:"session_id"`
	Flow         string    `json:"flow"`
	DeletedCount int       `json:"deleted_count"`
	DeletedSize  int64     `json:"deleted_size"`
	Failed       int       `json:"failed"`
	Error        string    `json:"error,omitempty"`
	FinishedAt   time.Time `json:"finished_at"`
}

// New builds a server. Call Start (or ListenAndServe) before serving
// requests so events reach subscribers.
func New(deps Deps, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		deps:      deps,
		opts:      opts,
		logger:    deps.Logger,
		hub:       NewHub(deps.Logger),
		scanSess:  session.NewScanSession(),
		cleanSess: session.NewCleanSession(),
		largeSess: session.NewLargeSession(),
		imageSess: session.NewImageSession(),
		ctx:       ctx,
		cancel:    cancel,
	}
	if opts.RateLimitRPS > 0 {
		s.limiter = newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}
	if opts.JWTSecret != "" {
		s.tokens = NewTokenManager(opts.JWTSecret)
	}
	return s
}

// Handler returns the router with every middleware applied.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.instrument)
	router.Use(securityHeaders)
	router.Use(bodyLimit(maxBodyBytes))
	if s.limiter != nil {
		router.Use(s.limiter.middleware)
	}

	router.HandleFunc("/api/v1/health", s.handleHealth).Methods(http.MethodGet, http.MethodHead)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	if s.tokens != nil {
		v1.Use(authMiddleware(s.tokens))
	}

	v1.HandleFunc("/status", s.require(PermissionRead, s.handleStatus)).Methods(http.MethodGet)

	v1.HandleFunc("/junk", s.require(PermissionRead, s.handleJunkSnapshot)).Methods(http.MethodGet)
	v1.HandleFunc("/junk/scan", s.require(PermissionClean, s.handleJunkScan)).Methods(http.MethodPost)
	v1.HandleFunc("/junk/selection", s.require(PermissionClean, s.handleJunkSelection)).Methods(http.MethodPost)
	v1.HandleFunc("/junk/clean", s.require(PermissionClean, s.handleJunkClean)).Methods(http.MethodPost)

	v1.HandleFunc("/large", s.require(PermissionRead, s.handleLarge)).Methods(http.MethodGet)
	v1.HandleFunc("/large/filters", s.require(PermissionRead, s.handleLargeFilters)).Methods(http.MethodGet)
	v1.HandleFunc("/large/filter", s.require(PermissionRead, s.handleLargeFilter)).Methods(http.MethodPut)
	v1.HandleFunc("/large/scan", s.require(PermissionClean, s.handleLargeScan)).Methods(http.MethodPost)
	v1.HandleFunc("/large/selection", s.require(PermissionClean, s.handleLargeSelection)).Methods(http.MethodPost)
	v1.HandleFunc("/large/delete", s.require(PermissionClean, s.handleLargeDelete)).Methods(http.MethodPost)

	v1.HandleFunc("/images", s.require(PermissionRead, s.handleImages)).Methods(http.MethodGet)
	v1.HandleFunc("/images/scan", s.require(PermissionClean, s.handleImageScan)).Methods(http.MethodPost)
	v1.HandleFunc("/images/selection", s.require(PermissionClean, s.handleImageSelection)).Methods(http.MethodPost)
	v1.HandleFunc("/images/delete", s.require(PermissionClean, s.handleImageDelete)).Methods(http.MethodPost)

	v1.HandleFunc("/clean", s.require(PermissionRead, s.handleCleanStatus)).Methods(http.MethodGet)

	v1.HandleFunc("/history", s.require(PermissionRead, s.handleHistory)).Methods(http.MethodGet)
	v1.HandleFunc("/history/stats", s.require(PermissionRead, s.handleHistoryStats)).Methods(http.MethodGet)
	v1.HandleFunc("/history/scans", s.require(PermissionRead, s.handleScanHistory)).Methods(http.MethodGet)

	v1.HandleFunc("/ws/events", s.require(PermissionRead, s.hub.serveWS)).Methods(http.MethodGet)

	return router
}

// Start runs the event hub until ctx is done.
func (s *Server) Start(ctx context.Context) {
	go s.hub.Run(ctx)
}

// ListenAndServe serves on opts.Address until ctx is done, then shuts down
// gracefully and waits for background work to stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.Start(ctx)

	srv := &http.Server{
		Addr:         s.opts.Address,
		Handler:      s.Handler(),
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("Starting API server", "address", s.opts.Address, "auth", s.tokens != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	s.logger.Infow("Shutting down API server")
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close cancels running scans and cleans and waits for them to finish.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until background scans and cleans have finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// background runs fn while holding the operation lock. It reports false if
// another operation is already running.
func (s *Server) background(fn func(ctx context.Context)) bool {
	if !s.op.TryLock() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.op.Unlock()
		fn(s.ctx)
	}()
	return true
}

func (s *Server) setLastClean(flow string, res cleanup.Result) {
	sum := &cleanSummary{
		SessionID:    res.SessionID,
		Flow:         flow,
		DeletedCount: res.DeletedCount,
		DeletedSize:  res.DeletedSize,
		Failed:       len(res.Failed),
		FinishedAt:   time.Now().UTC(),
	}
	if res.Err != nil {
		sum.Error = res.Err.Error()
	}
	s.mu.Lock()
	s.lastClean = sum
	s.mu.Unlock()
}

func (s *Server) cleanListener() events.Func {
	return events.Multi(s.cleanSess, s.hub.Listener())
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    status,
		Message: message,
	}, status)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
