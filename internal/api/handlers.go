package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"mobile-clean/internal/classify"
	"mobile-clean/internal/cleanup"
	"mobile-clean/internal/database"
	"mobile-clean/internal/disk"
	"mobile-clean/internal/events"
	"mobile-clean/internal/filter"
	"mobile-clean/internal/metrics"
	"mobile-clean/internal/model"
	"mobile-clean/internal/scan"
	"mobile-clean/internal/session"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "healthy"}, http.StatusOK)
}

// StatusResponse reports storage capacity and what the server is doing.
type StatusResponse struct {
	Storage  *disk.Usage    `json:"storage,omitempty"`
	Scan     session.Status `json:"scan"`
	Clean    session.Status `json:"clean"`
	Busy     bool           `json:"busy"`
	DryRun   bool           `json:"dry_run"`
	LastRun  *cleanSummary  `json:"last_clean,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Scan:   session.StatusOf(s.scanSess.State()),
		Clean:  session.StatusOf(s.cleanSess.State()),
		Busy:   s.busy(),
		DryRun: s.deps.Engine.DryRun(),
	}
	if s.deps.StorageRoot != "" {
		u, err := disk.Stat(r.Context(), s.deps.StorageRoot)
		if err != nil {
			resp.Warnings = append(resp.Warnings, err.Error())
		} else {
			metrics.UpdateStorage(u)
			resp.Storage = &u
		}
	}
	s.mu.Lock()
	resp.LastRun = s.lastClean
	s.mu.Unlock()
	respondJSON(w, resp, http.StatusOK)
}

func (s *Server) busy() bool {
	if s.op.TryLock() {
		s.op.Unlock()
		return false
	}
	return true
}

// OperationResponse acknowledges a background scan or clean.
type OperationResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Count     int    `json:"count,omitempty"`
	Size      int64  `json:"size,omitempty"`
}

func (s *Server) handleJunkScan(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	started := s.background(func(ctx context.Context) {
		res := s.deps.Junk.Run(ctx, events.Multi(s.scanSess, s.hub.Listener()))
		s.recordScan(id, model.FlowJunk, res.Started, res.Finished, res.Count, res.Size, res.Truncated, res.Err)
	})
	if !started {
		respondError(w, "another scan or clean is in progress", http.StatusConflict)
		return
	}
	respondJSON(w, OperationResponse{SessionID: id, Status: "scanning"}, http.StatusAccepted)
}

func (s *Server) handleJunkSnapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.scanSess.Snapshot(), http.StatusOK)
}

// SelectionRequest changes a selection. Actions per session:
//
//	junk:   toggle_file, toggle_category, select_all, clear
//	large:  toggle, select_all, clear
//	images: toggle, toggle_day, toggle_all, clear
type SelectionRequest struct {
	Action   string `json:"action"`
	Path     string `json:"path,omitempty"`
	Category string `json:"category,omitempty"`
	Date     string `json:"date,omitempty"`
}

func (s *Server) handleJunkSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	switch req.Action {
	case "toggle_file":
		var found bool
		found, err = s.scanSess.ToggleFile(req.Path)
		if err == nil && !found {
			respondError(w, "no such file in scan result: "+req.Path, http.StatusNotFound)
			return
		}
	case "toggle_category":
		cat, ok := model.ParseCategory(req.Category)
		if !ok || cat.Flow() != model.FlowJunk {
			respondError(w, "unknown junk category: "+req.Category, http.StatusBadRequest)
			return
		}
		err = s.scanSess.ToggleCategory(cat)
	case "select_all":
		err = s.scanSess.SelectAll()
	case "clear":
		err = s.scanSess.ClearSelection()
	default:
		respondError(w, "unknown action: "+req.Action, http.StatusBadRequest)
		return
	}
	if errors.Is(err, session.ErrBusy) {
		respondError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, s.scanSess.Snapshot(), http.StatusOK)
}

func (s *Server) handleJunkClean(w http.ResponseWriter, r *http.Request) {
	if s.scanSess.Scanning() {
		respondError(w, "scan in progress", http.StatusConflict)
		return
	}
	files := s.scanSess.Selected()
	id := uuid.NewString()
	started := s.background(func(ctx context.Context) {
		res := s.deps.Engine.CleanJunk(cleanup.WithSessionID(ctx, id), files, s.cleanListener())
		s.scanSess.Remove(res.Deleted)
		s.setLastClean(model.FlowJunk.String(), res)
	})
	if !started {
		respondError(w, "another scan or clean is in progress", http.StatusConflict)
		return
	}
	respondJSON(w, OperationResponse{
		SessionID: id,
		Status:    "cleaning",
		Count:     len(files),
		Size:      model.TotalSize(files),
	}, http.StatusAccepted)
}

func (s *Server) handleCleanStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	last := s.lastClean
	s.mu.Unlock()
	respondJSON(w, map[string]interface{}{
		"status":     session.StatusOf(s.cleanSess.State()),
		"last_clean": last,
	}, http.StatusOK)
}

// LargeResponse is the filtered view of the large-file session.
type LargeResponse struct {
	Filter        filter.Filter      `json:"filter"`
	Files         []model.Descriptor `json:"files"`
	TotalCount    int                `json:"total_count"`
	VisibleSize   int64              `json:"visible_size"`
	SelectedCount int                `json:"selected_count"`
	SelectedSize  int64              `json:"selected_size"`
}

func (s *Server) largeView() LargeResponse {
	visible := s.largeSess.Visible()
	selected := s.largeSess.SelectedVisible()
	return LargeResponse{
		Filter:        s.largeSess.Filter(),
		Files:         visible,
		TotalCount:    len(s.largeSess.Files()),
		VisibleSize:   model.TotalSize(visible),
		SelectedCount: len(selected),
		SelectedSize:  model.TotalSize(selected),
	}
}

func (s *Server) handleLarge(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.largeView(), http.StatusOK)
}

func (s *Server) handleLargeFilters(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string][]string{
		"type": filter.TypeLabels(),
		"size": filter.SizeLabels(),
		"time": filter.TimeLabels(),
	}, http.StatusOK)
}

func (s *Server) handleLargeFilter(w http.ResponseWriter, r *http.Request) {
	f := filter.Default()
	if err := decodeBody(r, &f); err != nil {
		respondError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.largeSess.SetFilter(f)
	respondJSON(w, s.largeView(), http.StatusOK)
}

// handleLargeScan runs synchronously: the large scan is a single pass
// without progress events.
func (s *Server) handleLargeScan(w http.ResponseWriter, r *http.Request) {
	if !s.op.TryLock() {
		respondError(w, "another scan or clean is in progress", http.StatusConflict)
		return
	}
	defer s.op.Unlock()

	started := time.Now()
	files, err := s.deps.Large.Scan(r.Context())
	s.recordScan(uuid.NewString(), model.FlowLarge, started, time.Now(), len(files), model.TotalSize(files), false, err)
	if err != nil && len(files) == 0 {
		if errors.Is(err, scan.ErrStorageRoot) {
			respondError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err != nil {
		s.logger.Warnw("Large scan incomplete", "error", err, "files", len(files))
	}
	s.largeSess.SetFiles(files)
	respondJSON(w, s.largeView(), http.StatusOK)
}

func (s *Server) handleLargeSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	switch req.Action {
	case "toggle":
		if !s.largeSess.Toggle(req.Path) {
			respondError(w, "no such file in scan result: "+req.Path, http.StatusNotFound)
			return
		}
	case "select_all":
		s.largeSess.SelectAllVisible()
	case "clear":
		s.largeSess.ClearSelection()
	default:
		respondError(w, "unknown action: "+req.Action, http.StatusBadRequest)
		return
	}
	respondJSON(w, s.largeView(), http.StatusOK)
}

func (s *Server) handleLargeDelete(w http.ResponseWriter, r *http.Request) {
	files := s.largeSess.SelectedVisible()
	if len(files) == 0 {
		respondError(w, "nothing selected", http.StatusBadRequest)
		return
	}
	id := uuid.NewString()
	started := s.background(func(ctx context.Context) {
		res := s.deps.Engine.DeleteLarge(cleanup.WithSessionID(ctx, id), files, s.cleanListener())
		s.largeSess.Remove(res.Deleted)
		s.setLastClean(model.FlowLarge.String(), res)
	})
	if !started {
		respondError(w, "another scan or clean is in progress", http.StatusConflict)
		return
	}
	respondJSON(w, OperationResponse{
		SessionID: id,
		Status:    "cleaning",
		Count:     len(files),
		Size:      model.TotalSize(files),
	}, http.StatusAccepted)
}

// HistoryEntry is a deletion record with its reason rendered for people.
type HistoryEntry struct {
	database.DeletionRecord
	PrimaryReason string `json:"primary_reason"`
	HumanReason   string `json:"human_reason"`
}

// HistoryResponse is one page of history.
type HistoryResponse struct {
	Records []HistoryEntry `json:"records"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB == nil {
		respondError(w, "history database not configured", http.StatusServiceUnavailable)
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var (
		records []database.DeletionRecord
		total   int
	)
	if action := r.URL.Query().Get("action"); action != "" {
		records, total, err = s.deps.DB.GetDeletionsByActionPaginated(action, limit, offset)
	} else {
		records, total, err = s.deps.DB.GetRecentDeletionsPaginated(limit, offset)
	}
	if err != nil {
		s.logger.Errorw("Failed to query history", "error", err)
		respondError(w, "failed to query history", http.StatusInternalServerError)
		return
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		reason := classify.ParseReason(rec.Reason)
		entries = append(entries, HistoryEntry{
			DeletionRecord: rec,
			PrimaryReason:  reason.GetPrimaryReason(),
			HumanReason:    reason.ToHumanReadable(),
		})
	}
	respondJSON(w, HistoryResponse{Records: entries, Total: total, Limit: limit, Offset: offset}, http.StatusOK)
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB == nil {
		respondError(w, "history database not configured", http.StatusServiceUnavailable)
		return
	}
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = n
	}
	stats, err := s.deps.DB.GetDeletionStats(days)
	if err != nil {
		s.logger.Errorw("Failed to compute history stats", "error", err)
		respondError(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}
	respondJSON(w, stats, http.StatusOK)
}

func (s *Server) handleScanHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB == nil {
		respondError(w, "history database not configured", http.StatusServiceUnavailable)
		return
	}
	limit, _, err := pagination(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	scans, err := s.deps.DB.GetRecentScans(limit)
	if err != nil {
		s.logger.Errorw("Failed to query scans", "error", err)
		respondError(w, "failed to query scans", http.StatusInternalServerError)
		return
	}
	respondJSON(w, scans, http.StatusOK)
}

func pagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultHistoryLimit
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}
	}
	if v := q.Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

func (s *Server) recordScan(id string, flow model.Flow, started, finished time.Time, count int, size int64, truncated bool, scanErr error) {
	if s.deps.DB == nil {
		return
	}
	rec := database.ScanRecord{
		SessionID:  id,
		Flow:       flow.String(),
		StartedAt:  started,
		FinishedAt: finished,
		Files:      count,
		Bytes:      size,
		Truncated:  truncated,
	}
	if scanErr != nil {
		rec.Error = scanErr.Error()
	}
	if err := s.deps.DB.RecordScan(rec); err != nil {
		s.logger.Errorw("Failed to record scan", "session", id, "error", err)
	}
}
