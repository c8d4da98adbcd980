package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"mobile-clean/internal/cleanup"
	"mobile-clean/internal/model"
	"mobile-clean/internal/scan"
)

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.imageSess.Snapshot(), http.StatusOK)
}

// handleImageScan lists the catalogue synchronously, like the large scan.
func (s *Server) handleImageScan(w http.ResponseWriter, r *http.Request) {
	if s.deps.Images == nil {
		respondError(w, scan.ErrNoIndex.Error(), http.StatusServiceUnavailable)
		return
	}
	if !s.op.TryLock() {
		respondError(w, "another scan or clean is in progress", http.StatusConflict)
		return
	}
	defer s.op.Unlock()

	started := time.Now()
	files, err := s.deps.Images.Scan(r.Context())
	s.recordScan(uuid.NewString(), model.FlowImages, started, time.Now(), len(files), model.TotalSize(files), false, err)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scan.ErrNoIndex) {
			status = http.StatusServiceUnavailable
		}
		respondError(w, err.Error(), status)
		return
	}
	s.imageSess.SetImages(files)
	respondJSON(w, s.imageSess.Snapshot(), http.StatusOK)
}

func (s *Server) handleImageSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	switch req.Action {
	case "toggle":
		if !s.imageSess.Toggle(req.Path) {
			respondError(w, "no such image: "+req.Path, http.StatusNotFound)
			return
		}
	case "toggle_day":
		if !s.imageSess.ToggleDay(req.Date) {
			respondError(w, "no images on "+req.Date, http.StatusNotFound)
			return
		}
	case "toggle_all":
		s.imageSess.ToggleAll()
	case "clear":
		s.imageSess.ClearSelection()
	default:
		respondError(w, "unknown action: "+req.Action, http.StatusBadRequest)
		return
	}
	respondJSON(w, s.imageSess.Snapshot(), http.StatusOK)
}

func (s *Server) handleImageDelete(w http.ResponseWriter, r *http.Request) {
	files := s.imageSess.Selected()
	if len(files) == 0 {
		respondError(w, "nothing selected", http.StatusBadRequest)
		return
	}
	id := uuid.NewString()
	started := s.background(func(ctx context.Context) {
		res := s.deps.Engine.DeleteImages(cleanup.WithSessionID(ctx, id), files, s.deps.Catalog, s.cleanListener())
		s.imageSess.Remove(res.Deleted)
		s.setLastClean(model.FlowImages.String(), res)
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
