package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/httputil"
	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
	"github.com/feanor77ist/Basketball-AI-BE/internal/repository"
)

// ──────────────────── Players ────────────────────

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	video, ok := s.videoFromPath(w, r)
	if !ok {
		return
	}
	players, err := s.playerRepo.ListByVideo(r.Context(), video.ID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list players")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, players)
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid player id")
		return
	}
	player, err := s.playerRepo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "player not found")
		} else {
			httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load player")
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, player)
}

func (s *Server) handlePlayerActions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid player id")
		return
	}
	actions, err := s.actionRepo.ListByPlayer(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list actions")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, actions)
}

// ──────────────────── Actions ────────────────────

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	video, ok := s.videoFromPath(w, r)
	if !ok {
		return
	}
	actions, err := s.actionRepo.ListByVideo(r.Context(), video.ID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list actions")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, actions)
}

// ──────────────────── Highlights ────────────────────

func (s *Server) handleListHighlights(w http.ResponseWriter, r *http.Request) {
	video, ok := s.videoFromPath(w, r)
	if !ok {
		return
	}
	highlights, err := s.hlRepo.ListByVideo(r.Context(), video.ID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list highlights")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, highlights)
}

func (s *Server) handleGetHighlight(w http.ResponseWriter, r *http.Request) {
	highlight, ok := s.highlightFromPath(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, highlight)
}

func (s *Server) handleDownloadHighlight(w http.ResponseWriter, r *http.Request) {
	highlight, ok := s.highlightFromPath(w, r)
	if !ok {
		return
	}
	if highlight.FilePath == nil {
		httputil.WriteError(w, http.StatusNotFound, "NO_FILE", "highlight has no rendered file")
		return
	}
	if err := s.hlRepo.IncrementDownloadCount(r.Context(), highlight.ID); err != nil {
		log.Printf("API: download count for highlight %s: %v", highlight.ID, err)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+highlight.Title+`.mp4"`)
	http.ServeFile(w, r, *highlight.FilePath)
}

func (s *Server) handleViewHighlight(w http.ResponseWriter, r *http.Request) {
	highlight, ok := s.highlightFromPath(w, r)
	if !ok {
		return
	}
	if err := s.hlRepo.IncrementViewCount(r.Context(), highlight.ID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to record view")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// ──────────────────── Stats ────────────────────

func (s *Server) handleListStats(w http.ResponseWriter, r *http.Request) {
	video, ok := s.videoFromPath(w, r)
	if !ok {
		return
	}
	stats, err := s.statsRepo.ListByVideo(r.Context(), video.ID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list stats")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) highlightFromPath(w http.ResponseWriter, r *http.Request) (*models.Highlight, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid highlight id")
		return nil, false
	}
	highlight, err := s.hlRepo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "highlight not found")
		} else {
			httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load highlight")
		}
		return nil, false
	}
	return highlight, true
}
