package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/auth"
	"github.com/feanor77ist/Basketball-AI-BE/internal/httputil"
	"github.com/feanor77ist/Basketball-AI-BE/internal/jobs"
	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
	"github.com/feanor77ist/Basketball-AI-BE/internal/pipeline"
	"github.com/feanor77ist/Basketball-AI-BE/internal/repository"
)

const maxUploadBytes = 4 << 30 // 4 GiB

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	u, err := s.userRepo.GetByID(r.Context(), user.UserID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

// handleUploadVideo accepts a multipart upload, probes it, registers the
// video and kicks off the pipeline.
func (s *Server) handleUploadVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_UPLOAD", "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".mp4", ".mov", ".mkv", ".avi", ".webm":
	default:
		httputil.WriteError(w, http.StatusBadRequest, "UNSUPPORTED_FORMAT", "unsupported video format "+ext)
		return
	}

	videoID := uuid.New()
	dstPath := filepath.Join(s.config.UploadsDir, videoID.String()+ext)
	dst, err := os.Create(dstPath)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to store upload")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(dstPath)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to store upload")
		return
	}
	dst.Close()

	video := &models.Video{
		ID:           videoID,
		FilePath:     dstPath,
		OriginalName: header.Filename,
		Status:       models.StatusUploaded,
	}
	if user := auth.UserFromContext(r.Context()); user != nil {
		if uid, err := uuid.Parse(user.UserID); err == nil {
			video.UserID = &uid
		}
	}

	if probe, err := s.prober.Probe(dstPath); err != nil {
		log.Printf("API: probe failed for upload %s: %v", header.Filename, err)
	} else {
		video.Duration = probe.DurationSeconds()
		if stream, ok := probe.VideoStream(); ok {
			video.FPS = stream.FPS()
			video.Width = stream.Width
			video.Height = stream.Height
		}
	}

	if err := s.videoRepo.Create(r.Context(), video); err != nil {
		os.Remove(dstPath)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to register video")
		return
	}

	if _, err := s.queue.EnqueueUnique(jobs.TaskProcessVideo, jobs.VideoPayload{VideoID: videoID.String()}, jobs.TaskProcessVideo+":"+videoID.String()); err != nil {
		log.Printf("API: enqueue process for video %s: %v", videoID, err)
	}

	httputil.WriteJSON(w, http.StatusCreated, video)
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.videoRepo.List(r.Context(), nil)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list videos")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, videos)
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	video, ok := s.videoFromPath(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, video)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	video, ok := s.videoFromPath(w, r)
	if !ok {
		return
	}
	if err := s.videoRepo.Delete(r.Context(), video.ID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete video")
		return
	}
	if err := os.Remove(video.FilePath); err != nil && !os.IsNotExist(err) {
		log.Printf("API: remove file for deleted video %s: %v", video.ID, err)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleVideoStatus reports where the video sits in the pipeline; failed
// videos carry the stage that failed and its cause.
func (s *Server) handleVideoStatus(w http.ResponseWriter, r *http.Request) {
	video, ok := s.videoFromPath(w, r)
	if !ok {
		return
	}

	data := map[string]interface{}{
		"video_id": video.ID.String(),
		"status":   video.Status,
	}
	if video.Status == models.StatusError {
		if video.FailedStage != nil {
			data["failed_stage"] = *video.FailedStage
		}
		if video.ErrorMessage != nil {
			data["error_cause"] = *video.ErrorMessage
		}
	}
	httputil.WriteJSON(w, http.StatusOK, data)
}

// handleProcessVideo starts the pipeline for a video still in uploaded.
func (s *Server) handleProcessVideo(w http.ResponseWriter, r *http.Request) {
	video, ok := s.videoFromPath(w, r)
	if !ok {
		return
	}
	if video.Status != models.StatusUploaded {
		httputil.WriteError(w, http.StatusConflict, "ALREADY_PROCESSING", "video is not in uploaded state")
		return
	}

	if _, err := s.queue.EnqueueUnique(jobs.TaskProcessVideo, jobs.VideoPayload{VideoID: video.ID.String()}, jobs.TaskProcessVideo+":"+video.ID.String()); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to enqueue processing")
		return
	}
	httputil.WriteAccepted(w, map[string]string{"video_id": video.ID.String(), "status": "queued"})
}

// handleRetryVideo re-enters the pipeline at the failed stage.
func (s *Server) handleRetryVideo(w http.ResponseWriter, r *http.Request) {
	video, ok := s.videoFromPath(w, r)
	if !ok {
		return
	}

	stage, err := s.sm.Retry(r.Context(), video.ID)
	if err != nil {
		var conflict *pipeline.StateConflictError
		if errors.As(err, &conflict) {
			httputil.WriteError(w, http.StatusConflict, "NOT_FAILED", "video is not in the error state")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to reset video state")
		return
	}

	if err := s.queue.EnqueueStage(stage, video.ID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to enqueue retry")
		return
	}
	httputil.WriteAccepted(w, map[string]string{
		"video_id": video.ID.String(),
		"stage":    string(stage),
		"status":   "queued",
	})
}

// handleInferVideo re-runs segment inference with a chosen engine subset and
// threshold; the video must be waiting on action detection.
func (s *Server) handleInferVideo(w http.ResponseWriter, r *http.Request) {
	video, ok := s.videoFromPath(w, r)
	if !ok {
		return
	}
	if video.Status != models.StatusBallAnalyzed {
		httputil.WriteError(w, http.StatusConflict, "WRONG_STATE", "video must be in ball_analyzed to re-run inference")
		return
	}

	var req struct {
		Engines             []string `json:"engines,omitempty"`
		ConfidenceThreshold float64  `json:"confidence_threshold,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := httputil.ReadJSON(r, &req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
			return
		}
	}
	for _, e := range req.Engines {
		switch e {
		case string(pipeline.EngineDetection), string(pipeline.EngineRecognition), string(pipeline.EngineBall):
		default:
			httputil.WriteError(w, http.StatusBadRequest, "UNKNOWN_ENGINE", "unknown engine "+e)
			return
		}
	}

	payload := jobs.InferencePayload{
		VideoID:             video.ID.String(),
		Engines:             req.Engines,
		ConfidenceThreshold: req.ConfidenceThreshold,
	}
	if _, err := s.queue.EnqueueUnique(jobs.TaskDetectActions, payload, jobs.TaskDetectActions+":"+video.ID.String()); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to enqueue inference")
		return
	}
	httputil.WriteAccepted(w, map[string]string{"video_id": video.ID.String(), "status": "queued"})
}

// handleGenerateHighlights queues an ad-hoc highlight build against a video
// whose actions are already committed.
func (s *Server) handleGenerateHighlights(w http.ResponseWriter, r *http.Request) {
	video, ok := s.videoFromPath(w, r)
	if !ok {
		return
	}
	switch video.Status {
	case models.StatusActionsDone, models.StatusHighlightsCreated, models.StatusDone:
	default:
		httputil.WriteError(w, http.StatusConflict, "WRONG_STATE", "video has no committed actions yet")
		return
	}

	var criteria jobs.CriteriaOverrides
	if err := httputil.ReadJSON(r, &criteria); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	payload := jobs.HighlightsPayload{VideoID: video.ID.String(), Criteria: &criteria}
	if _, err := s.queue.Enqueue(jobs.TaskGenerateHighlights, payload); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to enqueue highlight build")
		return
	}
	httputil.WriteAccepted(w, map[string]string{"video_id": video.ID.String(), "status": "queued"})
}

func (s *Server) videoFromPath(w http.ResponseWriter, r *http.Request) (*models.Video, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid video id")
		return nil, false
	}
	video, err := s.videoRepo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "video not found")
		} else {
			httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load video")
		}
		return nil, false
	}
	return video, true
}
