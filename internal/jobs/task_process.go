package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
	"github.com/feanor77ist/Basketball-AI-BE/internal/pipeline"
)

// ──────── Process Video Handler ────────

// ProcessHandler kicks off the pipeline for an uploaded video: it stamps the
// processing start time and queues the first stage. All subsequent stages
// chain themselves as each one commits.
type ProcessHandler struct {
	deps *Deps
}

func NewProcessHandler(deps *Deps) *ProcessHandler {
	return &ProcessHandler{deps: deps}
}

func (h *ProcessHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p VideoPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	videoID, err := uuid.Parse(p.VideoID)
	if err != nil {
		return fmt.Errorf("parse video id: %w", err)
	}

	video, err := h.deps.SM.Expect(ctx, videoID, pipeline.StageDetectPlayers)
	if err != nil {
		if skipped, err := skipOnConflict(err, TaskProcessVideo, p.VideoID); skipped {
			return err
		}
		return err
	}

	if err := h.deps.SM.StartProcessing(ctx, video.ID); err != nil {
		return fmt.Errorf("mark processing started: %w", err)
	}

	log.Printf("Job: starting pipeline for video %s (%.1fs, %s)", video.ID, video.Duration, video.OriginalName)
	broadcastStatus(h.deps, video.ID, models.StatusUploaded, "", "")
	return h.deps.Queue.EnqueueStage(pipeline.StageDetectPlayers, video.ID)
}
