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

// ──────── Calculate Stats Handler ────────

// CalculateStatsHandler folds the committed actions into per-player stat
// lines. Commits highlights_created → done, the terminal success state.
type CalculateStatsHandler struct {
	deps *Deps
}

func NewCalculateStatsHandler(deps *Deps) *CalculateStatsHandler {
	return &CalculateStatsHandler{deps: deps}
}

func (h *CalculateStatsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p VideoPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	videoID, err := uuid.Parse(p.VideoID)
	if err != nil {
		return fmt.Errorf("parse video id: %w", err)
	}

	video, err := h.deps.SM.Expect(ctx, videoID, pipeline.StageCalculateStats)
	if err != nil {
		if skipped, err := skipOnConflict(err, TaskCalculateStats, p.VideoID); skipped {
			return err
		}
		return err
	}

	return finishStage(ctx, h.deps, video, pipeline.StageCalculateStats, h.run(ctx, video))
}

func (h *CalculateStatsHandler) run(ctx context.Context, video *models.Video) error {
	actions, err := h.deps.Actions.ListByVideo(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("load actions: %w", err)
	}

	stats := pipeline.ComputeStats(video.ID, video.Duration, actions)
	if err := h.deps.Stats.ReplaceForVideo(ctx, video.ID, stats); err != nil {
		return fmt.Errorf("persist stats: %w", err)
	}

	log.Printf("Job: stats for video %s cover %d players from %d actions", video.ID, len(stats), len(actions))
	return nil
}
