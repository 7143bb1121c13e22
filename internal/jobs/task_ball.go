package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/feanor77ist/Basketball-AI-BE/internal/pipeline"
)

// ──────── Analyze Ball Handler ────────

// AnalyzeBallHandler runs the ball localization engine over the segments.
// Its scoring-event predictions stay in raw form until action aggregation
// uses them to attribute shot success. Commits
// players_detected → ball_analyzed.
type AnalyzeBallHandler struct {
	deps *Deps
}

func NewAnalyzeBallHandler(deps *Deps) *AnalyzeBallHandler {
	return &AnalyzeBallHandler{deps: deps}
}

func (h *AnalyzeBallHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p VideoPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	videoID, err := uuid.Parse(p.VideoID)
	if err != nil {
		return fmt.Errorf("parse video id: %w", err)
	}

	video, err := h.deps.SM.Expect(ctx, videoID, pipeline.StageAnalyzeBall)
	if err != nil {
		if skipped, err := skipOnConflict(err, TaskAnalyzeBall, p.VideoID); skipped {
			return err
		}
		return err
	}

	var stageErr error
	if reports, err := h.deps.Runner.Run(ctx, video, []pipeline.Adapter{h.deps.Ball}); err != nil {
		stageErr = err
	} else {
		for _, rep := range reports {
			log.Printf("Job: ball analysis for video %s: %d segments, %d events", video.ID, rep.Segments, rep.Predictions)
		}
	}
	return finishStage(ctx, h.deps, video, pipeline.StageAnalyzeBall, stageErr)
}
