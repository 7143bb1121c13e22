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

// ──────── Detect Players Handler ────────

// DetectPlayersHandler runs the detection engine over the video's segments
// and folds the resulting tracks into player records. Commits
// uploaded → players_detected.
type DetectPlayersHandler struct {
	deps *Deps
}

func NewDetectPlayersHandler(deps *Deps) *DetectPlayersHandler {
	return &DetectPlayersHandler{deps: deps}
}

func (h *DetectPlayersHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
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
		if skipped, err := skipOnConflict(err, TaskDetectPlayers, p.VideoID); skipped {
			return err
		}
		return err
	}

	return finishStage(ctx, h.deps, video, pipeline.StageDetectPlayers, h.run(ctx, video))
}

func (h *DetectPlayersHandler) run(ctx context.Context, video *models.Video) error {
	if _, err := h.deps.Runner.Run(ctx, video, []pipeline.Adapter{h.deps.Detection}); err != nil {
		return err
	}

	preds, err := h.deps.Predictions.ListByVideo(ctx, video.ID, string(pipeline.EngineDetection))
	if err != nil {
		return fmt.Errorf("load detection predictions: %w", err)
	}

	players := pipeline.BuildPlayerTracks(video.ID, preds, h.deps.Cfg.MinTrackAppearances)
	if err := h.deps.Players.ReplaceForVideo(ctx, video.ID, players); err != nil {
		return fmt.Errorf("persist players: %w", err)
	}

	log.Printf("Job: player detection for video %s found %d players from %d predictions",
		video.ID, len(players), len(preds))
	return nil
}
