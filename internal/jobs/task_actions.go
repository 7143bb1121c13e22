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

// ──────── Detect Actions Handler ────────

// DetectActionsHandler runs recognition inference over the segments, then
// aggregates the full raw prediction set into committed actions. Raw
// predictions are dropped once the action set lands; on aggregation failure
// they are retained so a retry re-consumes them without re-running inference.
// Commits ball_analyzed → actions_done.
type DetectActionsHandler struct {
	deps *Deps
}

func NewDetectActionsHandler(deps *Deps) *DetectActionsHandler {
	return &DetectActionsHandler{deps: deps}
}

func (h *DetectActionsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p InferencePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	videoID, err := uuid.Parse(p.VideoID)
	if err != nil {
		return fmt.Errorf("parse video id: %w", err)
	}

	video, err := h.deps.SM.Expect(ctx, videoID, pipeline.StageDetectActions)
	if err != nil {
		if skipped, err := skipOnConflict(err, TaskDetectActions, p.VideoID); skipped {
			return err
		}
		return err
	}

	return finishStage(ctx, h.deps, video, pipeline.StageDetectActions, h.run(ctx, video, &p))
}

func (h *DetectActionsHandler) run(ctx context.Context, video *models.Video, p *InferencePayload) error {
	adapters := h.adaptersFor(p.Engines)
	if len(adapters) == 0 {
		return fmt.Errorf("no inference engines selected")
	}

	if _, err := h.deps.Runner.Run(ctx, video, adapters); err != nil {
		return err
	}

	segments, err := h.deps.Runner.PlanFor(video.Duration)
	if err != nil {
		return err
	}
	preds, err := h.deps.Predictions.ListByVideo(ctx, video.ID,
		string(pipeline.EngineRecognition), string(pipeline.EngineBall))
	if err != nil {
		return fmt.Errorf("load predictions: %w", err)
	}
	players, err := h.deps.Players.ListByVideo(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("load players: %w", err)
	}

	aggregator := h.deps.Aggregator
	if p.ConfidenceThreshold > 0 {
		aggregator = pipeline.NewAggregator(pipeline.AggregatorConfig{
			ConfidenceThreshold: p.ConfidenceThreshold,
			CentroidMaxDistance: h.deps.Cfg.CentroidMaxDistance,
		})
	}

	actions, err := aggregator.Aggregate(video.ID, preds, players, segments)
	if err != nil {
		return err
	}
	if err := h.deps.Actions.ReplaceForVideo(ctx, video.ID, actions); err != nil {
		return fmt.Errorf("persist actions: %w", err)
	}

	// Raw predictions served their purpose once the action set committed.
	if err := h.deps.Predictions.DeleteByVideo(ctx, video.ID,
		string(pipeline.EngineRecognition), string(pipeline.EngineBall)); err != nil {
		log.Printf("Job: could not drop consumed predictions for video %s: %v", video.ID, err)
	}

	log.Printf("Job: action detection for video %s committed %d actions from %d predictions",
		video.ID, len(actions), len(preds))
	return nil
}

func (h *DetectActionsHandler) adaptersFor(engines []string) []pipeline.Adapter {
	if len(engines) == 0 {
		return []pipeline.Adapter{h.deps.Recognition}
	}
	var out []pipeline.Adapter
	for _, e := range engines {
		switch pipeline.EngineKind(e) {
		case pipeline.EngineRecognition:
			out = append(out, h.deps.Recognition)
		case pipeline.EngineBall:
			out = append(out, h.deps.Ball)
		case pipeline.EngineDetection:
			out = append(out, h.deps.Detection)
		}
	}
	return out
}
