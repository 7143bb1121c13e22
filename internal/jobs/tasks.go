package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/config"
	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
	"github.com/feanor77ist/Basketball-AI-BE/internal/pipeline"
	"github.com/feanor77ist/Basketball-AI-BE/internal/repository"
)

// ──────── Payloads ────────

type VideoPayload struct {
	VideoID string `json:"video_id"`
}

// InferencePayload lets a caller re-run segment inference with a chosen
// engine subset and threshold; empty fields fall back to the stage defaults.
type InferencePayload struct {
	VideoID             string   `json:"video_id"`
	Engines             []string `json:"engines,omitempty"`
	ConfidenceThreshold float64  `json:"confidence_threshold,omitempty"`
}

// HighlightsPayload with Criteria set builds one ad-hoc highlight; without
// it, the stage builds the auto-generated preset reels.
type HighlightsPayload struct {
	VideoID  string             `json:"video_id"`
	Criteria *CriteriaOverrides `json:"criteria,omitempty"`
}

type CriteriaOverrides struct {
	Title         string   `json:"title,omitempty"`
	ActionTypes   []string `json:"action_types,omitempty"`
	MinConfidence float64  `json:"min_confidence,omitempty"`
	PlayerID      string   `json:"player_id,omitempty"`
	MaxDuration   float64  `json:"max_duration,omitempty"`
}

type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// ──────── Shared stage dependencies ────────

type Deps struct {
	SM          *pipeline.StateMachine
	Queue       *Queue
	Notifier    EventNotifier
	Videos      *repository.VideoRepository
	Players     *repository.PlayerRepository
	Predictions *repository.PredictionRepository
	Actions     *repository.ActionRepository
	Highlights  *repository.HighlightRepository
	Stats       *repository.StatsRepository
	Runner      *pipeline.Runner
	Aggregator  *pipeline.Aggregator
	Selector    *pipeline.Selector
	Detection   pipeline.Adapter
	Recognition pipeline.Adapter
	Ball        pipeline.Adapter
	Cfg         config.PipelineConfig
}

// ──────── Register all handlers ────────

func RegisterHandlers(q *Queue, deps *Deps) {
	q.RegisterHandler(TaskProcessVideo, NewProcessHandler(deps))
	q.RegisterHandler(TaskDetectPlayers, NewDetectPlayersHandler(deps))
	q.RegisterHandler(TaskAnalyzeBall, NewAnalyzeBallHandler(deps))
	q.RegisterHandler(TaskDetectActions, NewDetectActionsHandler(deps))
	q.RegisterHandler(TaskGenerateHighlights, NewGenerateHighlightsHandler(deps))
	q.RegisterHandler(TaskCalculateStats, NewCalculateStatsHandler(deps))
}

// stageTask maps each pipeline stage to its queue task type.
func stageTask(stage pipeline.Stage) (string, error) {
	switch stage {
	case pipeline.StageDetectPlayers:
		return TaskDetectPlayers, nil
	case pipeline.StageAnalyzeBall:
		return TaskAnalyzeBall, nil
	case pipeline.StageDetectActions:
		return TaskDetectActions, nil
	case pipeline.StageGenerateHighlights:
		return TaskGenerateHighlights, nil
	case pipeline.StageCalculateStats:
		return TaskCalculateStats, nil
	}
	return "", fmt.Errorf("no task for stage %q", stage)
}

// EnqueueStage queues the stage task for a video with a deterministic ID so
// duplicate triggers collapse into one run.
func (q *Queue) EnqueueStage(stage pipeline.Stage, videoID uuid.UUID) error {
	taskType, err := stageTask(stage)
	if err != nil {
		return err
	}
	_, err = q.EnqueueUnique(taskType, VideoPayload{VideoID: videoID.String()}, taskType+":"+videoID.String())
	return err
}

// ──────── Stage outcome plumbing ────────

// finishStage commits or fails the stage in the state machine, broadcasts the
// new status, and queues the next stage on success. The returned error is
// always nil for stage-level failures: retry policy is owned here, not by
// the queue's redelivery.
func finishStage(ctx context.Context, deps *Deps, video *models.Video, stage pipeline.Stage, stageErr error) error {
	if stageErr != nil {
		if err := deps.SM.Fail(ctx, video.ID, stage, stageErr); err != nil {
			return err
		}
		broadcastStatus(deps, video.ID, models.StatusError, string(stage), stageErr.Error())
		return nil
	}

	if err := deps.SM.Commit(ctx, video.ID, stage); err != nil {
		return err
	}
	status, _ := pipeline.StageOutputStatus(stage)
	broadcastStatus(deps, video.ID, status, "", "")

	if next, ok := pipeline.NextStageFor(status); ok {
		if err := deps.Queue.EnqueueStage(next, video.ID); err != nil {
			return fmt.Errorf("enqueue next stage %s: %w", next, err)
		}
	}
	return nil
}

// skipOnConflict absorbs stale-task conflicts: a task observing a status it
// no longer expects (video advanced, retried elsewhere, or cancelled) logs
// and drops out without touching state.
func skipOnConflict(err error, taskType, videoID string) (bool, error) {
	var conflict *pipeline.StateConflictError
	if errors.As(err, &conflict) {
		log.Printf("Job: %s for video %s skipped: %v", taskType, videoID, conflict)
		return true, nil
	}
	return false, err
}

func broadcastStatus(deps *Deps, videoID uuid.UUID, status models.VideoStatus, failedStage, cause string) {
	if deps.Notifier == nil {
		return
	}
	data := map[string]interface{}{
		"video_id": videoID.String(),
		"status":   status,
	}
	if failedStage != "" {
		data["failed_stage"] = failedStage
		data["error_cause"] = cause
	}
	deps.Notifier.Broadcast("video:status", data)
}
