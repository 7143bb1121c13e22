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

// ──────── Generate Highlights Handler ────────

// GenerateHighlightsHandler builds highlight reels from committed actions.
// As a pipeline stage (no criteria payload) it renders the preset reels and
// commits actions_done → highlights_created. With explicit criteria it runs
// ad hoc against an already-processed video and leaves status untouched.
type GenerateHighlightsHandler struct {
	deps *Deps
}

func NewGenerateHighlightsHandler(deps *Deps) *GenerateHighlightsHandler {
	return &GenerateHighlightsHandler{deps: deps}
}

func (h *GenerateHighlightsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p HighlightsPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	videoID, err := uuid.Parse(p.VideoID)
	if err != nil {
		return fmt.Errorf("parse video id: %w", err)
	}

	if p.Criteria != nil {
		return h.runAdHoc(ctx, videoID, p.Criteria)
	}

	video, err := h.deps.SM.Expect(ctx, videoID, pipeline.StageGenerateHighlights)
	if err != nil {
		if skipped, err := skipOnConflict(err, TaskGenerateHighlights, p.VideoID); skipped {
			return err
		}
		return err
	}

	return finishStage(ctx, h.deps, video, pipeline.StageGenerateHighlights, h.runPresets(ctx, video))
}

func (h *GenerateHighlightsHandler) runPresets(ctx context.Context, video *models.Video) error {
	actions, err := h.deps.Actions.ListByVideo(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("load actions: %w", err)
	}

	created := 0
	for _, criteria := range pipeline.PresetCriteria() {
		criteria.Padding = h.deps.Cfg.ClipPadding
		if err := h.deps.Highlights.DeleteGenerated(ctx, video.ID, criteria.Type); err != nil {
			return fmt.Errorf("clear prior %s highlights: %w", criteria.Type, err)
		}

		highlight, err := h.deps.Selector.Select(ctx, video, actions, criteria)
		if err != nil {
			return fmt.Errorf("build %s highlight: %w", criteria.Type, err)
		}
		if highlight == nil {
			log.Printf("Job: no eligible clips for %s highlight of video %s", criteria.Type, video.ID)
			continue
		}
		if err := h.deps.Highlights.Create(ctx, highlight); err != nil {
			return fmt.Errorf("persist %s highlight: %w", criteria.Type, err)
		}
		created++
	}

	log.Printf("Job: highlight generation for video %s created %d reels", video.ID, created)
	return nil
}

// runAdHoc serves the generate-highlights trigger for videos whose actions
// are already committed; valid from actions_done onward.
func (h *GenerateHighlightsHandler) runAdHoc(ctx context.Context, videoID uuid.UUID, overrides *CriteriaOverrides) error {
	video, err := h.deps.Videos.Get(ctx, videoID)
	if err != nil {
		return fmt.Errorf("load video %s: %w", videoID, err)
	}
	switch video.Status {
	case models.StatusActionsDone, models.StatusHighlightsCreated, models.StatusDone:
	default:
		log.Printf("Job: ad-hoc highlights for video %s skipped: status %s has no committed actions", videoID, video.Status)
		return nil
	}

	actions, err := h.deps.Actions.ListByVideo(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("load actions: %w", err)
	}

	criteria := pipeline.Criteria{
		Title:         overrides.Title,
		Type:          models.HighlightPlayer,
		MinConfidence: overrides.MinConfidence,
		MaxDuration:   overrides.MaxDuration,
		Padding:       h.deps.Cfg.ClipPadding,
	}
	if criteria.Title == "" {
		criteria.Title = "Custom Highlight"
	}
	for _, t := range overrides.ActionTypes {
		criteria.ActionTypes = append(criteria.ActionTypes, models.ActionType(t))
	}
	if overrides.PlayerID != "" {
		pid, err := uuid.Parse(overrides.PlayerID)
		if err != nil {
			return fmt.Errorf("parse player id: %w", err)
		}
		criteria.PlayerID = &pid
	}

	highlight, err := h.deps.Selector.Select(ctx, video, actions, criteria)
	if err != nil {
		return fmt.Errorf("build ad-hoc highlight: %w", err)
	}
	if highlight == nil {
		log.Printf("Job: ad-hoc highlight for video %s produced no clips", videoID)
		return nil
	}
	if err := h.deps.Highlights.Create(ctx, highlight); err != nil {
		return fmt.Errorf("persist ad-hoc highlight: %w", err)
	}

	if h.deps.Notifier != nil {
		h.deps.Notifier.Broadcast("highlight:created", map[string]interface{}{
			"video_id":     videoID.String(),
			"highlight_id": highlight.ID.String(),
			"title":        highlight.Title,
		})
	}
	return nil
}
