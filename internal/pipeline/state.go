package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

// Stage is one gated unit of the pipeline. Stages run strictly in order for
// a video; each one's committed output is the next one's input.
type Stage string

const (
	StageDetectPlayers      Stage = "detect_players"
	StageAnalyzeBall        Stage = "analyze_ball"
	StageDetectActions      Stage = "detect_actions"
	StageGenerateHighlights Stage = "generate_highlights"
	StageCalculateStats     Stage = "calculate_stats"
)

// stageTable fixes the forward progression. Every stage consumes exactly one
// status and commits exactly one; there are no cycles and no skips.
var stageTable = []struct {
	stage Stage
	in    models.VideoStatus
	out   models.VideoStatus
}{
	{StageDetectPlayers, models.StatusUploaded, models.StatusPlayersDetected},
	{StageAnalyzeBall, models.StatusPlayersDetected, models.StatusBallAnalyzed},
	{StageDetectActions, models.StatusBallAnalyzed, models.StatusActionsDone},
	{StageGenerateHighlights, models.StatusActionsDone, models.StatusHighlightsCreated},
	{StageCalculateStats, models.StatusHighlightsCreated, models.StatusDone},
}

// StageInputStatus returns the status a video must hold for the stage to run.
func StageInputStatus(stage Stage) (models.VideoStatus, bool) {
	for _, row := range stageTable {
		if row.stage == stage {
			return row.in, true
		}
	}
	return "", false
}

// StageOutputStatus returns the status committed by a successful stage.
func StageOutputStatus(stage Stage) (models.VideoStatus, bool) {
	for _, row := range stageTable {
		if row.stage == stage {
			return row.out, true
		}
	}
	return "", false
}

// NextStageFor returns the stage that advances the given status, if any.
func NextStageFor(status models.VideoStatus) (Stage, bool) {
	for _, row := range stageTable {
		if row.in == status {
			return row.stage, true
		}
	}
	return "", false
}

// Next is the pure transition function: given the current status and a stage
// outcome it yields the new status. Any stage failure lands in the absorbing
// error state; a success from the wrong status is a conflict, never a skip.
func Next(current models.VideoStatus, stage Stage, stageErr error) (models.VideoStatus, error) {
	if stageErr != nil {
		return models.StatusError, nil
	}
	in, ok := StageInputStatus(stage)
	if !ok {
		return current, fmt.Errorf("unknown stage %q", stage)
	}
	if current != in {
		return current, &StateConflictError{Expected: string(in), Stage: string(stage)}
	}
	out, _ := StageOutputStatus(stage)
	return out, nil
}

// ──────────────────── State machine ────────────────────

// VideoStore is the transactional persistence the state machine drives.
// Transition must be conditional on the expected current status (compare and
// swap in SQL) and report whether the swap happened, which is what makes the
// machine the sole effective writer of a video's status.
type VideoStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Video, error)
	Transition(ctx context.Context, id uuid.UUID, from, to models.VideoStatus, failedStage, errorMessage *string) (bool, error)
	MarkProcessingStarted(ctx context.Context, id uuid.UUID) error
}

// StateMachine sequences the pipeline stages for a video and owns the
// retry/failure policy around them. All status writes flow through here.
type StateMachine struct {
	videos VideoStore
}

func NewStateMachine(videos VideoStore) *StateMachine {
	return &StateMachine{videos: videos}
}

// Expect loads the video and verifies it is positioned at the stage's input
// status. Stale or duplicate stage tasks surface as StateConflictError here,
// which is also the cancellation point between stages: a video whose status
// moved on (or was deleted) stops its pipeline without touching state.
func (m *StateMachine) Expect(ctx context.Context, videoID uuid.UUID, stage Stage) (*models.Video, error) {
	video, err := m.videos.Get(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("load video %s: %w", videoID, err)
	}
	in, ok := StageInputStatus(stage)
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	if video.Status != in {
		return nil, &StateConflictError{VideoID: videoID.String(), Expected: string(in), Stage: string(stage)}
	}
	return video, nil
}

// Commit advances the video past a successfully completed stage. The stage's
// output must already be durably persisted by the caller: stages are
// idempotent, so a crash between output commit and this status swap is
// recovered by re-running the stage.
func (m *StateMachine) Commit(ctx context.Context, videoID uuid.UUID, stage Stage) error {
	in, _ := StageInputStatus(stage)
	out, ok := StageOutputStatus(stage)
	if !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}
	swapped, err := m.videos.Transition(ctx, videoID, in, out, nil, nil)
	if err != nil {
		return fmt.Errorf("commit stage %s: %w", stage, err)
	}
	if !swapped {
		return &StateConflictError{VideoID: videoID.String(), Expected: string(in), Stage: string(stage)}
	}
	log.Printf("Pipeline: video %s stage %s committed, status %s", videoID, stage, out)
	return nil
}

// Fail moves the video into the error state, recording the failing stage and
// cause. It never skips the stage or absorbs the failure into a later status.
func (m *StateMachine) Fail(ctx context.Context, videoID uuid.UUID, stage Stage, cause error) error {
	in, ok := StageInputStatus(stage)
	if !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}
	stageName := string(stage)
	msg := cause.Error()
	swapped, err := m.videos.Transition(ctx, videoID, in, models.StatusError, &stageName, &msg)
	if err != nil {
		return fmt.Errorf("record stage %s failure: %w", stage, err)
	}
	if !swapped {
		return &StateConflictError{VideoID: videoID.String(), Expected: string(in), Stage: string(stage)}
	}
	log.Printf("Pipeline: video %s stage %s failed: %v", videoID, stage, cause)
	return nil
}

// Retry re-enters the pipeline at the recorded failed stage. This is the only
// transition that moves a video backwards out of the error state, and it is
// operator-triggered rather than automatic.
func (m *StateMachine) Retry(ctx context.Context, videoID uuid.UUID) (Stage, error) {
	video, err := m.videos.Get(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("load video %s: %w", videoID, err)
	}
	if video.Status != models.StatusError || video.FailedStage == nil {
		return "", &StateConflictError{VideoID: videoID.String(), Expected: string(models.StatusError), Stage: "retry"}
	}

	stage := Stage(*video.FailedStage)
	in, ok := StageInputStatus(stage)
	if !ok {
		return "", fmt.Errorf("video %s recorded unknown failed stage %q", videoID, stage)
	}

	swapped, err := m.videos.Transition(ctx, videoID, models.StatusError, in, nil, nil)
	if err != nil {
		return "", fmt.Errorf("re-enter stage %s: %w", stage, err)
	}
	if !swapped {
		return "", &StateConflictError{VideoID: videoID.String(), Expected: string(models.StatusError), Stage: string(stage)}
	}
	log.Printf("Pipeline: video %s retrying from stage %s", videoID, stage)
	return stage, nil
}

// StartProcessing stamps the processing start time when the first stage kicks off.
func (m *StateMachine) StartProcessing(ctx context.Context, videoID uuid.UUID) error {
	return m.videos.MarkProcessingStarted(ctx, videoID)
}
