package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

// fakeVideoStore keeps videos in memory with the same compare-and-swap
// transition semantics the SQL store provides.
type fakeVideoStore struct {
	mu     sync.Mutex
	videos map[uuid.UUID]*models.Video
}

func newFakeVideoStore(videos ...*models.Video) *fakeVideoStore {
	s := &fakeVideoStore{videos: make(map[uuid.UUID]*models.Video)}
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	return s
}

func (s *fakeVideoStore) Get(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *v
	return &copied, nil
}

func (s *fakeVideoStore) Transition(ctx context.Context, id uuid.UUID, from, to models.VideoStatus, failedStage, errorMessage *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok || v.Status != from {
		return false, nil
	}
	v.Status = to
	v.FailedStage = failedStage
	v.ErrorMessage = errorMessage
	return true, nil
}

func (s *fakeVideoStore) MarkProcessingStarted(ctx context.Context, id uuid.UUID) error {
	return nil
}

func videoAt(status models.VideoStatus) *models.Video {
	return &models.Video{ID: uuid.New(), Status: status, Duration: 30}
}

func TestNextAdvancesThroughEveryStage(t *testing.T) {
	status := models.StatusUploaded
	for _, row := range stageTable {
		next, err := Next(status, row.stage, nil)
		if err != nil {
			t.Fatalf("Next(%s, %s): %v", status, row.stage, err)
		}
		if next != row.out {
			t.Fatalf("Next(%s, %s) = %s, want %s", status, row.stage, next, row.out)
		}
		status = next
	}
	if status != models.StatusDone {
		t.Errorf("chain ends at %s, want done", status)
	}
}

func TestNextFailureLandsInError(t *testing.T) {
	next, err := Next(models.StatusBallAnalyzed, StageDetectActions, errors.New("engine down"))
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if next != models.StatusError {
		t.Errorf("failed stage yields %s, want error", next)
	}
}

func TestNextWrongStatusIsConflictNotSkip(t *testing.T) {
	_, err := Next(models.StatusUploaded, StageCalculateStats, nil)
	var conflict *StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError, got %v", err)
	}
}

func TestExpectRejectsStaleStage(t *testing.T) {
	video := videoAt(models.StatusActionsDone)
	sm := NewStateMachine(newFakeVideoStore(video))

	got, err := sm.Expect(context.Background(), video.ID, StageGenerateHighlights)
	if err != nil {
		t.Fatalf("Expect at correct status: %v", err)
	}
	if got.ID != video.ID {
		t.Fatalf("Expect returned wrong video")
	}

	_, err = sm.Expect(context.Background(), video.ID, StageDetectPlayers)
	var conflict *StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError for stale stage, got %v", err)
	}
}

func TestCommitIsConditionalOnInputStatus(t *testing.T) {
	video := videoAt(models.StatusUploaded)
	store := newFakeVideoStore(video)
	sm := NewStateMachine(store)
	ctx := context.Background()

	if err := sm.Commit(ctx, video.ID, StageDetectPlayers); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, _ := store.Get(ctx, video.ID)
	if got.Status != models.StatusPlayersDetected {
		t.Fatalf("status after commit is %s", got.Status)
	}

	// A duplicate commit of the same stage must conflict, not re-advance.
	err := sm.Commit(ctx, video.ID, StageDetectPlayers)
	var conflict *StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict on duplicate commit, got %v", err)
	}
	got, _ = store.Get(ctx, video.ID)
	if got.Status != models.StatusPlayersDetected {
		t.Errorf("duplicate commit moved status to %s", got.Status)
	}
}

func TestFailRecordsStageAndCause(t *testing.T) {
	video := videoAt(models.StatusBallAnalyzed)
	store := newFakeVideoStore(video)
	sm := NewStateMachine(store)
	ctx := context.Background()

	if err := sm.Fail(ctx, video.ID, StageDetectActions, errors.New("tolerance exceeded")); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	got, _ := store.Get(ctx, video.ID)
	if got.Status != models.StatusError {
		t.Fatalf("status after failure is %s", got.Status)
	}
	if got.FailedStage == nil || *got.FailedStage != string(StageDetectActions) {
		t.Errorf("failed stage not recorded: %v", got.FailedStage)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != "tolerance exceeded" {
		t.Errorf("error cause not recorded: %v", got.ErrorMessage)
	}
}

func TestRetryReentersAtFailedStage(t *testing.T) {
	video := videoAt(models.StatusBallAnalyzed)
	store := newFakeVideoStore(video)
	sm := NewStateMachine(store)
	ctx := context.Background()

	if err := sm.Fail(ctx, video.ID, StageDetectActions, errors.New("boom")); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	stage, err := sm.Retry(ctx, video.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if stage != StageDetectActions {
		t.Errorf("Retry resumes at %s, want detect_actions", stage)
	}

	got, _ := store.Get(ctx, video.ID)
	if got.Status != models.StatusBallAnalyzed {
		t.Errorf("status after retry is %s, want ball_analyzed", got.Status)
	}
	if got.FailedStage != nil || got.ErrorMessage != nil {
		t.Errorf("retry left failure fields set: %v %v", got.FailedStage, got.ErrorMessage)
	}
}

func TestRetryRejectsHealthyVideo(t *testing.T) {
	video := videoAt(models.StatusDone)
	sm := NewStateMachine(newFakeVideoStore(video))

	_, err := sm.Retry(context.Background(), video.ID)
	var conflict *StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict retrying a non-failed video, got %v", err)
	}
}

func TestNextStageForChainsTheTable(t *testing.T) {
	stage, ok := NextStageFor(models.StatusUploaded)
	if !ok || stage != StageDetectPlayers {
		t.Errorf("uploaded advances via %s", stage)
	}
	if _, ok := NextStageFor(models.StatusDone); ok {
		t.Error("done must have no next stage")
	}
	if _, ok := NextStageFor(models.StatusError); ok {
		t.Error("error must have no next stage")
	}
}
