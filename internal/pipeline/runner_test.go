package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

// fakeAdapter serves canned predictions and can fail chosen segments a
// configured number of times (or permanently with failForever).
type fakeAdapter struct {
	kind        EngineKind
	preds       []Prediction
	failUntil   map[int]int // segment index → attempts that fail before success
	failForever map[int]bool
	mu          sync.Mutex
	calls       map[int]int
}

func newFakeAdapter(kind EngineKind, preds ...Prediction) *fakeAdapter {
	return &fakeAdapter{
		kind:        kind,
		preds:       preds,
		failUntil:   make(map[int]int),
		failForever: make(map[int]bool),
		calls:       make(map[int]int),
	}
}

func (a *fakeAdapter) Kind() EngineKind    { return a.kind }
func (a *fakeAdapter) MaxConcurrency() int { return 8 }

func (a *fakeAdapter) Infer(ctx context.Context, videoRef string, interval Interval) ([]Prediction, error) {
	idx := int(interval.Start / 3)
	a.mu.Lock()
	a.calls[idx]++
	attempt := a.calls[idx]
	a.mu.Unlock()

	if a.failForever[idx] {
		return nil, errors.New("engine unavailable")
	}
	if attempt <= a.failUntil[idx] {
		return nil, errors.New("transient engine error")
	}
	return a.preds, nil
}

func (a *fakeAdapter) callCount(idx int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[idx]
}

// fakePredictionStore records ReplaceSegment calls keyed by segment index.
type fakePredictionStore struct {
	mu       sync.Mutex
	segments map[int][]*models.RawPrediction
	replaces int64
}

func newFakePredictionStore() *fakePredictionStore {
	return &fakePredictionStore{segments: make(map[int][]*models.RawPrediction)}
}

func (s *fakePredictionStore) ReplaceSegment(ctx context.Context, videoID uuid.UUID, engine string, segmentIndex int, preds []*models.RawPrediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[segmentIndex] = preds
	atomic.AddInt64(&s.replaces, 1)
	return nil
}

func testRunnerConfig() RunnerConfig {
	return RunnerConfig{
		SegmentLength:    3,
		MinTailFraction:  1.0 / 3.0,
		Concurrency:      4,
		MaxRetries:       3,
		RetryBackoff:     time.Millisecond,
		CallTimeout:      time.Second,
		FailureTolerance: 0.10,
		AdapterRPS:       1000,
	}
}

func testVideo(duration float64) *models.Video {
	return &models.Video{ID: uuid.New(), FilePath: "/data/game.mp4", Status: models.StatusUploaded, Duration: duration}
}

func TestRunnerPersistsEverySegment(t *testing.T) {
	store := newFakePredictionStore()
	runner := NewRunner(store, testRunnerConfig())
	adapter := newFakeAdapter(EngineDetection, Prediction{Label: "person", Confidence: 0.9, TrackID: "t1"})

	reports, err := runner.Run(context.Background(), testVideo(30), []Adapter{adapter})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	report := reports[0]
	if report.Segments != 10 || report.FailedSegments != 0 {
		t.Errorf("report %+v, want 10 segments, 0 failed", report)
	}
	if len(store.segments) != 10 {
		t.Fatalf("persisted %d segments, want 10", len(store.segments))
	}
	for idx, rows := range store.segments {
		if len(rows) != 1 {
			t.Fatalf("segment %d persisted %d rows", idx, len(rows))
		}
		row := rows[0]
		if row.SegmentIndex != idx || row.EngineKind != string(EngineDetection) || row.Label != "person" {
			t.Errorf("segment %d row %+v", idx, row)
		}
		if row.TrackID == nil || *row.TrackID != "t1" {
			t.Errorf("segment %d track id %v", idx, row.TrackID)
		}
	}
}

func TestRunnerRetriesTransientFailures(t *testing.T) {
	store := newFakePredictionStore()
	runner := NewRunner(store, testRunnerConfig())
	adapter := newFakeAdapter(EngineRecognition, Prediction{Label: "shot_2pt", Confidence: 0.8})
	adapter.failUntil[2] = 2 // fails twice, third attempt succeeds

	reports, err := runner.Run(context.Background(), testVideo(30), []Adapter{adapter})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reports[0].FailedSegments != 0 {
		t.Errorf("retried segment still counted failed: %+v", reports[0])
	}
	if got := adapter.callCount(2); got != 3 {
		t.Errorf("segment 2 called %d times, want 3", got)
	}
	if _, ok := store.segments[2]; !ok {
		t.Error("segment 2 not persisted after retries")
	}
}

func TestRunnerContainsFailedSegmentWithinTolerance(t *testing.T) {
	cfg := testRunnerConfig()
	cfg.FailureTolerance = 0.25
	store := newFakePredictionStore()
	runner := NewRunner(store, cfg)
	adapter := newFakeAdapter(EngineDetection, Prediction{Label: "person", Confidence: 0.9})
	adapter.failForever[4] = true

	reports, err := runner.Run(context.Background(), testVideo(30), []Adapter{adapter})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	report := reports[0]
	if report.FailedSegments != 1 {
		t.Errorf("failed segments %d, want 1", report.FailedSegments)
	}
	if got := adapter.callCount(4); got != 4 {
		t.Errorf("failed segment attempted %d times, want 1 + 3 retries", got)
	}
	if _, ok := store.segments[4]; ok {
		t.Error("failed segment must not be persisted")
	}
	// Siblings all completed.
	if len(store.segments) != 9 {
		t.Errorf("persisted %d segments, want 9", len(store.segments))
	}
}

func TestRunnerFailsStageOverTolerance(t *testing.T) {
	store := newFakePredictionStore()
	runner := NewRunner(store, testRunnerConfig()) // tolerance 10%
	adapter := newFakeAdapter(EngineBall, Prediction{Label: "score", Confidence: 0.9})
	adapter.failForever[1] = true
	adapter.failForever[5] = true

	_, err := runner.Run(context.Background(), testVideo(30), []Adapter{adapter})
	if err == nil {
		t.Fatal("expected stage failure at 2/10 failed segments")
	}
	var adapterErr *AdapterError
	if !errors.As(err, &adapterErr) {
		t.Errorf("stage failure should wrap AdapterError, got %v", err)
	}
}

func TestRunnerSequencesEngines(t *testing.T) {
	store := newFakePredictionStore()
	runner := NewRunner(store, testRunnerConfig())
	detection := newFakeAdapter(EngineDetection, Prediction{Label: "person", Confidence: 0.9, TrackID: "t1"})
	ball := newFakeAdapter(EngineBall, Prediction{Label: "score", Confidence: 0.8})

	reports, err := runner.Run(context.Background(), testVideo(9), []Adapter{detection, ball})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].Engine != EngineDetection || reports[1].Engine != EngineBall {
		t.Errorf("engines ran as %v then %v", reports[0].Engine, reports[1].Engine)
	}
	if atomic.LoadInt64(&store.replaces) != 6 {
		t.Errorf("expected 6 ReplaceSegment calls, got %d", store.replaces)
	}
}
