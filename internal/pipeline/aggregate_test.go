package pipeline

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

func testAggregator() *Aggregator {
	return NewAggregator(AggregatorConfig{
		ConfidenceThreshold: 0.5,
		CentroidMaxDistance: 0.15,
	})
}

func recognitionPred(segment int, track, label string, confidence float64) *models.RawPrediction {
	p := &models.RawPrediction{
		ID:           uuid.New(),
		SegmentIndex: segment,
		EngineKind:   string(EngineRecognition),
		Label:        label,
		Confidence:   confidence,
	}
	if track != "" {
		p.TrackID = &track
	}
	return p
}

func ballPred(segment int, label string) *models.RawPrediction {
	return &models.RawPrediction{
		ID:           uuid.New(),
		SegmentIndex: segment,
		EngineKind:   string(EngineBall),
		Label:        label,
		Confidence:   0.9,
	}
}

func trackedPlayer(track string, cx, cy float64) *models.Player {
	return &models.Player{ID: uuid.New(), TrackID: track, CentroidX: cx, CentroidY: cy}
}

func mustPlan(t *testing.T, duration float64) []Segment {
	t.Helper()
	segments, err := PlanSegments(duration, 3, 1.0/3.0)
	if err != nil {
		t.Fatalf("PlanSegments: %v", err)
	}
	return segments
}

func TestAggregateMergesBoundarySplit(t *testing.T) {
	videoID := uuid.New()
	player := trackedPlayer("t1", 0.5, 0.5)
	segments := mustPlan(t, 12)

	// One real action classified independently in two adjacent segments.
	preds := []*models.RawPrediction{
		recognitionPred(1, "t1", "shot_2pt", 0.8),
		recognitionPred(2, "t1", "shot_2pt", 0.85),
	}

	actions, err := testAggregator().Aggregate(videoID, preds, []*models.Player{player}, segments)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected 1 merged action, got %d", len(actions))
	}
	a := actions[0]
	if a.StartTime != 3 || a.EndTime != 9 {
		t.Errorf("merged action spans [%v,%v), want [3,9)", a.StartTime, a.EndTime)
	}
	if a.Confidence != 0.85 {
		t.Errorf("merged confidence %v, want max 0.85", a.Confidence)
	}
	if a.SegmentFirst != 1 || a.SegmentLast != 2 {
		t.Errorf("segment range [%d,%d], want [1,2]", a.SegmentFirst, a.SegmentLast)
	}
	if a.PlayerID == nil || *a.PlayerID != player.ID {
		t.Errorf("action attributed to %v, want player %s", a.PlayerID, player.ID)
	}
}

func TestAggregateGapPreventsMerge(t *testing.T) {
	videoID := uuid.New()
	player := trackedPlayer("t1", 0.5, 0.5)
	segments := mustPlan(t, 15)

	preds := []*models.RawPrediction{
		recognitionPred(0, "t1", "dribble", 0.7),
		recognitionPred(3, "t1", "dribble", 0.75),
	}

	actions, err := testAggregator().Aggregate(videoID, preds, []*models.Player{player}, segments)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 separate actions across the gap, got %d", len(actions))
	}
	if actions[0].EndTime > actions[1].StartTime {
		t.Errorf("actions overlap: %+v %+v", actions[0], actions[1])
	}
}

func TestAggregateDisplacesOverlapByConfidence(t *testing.T) {
	videoID := uuid.New()
	player := trackedPlayer("t1", 0.5, 0.5)
	segments := mustPlan(t, 12)

	// Two different labels over the same segment: the higher-confidence one
	// wins, the other is displaced entirely.
	preds := []*models.RawPrediction{
		recognitionPred(1, "t1", "pass", 0.6),
		recognitionPred(1, "t1", "shot_3pt", 0.9),
	}

	actions, err := testAggregator().Aggregate(videoID, preds, []*models.Player{player}, segments)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected 1 surviving action, got %d", len(actions))
	}
	if actions[0].Type != models.ActionShot3Pt {
		t.Errorf("survivor is %s, want shot_3pt", actions[0].Type)
	}
}

func TestAggregateDropsBelowThreshold(t *testing.T) {
	videoID := uuid.New()
	player := trackedPlayer("t1", 0.5, 0.5)
	segments := mustPlan(t, 12)

	preds := []*models.RawPrediction{
		recognitionPred(0, "t1", "run", 0.3),
		recognitionPred(2, "t1", "jump", 0.7),
	}

	actions, err := testAggregator().Aggregate(videoID, preds, []*models.Player{player}, segments)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected only the above-threshold action, got %d", len(actions))
	}
	if actions[0].Type != models.ActionJump {
		t.Errorf("kept %s, want jump", actions[0].Type)
	}
}

func TestAggregateNearestCentroidReconciliation(t *testing.T) {
	videoID := uuid.New()
	near := trackedPlayer("t1", 0.30, 0.30)
	far := trackedPlayer("t2", 0.90, 0.90)
	segments := mustPlan(t, 12)

	x, y := 0.32, 0.31
	pred := recognitionPred(1, "", "layup", 0.8)
	pred.X, pred.Y = &x, &y

	actions, err := testAggregator().Aggregate(videoID, []*models.RawPrediction{pred}, []*models.Player{near, far}, segments)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	if actions[0].PlayerID == nil || *actions[0].PlayerID != near.ID {
		t.Errorf("attributed to %v, want nearest player %s", actions[0].PlayerID, near.ID)
	}
}

func TestAggregateUnattributableGoesToUnassigned(t *testing.T) {
	videoID := uuid.New()
	player := trackedPlayer("t1", 0.1, 0.1)
	segments := mustPlan(t, 12)

	// No track, coords too far from every centroid.
	x, y := 0.9, 0.9
	pred := recognitionPred(0, "", "steal", 0.8)
	pred.X, pred.Y = &x, &y

	actions, err := testAggregator().Aggregate(videoID, []*models.RawPrediction{pred}, []*models.Player{player}, segments)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	if actions[0].PlayerID != nil {
		t.Errorf("unattributable action assigned to player %s", actions[0].PlayerID)
	}
}

func TestAggregateBallEngineMarksShotsSuccessful(t *testing.T) {
	videoID := uuid.New()
	player := trackedPlayer("t1", 0.5, 0.5)
	segments := mustPlan(t, 15)

	preds := []*models.RawPrediction{
		recognitionPred(1, "t1", "shot_2pt", 0.8),
		recognitionPred(3, "t1", "shot_3pt", 0.8),
		recognitionPred(3, "t1", "pass", 0.6), // displaced; also not a shot
		ballPred(1, "score"),
	}

	actions, err := testAggregator().Aggregate(videoID, preds, []*models.Player{player}, segments)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	for _, a := range actions {
		switch a.Type {
		case models.ActionShot2Pt:
			if a.IsSuccessful == nil || !*a.IsSuccessful {
				t.Errorf("shot in scoring segment not marked successful")
			}
		case models.ActionShot3Pt:
			if a.IsSuccessful == nil || *a.IsSuccessful {
				t.Errorf("shot without scoring event marked successful")
			}
		default:
			t.Errorf("unexpected action type %s", a.Type)
		}
	}
}

func TestAggregateIdempotent(t *testing.T) {
	videoID := uuid.New()
	player := trackedPlayer("t1", 0.5, 0.5)
	segments := mustPlan(t, 30)

	preds := []*models.RawPrediction{
		recognitionPred(0, "t1", "dribble", 0.7),
		recognitionPred(1, "t1", "shot_2pt", 0.8),
		recognitionPred(2, "t1", "shot_2pt", 0.85),
		recognitionPred(5, "t1", "rebound_defensive", 0.9),
		ballPred(2, "made_basket"),
	}

	agg := testAggregator()
	first, err := agg.Aggregate(videoID, preds, []*models.Player{player}, segments)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	second, err := agg.Aggregate(videoID, preds, []*models.Player{player}, segments)
	if err != nil {
		t.Fatalf("Aggregate rerun: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("rerun changed action count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if *first[i] != *second[i] {
			// Pointer fields make direct struct comparison of limited use;
			// compare the identity fields explicitly.
			if first[i].ID != second[i].ID || first[i].StartTime != second[i].StartTime ||
				first[i].EndTime != second[i].EndTime || first[i].Confidence != second[i].Confidence {
				t.Errorf("rerun action %d differs: %+v vs %+v", i, first[i], second[i])
			}
		}
	}
}

func TestAggregateRejectsMalformedPredictions(t *testing.T) {
	videoID := uuid.New()
	player := trackedPlayer("t1", 0.5, 0.5)
	segments := mustPlan(t, 12)
	agg := testAggregator()

	outOfRange := recognitionPred(99, "t1", "pass", 0.7)
	_, err := agg.Aggregate(videoID, []*models.RawPrediction{outOfRange}, []*models.Player{player}, segments)
	var aggErr *AggregationError
	if !errors.As(err, &aggErr) {
		t.Errorf("expected AggregationError for out-of-range segment, got %v", err)
	}

	badConfidence := recognitionPred(1, "t1", "pass", 1.7)
	_, err = agg.Aggregate(videoID, []*models.RawPrediction{badConfidence}, []*models.Player{player}, segments)
	if !errors.As(err, &aggErr) {
		t.Errorf("expected AggregationError for confidence outside [0,1], got %v", err)
	}
}

func TestAggregatePerPlayerActionsNeverOverlap(t *testing.T) {
	videoID := uuid.New()
	player := trackedPlayer("t1", 0.5, 0.5)
	segments := mustPlan(t, 30)

	// A messy pile of competing labels across adjacent segments.
	preds := []*models.RawPrediction{
		recognitionPred(0, "t1", "dribble", 0.6),
		recognitionPred(1, "t1", "dribble", 0.65),
		recognitionPred(1, "t1", "pass", 0.7),
		recognitionPred(2, "t1", "shot_2pt", 0.9),
		recognitionPred(3, "t1", "run", 0.55),
		recognitionPred(4, "t1", "run", 0.6),
		recognitionPred(4, "t1", "jump", 0.8),
	}

	actions, err := testAggregator().Aggregate(videoID, preds, []*models.Player{player}, segments)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	for i := 1; i < len(actions); i++ {
		prev, cur := actions[i-1], actions[i]
		if cur.StartTime < prev.EndTime {
			t.Errorf("overlapping committed actions [%v,%v) and [%v,%v)",
				prev.StartTime, prev.EndTime, cur.StartTime, cur.EndTime)
		}
		if prev.StartTime >= cur.StartTime {
			t.Errorf("actions not strictly increasing by start time")
		}
	}
}
