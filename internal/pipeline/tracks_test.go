package pipeline

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

func detectionPred(segment int, track string, confidence, x, y, area float64) *models.RawPrediction {
	return &models.RawPrediction{
		ID:           uuid.New(),
		SegmentIndex: segment,
		EngineKind:   string(EngineDetection),
		Label:        "person",
		Confidence:   confidence,
		TrackID:      &track,
		X:            &x,
		Y:            &y,
		Area:         &area,
	}
}

func TestBuildPlayerTracksAggregates(t *testing.T) {
	videoID := uuid.New()
	preds := []*models.RawPrediction{
		detectionPred(0, "7", 0.8, 0.2, 0.4, 0.01),
		detectionPred(1, "7", 0.9, 0.4, 0.6, 0.03),
		detectionPred(0, "12", 0.7, 0.8, 0.8, 0.02),
		detectionPred(1, "12", 0.7, 0.8, 0.8, 0.02),
	}

	players := BuildPlayerTracks(videoID, preds, 2)
	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(players))
	}

	// Track ids sort lexically, so "12" precedes "7".
	first, second := players[0], players[1]
	if first.TrackID != "12" || second.TrackID != "7" {
		t.Fatalf("track order %s, %s", first.TrackID, second.TrackID)
	}
	if first.JerseyNumber != "1" || second.JerseyNumber != "2" {
		t.Errorf("jersey numbers %s, %s", first.JerseyNumber, second.JerseyNumber)
	}
	if first.TeamColor != "red" || second.TeamColor != "blue" {
		t.Errorf("team colors %s, %s", first.TeamColor, second.TeamColor)
	}

	if math.Abs(second.DetectionConfidence-0.85) > 1e-9 {
		t.Errorf("track 7 confidence %v, want mean 0.85", second.DetectionConfidence)
	}
	if math.Abs(second.CentroidX-0.3) > 1e-9 || math.Abs(second.CentroidY-0.5) > 1e-9 {
		t.Errorf("track 7 centroid (%v,%v), want (0.3,0.5)", second.CentroidX, second.CentroidY)
	}
	if math.Abs(second.AvgBBoxArea-0.02) > 1e-9 {
		t.Errorf("track 7 area %v, want 0.02", second.AvgBBoxArea)
	}
}

func TestBuildPlayerTracksFiltersNoise(t *testing.T) {
	videoID := uuid.New()
	preds := []*models.RawPrediction{
		detectionPred(0, "solid", 0.9, 0.5, 0.5, 0.01),
		detectionPred(1, "solid", 0.9, 0.5, 0.5, 0.01),
		detectionPred(2, "solid", 0.9, 0.5, 0.5, 0.01),
		detectionPred(4, "flicker", 0.4, 0.1, 0.1, 0.001),
	}

	players := BuildPlayerTracks(videoID, preds, 3)
	if len(players) != 1 {
		t.Fatalf("expected 1 player after noise filter, got %d", len(players))
	}
	if players[0].TrackID != "solid" {
		t.Errorf("kept track %s", players[0].TrackID)
	}
}

func TestBuildPlayerTracksIgnoresNonPersonAndUntracked(t *testing.T) {
	videoID := uuid.New()
	ball := detectionPred(0, "b1", 0.9, 0.5, 0.5, 0.001)
	ball.Label = "ball"
	untracked := detectionPred(0, "x", 0.9, 0.5, 0.5, 0.01)
	untracked.TrackID = nil
	recognition := recognitionPred(0, "t9", "dribble", 0.9)

	players := BuildPlayerTracks(videoID, []*models.RawPrediction{ball, untracked, recognition}, 1)
	if len(players) != 0 {
		t.Fatalf("expected no players, got %d", len(players))
	}
}
