package pipeline

import (
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

var teamColors = []string{"red", "blue"}

// BuildPlayerTracks folds detection-engine predictions into player records.
// A track must appear in at least minAppearances predictions to count as a
// player; shorter tracks are treated as detector noise. Jersey numbers are
// assigned in deterministic track order, team colors alternate the way the
// upstream detector reports sides.
func BuildPlayerTracks(videoID uuid.UUID, preds []*models.RawPrediction, minAppearances int) []*models.Player {
	if minAppearances <= 0 {
		minAppearances = 1
	}

	type track struct {
		id         string
		count      int
		confSum    float64
		areaSum    float64
		areaCount  int
		xSum, ySum float64
		coordCount int
	}

	tracks := make(map[string]*track)
	for _, p := range preds {
		if p.EngineKind != string(EngineDetection) || p.TrackID == nil || p.Label != "person" {
			continue
		}
		t := tracks[*p.TrackID]
		if t == nil {
			t = &track{id: *p.TrackID}
			tracks[*p.TrackID] = t
		}
		t.count++
		t.confSum += p.Confidence
		if p.Area != nil {
			t.areaSum += *p.Area
			t.areaCount++
		}
		if p.X != nil && p.Y != nil {
			t.xSum += *p.X
			t.ySum += *p.Y
			t.coordCount++
		}
	}

	ids := make([]string, 0, len(tracks))
	for id, t := range tracks {
		if t.count >= minAppearances {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	players := make([]*models.Player, 0, len(ids))
	for i, id := range ids {
		t := tracks[id]
		p := &models.Player{
			ID:                  uuid.New(),
			VideoID:             videoID,
			TrackID:             t.id,
			JerseyNumber:        strconv.Itoa(i + 1),
			TeamColor:           teamColors[i%len(teamColors)],
			DetectionConfidence: t.confSum / float64(t.count),
		}
		if t.areaCount > 0 {
			p.AvgBBoxArea = t.areaSum / float64(t.areaCount)
		}
		if t.coordCount > 0 {
			p.CentroidX = t.xSum / float64(t.coordCount)
			p.CentroidY = t.ySum / float64(t.coordCount)
		}
		players = append(players, p)
	}
	return players
}
