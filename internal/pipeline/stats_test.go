package pipeline

import (
	"testing"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

func statAction(playerID uuid.UUID, typ models.ActionType, made *bool) *models.Action {
	return &models.Action{
		ID:           uuid.New(),
		PlayerID:     &playerID,
		Type:         typ,
		StartTime:    0,
		EndTime:      3,
		Confidence:   0.8,
		IsSuccessful: made,
	}
}

func boolPtr(b bool) *bool { return &b }

func TestComputeStatsCountsAndDerives(t *testing.T) {
	videoID := uuid.New()
	playerID := uuid.New()

	actions := []*models.Action{
		statAction(playerID, models.ActionShot2Pt, boolPtr(true)),
		statAction(playerID, models.ActionShot2Pt, boolPtr(false)),
		statAction(playerID, models.ActionLayup, boolPtr(true)),
		statAction(playerID, models.ActionShot3Pt, boolPtr(true)),
		statAction(playerID, models.ActionShot3Pt, boolPtr(false)),
		statAction(playerID, models.ActionFreeThrow, boolPtr(true)),
		statAction(playerID, models.ActionAssist, nil),
		statAction(playerID, models.ActionReboundOffensive, nil),
		statAction(playerID, models.ActionReboundDefensive, nil),
		statAction(playerID, models.ActionReboundDefensive, nil),
		statAction(playerID, models.ActionSteal, nil),
		statAction(playerID, models.ActionBlock, nil),
		statAction(playerID, models.ActionTurnover, nil),
		statAction(playerID, models.ActionFoul, nil),
	}

	stats := ComputeStats(videoID, 600, actions)
	if len(stats) != 1 {
		t.Fatalf("expected 1 stat line, got %d", len(stats))
	}
	s := stats[0]

	if s.FGA2 != 3 || s.FGM2 != 2 {
		t.Errorf("2pt %d/%d, want 2/3", s.FGM2, s.FGA2)
	}
	if s.FGA3 != 2 || s.FGM3 != 1 {
		t.Errorf("3pt %d/%d, want 1/2", s.FGM3, s.FGA3)
	}
	if s.FTA != 1 || s.FTM != 1 {
		t.Errorf("ft %d/%d, want 1/1", s.FTM, s.FTA)
	}
	if s.Points != 2*2+3*1+1 {
		t.Errorf("points %d, want 8", s.Points)
	}
	if s.Rebounds != 3 || s.OffensiveRebounds != 1 || s.DefensiveRebounds != 2 {
		t.Errorf("rebounds %d (%d off, %d def)", s.Rebounds, s.OffensiveRebounds, s.DefensiveRebounds)
	}
	if s.Assists != 1 || s.Steals != 1 || s.Blocks != 1 || s.Turnovers != 1 || s.Fouls != 1 {
		t.Errorf("counting stats wrong: %+v", s)
	}
	if s.MinutesPlayed != 10 {
		t.Errorf("minutes %v, want 10", s.MinutesPlayed)
	}
}

func TestComputeStatsOrderIndependent(t *testing.T) {
	videoID := uuid.New()
	p1, p2 := uuid.New(), uuid.New()

	actions := []*models.Action{
		statAction(p1, models.ActionShot2Pt, boolPtr(true)),
		statAction(p2, models.ActionShot3Pt, boolPtr(true)),
		statAction(p1, models.ActionSteal, nil),
		statAction(p2, models.ActionFoul, nil),
		statAction(p1, models.ActionFreeThrow, boolPtr(false)),
	}

	forward := ComputeStats(videoID, 120, actions)

	reversed := make([]*models.Action, len(actions))
	for i, a := range actions {
		reversed[len(actions)-1-i] = a
	}
	backward := ComputeStats(videoID, 120, reversed)

	if len(forward) != 2 || len(backward) != 2 {
		t.Fatalf("expected 2 stat lines each, got %d and %d", len(forward), len(backward))
	}
	for i := range forward {
		if *forward[i] != *backward[i] {
			t.Errorf("stat line %d depends on input order: %+v vs %+v", i, forward[i], backward[i])
		}
	}
}

func TestComputeStatsSkipsUnassignedAndSuperseded(t *testing.T) {
	videoID := uuid.New()
	playerID := uuid.New()

	unassigned := statAction(playerID, models.ActionShot2Pt, boolPtr(true))
	unassigned.PlayerID = nil
	superseded := statAction(playerID, models.ActionSteal, nil)
	superseded.Superseded = true

	stats := ComputeStats(videoID, 60, []*models.Action{
		unassigned,
		superseded,
		statAction(playerID, models.ActionBlock, nil),
	})
	if len(stats) != 1 {
		t.Fatalf("expected 1 stat line, got %d", len(stats))
	}
	s := stats[0]
	if s.FGA2 != 0 || s.Steals != 0 || s.Blocks != 1 {
		t.Errorf("skipped actions leaked into stats: %+v", s)
	}
}

func TestComputeStatsStableRowIdentity(t *testing.T) {
	videoID := uuid.New()
	playerID := uuid.New()
	actions := []*models.Action{statAction(playerID, models.ActionShot2Pt, boolPtr(true))}

	first := ComputeStats(videoID, 60, actions)
	second := ComputeStats(videoID, 60, actions)
	if first[0].ID != second[0].ID {
		t.Errorf("recomputed stats changed row id: %s vs %s", first[0].ID, second[0].ID)
	}
}

func TestShootingPercentages(t *testing.T) {
	s := &models.Stats{FGA2: 4, FGM2: 2, FGA3: 4, FGM3: 1, FTA: 2, FTM: 2}
	pct := s.ShootingPercentages()
	if pct["fg_pct"] != 37.5 {
		t.Errorf("fg_pct %v, want 37.5", pct["fg_pct"])
	}
	if pct["ft_pct"] != 100 {
		t.Errorf("ft_pct %v, want 100", pct["ft_pct"])
	}
}
