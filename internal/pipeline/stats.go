package pipeline

import (
	"sort"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

// ComputeStats folds committed actions into per-player counting stats.
// The fold is commutative, so input order never changes the result, and the
// output replaces any prior stats rows wholesale: re-running after a retry
// can never double-count.
//
// Actions without a player attribution carry no stat line and are skipped.
func ComputeStats(videoID uuid.UUID, videoDuration float64, actions []*models.Action) []*models.Stats {
	byPlayer := make(map[uuid.UUID]*models.Stats)

	for _, action := range actions {
		if action.PlayerID == nil || action.Superseded {
			continue
		}
		s := byPlayer[*action.PlayerID]
		if s == nil {
			s = &models.Stats{
				ID:       statsID(videoID, *action.PlayerID),
				VideoID:  videoID,
				PlayerID: *action.PlayerID,
			}
			byPlayer[*action.PlayerID] = s
		}
		fold(s, action)
	}

	out := make([]*models.Stats, 0, len(byPlayer))
	for _, s := range byPlayer {
		s.Points = s.FGM2*2 + s.FGM3*3 + s.FTM
		s.Rebounds = s.OffensiveRebounds + s.DefensiveRebounds
		s.MinutesPlayed = videoDuration / 60
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PlayerID.String() < out[j].PlayerID.String()
	})
	return out
}

func fold(s *models.Stats, action *models.Action) {
	made := action.IsSuccessful != nil && *action.IsSuccessful

	switch action.Type {
	case models.ActionShot2Pt, models.ActionDunk, models.ActionLayup:
		s.FGA2++
		if made {
			s.FGM2++
		}
	case models.ActionShot3Pt:
		s.FGA3++
		if made {
			s.FGM3++
		}
	case models.ActionFreeThrow:
		s.FTA++
		if made {
			s.FTM++
		}
	case models.ActionAssist:
		s.Assists++
	case models.ActionReboundOffensive:
		s.OffensiveRebounds++
	case models.ActionReboundDefensive:
		s.DefensiveRebounds++
	case models.ActionSteal:
		s.Steals++
	case models.ActionBlock:
		s.Blocks++
	case models.ActionTurnover:
		s.Turnovers++
	case models.ActionFoul:
		s.Fouls++
	}
}

// statsID is content-derived so a recomputed stat line lands on the same row.
func statsID(videoID, playerID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("stats|"+videoID.String()+"|"+playerID.String()))
}
