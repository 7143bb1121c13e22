package pipeline

import (
	"context"
	"log"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

// ClipService is the black-box media boundary. ExtractClip cuts
// [start, end) out of the source video and returns the artifact path;
// Concat joins extracted clips into one highlight artifact.
type ClipService interface {
	ExtractClip(ctx context.Context, videoRef string, start, end float64) (string, error)
	Concat(ctx context.Context, clipPaths []string, outName string) (string, error)
}

// Criteria selects which committed actions are eligible for one highlight
// and how much total footage it may contain.
type Criteria struct {
	Title         string
	Type          models.HighlightType
	ActionTypes   []models.ActionType
	MinConfidence float64
	PlayerID      *uuid.UUID
	MaxDuration   float64 // cap on summed clip durations, padding included
	Padding       float64 // seconds prepended/appended per clip
}

// PresetCriteria are the auto-generated reels built after stats commit.
func PresetCriteria() []Criteria {
	return []Criteria{
		{
			Title:         "Best Plays",
			Type:          models.HighlightBestPlays,
			ActionTypes:   []models.ActionType{models.ActionShot3Pt, models.ActionDunk, models.ActionAssist, models.ActionSteal, models.ActionBlock},
			MinConfidence: 0.8,
			MaxDuration:   60,
		},
		{
			Title:         "Shooting Highlights",
			Type:          models.HighlightShooting,
			ActionTypes:   []models.ActionType{models.ActionShot2Pt, models.ActionShot3Pt, models.ActionDunk, models.ActionLayup, models.ActionFreeThrow},
			MinConfidence: 0.7,
			MaxDuration:   45,
		},
		{
			Title:         "Defensive Highlights",
			Type:          models.HighlightDefensive,
			ActionTypes:   []models.ActionType{models.ActionBlock, models.ActionSteal, models.ActionReboundDefensive},
			MinConfidence: 0.7,
			MaxDuration:   30,
		},
	}
}

// Selector picks a non-overlapping, confidence-ranked subset of actions under
// the duration cap and renders it through the clip service.
//
// Packing is greedy on confidence, not globally duration-optimal; the cap is
// a soft preference, so the simpler deterministic policy wins over a
// weighted-interval DP.
type Selector struct {
	clips ClipService
}

func NewSelector(clips ClipService) *Selector {
	return &Selector{clips: clips}
}

// Select builds one highlight for the criteria. A clip extraction failure
// drops that action and continues; a highlight that ends up with zero
// extracted clips is not created and (nil, nil) is returned.
func (s *Selector) Select(ctx context.Context, video *models.Video, actions []*models.Action, c Criteria) (*models.Highlight, error) {
	if c.Padding < 0 {
		c.Padding = 0
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = 60
	}

	accepted := packActions(actions, c)
	if len(accepted) == 0 {
		return nil, nil
	}

	highlight := &models.Highlight{
		ID:            uuid.New(),
		VideoID:       video.ID,
		PlayerID:      c.PlayerID,
		Title:         c.Title,
		Type:          c.Type,
		MinConfidence: c.MinConfidence,
		MaxDuration:   c.MaxDuration,
	}

	var clipPaths []string
	var total float64
	for _, action := range accepted {
		start := math.Max(0, action.StartTime-c.Padding)
		end := action.EndTime + c.Padding
		if video.Duration > 0 {
			end = math.Min(video.Duration, end)
		}

		path, err := s.clips.ExtractClip(ctx, video.FilePath, start, end)
		if err != nil {
			log.Printf("Highlights: video %s action %s clip [%.1f,%.1f) failed, skipping: %v",
				video.ID, action.ID, start, end, err)
			continue
		}
		clipPaths = append(clipPaths, path)
		highlight.ActionIDs = append(highlight.ActionIDs, action.ID)
		total += end - start
	}

	if len(clipPaths) == 0 {
		return nil, nil
	}

	out, err := s.clips.Concat(ctx, clipPaths, "highlight_"+highlight.ID.String()+".mp4")
	if err != nil {
		return nil, &ClipError{Cause: err}
	}
	highlight.FilePath = &out
	highlight.Duration = total
	return highlight, nil
}

// packActions applies the eligibility filter, then greedily accepts actions
// in confidence order while they stay disjoint and the padded running total
// stays under the cap. Skipped actions do not stop the scan.
func packActions(actions []*models.Action, c Criteria) []*models.Action {
	wanted := make(map[models.ActionType]bool, len(c.ActionTypes))
	for _, t := range c.ActionTypes {
		wanted[t] = true
	}

	var eligible []*models.Action
	for _, a := range actions {
		if a.Superseded || a.Confidence < c.MinConfidence {
			continue
		}
		if len(wanted) > 0 && !wanted[a.Type] {
			continue
		}
		if c.PlayerID != nil && (a.PlayerID == nil || *a.PlayerID != *c.PlayerID) {
			continue
		}
		eligible = append(eligible, a)
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if da, db := a.ActionDuration(), b.ActionDuration(); da != db {
			return da > db
		}
		return a.StartTime < b.StartTime
	})

	var accepted []*models.Action
	var total float64
	for _, a := range eligible {
		clipLen := a.ActionDuration() + 2*c.Padding
		if total+clipLen > c.MaxDuration {
			continue
		}
		overlaps := false
		for _, k := range accepted {
			if a.Overlaps(k) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		accepted = append(accepted, a)
		total += clipLen
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].StartTime < accepted[j].StartTime })
	return accepted
}
