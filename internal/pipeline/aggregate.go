package pipeline

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

type AggregatorConfig struct {
	ConfidenceThreshold float64
	CentroidMaxDistance float64
	ModelType           string
}

// Aggregator merges raw per-segment predictions into committed, per-player,
// time-ordered actions. The whole pass is a pure function of its inputs:
// action IDs are content-derived, so re-running over the same prediction set
// reproduces the identical action set.
type Aggregator struct {
	cfg AggregatorConfig
}

func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.CentroidMaxDistance <= 0 {
		cfg.CentroidMaxDistance = 0.15
	}
	if cfg.ModelType == "" {
		cfg.ModelType = "mmaction2_tsn"
	}
	return &Aggregator{cfg: cfg}
}

// Aggregate turns the recognition predictions for a video into actions.
//
// Predictions are grouped per player (track-attributed first, then
// nearest-centroid reconciliation of unattributed ones, then a synthetic
// unassigned bucket); consecutive segments sharing a label merge into one
// candidate spanning their combined interval; overlapping candidates for the
// same player are displaced by confidence, ties broken by longer duration
// then earlier start; candidates below the confidence threshold are dropped.
// Ball-engine scoring events mark overlapping shot candidates successful.
//
// On exit, committed actions per player are pairwise non-overlapping and
// strictly increasing in start time.
func (a *Aggregator) Aggregate(videoID uuid.UUID, preds []*models.RawPrediction, players []*models.Player, segments []Segment) ([]*models.Action, error) {
	byTrack := make(map[string]*models.Player, len(players))
	for _, p := range players {
		byTrack[p.TrackID] = p
	}

	// Segment indices in which the ball engine saw a made basket.
	scoring := make(map[int]bool)

	groups := make(map[uuid.UUID][]*models.RawPrediction)
	var unassignedKey uuid.UUID // zero value doubles as the synthetic bucket
	for _, p := range preds {
		switch p.EngineKind {
		case string(EngineBall):
			if p.Label == "score" || p.Label == "made_basket" {
				scoring[p.SegmentIndex] = true
			}
			continue
		case string(EngineRecognition):
		default:
			continue
		}

		if p.SegmentIndex < 0 || p.SegmentIndex >= len(segments) {
			return nil, &AggregationError{Reason: fmt.Sprintf(
				"prediction %s references segment %d outside plan of %d segments", p.ID, p.SegmentIndex, len(segments))}
		}
		if p.Confidence < 0 || p.Confidence > 1 {
			return nil, &AggregationError{Reason: fmt.Sprintf(
				"prediction %s has confidence %v outside [0,1]", p.ID, p.Confidence)}
		}

		key := unassignedKey
		if p.TrackID != nil {
			if pl, ok := byTrack[*p.TrackID]; ok {
				key = pl.ID
			}
		}
		if key == unassignedKey {
			if pl := a.nearestPlayer(p, players); pl != nil {
				key = pl.ID
			}
		}
		groups[key] = append(groups[key], p)
	}

	var actions []*models.Action
	for key, group := range groups {
		candidates := a.mergeCandidates(group, segments)
		accepted := displaceOverlaps(candidates)

		for _, c := range accepted {
			if c.confidence < a.cfg.ConfidenceThreshold {
				continue
			}
			action := a.buildAction(videoID, key, c, scoring)
			actions = append(actions, action)
		}
	}

	sort.Slice(actions, func(i, j int) bool {
		pi, pj := playerSortKey(actions[i]), playerSortKey(actions[j])
		if pi != pj {
			return pi < pj
		}
		return actions[i].StartTime < actions[j].StartTime
	})

	if err := verifyNonOverlap(actions); err != nil {
		return nil, err
	}
	return actions, nil
}

type candidate struct {
	label       string
	start, end  float64
	confidence  float64
	segFirst    int
	segLast     int
	x, y        *float64
	coordWeight float64
}

// mergeCandidates folds one player's predictions into per-label candidates.
// Segments are contiguous by construction, so a label seen in consecutive
// segment indices is one action that straddled the boundary; the merged
// candidate spans the combined interval and carries the max confidence.
func (a *Aggregator) mergeCandidates(group []*models.RawPrediction, segments []Segment) []candidate {
	byLabel := make(map[string][]*models.RawPrediction)
	for _, p := range group {
		byLabel[p.Label] = append(byLabel[p.Label], p)
	}

	labels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	var out []candidate
	for _, label := range labels {
		ps := byLabel[label]
		sort.Slice(ps, func(i, j int) bool { return ps[i].SegmentIndex < ps[j].SegmentIndex })

		var cur *candidate
		for _, p := range ps {
			seg := segments[p.SegmentIndex]
			if cur != nil && p.SegmentIndex <= cur.segLast+1 {
				if p.SegmentIndex > cur.segLast {
					cur.segLast = p.SegmentIndex
					cur.end = seg.End
				}
				cur.confidence = math.Max(cur.confidence, p.Confidence)
				mergeCoords(cur, p)
				continue
			}
			if cur != nil {
				out = append(out, *cur)
			}
			cur = &candidate{
				label:    label,
				start:    seg.Start,
				end:      seg.End,
				segFirst: p.SegmentIndex,
				segLast:  p.SegmentIndex,
			}
			cur.confidence = p.Confidence
			mergeCoords(cur, p)
		}
		if cur != nil {
			out = append(out, *cur)
		}
	}
	return out
}

func mergeCoords(c *candidate, p *models.RawPrediction) {
	if p.X == nil || p.Y == nil {
		return
	}
	if c.x == nil {
		x, y := *p.X, *p.Y
		c.x, c.y = &x, &y
		c.coordWeight = 1
		return
	}
	// Running mean keeps the action anchored near the middle of its span.
	c.coordWeight++
	*c.x += (*p.X - *c.x) / c.coordWeight
	*c.y += (*p.Y - *c.y) / c.coordWeight
}

// displaceOverlaps keeps the higher-confidence candidate whenever two
// candidates for one player overlap in time. Ties go to the longer duration,
// then the earlier start, giving a deterministic total order.
func displaceOverlaps(candidates []candidate) []candidate {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.confidence != b.confidence {
			return a.confidence > b.confidence
		}
		if da, db := a.end-a.start, b.end-b.start; da != db {
			return da > db
		}
		if a.start != b.start {
			return a.start < b.start
		}
		return a.label < b.label
	})

	var accepted []candidate
	for _, c := range candidates {
		overlaps := false
		for _, k := range accepted {
			if c.start < k.end && k.start < c.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			accepted = append(accepted, c)
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })
	return accepted
}

func (a *Aggregator) buildAction(videoID uuid.UUID, playerKey uuid.UUID, c candidate, scoring map[int]bool) *models.Action {
	action := &models.Action{
		ID:           actionID(videoID, playerKey, c),
		VideoID:      videoID,
		Type:         models.ActionType(c.label),
		StartTime:    c.start,
		EndTime:      c.end,
		Confidence:   c.confidence,
		X:            c.x,
		Y:            c.y,
		ModelType:    a.cfg.ModelType,
		SegmentFirst: c.segFirst,
		SegmentLast:  c.segLast,
	}
	if playerKey != (uuid.UUID{}) {
		pid := playerKey
		action.PlayerID = &pid
	}
	if action.Type.IsShooting() {
		made := false
		for i := c.segFirst; i <= c.segLast; i++ {
			if scoring[i] {
				made = true
				break
			}
		}
		action.IsSuccessful = &made
	}
	return action
}

// actionID derives a stable UUID from the action's identity, which is what
// makes repeat aggregation runs reproduce identical rows.
func actionID(videoID, playerKey uuid.UUID, c candidate) uuid.UUID {
	name := fmt.Sprintf("%s|%s|%s|%d|%d", videoID, playerKey, c.label, c.segFirst, c.segLast)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
}

func (a *Aggregator) nearestPlayer(p *models.RawPrediction, players []*models.Player) *models.Player {
	if p.X == nil || p.Y == nil {
		return nil
	}
	var best *models.Player
	bestDist := a.cfg.CentroidMaxDistance
	for _, pl := range players {
		d := math.Hypot(*p.X-pl.CentroidX, *p.Y-pl.CentroidY)
		if d <= bestDist {
			best = pl
			bestDist = d
		}
	}
	return best
}

func playerSortKey(a *models.Action) string {
	if a.PlayerID == nil {
		return ""
	}
	return a.PlayerID.String()
}

func verifyNonOverlap(actions []*models.Action) error {
	for i := 1; i < len(actions); i++ {
		prev, cur := actions[i-1], actions[i]
		if playerSortKey(prev) != playerSortKey(cur) {
			continue
		}
		if cur.StartTime < prev.EndTime {
			return &AggregationError{Reason: fmt.Sprintf(
				"overlapping actions for player %s: [%v,%v) and [%v,%v)",
				playerSortKey(cur), prev.StartTime, prev.EndTime, cur.StartTime, cur.EndTime)}
		}
	}
	return nil
}
