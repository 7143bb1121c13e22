package pipeline

import "fmt"

// Segment is a half-open time window [Start, End) used as the unit of
// inference. Segments are derived from (duration, segment length) on demand
// and never stored, so they cannot drift from the video they describe.
type Segment struct {
	Index int
	Start float64
	End   float64
}

func (s Segment) Length() float64 { return s.End - s.Start }

// Interval is a plain [Start, End) time range handed to adapters.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// PlanSegments tiles [0, duration) with consecutive segments of segLen
// seconds. The final segment holds the remainder; a remainder no longer than
// minTailFraction*segLen is merged into the previous segment instead, so the
// planner never emits a near-empty inference window.
//
// The result is deterministic for identical inputs: segments are contiguous,
// non-overlapping, and exactly cover [0, duration).
func PlanSegments(duration, segLen, minTailFraction float64) ([]Segment, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("plan segments: duration must be positive, got %v", duration)
	}
	if segLen <= 0 {
		return nil, fmt.Errorf("plan segments: segment length must be positive, got %v", segLen)
	}

	const eps = 1e-9

	full := int(duration / segLen)
	tail := duration - float64(full)*segLen
	if tail < eps {
		tail = 0
	}

	segments := make([]Segment, 0, full+1)
	for i := 0; i < full; i++ {
		segments = append(segments, Segment{
			Index: i,
			Start: float64(i) * segLen,
			End:   float64(i+1) * segLen,
		})
	}

	switch {
	case tail == 0:
		// Exact tiling.
	case len(segments) == 0 || tail > minTailFraction*segLen+eps:
		segments = append(segments, Segment{
			Index: len(segments),
			Start: float64(full) * segLen,
			End:   duration,
		})
	default:
		// Short tail: extend the last full segment to cover it.
		segments[len(segments)-1].End = duration
	}

	return segments, nil
}

// SegmentForIndex returns the planned segment with the given index.
func SegmentForIndex(segments []Segment, index int) (Segment, bool) {
	if index < 0 || index >= len(segments) {
		return Segment{}, false
	}
	return segments[index], true
}
