package pipeline

import (
	"math"
	"testing"
)

func TestPlanSegmentsExactTiling(t *testing.T) {
	segments, err := PlanSegments(9, 3, 1.0/3.0)
	if err != nil {
		t.Fatalf("PlanSegments: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	for i, s := range segments {
		if s.Index != i {
			t.Errorf("segment %d has index %d", i, s.Index)
		}
		if s.Start != float64(i)*3 || s.End != float64(i+1)*3 {
			t.Errorf("segment %d covers [%v,%v)", i, s.Start, s.End)
		}
	}
}

func TestPlanSegmentsShortTailMergesIntoPrevious(t *testing.T) {
	// 10s at 3s per segment leaves a 1s tail, at the 1/3 cutoff: the tail
	// merges into the previous segment.
	segments, err := PlanSegments(10, 3, 1.0/3.0)
	if err != nil {
		t.Fatalf("PlanSegments: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	last := segments[2]
	if last.Start != 6 || last.End != 10 {
		t.Errorf("merged segment covers [%v,%v), want [6,10)", last.Start, last.End)
	}

	// A 2s tail clears the cutoff and stands alone.
	segments, err = PlanSegments(11, 3, 1.0/3.0)
	if err != nil {
		t.Fatalf("PlanSegments: %v", err)
	}
	if len(segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segments))
	}
	last = segments[3]
	if last.Start != 9 || last.End != 11 {
		t.Errorf("tail segment covers [%v,%v), want [9,11)", last.Start, last.End)
	}
}

func TestPlanSegmentsShortVideoSingleSegment(t *testing.T) {
	// A video shorter than one segment still gets one segment even though
	// the tail is below the fraction cutoff.
	segments, err := PlanSegments(0.4, 3, 1.0/3.0)
	if err != nil {
		t.Fatalf("PlanSegments: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Start != 0 || segments[0].End != 0.4 {
		t.Errorf("segment covers [%v,%v), want [0,0.4)", segments[0].Start, segments[0].End)
	}
}

func TestPlanSegmentsCoversDurationExactly(t *testing.T) {
	for _, duration := range []float64{1, 2.7, 3, 7.2, 10, 59.9, 3600} {
		segments, err := PlanSegments(duration, 3, 1.0/3.0)
		if err != nil {
			t.Fatalf("PlanSegments(%v): %v", duration, err)
		}
		if segments[0].Start != 0 {
			t.Errorf("duration %v: first segment starts at %v", duration, segments[0].Start)
		}
		for i := 1; i < len(segments); i++ {
			if segments[i].Start != segments[i-1].End {
				t.Errorf("duration %v: gap between segment %d and %d", duration, i-1, i)
			}
		}
		end := segments[len(segments)-1].End
		if math.Abs(end-duration) > 1e-9 {
			t.Errorf("duration %v: plan ends at %v", duration, end)
		}
	}
}

func TestPlanSegmentsRejectsBadInputs(t *testing.T) {
	if _, err := PlanSegments(0, 3, 1.0/3.0); err == nil {
		t.Error("expected error for zero duration")
	}
	if _, err := PlanSegments(-5, 3, 1.0/3.0); err == nil {
		t.Error("expected error for negative duration")
	}
	if _, err := PlanSegments(10, 0, 1.0/3.0); err == nil {
		t.Error("expected error for zero segment length")
	}
}

func TestPlanSegmentsDeterministic(t *testing.T) {
	a, err := PlanSegments(47.3, 3, 1.0/3.0)
	if err != nil {
		t.Fatalf("PlanSegments: %v", err)
	}
	b, _ := PlanSegments(47.3, 3, 1.0/3.0)
	if len(a) != len(b) {
		t.Fatalf("plans differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("segment %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
