package inference

import (
	"testing"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

func TestActionTypeForResolvesIndexAndLabel(t *testing.T) {
	idx := 5
	if got, ok := actionTypeFor(wirePrediction{LabelIndex: &idx}); !ok || got != models.ActionShot3Pt {
		t.Errorf("index 5 resolved to %q (%v)", got, ok)
	}
	if got, ok := actionTypeFor(wirePrediction{Label: "dribble"}); !ok || got != models.ActionDribble {
		t.Errorf("label dribble resolved to %q (%v)", got, ok)
	}
}

func TestActionTypeForLabelTakesPrecedence(t *testing.T) {
	idx := 0
	got, ok := actionTypeFor(wirePrediction{Label: "pass", LabelIndex: &idx})
	if !ok || got != models.ActionPass {
		t.Errorf("resolved to %q (%v), want pass", got, ok)
	}
}

func TestActionTypeForDropsUnknown(t *testing.T) {
	if _, ok := actionTypeFor(wirePrediction{Label: "juggling"}); ok {
		t.Error("unknown label accepted")
	}
	idx := 99
	if _, ok := actionTypeFor(wirePrediction{LabelIndex: &idx}); ok {
		t.Error("unknown class index accepted")
	}
	if _, ok := actionTypeFor(wirePrediction{}); ok {
		t.Error("empty prediction accepted")
	}
}
