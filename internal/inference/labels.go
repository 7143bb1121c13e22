package inference

import "github.com/feanor77ist/Basketball-AI-BE/internal/models"

// recognitionClasses maps the action recognition model's class indices to
// action types. The model is trained on a basketball vocabulary; classes
// without a mapping are outside it and get dropped during normalization.
var recognitionClasses = map[int]models.ActionType{
	0: models.ActionShot2Pt,
	1: models.ActionPass,
	2: models.ActionDribble,
	3: models.ActionRun,
	4: models.ActionJump,
	5: models.ActionShot3Pt,
	6: models.ActionFreeThrow,
	7: models.ActionDunk,
	8: models.ActionLayup,
	9: models.ActionSteal,
	10: models.ActionBlock,
	11: models.ActionReboundOffensive,
	12: models.ActionReboundDefensive,
	13: models.ActionTurnover,
	14: models.ActionFoul,
	15: models.ActionAssist,
	16: models.ActionWalk,
}

var recognitionNames = func() map[string]models.ActionType {
	m := make(map[string]models.ActionType, len(recognitionClasses))
	for _, t := range recognitionClasses {
		m[string(t)] = t
	}
	return m
}()

// actionTypeFor resolves a wire prediction's label to a known action type,
// accepting either a class index or an already-canonical label string.
func actionTypeFor(p wirePrediction) (models.ActionType, bool) {
	if p.Label != "" {
		t, ok := recognitionNames[p.Label]
		return t, ok
	}
	if p.LabelIndex != nil {
		t, ok := recognitionClasses[*p.LabelIndex]
		return t, ok
	}
	return "", false
}
