package inference

import (
	"context"

	"github.com/feanor77ist/Basketball-AI-BE/internal/pipeline"
)

// RecognitionAdapter drives the action recognition model server (mmaction2
// style clip classifier). Wire labels are normalized to the canonical action
// vocabulary; classes outside it are dropped here so the aggregator only
// ever sees labels it can commit.
type RecognitionAdapter struct {
	*modelClient
}

func NewRecognitionAdapter(baseURL string, maxConcurrency int) *RecognitionAdapter {
	return &RecognitionAdapter{
		modelClient: newModelClient(baseURL, "/v1/recognize", pipeline.EngineRecognition, maxConcurrency),
	}
}

func (a *RecognitionAdapter) Kind() pipeline.EngineKind { return pipeline.EngineRecognition }

func (a *RecognitionAdapter) MaxConcurrency() int { return a.maxConcurrency }

func (a *RecognitionAdapter) Infer(ctx context.Context, videoRef string, interval pipeline.Interval) ([]pipeline.Prediction, error) {
	wire, err := a.infer(ctx, videoRef, interval)
	if err != nil {
		return nil, err
	}

	preds := make([]pipeline.Prediction, 0, len(wire))
	for _, w := range wire {
		actionType, ok := actionTypeFor(w)
		if !ok {
			continue
		}
		preds = append(preds, pipeline.Prediction{
			Label:      string(actionType),
			Confidence: w.Confidence,
			TrackID:    w.TrackID,
			X:          w.X,
			Y:          w.Y,
		})
	}
	return preds, nil
}
