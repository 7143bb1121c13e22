package inference

import (
	"context"

	"github.com/feanor77ist/Basketball-AI-BE/internal/pipeline"
)

// BallAdapter drives the ball localization and scoring model. Its window
// output is event-level: "score" when a made basket is observed, "possession"
// with a track ID while a player controls the ball. Scoring events are how
// the aggregator decides whether a shot attempt was successful.
type BallAdapter struct {
	*modelClient
}

func NewBallAdapter(baseURL string, maxConcurrency int) *BallAdapter {
	return &BallAdapter{
		modelClient: newModelClient(baseURL, "/v1/analyze", pipeline.EngineBall, maxConcurrency),
	}
}

func (a *BallAdapter) Kind() pipeline.EngineKind { return pipeline.EngineBall }

func (a *BallAdapter) MaxConcurrency() int { return a.maxConcurrency }

func (a *BallAdapter) Infer(ctx context.Context, videoRef string, interval pipeline.Interval) ([]pipeline.Prediction, error) {
	wire, err := a.infer(ctx, videoRef, interval)
	if err != nil {
		return nil, err
	}

	preds := make([]pipeline.Prediction, 0, len(wire))
	for _, w := range wire {
		switch w.Label {
		case "score", "made_basket", "possession":
		default:
			continue
		}
		preds = append(preds, pipeline.Prediction{
			Label:      w.Label,
			Confidence: w.Confidence,
			TrackID:    w.TrackID,
			X:          w.X,
			Y:          w.Y,
		})
	}
	return preds, nil
}
