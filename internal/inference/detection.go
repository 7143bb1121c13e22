package inference

import (
	"context"

	"github.com/feanor77ist/Basketball-AI-BE/internal/pipeline"
)

// DetectionAdapter drives the object detection model server (YOLO-family
// person/ball boxes with tracker IDs). Output labels are "person" and "ball";
// coordinates are normalized box centers.
type DetectionAdapter struct {
	*modelClient
}

func NewDetectionAdapter(baseURL string, maxConcurrency int) *DetectionAdapter {
	return &DetectionAdapter{
		modelClient: newModelClient(baseURL, "/v1/detect", pipeline.EngineDetection, maxConcurrency),
	}
}

func (a *DetectionAdapter) Kind() pipeline.EngineKind { return pipeline.EngineDetection }

func (a *DetectionAdapter) MaxConcurrency() int { return a.maxConcurrency }

func (a *DetectionAdapter) Infer(ctx context.Context, videoRef string, interval pipeline.Interval) ([]pipeline.Prediction, error) {
	wire, err := a.infer(ctx, videoRef, interval)
	if err != nil {
		return nil, err
	}

	preds := make([]pipeline.Prediction, 0, len(wire))
	for _, w := range wire {
		if w.Label != "person" && w.Label != "ball" {
			continue
		}
		preds = append(preds, pipeline.Prediction{
			Label:      w.Label,
			Confidence: w.Confidence,
			TrackID:    w.TrackID,
			X:          w.X,
			Y:          w.Y,
			Area:       w.Area,
		})
	}
	return preds, nil
}
