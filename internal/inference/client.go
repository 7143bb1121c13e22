package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/feanor77ist/Basketball-AI-BE/internal/pipeline"
)

// modelClient is the shared HTTP plumbing for the model-serving endpoints.
// Each engine exposes one POST route taking a video path plus a time window
// and returning per-window predictions.
type modelClient struct {
	baseURL        string
	route          string
	kind           pipeline.EngineKind
	maxConcurrency int
	client         *http.Client
}

type inferRequest struct {
	VideoPath string  `json:"video_path"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

type wirePrediction struct {
	Label      string   `json:"label"`
	LabelIndex *int     `json:"label_index,omitempty"`
	Confidence float64  `json:"confidence"`
	TrackID    string   `json:"track_id,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Area       *float64 `json:"area,omitempty"`
}

type inferResponse struct {
	Predictions []wirePrediction `json:"predictions"`
}

func newModelClient(baseURL, route string, kind pipeline.EngineKind, maxConcurrency int) *modelClient {
	return &modelClient{
		baseURL:        baseURL,
		route:          route,
		kind:           kind,
		maxConcurrency: maxConcurrency,
		// No client-level timeout: the runner owns the per-call deadline.
		client: &http.Client{},
	}
}

func (c *modelClient) infer(ctx context.Context, videoRef string, interval pipeline.Interval) ([]wirePrediction, error) {
	body, err := json.Marshal(inferRequest{VideoPath: videoRef, Start: interval.Start, End: interval.End})
	if err != nil {
		return nil, &pipeline.AdapterError{Engine: c.kind, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.route, bytes.NewReader(body))
	if err != nil {
		return nil, &pipeline.AdapterError{Engine: c.kind, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &pipeline.AdapterError{Engine: c.kind, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &pipeline.AdapterError{Engine: c.kind, Cause: fmt.Errorf("model server returned %d", resp.StatusCode)}
	}

	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &pipeline.AdapterError{Engine: c.kind, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return out.Predictions, nil
}
