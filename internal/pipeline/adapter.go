package pipeline

import (
	"context"
	"fmt"
)

// EngineKind distinguishes the pluggable inference engines driving the
// pipeline. Detection finds player/ball boxes per segment, recognition
// classifies actions, ball reports scoring events used for shot attribution.
type EngineKind string

const (
	EngineDetection   EngineKind = "detection"
	EngineRecognition EngineKind = "recognition"
	EngineBall        EngineKind = "ball"
)

// Prediction is one engine output for one segment, before normalization.
// TrackID and the court coordinates are only populated by engines that
// attribute their output to a tracked player.
type Prediction struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	TrackID    string   `json:"track_id,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Area       *float64 `json:"area,omitempty"`
}

// Adapter is the uniform contract every inference engine satisfies. Infer
// must be safe to call concurrently up to MaxConcurrency; the runner never
// exceeds that bound regardless of its own concurrency setting.
type Adapter interface {
	Kind() EngineKind
	MaxConcurrency() int
	Infer(ctx context.Context, videoRef string, interval Interval) ([]Prediction, error)
}

// ──────────────────── Error taxonomy ────────────────────

// AdapterError wraps any engine-side failure, timeouts included. The runner
// retries these per segment up to its bound before counting the segment failed.
type AdapterError struct {
	Engine EngineKind
	Cause  error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s adapter: %v", e.Engine, e.Cause)
}

func (e *AdapterError) Unwrap() error { return e.Cause }

// ClipError wraps media clip extraction failures. Non-fatal to the highlight
// stage: the affected action is dropped and selection continues.
type ClipError struct {
	Cause error
}

func (e *ClipError) Error() string { return fmt.Sprintf("clip extraction: %v", e.Cause) }

func (e *ClipError) Unwrap() error { return e.Cause }

// AggregationError indicates malformed or contradictory prediction data.
// The aggregation stage fails without committing any partial action set.
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string { return "aggregation: " + e.Reason }

// StateConflictError indicates a concurrent status mutation was detected
// while committing a stage transition. Fatal to the triggering request.
type StateConflictError struct {
	VideoID  string
	Expected string
	Stage    string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict on video %s: stage %s expected status %q", e.VideoID, e.Stage, e.Expected)
}
