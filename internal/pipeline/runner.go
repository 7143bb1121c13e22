package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

// PredictionStore is the durable sink for normalized segment output. Each
// completed segment is persisted as it finishes, so a crash mid-stage never
// loses finished segment work. ReplaceSegment must be transactional per
// (video, engine, segment) so re-runs overwrite instead of duplicating.
type PredictionStore interface {
	ReplaceSegment(ctx context.Context, videoID uuid.UUID, engine string, segmentIndex int, preds []*models.RawPrediction) error
}

type RunnerConfig struct {
	SegmentLength    float64
	MinTailFraction  float64
	Concurrency      int
	MaxRetries       int
	RetryBackoff     time.Duration
	CallTimeout      time.Duration
	FailureTolerance float64
	AdapterRPS       float64
}

func (c *RunnerConfig) applyDefaults() {
	if c.SegmentLength <= 0 {
		c.SegmentLength = 3
	}
	if c.MinTailFraction <= 0 {
		c.MinTailFraction = 1.0 / 3.0
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.FailureTolerance <= 0 {
		c.FailureTolerance = 0.10
	}
	if c.AdapterRPS <= 0 {
		c.AdapterRPS = 8
	}
}

// RunReport summarizes one engine pass over a video's segments.
type RunReport struct {
	Engine         EngineKind
	Segments       int
	FailedSegments int
	Predictions    int
}

// Runner drives one inference call per segment per engine, normalizes the
// heterogeneous adapter outputs into RawPrediction rows, and contains
// per-segment failure. A segment's call is retried with exponential backoff;
// once retries are exhausted the segment counts as failed but its siblings
// proceed. The pass as a whole fails only when the failed fraction exceeds
// the configured tolerance.
type Runner struct {
	store PredictionStore
	cfg   RunnerConfig
}

func NewRunner(store PredictionStore, cfg RunnerConfig) *Runner {
	cfg.applyDefaults()
	return &Runner{store: store, cfg: cfg}
}

// PlanFor exposes the segment plan the runner will use for a duration.
func (r *Runner) PlanFor(duration float64) ([]Segment, error) {
	return PlanSegments(duration, r.cfg.SegmentLength, r.cfg.MinTailFraction)
}

// Run executes every configured adapter over the video's segment plan.
// Segment calls for one engine run concurrently up to the configured limit
// (never above the adapter's own declared bound); engines run one after
// another so each external service sees only its own load.
func (r *Runner) Run(ctx context.Context, video *models.Video, adapters []Adapter) ([]RunReport, error) {
	segments, err := r.PlanFor(video.Duration)
	if err != nil {
		return nil, err
	}

	reports := make([]RunReport, 0, len(adapters))
	for _, adapter := range adapters {
		report, err := r.runEngine(ctx, video, adapter, segments)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (r *Runner) runEngine(ctx context.Context, video *models.Video, adapter Adapter, segments []Segment) (RunReport, error) {
	workers := r.cfg.Concurrency
	if max := adapter.MaxConcurrency(); max > 0 && max < workers {
		workers = max
	}

	limiter := rate.NewLimiter(rate.Limit(r.cfg.AdapterRPS), workers)
	sem := semaphore.NewWeighted(int64(workers))

	var failed, predicted int64

	g, gctx := errgroup.WithContext(ctx)
	for _, seg := range segments {
		seg := seg
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			preds, err := r.inferWithRetry(gctx, video, adapter, seg, limiter)
			if err != nil {
				// Contained: the segment is lost but siblings continue.
				atomic.AddInt64(&failed, 1)
				log.Printf("Pipeline: video %s segment %d %s inference failed permanently: %v",
					video.ID, seg.Index, adapter.Kind(), err)
				return nil
			}

			rows := normalize(video.ID, adapter.Kind(), seg, preds)
			if err := r.store.ReplaceSegment(gctx, video.ID, string(adapter.Kind()), seg.Index, rows); err != nil {
				return fmt.Errorf("persist segment %d predictions: %w", seg.Index, err)
			}
			atomic.AddInt64(&predicted, int64(len(rows)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RunReport{}, err
	}

	report := RunReport{
		Engine:         adapter.Kind(),
		Segments:       len(segments),
		FailedSegments: int(failed),
		Predictions:    int(predicted),
	}

	if frac := float64(failed) / float64(len(segments)); frac > r.cfg.FailureTolerance {
		return report, fmt.Errorf("%s inference: %d of %d segments failed (tolerance %.0f%%): %w",
			adapter.Kind(), failed, len(segments), r.cfg.FailureTolerance*100,
			&AdapterError{Engine: adapter.Kind(), Cause: fmt.Errorf("failed segment fraction %.2f", frac)})
	}

	log.Printf("Pipeline: video %s %s inference complete: %d segments, %d failed, %d predictions",
		video.ID, adapter.Kind(), report.Segments, report.FailedSegments, report.Predictions)
	return report, nil
}

// inferWithRetry runs one adapter call per attempt under the per-call timeout.
// Timeouts and engine errors are treated identically for retry purposes.
func (r *Runner) inferWithRetry(ctx context.Context, video *models.Video, adapter Adapter, seg Segment, limiter *rate.Limiter) ([]Prediction, error) {
	interval := Interval{Start: seg.Start, End: seg.End}

	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.cfg.RetryBackoff << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		preds, err := adapter.Infer(callCtx, video.FilePath, interval)
		cancel()
		if err == nil {
			return preds, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, &AdapterError{Engine: adapter.Kind(), Cause: lastErr}
}

func normalize(videoID uuid.UUID, kind EngineKind, seg Segment, preds []Prediction) []*models.RawPrediction {
	rows := make([]*models.RawPrediction, 0, len(preds))
	for _, p := range preds {
		row := &models.RawPrediction{
			ID:           uuid.New(),
			VideoID:      videoID,
			SegmentIndex: seg.Index,
			EngineKind:   string(kind),
			Label:        p.Label,
			Confidence:   p.Confidence,
			X:            p.X,
			Y:            p.Y,
			Area:         p.Area,
		}
		if p.TrackID != "" {
			t := p.TrackID
			row.TrackID = &t
		}
		rows = append(rows, row)
	}
	return rows
}
