package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// ReplaceSegment commits one segment's predictions for one engine atomically.
// Delete-then-insert inside the transaction makes inference re-runs overwrite
// prior output for the segment instead of duplicating it.
func (r *PredictionRepository) ReplaceSegment(ctx context.Context, videoID uuid.UUID, engine string, segmentIndex int, preds []*models.RawPrediction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM raw_predictions
		WHERE video_id = $1 AND engine_kind = $2 AND segment_index = $3`,
		videoID, engine, segmentIndex); err != nil {
		return fmt.Errorf("clear segment predictions: %w", err)
	}

	query := `
		INSERT INTO raw_predictions (id, video_id, segment_index, engine_kind, label, confidence, track_id, x, y, area)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, p := range preds {
		if _, err := tx.ExecContext(ctx, query, p.ID, p.VideoID, p.SegmentIndex, p.EngineKind,
			p.Label, p.Confidence, p.TrackID, p.X, p.Y, p.Area); err != nil {
			return fmt.Errorf("insert prediction: %w", err)
		}
	}
	return tx.Commit()
}

// ListByVideo returns predictions ordered by segment index, which restores a
// deterministic order no matter how segment calls interleaved at runtime.
// Pass engine kinds to filter; none means all engines.
func (r *PredictionRepository) ListByVideo(ctx context.Context, videoID uuid.UUID, engines ...string) ([]*models.RawPrediction, error) {
	query := `
		SELECT id, video_id, segment_index, engine_kind, label, confidence, track_id, x, y, area, created_at
		FROM raw_predictions
		WHERE video_id = $1`
	args := []interface{}{videoID}
	if len(engines) > 0 {
		query += ` AND engine_kind = ANY($2)`
		arr := make([]string, len(engines))
		copy(arr, engines)
		args = append(args, pq.Array(arr))
	}
	query += ` ORDER BY engine_kind, segment_index, label`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []*models.RawPrediction
	for rows.Next() {
		p := &models.RawPrediction{}
		if err := rows.Scan(&p.ID, &p.VideoID, &p.SegmentIndex, &p.EngineKind, &p.Label,
			&p.Confidence, &p.TrackID, &p.X, &p.Y, &p.Area, &p.CreatedAt); err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

// DeleteByVideo drops a video's raw predictions. Called once aggregation has
// committed; predictions are kept when aggregation fails so a retry can
// re-consume them.
func (r *PredictionRepository) DeleteByVideo(ctx context.Context, videoID uuid.UUID, engines ...string) error {
	if len(engines) == 0 {
		_, err := r.db.ExecContext(ctx, `DELETE FROM raw_predictions WHERE video_id = $1`, videoID)
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM raw_predictions WHERE video_id = $1 AND engine_kind = ANY($2)`,
		videoID, pq.Array(engines))
	return err
}
