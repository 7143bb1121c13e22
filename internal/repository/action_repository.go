package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

type ActionRepository struct {
	db *sql.DB
}

func NewActionRepository(db *sql.DB) *ActionRepository {
	return &ActionRepository{db: db}
}

const actionColumns = `id, video_id, player_id, type, start_time, end_time, confidence,
       is_successful, x, y, model_type, segment_first, segment_last, superseded, created_at`

// ReplaceForVideo commits the aggregation output in one transaction: either
// the full action set lands or none of it does. Aggregation re-runs produce
// identical IDs, so the swap is idempotent.
func (r *ActionRepository) ReplaceForVideo(ctx context.Context, videoID uuid.UUID, actions []*models.Action) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM actions WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("clear actions: %w", err)
	}

	query := `
		INSERT INTO actions (id, video_id, player_id, type, start_time, end_time, confidence,
		                     is_successful, x, y, model_type, segment_first, segment_last)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	for _, a := range actions {
		if _, err := tx.ExecContext(ctx, query, a.ID, a.VideoID, a.PlayerID, a.Type,
			a.StartTime, a.EndTime, a.Confidence, a.IsSuccessful, a.X, a.Y,
			a.ModelType, a.SegmentFirst, a.SegmentLast); err != nil {
			return fmt.Errorf("insert action %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

func (r *ActionRepository) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*models.Action, error) {
	query := `SELECT ` + actionColumns + `
		FROM actions
		WHERE video_id = $1
		ORDER BY player_id NULLS FIRST, start_time`
	rows, err := r.db.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActions(rows)
}

func (r *ActionRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]*models.Action, error) {
	query := `SELECT ` + actionColumns + `
		FROM actions
		WHERE player_id = $1
		ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActions(rows)
}

// MarkSuperseded sets the terminal superseded flag; the only mutation an
// action admits after creation.
func (r *ActionRepository) MarkSuperseded(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE actions SET superseded = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanActions(rows *sql.Rows) ([]*models.Action, error) {
	var actions []*models.Action
	for rows.Next() {
		a := &models.Action{}
		if err := rows.Scan(&a.ID, &a.VideoID, &a.PlayerID, &a.Type, &a.StartTime, &a.EndTime,
			&a.Confidence, &a.IsSuccessful, &a.X, &a.Y, &a.ModelType,
			&a.SegmentFirst, &a.SegmentLast, &a.Superseded, &a.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
