package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

type PlayerRepository struct {
	db *sql.DB
}

func NewPlayerRepository(db *sql.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// ReplaceForVideo swaps the video's player set in one transaction, so a
// re-run of the detection stage lands a fresh set instead of accumulating
// duplicate tracks.
func (r *PlayerRepository) ReplaceForVideo(ctx context.Context, videoID uuid.UUID, players []*models.Player) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM players WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("clear players: %w", err)
	}

	query := `
		INSERT INTO players (id, video_id, track_id, jersey_number, team_color,
		                     detection_confidence, avg_bbox_area, centroid_x, centroid_y)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, p := range players {
		if _, err := tx.ExecContext(ctx, query, p.ID, p.VideoID, p.TrackID, p.JerseyNumber,
			p.TeamColor, p.DetectionConfidence, p.AvgBBoxArea, p.CentroidX, p.CentroidY); err != nil {
			return fmt.Errorf("insert player track %s: %w", p.TrackID, err)
		}
	}
	return tx.Commit()
}

func (r *PlayerRepository) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*models.Player, error) {
	query := `
		SELECT id, video_id, track_id, jersey_number, team_color,
		       detection_confidence, avg_bbox_area, centroid_x, centroid_y, created_at
		FROM players
		WHERE video_id = $1
		ORDER BY jersey_number`
	rows, err := r.db.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		p := &models.Player{}
		if err := rows.Scan(&p.ID, &p.VideoID, &p.TrackID, &p.JerseyNumber, &p.TeamColor,
			&p.DetectionConfidence, &p.AvgBBoxArea, &p.CentroidX, &p.CentroidY, &p.CreatedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *PlayerRepository) Get(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	query := `
		SELECT id, video_id, track_id, jersey_number, team_color,
		       detection_confidence, avg_bbox_area, centroid_x, centroid_y, created_at
		FROM players WHERE id = $1`
	p := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.VideoID, &p.TrackID,
		&p.JerseyNumber, &p.TeamColor, &p.DetectionConfidence, &p.AvgBBoxArea,
		&p.CentroidX, &p.CentroidY, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
