package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

const statsColumns = `id, video_id, player_id, fga_2pt, fgm_2pt, fga_3pt, fgm_3pt, fta, ftm,
       assists, offensive_rebounds, defensive_rebounds, rebounds, steals, blocks,
       turnovers, fouls, points, minutes_played, created_at`

// ReplaceForVideo swaps the whole stats set for a video in one transaction.
// Stats are re-derived wholesale from committed actions every run; there is
// deliberately no increment path.
func (r *StatsRepository) ReplaceForVideo(ctx context.Context, videoID uuid.UUID, stats []*models.Stats) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stats WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("clear stats: %w", err)
	}

	query := `
		INSERT INTO stats (id, video_id, player_id, fga_2pt, fgm_2pt, fga_3pt, fgm_3pt, fta, ftm,
		                   assists, offensive_rebounds, defensive_rebounds, rebounds, steals,
		                   blocks, turnovers, fouls, points, minutes_played)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	for _, s := range stats {
		if _, err := tx.ExecContext(ctx, query, s.ID, s.VideoID, s.PlayerID,
			s.FGA2, s.FGM2, s.FGA3, s.FGM3, s.FTA, s.FTM,
			s.Assists, s.OffensiveRebounds, s.DefensiveRebounds, s.Rebounds, s.Steals,
			s.Blocks, s.Turnovers, s.Fouls, s.Points, s.MinutesPlayed); err != nil {
			return fmt.Errorf("insert stats for player %s: %w", s.PlayerID, err)
		}
	}
	return tx.Commit()
}

func (r *StatsRepository) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*models.Stats, error) {
	query := `SELECT ` + statsColumns + ` FROM stats WHERE video_id = $1 ORDER BY player_id`
	rows, err := r.db.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*models.Stats
	for rows.Next() {
		s := &models.Stats{}
		if err := rows.Scan(&s.ID, &s.VideoID, &s.PlayerID,
			&s.FGA2, &s.FGM2, &s.FGA3, &s.FGM3, &s.FTA, &s.FTM,
			&s.Assists, &s.OffensiveRebounds, &s.DefensiveRebounds, &s.Rebounds, &s.Steals,
			&s.Blocks, &s.Turnovers, &s.Fouls, &s.Points, &s.MinutesPlayed, &s.CreatedAt); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *StatsRepository) GetByPlayer(ctx context.Context, videoID, playerID uuid.UUID) (*models.Stats, error) {
	query := `SELECT ` + statsColumns + ` FROM stats WHERE video_id = $1 AND player_id = $2`
	s := &models.Stats{}
	err := r.db.QueryRowContext(ctx, query, videoID, playerID).Scan(&s.ID, &s.VideoID, &s.PlayerID,
		&s.FGA2, &s.FGM2, &s.FGA3, &s.FGM3, &s.FTA, &s.FTM,
		&s.Assists, &s.OffensiveRebounds, &s.DefensiveRebounds, &s.Rebounds, &s.Steals,
		&s.Blocks, &s.Turnovers, &s.Fouls, &s.Points, &s.MinutesPlayed, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
