package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

type HighlightRepository struct {
	db *sql.DB
}

func NewHighlightRepository(db *sql.DB) *HighlightRepository {
	return &HighlightRepository{db: db}
}

const highlightColumns = `id, video_id, player_id, title, type, file_path, duration,
       min_confidence, max_duration, action_ids, view_count, download_count, created_at`

func (r *HighlightRepository) Create(ctx context.Context, h *models.Highlight) error {
	ids := make([]string, len(h.ActionIDs))
	for i, id := range h.ActionIDs {
		ids[i] = id.String()
	}
	query := `
		INSERT INTO highlights (id, video_id, player_id, title, type, file_path, duration,
		                        min_confidence, max_duration, action_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::uuid[])
		RETURNING created_at`
	return r.db.QueryRowContext(ctx, query, h.ID, h.VideoID, h.PlayerID, h.Title, h.Type,
		h.FilePath, h.Duration, h.MinConfidence, h.MaxDuration, pq.Array(ids)).
		Scan(&h.CreatedAt)
}

// DeleteGenerated clears prior auto-generated highlights of the given type so
// a stage re-run replaces its own output instead of stacking duplicates.
func (r *HighlightRepository) DeleteGenerated(ctx context.Context, videoID uuid.UUID, highlightType models.HighlightType) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM highlights WHERE video_id = $1 AND type = $2`, videoID, highlightType)
	return err
}

func (r *HighlightRepository) Get(ctx context.Context, id uuid.UUID) (*models.Highlight, error) {
	query := `SELECT ` + highlightColumns + ` FROM highlights WHERE id = $1`
	h, err := scanHighlight(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return h, err
}

func (r *HighlightRepository) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*models.Highlight, error) {
	query := `SELECT ` + highlightColumns + `
		FROM highlights
		WHERE video_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var highlights []*models.Highlight
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, err
		}
		highlights = append(highlights, h)
	}
	return highlights, rows.Err()
}

func (r *HighlightRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE highlights SET view_count = view_count + 1 WHERE id = $1`, id)
	return err
}

func (r *HighlightRepository) IncrementDownloadCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE highlights SET download_count = download_count + 1 WHERE id = $1`, id)
	return err
}

func scanHighlight(row interface{ Scan(...interface{}) error }) (*models.Highlight, error) {
	h := &models.Highlight{}
	var ids pq.StringArray
	err := row.Scan(&h.ID, &h.VideoID, &h.PlayerID, &h.Title, &h.Type, &h.FilePath,
		&h.Duration, &h.MinConfidence, &h.MaxDuration, &ids, &h.ViewCount,
		&h.DownloadCount, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	for _, s := range ids {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		h.ActionIDs = append(h.ActionIDs, id)
	}
	return h, nil
}
