package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

var ErrNotFound = errors.New("not found")

type VideoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

const videoColumns = `id, user_id, file_path, original_name, status, duration, fps, width, height,
       failed_stage, error_message, uploaded_at, processing_started_at, processing_completed_at, updated_at`

func scanVideo(row interface{ Scan(...interface{}) error }) (*models.Video, error) {
	v := &models.Video{}
	err := row.Scan(&v.ID, &v.UserID, &v.FilePath, &v.OriginalName, &v.Status, &v.Duration,
		&v.FPS, &v.Width, &v.Height, &v.FailedStage, &v.ErrorMessage,
		&v.UploadedAt, &v.ProcessingStartedAt, &v.ProcessingCompletedAt, &v.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *VideoRepository) Create(ctx context.Context, v *models.Video) error {
	query := `
		INSERT INTO videos (id, user_id, file_path, original_name, status, duration, fps, width, height)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING uploaded_at, updated_at`
	return r.db.QueryRowContext(ctx, query, v.ID, v.UserID, v.FilePath, v.OriginalName,
		v.Status, v.Duration, v.FPS, v.Width, v.Height).
		Scan(&v.UploadedAt, &v.UpdatedAt)
}

func (r *VideoRepository) ExistsByPath(ctx context.Context, filePath string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos WHERE file_path = $1`, filePath).Scan(&count)
	return count > 0, err
}

func (r *VideoRepository) Get(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`
	return scanVideo(r.db.QueryRowContext(ctx, query, id))
}

func (r *VideoRepository) List(ctx context.Context, userID *uuid.UUID) ([]*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos`
	args := []interface{}{}
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY uploaded_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// Transition performs the conditional status swap the state machine relies
// on: the row is updated only when it still holds the expected status, so
// concurrent writers cannot clobber each other. Reaching `done` also stamps
// the completion time; any transition clears or records the failure fields.
func (r *VideoRepository) Transition(ctx context.Context, id uuid.UUID, from, to models.VideoStatus, failedStage, errorMessage *string) (bool, error) {
	query := `
		UPDATE videos
		SET status = $1,
		    failed_stage = $2,
		    error_message = $3,
		    processing_completed_at = CASE WHEN $1 = 'done' THEN CURRENT_TIMESTAMP ELSE processing_completed_at END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, to, failedStage, errorMessage, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *VideoRepository) MarkProcessingStarted(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE videos
		SET processing_started_at = COALESCE(processing_started_at, CURRENT_TIMESTAMP),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateMetadata records the probed media properties of an uploaded file.
func (r *VideoRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, duration, fps float64, width, height int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE videos
		SET duration = $1, fps = $2, width = $3, height = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5`, duration, fps, width, height, id)
	return err
}

// ListStuck returns videos sitting in a non-terminal status with no update
// for the given number of minutes. The scheduler sweep re-enqueues them.
func (r *VideoRepository) ListStuck(ctx context.Context, olderThanMinutes int) ([]*models.Video, error) {
	query := `SELECT ` + videoColumns + `
		FROM videos
		WHERE status NOT IN ('done', 'error', 'uploaded')
		  AND updated_at < CURRENT_TIMESTAMP - ($1 * INTERVAL '1 minute')
		ORDER BY updated_at`
	rows, err := r.db.QueryContext(ctx, query, olderThanMinutes)
	if err != nil {
		return nil, fmt.Errorf("list stuck videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *VideoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
