package repository

import (
	"context"
	"database/sql"

	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/rs/zerolog/log"
)

type PublishAttemptRepository interface {
	Create(ctx context.Context, a *models.PublishAttempt) (int64, error)
	ListByPost(ctx context.Context, postID int64) ([]*models.PublishAttempt, error)
}

type publishAttemptRepository struct {
	db *sql.DB
}

func NewPublishAttemptRepository(db *sql.DB) PublishAttemptRepository {
	return &publishAttemptRepository{db: db}
}

func (r *publishAttemptRepository) Create(ctx context.Context, a *models.PublishAttempt) (int64, error) {
	query := `
		INSERT INTO publish_attempts (brand_id, post_id, platform, success, external_id, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, a.BrandID, a.PostID, a.Platform, a.Success, a.ExternalID, a.ErrorMessage).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		log.Error().Err(err).Int64("post_id", a.PostID).Msg("failed to record publish attempt")
		return 0, err
	}
	return a.ID, nil
}

// ListByPost returns attempts oldest first.
func (r *publishAttemptRepository) ListByPost(ctx context.Context, postID int64) ([]*models.PublishAttempt, error) {
	query := `
		SELECT id, brand_id, post_id, platform, success, external_id, error_message, created_at
		FROM publish_attempts WHERE post_id = $1 ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		log.Error().Err(err).Int64("post_id", postID).Msg("failed to list publish attempts")
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.PublishAttempt
	for rows.Next() {
		var a models.PublishAttempt
		err := rows.Scan(&a.ID, &a.BrandID, &a.PostID, &a.Platform, &a.Success, &a.ExternalID, &a.ErrorMessage, &a.CreatedAt)
		if err != nil {
			log.Error().Err(err).Int64("post_id", postID).Msg("failed to scan publish attempt")
			return nil, err
		}
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}
