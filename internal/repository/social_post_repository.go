package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/rs/zerolog/log"
)

const socialPostColumns = `id, brand_id, platform, format, body, hashtags, media, link, status,
	scheduled_at, published_at, failure_reason, external_id, ai_generated, user_edited,
	source_post_id, created_at, updated_at`

type SocialPostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.SocialPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialPost, error)
	ListByBrand(ctx context.Context, brandID int64, status models.PostStatus) ([]*models.SocialPost, error)
	ListByStatus(ctx context.Context, status models.PostStatus) ([]*models.SocialPost, error)
	UpdateState(ctx context.Context, post *models.SocialPost, from models.PostStatus) error
	Claim(ctx context.Context, id int64, from models.PostStatus, now, until time.Time) error
	Complete(ctx context.Context, post *models.SocialPost, from models.PostStatus, claim time.Time) error
	Remove(ctx context.Context, id int64) error
}

type socialPostRepository struct {
	db *sql.DB
}

func NewSocialPostRepository(db *sql.DB) SocialPostRepository {
	return &socialPostRepository{db: db}
}

func scanSocialPost(row rowScanner) (*models.SocialPost, error) {
	var p models.SocialPost
	err := row.Scan(&p.ID, &p.BrandID, &p.Platform, &p.Format, &p.Body, (*pq.StringArray)(&p.Hashtags),
		&p.Media, &p.Link, &p.Status, &p.ScheduledAt, &p.PublishedAt, &p.FailureReason,
		&p.ExternalID, &p.AIGenerated, &p.UserEdited, &p.SourcePostID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *socialPostRepository) Create(ctx context.Context, tx *sql.Tx, post *models.SocialPost) (int64, error) {
	query := `
		INSERT INTO social_posts (brand_id, platform, format, body, hashtags, media, link, status,
			scheduled_at, ai_generated, user_edited, source_post_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	if post.Status == "" {
		post.Status = models.PostStatusDraft
	}
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		post.BrandID, post.Platform, post.Format, post.Body, pq.Array(post.Hashtags), post.Media,
		post.Link, post.Status, post.ScheduledAt, post.AIGenerated, post.UserEdited, post.SourcePostID,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		log.Error().Err(err).Int64("brand_id", post.BrandID).Msg("failed to create social post")
		return 0, err
	}
	return post.ID, nil
}

func (r *socialPostRepository) GetByID(ctx context.Context, id int64) (*models.SocialPost, error) {
	query := `SELECT ` + socialPostColumns + ` FROM social_posts WHERE id = $1`
	post, err := scanSocialPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Int64("post_id", id).Msg("failed to load social post")
		return nil, err
	}
	return post, nil
}

// ListByBrand lists a brand's posts, newest first. An empty status lists all.
func (r *socialPostRepository) ListByBrand(ctx context.Context, brandID int64, status models.PostStatus) ([]*models.SocialPost, error) {
	query := `SELECT ` + socialPostColumns + ` FROM social_posts WHERE brand_id = $1`
	args := []interface{}{brandID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, args...)
}

func (r *socialPostRepository) ListByStatus(ctx context.Context, status models.PostStatus) ([]*models.SocialPost, error) {
	query := `SELECT ` + socialPostColumns + ` FROM social_posts WHERE status = $1 ORDER BY id`
	return r.list(ctx, query, status)
}

func (r *socialPostRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.SocialPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error().Err(err).Msg("failed to list social posts")
		return nil, err
	}
	defer rows.Close()

	var posts []*models.SocialPost
	for rows.Next() {
		post, err := scanSocialPost(rows)
		if err != nil {
			log.Error().Err(err).Msg("failed to scan social post")
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// UpdateState persists the status and its payload columns together. The row
// must still be in status from and not held by a live publish claim.
func (r *socialPostRepository) UpdateState(ctx context.Context, post *models.SocialPost, from models.PostStatus) error {
	query := `
		UPDATE social_posts
		SET status = $1,
			scheduled_at = $2,
			published_at = $3,
			failure_reason = $4,
			external_id = $5,
			claimed_until = NULL,
			updated_at = $6
		WHERE id = $7 AND status = $8
			AND (claimed_until IS NULL OR claimed_until < $6)
	`
	return r.writeState(ctx, query, post, from, nil)
}

// Claim marks a post in status from as being published until the lease runs
// out. A post already claimed by a live lease is not claimed again.
func (r *socialPostRepository) Claim(ctx context.Context, id int64, from models.PostStatus, now, until time.Time) error {
	query := `
		UPDATE social_posts
		SET claimed_until = $1
		WHERE id = $2 AND status = $3
			AND (claimed_until IS NULL OR claimed_until < $4)
	`
	res, err := r.db.ExecContext(ctx, query, until, id, from, now)
	if err != nil {
		log.Error().Err(err).Int64("post_id", id).Msg("failed to claim post")
		return err
	}
	return stalePost(res)
}

// Complete saves the outcome of a claimed publish and releases the claim. It
// only succeeds for the holder of the claim.
func (r *socialPostRepository) Complete(ctx context.Context, post *models.SocialPost, from models.PostStatus, claim time.Time) error {
	query := `
		UPDATE social_posts
		SET status = $1,
			scheduled_at = $2,
			published_at = $3,
			failure_reason = $4,
			external_id = $5,
			claimed_until = NULL,
			updated_at = $6
		WHERE id = $7 AND status = $8 AND claimed_until = $9
	`
	return r.writeState(ctx, query, post, from, &claim)
}

func (r *socialPostRepository) writeState(ctx context.Context, query string, post *models.SocialPost, from models.PostStatus, claim *time.Time) error {
	now := time.Now()
	args := []interface{}{post.Status, post.ScheduledAt, post.PublishedAt, post.FailureReason, post.ExternalID, now, post.ID, from}
	if claim != nil {
		args = append(args, *claim)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error().Err(err).Int64("post_id", post.ID).Str("status", string(post.Status)).Msg("failed to update post state")
		return err
	}
	if err := stalePost(res); err != nil {
		return err
	}
	post.UpdatedAt = now
	return nil
}

func stalePost(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrStalePost
	}
	return nil
}

func (r *socialPostRepository) Remove(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM social_posts WHERE id = $1`, id)
	if err != nil {
		log.Error().Err(err).Int64("post_id", id).Msg("failed to remove social post")
		return err
	}
	return nil
}
