package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/rs/zerolog/log"
)

const loopItemColumns = `id, loop_id, position, body, hashtags, link, media, format, platform,
	social_post_id, times_posted, last_posted_at, created_at, updated_at`

type LoopItemRepository interface {
	Create(ctx context.Context, tx *sql.Tx, item *models.LoopItem) (int64, error)
	GetByID(ctx context.Context, tx *sql.Tx, id int64) (*models.LoopItem, error)
	ListByLoop(ctx context.Context, tx *sql.Tx, loopID int64) ([]*models.LoopItem, error)
	UpdateContent(ctx context.Context, tx *sql.Tx, item *models.LoopItem) error
	UpdatePositions(ctx context.Context, tx *sql.Tx, items []*models.LoopItem) error
	Delete(ctx context.Context, tx *sql.Tx, id int64) error
	IncrementPosted(ctx context.Context, id int64, at time.Time) error
}

type loopItemRepository struct {
	db *sql.DB
}

func NewLoopItemRepository(db *sql.DB) LoopItemRepository {
	return &loopItemRepository{db: db}
}

func scanLoopItem(row rowScanner) (*models.LoopItem, error) {
	var i models.LoopItem
	var platform string
	err := row.Scan(&i.ID, &i.LoopID, &i.Position, &i.Body, (*pq.StringArray)(&i.Hashtags), &i.Link,
		&i.Media, &i.Format, &platform, &i.SocialPostID, &i.TimesPosted, &i.LastPostedAt,
		&i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	i.Platform = models.Platform(platform)
	return &i, nil
}

func (r *loopItemRepository) Create(ctx context.Context, tx *sql.Tx, item *models.LoopItem) (int64, error) {
	query := `
		INSERT INTO loop_items (loop_id, position, body, hashtags, link, media, format, platform, social_post_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	if item.Format == "" {
		item.Format = models.DefaultFormat
	}
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		item.LoopID, item.Position, item.Body, pq.Array(item.Hashtags), item.Link, item.Media,
		item.Format, string(item.Platform), item.SocialPostID,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		log.Error().Err(err).Int64("loop_id", item.LoopID).Msg("failed to create loop item")
		return 0, err
	}
	return item.ID, nil
}

func (r *loopItemRepository) GetByID(ctx context.Context, tx *sql.Tx, id int64) (*models.LoopItem, error) {
	query := `SELECT ` + loopItemColumns + ` FROM loop_items WHERE id = $1`
	item, err := scanLoopItem(conn(r.db, tx).QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Int64("item_id", id).Msg("failed to load loop item")
		return nil, err
	}
	return item, nil
}

// ListByLoop returns the loop's items ordered by position.
func (r *loopItemRepository) ListByLoop(ctx context.Context, tx *sql.Tx, loopID int64) ([]*models.LoopItem, error) {
	query := `SELECT ` + loopItemColumns + ` FROM loop_items WHERE loop_id = $1 ORDER BY position, id`
	rows, err := conn(r.db, tx).QueryContext(ctx, query, loopID)
	if err != nil {
		log.Error().Err(err).Int64("loop_id", loopID).Msg("failed to list loop items")
		return nil, err
	}
	defer rows.Close()

	var items []*models.LoopItem
	for rows.Next() {
		item, err := scanLoopItem(rows)
		if err != nil {
			log.Error().Err(err).Int64("loop_id", loopID).Msg("failed to scan loop item")
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *loopItemRepository) UpdateContent(ctx context.Context, tx *sql.Tx, item *models.LoopItem) error {
	query := `
		UPDATE loop_items
		SET body = $1,
			hashtags = $2,
			link = $3,
			media = $4,
			format = $5,
			platform = $6,
			updated_at = $7
		WHERE id = $8 AND social_post_id IS NULL
	`
	res, err := conn(r.db, tx).ExecContext(ctx, query,
		item.Body, pq.Array(item.Hashtags), item.Link, item.Media, item.Format, string(item.Platform),
		time.Now(), item.ID)
	if err != nil {
		log.Error().Err(err).Int64("item_id", item.ID).Msg("failed to update loop item")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrItemReadOnly
	}
	return nil
}

// UpdatePositions writes every item's position. The (loop_id, position)
// constraint is deferred, so intermediate duplicates are fine inside tx.
func (r *loopItemRepository) UpdatePositions(ctx context.Context, tx *sql.Tx, items []*models.LoopItem) error {
	q := conn(r.db, tx)
	now := time.Now()
	for _, item := range items {
		_, err := q.ExecContext(ctx, `UPDATE loop_items SET position = $1, updated_at = $2 WHERE id = $3`,
			item.Position, now, item.ID)
		if err != nil {
			log.Error().Err(err).Int64("item_id", item.ID).Msg("failed to update item position")
			return err
		}
	}
	return nil
}

func (r *loopItemRepository) Delete(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM loop_items WHERE id = $1`, id)
	if err != nil {
		log.Error().Err(err).Int64("item_id", id).Msg("failed to delete loop item")
		return err
	}
	return nil
}

// IncrementPosted bumps the counter in place so concurrent platform
// fan-outs never lose an update.
func (r *loopItemRepository) IncrementPosted(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE loop_items
		SET times_posted = times_posted + 1,
			last_posted_at = $1,
			updated_at = $1
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		log.Error().Err(err).Int64("item_id", id).Msg("failed to record item posted")
		return err
	}
	return nil
}
